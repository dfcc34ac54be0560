package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/attestly/attestly/internal/token"
)

func newTokenCmd() *cobra.Command {
	var (
		keyID       string
		ttl         time.Duration
		secretStdin bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT for an API key",
		Long: `Sign a bearer token for the given key id using its secret.

The secret is read from a no-echo terminal prompt by default, or from stdin
with --secret-stdin (for scripting). Use the key id "bootstrap" with the
configured bootstrap secret to mint a bootstrap token.`,
		Example: `  attestly token --key-id primary_admin_3f9c21aa
  echo "$SECRET" | attestly token --key-id bootstrap --secret-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(keyID, ttl, secretStdin)
		},
	}

	cmd.Flags().StringVar(&keyID, "key-id", "", "Key id to embed as the token subject (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&secretStdin, "secret-stdin", false, "Read the secret from stdin instead of prompting")
	cmd.MarkFlagRequired("key-id")

	return cmd
}

func runToken(keyID string, ttl time.Duration, secretStdin bool) error {
	var secret string

	if secretStdin {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read secret from stdin: %w", err)
		}
		secret = strings.TrimSpace(line)
	} else {
		fmt.Fprint(os.Stderr, "Secret: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
		secret = strings.TrimSpace(string(raw))
	}

	if secret == "" {
		return fmt.Errorf("secret is empty")
	}

	signed, err := token.Issue(keyID, secret, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Println(signed)
	return nil
}
