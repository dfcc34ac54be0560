package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attestly/attestly/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented example attestly.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteExample(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			fmt.Println("Set auth.bootstrap_secret (or ATTESTLY_AUTH_BOOTSTRAP_SECRET) before starting the server.")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "attestly.yaml", "Where to write the config file")

	return cmd
}
