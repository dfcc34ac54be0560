package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/attestly/attestly/internal/auth"
	"github.com/attestly/attestly/internal/keys"
	"github.com/attestly/attestly/internal/model"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long: `Create, list, update, and deactivate API keys directly against the store.

This path bypasses HTTP authentication and acts as a local operator; use it
to create the first admin key before the server has any credentials.`,
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyUpdateCmd())
	cmd.AddCommand(newKeyDeactivateCmd())

	return cmd
}

// cliActor is the acting identity recorded in audit fields for local
// operator commands. It carries the admin role so the lifecycle rules treat
// the operator as fully privileged.
var cliActor = auth.Result{KeyID: "cli", Role: model.RoleAdmin}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		role        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key. The signing secret is shown once and cannot be retrieved again.",
		Example: `  attestly key create --role admin --description "Primary admin"
  attestly key create --role issuer --description "Conference 2026"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(role, description)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Role for the key: admin, issuer, or reader (required)")
	cmd.Flags().StringVar(&description, "description", "", "Unique human-readable label (min 3 characters)")
	cmd.MarkFlagRequired("role")

	return cmd
}

func runKeyCreate(role, description string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	manager := keys.NewManager(st)

	active := true
	in := keys.CreateInput{Role: role, IsActive: &active}
	if strings.TrimSpace(description) != "" {
		in.Description = &description
	}

	key, err := manager.Create(context.Background(), cliActor, in)
	if err != nil {
		return err
	}

	fmt.Println("API key created.")
	fmt.Println()
	fmt.Printf("  Key ID: %s\n", key.ID)
	fmt.Printf("  Role:   %s\n", key.Role)
	if key.Description != nil {
		fmt.Printf("  Label:  %s\n", *key.Description)
	}
	fmt.Printf("  Secret: %s\n", key.Secret)
	fmt.Println()
	fmt.Println("Store this secret now. It will not be shown again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	records, err := keys.NewManager(st).List(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY ID\tROLE\tACTIVE\tDESCRIPTION\tCREATED")
	for _, k := range records {
		desc := ""
		if k.Description != nil {
			desc = *k.Description
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			k.ID, k.Role, k.IsActive, desc, k.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// ---------- key update ----------

func newKeyUpdateCmd() *cobra.Command {
	var (
		role        string
		description string
		activate    bool
		deactivate  bool
	)

	cmd := &cobra.Command{
		Use:   "update <key-id-or-description>",
		Short: "Update an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := keys.UpdatePatch{}
			if role != "" {
				patch.Role = &role
			}
			if description != "" {
				patch.Description = &description
			}
			if activate {
				v := true
				patch.IsActive = &v
			} else if deactivate {
				v := false
				patch.IsActive = &v
			}
			return runKeyUpdate(args[0], patch)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "New role: admin, issuer, or reader")
	cmd.Flags().StringVar(&description, "description", "", "New unique label")
	cmd.Flags().BoolVar(&activate, "activate", false, "Reactivate the key")
	cmd.Flags().BoolVar(&deactivate, "deactivate", false, "Deactivate the key")
	cmd.MarkFlagsMutuallyExclusive("activate", "deactivate")

	return cmd
}

func runKeyUpdate(target string, patch keys.UpdatePatch) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	applied, err := keys.NewManager(st).Update(context.Background(), cliActor, target, patch)
	if err != nil {
		return err
	}

	fmt.Printf("Key %q updated:\n", target)
	for field, value := range applied {
		fmt.Printf("  %s = %v\n", field, value)
	}
	return nil
}

// ---------- key deactivate ----------

func newKeyDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deactivate <key-id-or-description>",
		Aliases: []string{"revoke"},
		Short:   "Deactivate an API key",
		Long:    "Soft-disable a key. The record is kept and its id and description remain reserved.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyDeactivate(args[0])
		},
	}
	return cmd
}

func runKeyDeactivate(target string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	key, err := keys.NewManager(st).Deactivate(context.Background(), cliActor, target)
	if err != nil {
		return err
	}

	fmt.Printf("Key %s deactivated.\n", key.ID)
	return nil
}
