package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rocketship-ai/rpbdd/internal/credentials"
)

// newCredentialStore is swapped out in tests
var newCredentialStore = func() credentials.Store {
	return credentials.NewKeyringStore()
}

// NewAuthCmd creates a new auth command
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored ReportPortal API keys",
		Long:  `Store ReportPortal API keys in the system keyring, per endpoint. A stored key is used when the configuration has none.`,
	}

	cmd.AddCommand(
		NewAuthSetKeyCmd(),
		NewAuthClearCmd(),
		NewAuthStatusCmd(),
	)

	return cmd
}

func NewAuthSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <endpoint> <api-key>",
		Short: "Store an API key for an endpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred := &credentials.Credential{Endpoint: args[0], APIKey: args[1], SavedAt: time.Now().UTC()}
			if err := newCredentialStore().Save(cmd.Context(), cred); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s API key stored for %s\n", color.GreenString("✓"), args[0])
			return nil
		},
	}
}

func NewAuthClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <endpoint>",
		Short: "Remove the stored API key for an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newCredentialStore().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API key removed for %s\n", args[0])
			return nil
		},
	}
}

func NewAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <endpoint>",
		Short: "Show whether an API key is stored for an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := newCredentialStore().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cred == nil {
				_, _ = fmt.Fprintf(out, "Status: %s\n", color.RedString("No key stored"))
				_, _ = fmt.Fprintf(out, "Run 'rpbdd auth set-key %s <api-key>' to store one\n", args[0])
				return nil
			}
			_, _ = fmt.Fprintf(out, "Status: %s\n", color.GreenString("Key stored"))
			_, _ = fmt.Fprintf(out, "Endpoint: %s\n", cred.Endpoint)
			_, _ = fmt.Fprintf(out, "Saved: %s\n", cred.SavedAt.Format(time.RFC3339))
			return nil
		},
	}
}
