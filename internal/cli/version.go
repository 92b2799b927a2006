package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rocketship-ai/rpbdd/internal/agent"
)

// VersionEnv overrides the reported version
const VersionEnv = "RPBDD_VERSION"

// NewVersionCmd creates a new version command
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rpbdd",
		Long:  `Print the version number of the rpbdd agent.`,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rpbdd %s\n", currentVersion())
		},
	}

	return cmd
}

func currentVersion() string {
	if v := os.Getenv(VersionEnv); v != "" {
		return v
	}
	return agent.Version
}
