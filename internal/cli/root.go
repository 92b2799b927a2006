package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates a new root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpbdd",
		Short: "rpbdd reports BDD runs to ReportPortal",
		Long:  `rpbdd replays BDD results as a ReportPortal launch of suites, scenarios, steps and logs.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				_ = os.Setenv(LogEnv, "DEBUG")
			}

			InitLogging()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.AddCommand(
		NewReportCmd(),
		NewAuthCmd(),
		NewVersionCmd(),
	)

	return cmd
}
