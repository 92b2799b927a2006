package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rocketship-ai/rpbdd/internal/agent"
	"github.com/rocketship-ai/rpbdd/internal/config"
	"github.com/rocketship-ai/rpbdd/internal/credentials"
	"github.com/rocketship-ai/rpbdd/internal/cucumber"
)

type reportOptions struct {
	configPath string
	envFile    string
	defines    []string
}

// NewReportCmd creates a new report command
func NewReportCmd() *cobra.Command {
	opts := reportOptions{}
	cmd := &cobra.Command{
		Use:   "report <results.json>",
		Short: "Report a cucumber JSON results file to ReportPortal",
		Long: `Replay a cucumber JSON results file (as written by godog, cucumber-js or
behave) as a ReportPortal launch. Settings come from the report_portal section of
the config file, RP_<KEY> environment variables and -D key=value overrides.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, launch, err := runReport(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum, launch)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFile, "Path to the config file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.envFile, "env-file", "e", "", "Read RP_<KEY> settings from a .env file; the process environment wins")
	cmd.Flags().StringArrayVarP(&opts.defines, "define", "D", nil, "Override a setting, e.g. -D launch_name=nightly")

	return cmd
}

func runReport(ctx context.Context, path string, opts reportOptions) (cucumber.Summary, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cucumber.Summary{}, "", fmt.Errorf("failed to read results: %w", err)
	}
	features, err := cucumber.Parse(data)
	if err != nil {
		return cucumber.Summary{}, "", err
	}

	defines, err := config.ParseOverrides(opts.defines)
	if err != nil {
		return cucumber.Summary{}, "", err
	}
	overrides := make(map[string]any)
	if opts.envFile != "" {
		env, err := loadEnvFile(opts.envFile)
		if err != nil {
			return cucumber.Summary{}, "", err
		}
		for k, v := range config.OverridesFromEnv(withoutProcessEnv(env)) {
			overrides[k] = v
		}
	}
	for k, v := range defines {
		overrides[k] = v
	}
	warnSecretFile(config.ConfigPath(opts.configPath, overrides))
	cfg, err := config.Load(opts.configPath, overrides)
	if err != nil {
		return cucumber.Summary{}, "", err
	}
	if cfg.APIKey == "" {
		key, err := credentials.LookupKey(ctx, newCredentialStore(), cfg.Endpoint)
		if err != nil {
			slog.Debug("failed to read stored API key", "error", err)
		} else if key != "" {
			slog.Debug("using stored API key", "endpoint", cfg.Endpoint)
			cfg.SetAPIKey(key)
		}
	}

	a := agent.New(cfg, agent.NewReporter(cfg))
	if !a.Enabled() {
		slog.Warn("ReportPortal reporting is disabled: endpoint, project and api_key are required")
	}

	userData := make(map[string]string, len(defines))
	for k, v := range defines {
		userData[k] = fmt.Sprint(v)
	}

	sum, err := cucumber.Replay(ctx, a, cucumber.Convert(features), userData)
	if err != nil {
		return sum, a.LaunchID(), fmt.Errorf("failed to report results: %w", err)
	}
	return sum, a.LaunchID(), nil
}

func warnSecretFile(path string) {
	foreign, worldReadable, err := checkSecretFile(path)
	if err != nil {
		return
	}
	if foreign {
		slog.Warn("config file is owned by another user", "path", path)
	}
	if worldReadable {
		slog.Warn("config file is readable by other users; it may contain an API key", "path", path)
	}
}

// printSummary prints the aggregated results of the replayed run
func printSummary(w io.Writer, sum cucumber.Summary, launch string) {
	_, _ = fmt.Fprintln(w, "\n=== Report Summary ===")
	_, _ = fmt.Fprintf(w, "Features: %d\n", sum.Features)
	_, _ = fmt.Fprintf(w, "Scenarios: %d (%d steps)\n", sum.Scenarios, sum.Steps)
	_, _ = fmt.Fprintf(w, "%s Passed: %d\n", color.GreenString("✓"), sum.Passed)
	_, _ = fmt.Fprintf(w, "%s Failed: %d\n", color.RedString("✗"), sum.Failed)
	_, _ = fmt.Fprintf(w, "%s Skipped: %d\n", color.YellowString("-"), sum.Skipped)
	if launch != "" {
		_, _ = fmt.Fprintf(w, "Launch: %s\n", launch)
	} else {
		_, _ = fmt.Fprintf(w, "Launch: %s\n", color.YellowString("not reported"))
	}
}
