package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/commutesim/internal/config"
	"github.com/rshade/commutesim/internal/logging"
	"github.com/rshade/commutesim/internal/tracing"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// baseLogger is logger without the cli component, handed to the servers.
var baseLogger zerolog.Logger //nolint:gochecknoglobals // Set with logger in setupLogging

// NewRootCmd creates the root Cobra command for the commutesim CLI. It
// resolves configuration, wires up logging and tracing, and registers the
// subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult     *logging.LogPathResult
		stopTracing   func(context.Context) error
		projectDirArg string
	)

	cmd := &cobra.Command{
		Use:     "commutesim",
		Short:   "Estimate commuting and working-from-home emissions",
		Long:    "commutesim estimates an organisation's annual commuting and working-from-home greenhouse-gas emissions by Monte Carlo simulation.",
		Version: ver,
		Example: rootCmdExample,
		// main reports errors and picks the exit code.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			wd, _ := os.Getwd()
			projectDir := config.ResolveProjectDir(ctx, projectDirArg, wd)
			cfg := config.NewWithProjectDir(ctx, projectDir)
			config.SetGlobalConfig(cfg)
			cmd.SetContext(contextWithProjectDir(ctx, projectDir))

			result := setupLogging(cmd, cfg)
			logResult = &result

			shutdown, err := tracing.Init(cmd.Context(), ver)
			if err != nil {
				logger.Warn().Ctx(cmd.Context()).Err(err).Msg("tracing disabled")
				shutdown = nil
			}
			stopTracing = shutdown
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if stopTracing != nil {
				if err := stopTracing(context.Background()); err != nil {
					logger.Warn().Err(err).Msg("flushing traces")
				}
			}
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&projectDirArg, "project-dir", "",
		"project directory holding .commutesim/config.yaml (default: search upwards from the working directory)")

	cmd.AddCommand(
		NewEvaluateCmd(),
		NewReplayCmd(),
		NewValidateCmd(),
		NewInitCmd(),
		newFactorsCmd(),
		newConfigCmd(),
		newCacheCmd(),
		NewServeCmd(ver),
		NewMCPCmd(ver),
		NewVersionCmd(ver),
	)

	return cmd
}

const rootCmdExample = `  # Write an example scenario and evaluate it
  commutesim init scenario.yaml
  commutesim evaluate scenario.yaml

  # Reproducible run with a progress bar, exporting a snapshot
  commutesim evaluate scenario.yaml --runs 50 --seed 42 --progress --export run.json

  # Check a scenario without running it
  commutesim validate scenario.yaml

  # List the built-in emission factors
  commutesim factors list

  # Serve the HTTP API
  commutesim serve --listen 127.0.0.1:8080`

// newFactorsCmd creates the factors command group.
func newFactorsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "factors", Short: "Emission factor commands"}
	cmd.AddCommand(NewFactorsListCmd())
	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd(), NewConfigValidateCmd())
	return cmd
}

type projectDirKey struct{}

func contextWithProjectDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, projectDirKey{}, dir)
}

// projectDirFromContext returns the resolved project .commutesim directory,
// or "" outside a project.
func projectDirFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	dir, _ := ctx.Value(projectDirKey{}).(string)
	return dir
}
