package cli

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/config"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/mcptools"
	"github.com/rshade/commutesim/internal/metrics"
)

// NewMCPCmd creates the mcp command, which serves the Model Context Protocol
// over stdin and stdout.
func NewMCPCmd(ver string) *cobra.Command {
	var factorsPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve evaluation tools to MCP clients over stdio",
		Long: `Speaks the Model Context Protocol on stdin/stdout, exposing the tools
evaluate_scenario, validate_scenario and list_factors.

Logs must not share stdout with the protocol; configure logging.file or keep
the default stderr output.`,
		Example: `  # Register with an MCP client
  commutesim mcp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			table, err := loadFactors(cfg, factorsPath)
			if err != nil {
				return withExitCode(err)
			}

			m := metrics.New(prometheus.NewRegistry())
			e, err := engine.New(append(engineOptions(cfg, 0), engine.WithMetrics(m))...)
			if err != nil {
				return err
			}
			var store cache.Store
			if cfg.Cache.Enabled && cfg.Cache.MemoryEntries > 0 {
				mem, err := cache.NewMemoryStore(cfg.Cache.MemoryEntries, cfg.Cache.TTLSeconds)
				if err != nil {
					return err
				}
				store = mem
			}

			svc := mcptools.NewService(e, table, store, m, baseLogger)
			srv := mcptools.NewServer(svc, ver)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return mcptools.Serve(ctx, srv, svc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&factorsPath, "factors", "", "emission factor table used when a call supplies none")

	return cmd
}
