package cli

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/config"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/metrics"
	"github.com/rshade/commutesim/internal/server"
)

// NewServeCmd creates the serve command, which runs the HTTP API.
func NewServeCmd(ver string) *cobra.Command {
	var (
		listen      string
		rateLimit   float64
		burst       int
		factorsPath string
		trustProxy  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation API over HTTP",
		Long: `Serves POST /v1/evaluate, POST /v1/validate and GET /v1/factors, plus
GET /healthz and Prometheus metrics on GET /metrics.

Requests are rate limited per client address. Seeded evaluations are cached
in memory.`,
		Example: `  commutesim serve
  commutesim serve --listen :9090 --rate-limit 20 --burst 40`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			if cmd.Flags().Changed("listen") {
				cfg.Server.Listen = listen
			}
			if cmd.Flags().Changed("rate-limit") {
				cfg.Server.RateLimit = rateLimit
			}
			if cmd.Flags().Changed("burst") {
				cfg.Server.Burst = burst
			}

			table, err := loadFactors(cfg, factorsPath)
			if err != nil {
				return withExitCode(err)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)

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

			srv, err := server.New(server.Options{
				Listen:       cfg.Server.Listen,
				RateLimit:    cfg.Server.RateLimit,
				Burst:        cfg.Server.Burst,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
				TrustProxy:   trustProxy,
				Engine:       e,
				Table:        table,
				Store:        store,
				Metrics:      m,
				Gatherer:     reg,
				Logger:       baseLogger,
				Version:      ver,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", config.DefaultListen, "address to listen on")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", config.DefaultRateLimit, "requests per second per client (0 disables)")
	cmd.Flags().IntVar(&burst, "burst", config.DefaultBurst, "requests a client may burst above the rate")
	cmd.Flags().StringVar(&factorsPath, "factors", "", "emission factor table served by default")
	cmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "use X-Forwarded-For for client addresses")

	return cmd
}
