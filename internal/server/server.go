// Package server exposes scenario evaluation over HTTP.
//
// Routes:
//   - POST /v1/evaluate evaluates a scenario against the default or an inline factor table
//   - POST /v1/validate reports every problem in a scenario without evaluating it
//   - GET  /v1/factors returns the default factor table
//   - GET  /healthz and GET /metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/metrics"
)

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// DefaultMaxIndividuals bounds runs x population for one request.
const DefaultMaxIndividuals = 50_000_000

// Options configures a Server.
type Options struct {
	Listen       string
	RateLimit    float64
	Burst        int
	MaxBodyBytes int64
	// MaxIndividuals bounds runs x population per evaluation; 0 selects
	// DefaultMaxIndividuals.
	MaxIndividuals int64
	// TrustProxy honours X-Forwarded-For for rate limiting.
	TrustProxy bool

	Engine   *engine.Engine
	Table    *factors.Table
	Store    cache.Store
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
	Version  string
}

// Server serves the HTTP API.
type Server struct {
	opts      Options
	evaluator *cache.Evaluator
	handler   http.Handler
	started   time.Time
}

// New builds a Server. Engine and Table are required.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("server requires an engine")
	}
	if opts.Table == nil {
		return nil, errors.New("server requires a factor table")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.MaxIndividuals <= 0 {
		opts.MaxIndividuals = DefaultMaxIndividuals
	}

	limiter, err := NewRateLimiter(opts.RateLimit, opts.Burst, DefaultMaxVisitors, opts.TrustProxy, opts.Metrics)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:      opts,
		evaluator: cache.NewEvaluator(opts.Engine, opts.Store, opts.Metrics),
		started:   time.Now(),
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /v1/evaluate", s.handleEvaluate)
	api.HandleFunc("POST /v1/validate", s.handleValidate)
	api.HandleFunc("GET /v1/factors", s.handleFactors)
	limited := limiter.Middleware(RequestSizeLimiter(opts.MaxBodyBytes)(api))

	mux := http.NewServeMux()
	mux.Handle("/v1/", limited)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.handler = RequestContext(opts.Logger, opts.Metrics)(mux)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.opts.Logger.WithContext(context.Background()) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.opts.Logger.Info().
		Str("component", "server").
		Str("listen", ln.Addr().String()).
		Str("version", s.opts.Version).
		Msg("server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.opts.Logger.Info().Str("component", "server").Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
