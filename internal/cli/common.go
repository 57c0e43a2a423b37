package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/config"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/logging"
	"github.com/rshade/commutesim/internal/scenario"
)

// loadFactors returns the table at path, the configured table, or the
// built-in default, in that order.
func loadFactors(cfg *config.Config, path string) (*factors.Table, error) {
	if path == "" {
		path = cfg.Engine.Factors
	}
	if path == "" {
		return factors.Default()
	}
	return factors.Load(path)
}

// loadScenario reads and validates the scenario at path. It also reports
// whether the document set its own run count.
func loadScenario(path string) (*scenario.Config, bool, error) {
	spec, err := scenario.LoadSpec(path)
	if err != nil {
		return nil, false, err
	}
	cfg, err := scenario.New(spec)
	if err != nil {
		return nil, false, err
	}
	return cfg, spec.Runs != 0, nil
}

// engineOptions translates the engine section of cfg.
func engineOptions(cfg *config.Config, workers int) []engine.Option {
	if workers <= 0 {
		workers = cfg.EffectiveWorkers()
	}
	return []engine.Option{
		engine.WithWorkers(workers),
		engine.WithBatchSize(cfg.Engine.BatchSize),
	}
}

// openFileCache opens the on-disk result cache. A cache that cannot be
// opened is logged and skipped; evaluation never depends on it.
func openFileCache(ctx context.Context, cfg *config.Config, disabled bool) cache.Store {
	if disabled || !cfg.Cache.Enabled {
		return nil
	}
	store, err := cache.NewFileStore(cfg.CacheDirectory(), true, cfg.Cache.TTLSeconds)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Ctx(ctx).
			Str("component", "cli").
			Str("cache_dir", cfg.CacheDirectory()).
			Err(err).
			Msg("result cache unavailable")
		return nil
	}
	return store
}

// requireArgs is cobra.ExactArgs with a message naming the missing argument.
func requireArgs(name string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		switch {
		case len(args) == 0:
			return errors.New("missing " + name + " argument")
		case len(args) > 1:
			return errors.New("expected a single " + name + " argument")
		}
		return nil
	}
}
