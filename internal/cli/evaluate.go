package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/batch"
	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/config"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/report"
	"github.com/rshade/commutesim/internal/snapshot"
	"github.com/rshade/commutesim/internal/tui"
)

// evaluateFlags holds the flags of the evaluate command.
type evaluateFlags struct {
	runs            int
	seed            uint64
	factorsPath     string
	output          string
	precision       int
	workers         int
	progress        bool
	exportPath      string
	runLogPath      string
	noCache         bool
	noEquivalencies bool
}

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	var flags evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate <scenario-file>",
		Short: "Estimate annual emissions for a scenario",
		Long: `Runs the scenario's population through the commute and working-from-home
calculators several times and reports the spread of annual emissions.

Runs default to the scenario's runs field, then engine.default_runs from the
configuration. Passing --seed makes the result reproducible; seeded results
are cached on disk.`,
		Example: `  # Evaluate with defaults
  commutesim evaluate scenario.yaml

  # 100 reproducible runs as JSON
  commutesim evaluate scenario.yaml --runs 100 --seed 7 -o json

  # Custom factors, per-run CSV and a replayable snapshot
  commutesim evaluate scenario.yaml --factors factors.csv --log-csv runs.csv --export snapshot.yaml`,
		Args: requireArgs("scenario file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExitCode(runEvaluate(cmd, args[0], flags))
		},
	}

	f := cmd.Flags()
	f.IntVarP(&flags.runs, "runs", "n", 0, "number of simulation runs (default: scenario or config)")
	f.Uint64Var(&flags.seed, "seed", 0, "seed for a reproducible result (default: random)")
	f.StringVar(&flags.factorsPath, "factors", "", "emission factor table (.csv, .yaml or .json)")
	f.StringVarP(&flags.output, "output", "o", "", "output format: table, json or yaml (default: config)")
	f.IntVar(&flags.precision, "precision", -1, "decimals shown for tonnes in table output (default: config)")
	f.IntVar(&flags.workers, "workers", 0, "runs evaluated in parallel (default: config or CPU count)")
	f.BoolVar(&flags.progress, "progress", false, "show a progress bar on the terminal")
	f.StringVar(&flags.exportPath, "export", "", "write a snapshot of scenario, seed and result (.yaml or .json)")
	f.StringVar(&flags.runLogPath, "log-csv", "", "write per-run totals as CSV")
	f.BoolVar(&flags.noCache, "no-cache", false, "bypass the on-disk result cache")
	f.BoolVar(&flags.noEquivalencies, "no-equivalencies", false, "omit the equivalency line from table output")

	return cmd
}

//nolint:funlen // Sections mirror the evaluate pipeline: load, run, render, export.
func runEvaluate(cmd *cobra.Command, path string, flags evaluateFlags) error {
	ctx := cmd.Context()
	appCfg := config.GetGlobalConfig()

	format, err := report.ParseFormat(firstNonEmpty(flags.output, appCfg.Output.DefaultFormat))
	if err != nil {
		return err
	}
	precision := appCfg.Output.Precision
	if flags.precision >= 0 {
		precision = flags.precision
	}

	cfg, ownRuns, err := loadScenario(path)
	if err != nil {
		return err
	}
	table, err := loadFactors(appCfg, flags.factorsPath)
	if err != nil {
		return err
	}

	runs := cfg.Runs()
	if !ownRuns {
		runs = appCfg.Engine.DefaultRuns
	}
	if cmd.Flags().Changed("runs") {
		runs = flags.runs
	}
	var seed *uint64
	if cmd.Flags().Changed("seed") {
		seed = &flags.seed
	}

	logger.Info().
		Ctx(ctx).
		Str("operation", "evaluate").
		Str("scenario", filepath.Base(path)).
		Str("factor_table", table.Name()).
		Int("runs", runs).
		Msg("evaluating scenario")

	store := openFileCache(ctx, appCfg, flags.noCache)
	evaluate := func(ctx context.Context, onProgress func(batch.ProgressSnapshot)) (*engine.AggregateResult, error) {
		opts := engineOptions(appCfg, flags.workers)
		if onProgress != nil {
			opts = append(opts, engine.WithProgress(onProgress))
		}
		e, err := engine.New(opts...)
		if err != nil {
			return nil, err
		}
		res, hit, err := cache.NewEvaluator(e, store, nil).Evaluate(ctx, cfg, table, runs, seed)
		if hit {
			logger.Info().Ctx(ctx).Str("operation", "evaluate").Msg("result served from cache")
		}
		return res, err
	}

	var result *engine.AggregateResult
	if flags.progress && isTerminal(os.Stderr) {
		title := fmt.Sprintf("Evaluating %s (%d runs x %s individuals)",
			firstNonEmpty(cfg.Name(), filepath.Base(path)), runs, report.FormatNumber(int64(cfg.Population())))
		result, err = tui.RunWithProgress(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), title, evaluate)
	} else {
		result, err = evaluate(ctx, nil)
	}
	if err != nil {
		return err
	}

	if flags.exportPath != "" {
		if err := snapshot.Save(flags.exportPath, snapshot.New(cfg, table, result)); err != nil {
			return err
		}
		cmd.PrintErrf("Snapshot written to %s\n", flags.exportPath)
	}
	if flags.runLogPath != "" {
		if err := writeRunLog(flags.runLogPath, result); err != nil {
			return err
		}
		cmd.PrintErrf("Run log written to %s\n", flags.runLogPath)
	}

	return report.Render(cmd.OutOrStdout(), result, format, report.Options{
		Precision:         precision,
		HideEquivalencies: flags.noEquivalencies,
	})
}

func writeRunLog(path string, result *engine.AggregateResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating run log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return report.WriteRunLog(f, result)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
