// Package engine evaluates a scenario: it runs the population generator and
// emission calculators over repeated, independently seeded runs and reduces
// the run totals to an AggregateResult.
//
// Evaluation is deterministic for a given seed regardless of worker count or
// batch scheduling:
//   - each run's seed is derived from the evaluation seed with SplitMix64
//   - each block of StreamBlock individuals draws from its own PCG stream keyed by (run seed, block index)
//   - block partials are merged in index order and runs are reduced in run order
//
// Batches only group whole blocks for scheduling, so the batch size never
// changes a seeded result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/commutesim/internal/batch"
	"github.com/rshade/commutesim/internal/emissions"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/logging"
	"github.com/rshade/commutesim/internal/metrics"
	"github.com/rshade/commutesim/internal/population"
	"github.com/rshade/commutesim/internal/scenario"
	"github.com/rshade/commutesim/internal/tracing"
)

// ProgressFunc receives progress updates. It may be called from several
// goroutines at once.
type ProgressFunc func(batch.ProgressSnapshot)

// Engine runs evaluations. It is safe for concurrent use.
type Engine struct {
	workers    int
	processor  *batch.Processor
	metrics    *metrics.Metrics
	onProgress ProgressFunc
}

// Option configures an Engine.
type Option func(*Engine) error

// WithWorkers bounds the number of runs evaluated in parallel. n < 1 selects
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			n = runtime.NumCPU()
		}
		e.workers = n
		return nil
	}
}

// WithBatchSize sets the number of individuals per batch. Batches hold whole
// stream blocks, so n is rounded up to a multiple of StreamBlock.
func WithBatchSize(n int) Option {
	return func(e *Engine) error {
		if _, err := batch.NewProcessor(n); err != nil {
			return err
		}
		p, err := batch.NewProcessor(alignToBlock(n))
		if err != nil {
			return err
		}
		e.processor = p
		return nil
	}
}

// WithMetrics records evaluations and runs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithProgress reports batch completions to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) error {
		e.onProgress = fn
		return nil
	}
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		workers:   runtime.NumCPU(),
		processor: batch.NewProcessorWithDefaults(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("configuring engine: %w", err)
		}
	}
	return e, nil
}

// Evaluate runs cfg against table with the default engine.
func Evaluate(
	ctx context.Context,
	cfg *scenario.Config,
	table *factors.Table,
	runs int,
	seed *uint64,
) (*AggregateResult, error) {
	e, err := New()
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, cfg, table, runs, seed)
}

// Evaluate runs the scenario runs times and aggregates the results. With a
// non-nil seed the result is bit-identical across calls; with a nil seed one
// is drawn and reported in the result.
//
// Errors are returned whole: either every run completes and is aggregated, or
// no result is returned. Cancelling ctx stops the evaluation before the next
// run or batch starts.
func (e *Engine) Evaluate(
	ctx context.Context,
	cfg *scenario.Config,
	table *factors.Table,
	runs int,
	seed *uint64,
) (*AggregateResult, error) {
	start := time.Now()
	result, err := e.evaluate(ctx, cfg, table, runs, seed)
	individuals := 0
	if result != nil {
		individuals = result.Runs * result.Population
	}
	e.metrics.ObserveEvaluation(Outcome(err), time.Since(start), individuals)
	return result, err
}

//nolint:funlen // Sections mirror the evaluation phases.
func (e *Engine) evaluate(
	ctx context.Context,
	cfg *scenario.Config,
	table *factors.Table,
	runs int,
	seed *uint64,
) (result *AggregateResult, err error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	if err := CheckRuns(runs); err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.New("scenario config cannot be nil")
	}
	if table == nil {
		return nil, errors.New("factor table cannot be nil")
	}

	base := NewSeed()
	if seed != nil {
		base = *seed
	}

	ctx, span := tracing.StartSpan(ctx, "engine.evaluate",
		tracing.EvaluationAttributes(cfg.Name(), runs, cfg.Population(), base)...)
	defer func() { tracing.End(span, err) }()

	log.Debug().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "evaluate").
		Str("scenario", cfg.Name()).
		Int("runs", runs).
		Int("population", cfg.Population()).
		Uint64("seed", base).
		Int("workers", e.workers).
		Msg("starting evaluation")

	gen := population.New(cfg)
	scorer := emissions.NewScorer(cfg, table)
	n := cfg.Population()

	progress := batch.NewProgress(runs*n, runs*e.processor.CountBatches(n))
	proc := e.processor.WithProgress(progress, e.progressCallback())
	batchWorkers := max(1, e.workers/runs)

	results := make([]RunResult, runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range runs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.run(gctx, proc, gen, scorer, n, i, RunSeed(base, i), batchWorkers)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Error().
			Ctx(ctx).
			Str("component", "engine").
			Str("operation", "evaluate").
			Err(err).
			Msg("evaluation failed")
		return nil, err
	}

	result, err = Aggregate(results)
	if err != nil {
		return nil, err
	}
	result.Scenario = cfg.Name()
	result.FactorTable = table.Name()
	result.FactorDigest = table.Digest()
	result.Seed = base
	result.Population = n

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "evaluate").
		Int("runs", runs).
		Int("population", n).
		Uint64("seed", base).
		Float64("mean_total_kg", result.Total.Mean).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("evaluation complete")

	return result, nil
}

// run scores one population. Batches may run concurrently; each block gets
// its own accumulator and the blocks are merged in index order.
func (e *Engine) run(
	ctx context.Context,
	proc *batch.Processor,
	gen *population.Generator,
	scorer *emissions.Scorer,
	n, run int,
	seed uint64,
	workers int,
) (RunResult, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "engine.run", attribute.Int(tracing.AttrRun, run))

	partials := make([]*RunAccumulator, blockCount(n))
	err := proc.ProcessConcurrent(ctx, n, func(_ context.Context, r batch.Range) error {
		for b := r.Start / StreamBlock; b*StreamBlock < r.End; b++ {
			acc := NewRunAccumulator()
			stream := gen.Stream(blockSource(seed, b), min(StreamBlock, n-b*StreamBlock))
			for ind, ok := stream.Next(); ok; ind, ok = stream.Next() {
				score, err := scorer.Score(ind)
				if err != nil {
					return err
				}
				acc.Add(ind, score)
			}
			partials[b] = acc
		}
		return nil
	}, workers)
	tracing.End(span, err)
	if err != nil {
		return RunResult{}, err
	}

	total := NewRunAccumulator()
	for _, p := range partials {
		total.Merge(p)
	}
	result := total.Result(run, seed)

	e.metrics.ObserveRun(time.Since(start))
	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "run").
		Int("run", run).
		Float64("total_kg", result.Total).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("run complete")

	return result, nil
}

func (e *Engine) progressCallback() batch.ProgressCallback {
	if e.onProgress == nil {
		return nil
	}
	return func(p *batch.Progress) { e.onProgress(p.Snapshot()) }
}

// Outcome classifies an evaluation error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, scenario.ErrConfiguration):
		return metrics.OutcomeConfiguration
	case errors.Is(err, factors.ErrMissingFactor):
		return metrics.OutcomeMissingFactor
	case errors.Is(err, ErrInvalidRunCount):
		return metrics.OutcomeInvalidRuns
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeError
	}
}
