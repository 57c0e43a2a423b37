package cache

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/logging"
	"github.com/rshade/commutesim/internal/metrics"
	"github.com/rshade/commutesim/internal/scenario"
	"github.com/rshade/commutesim/internal/tracing"
)

// Evaluator wraps an engine with a result cache. Only seeded evaluations are
// looked up or stored; a nil seed always evaluates.
type Evaluator struct {
	engine  *engine.Engine
	store   Store
	metrics *metrics.Metrics
}

// NewEvaluator creates a caching evaluator. A nil store disables caching.
func NewEvaluator(e *engine.Engine, store Store, m *metrics.Metrics) *Evaluator {
	return &Evaluator{engine: e, store: store, metrics: m}
}

// Evaluate returns a cached result when one exists for these inputs, and
// otherwise evaluates and stores the result. hit reports a cache hit.
// Cache read and write failures are logged and never fail the evaluation.
func (c *Evaluator) Evaluate(
	ctx context.Context,
	cfg *scenario.Config,
	table *factors.Table,
	runs int,
	seed *uint64,
) (result *engine.AggregateResult, hit bool, err error) {
	if c.store == nil || seed == nil || cfg == nil || table == nil {
		result, err = c.engine.Evaluate(ctx, cfg, table, runs, seed)
		return result, false, err
	}

	log := logging.FromContext(ctx)
	key, err := Key(cfg, table.Digest(), runs, *seed)
	if err != nil {
		return nil, false, err
	}

	if cached, ok := c.lookup(ctx, key); ok {
		c.metrics.ObserveCache(true)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool(tracing.AttrCacheHit, true))
		return cached, true, nil
	}
	c.metrics.ObserveCache(false)

	result, err = c.engine.Evaluate(ctx, cfg, table, runs, seed)
	if err != nil {
		return nil, false, err
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = c.store.Set(key, data)
	}
	if err != nil && !errors.Is(err, ErrDisabled) {
		log.Warn().
			Ctx(ctx).
			Str("component", "cache").
			Str("operation", "store").
			Str("key", key).
			Err(err).
			Msg("failed to store evaluation result")
	}
	return result, false, nil
}

func (c *Evaluator) lookup(ctx context.Context, key string) (*engine.AggregateResult, bool) {
	log := logging.FromContext(ctx)
	entry, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExpired) && !errors.Is(err, ErrDisabled) {
			log.Warn().
				Ctx(ctx).
				Str("component", "cache").
				Str("operation", "lookup").
				Str("key", key).
				Err(err).
				Msg("cache read failed")
		}
		return nil, false
	}

	var result engine.AggregateResult
	if err := json.Unmarshal(entry.Data, &result); err != nil {
		log.Warn().
			Ctx(ctx).
			Str("component", "cache").
			Str("operation", "lookup").
			Str("key", key).
			Err(err).
			Msg("discarding undecodable cache entry")
		_ = c.store.Delete(key)
		return nil, false
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "cache").
		Str("operation", "lookup").
		Str("key", key).
		Dur("age", entry.Age()).
		Msg("cache hit")
	return &result, true
}
