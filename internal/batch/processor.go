package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Default batch processing configuration.
const (
	// DefaultBatchSize is the default number of individuals per batch.
	DefaultBatchSize = 1000

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size.
	MaxBatchSize = 100_000
)

// Common batch processing errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be between 1 and 100000")
	ErrNilCallback      = errors.New("batch callback cannot be nil")
)

// Range is the half-open index range [Start, End) of one batch.
type Range struct {
	Index int
	Start int
	End   int
}

// Len returns the number of items in the range.
func (r Range) Len() int { return r.End - r.Start }

// BatchCallback processes a single batch.
//
//nolint:revive // BatchCallback is the canonical name for this exported type.
type BatchCallback func(ctx context.Context, r Range) error

// ProgressCallback is invoked after each batch completes.
type ProgressCallback func(progress *Progress)

// Processor splits a count into batches and runs a callback per batch.
type Processor struct {
	batchSize  int
	progress   *Progress
	onProgress ProgressCallback
}

// NewProcessor creates a processor with the given batch size.
func NewProcessor(batchSize int) (*Processor, error) {
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	return &Processor{batchSize: batchSize}, nil
}

// NewProcessorWithDefaults creates a processor with DefaultBatchSize.
func NewProcessorWithDefaults() *Processor {
	return &Processor{batchSize: DefaultBatchSize}
}

// WithProgress reports completed batches to a shared tracker. Several
// processors may share one tracker; cb may be nil.
func (p *Processor) WithProgress(progress *Progress, cb ProgressCallback) *Processor {
	out := *p
	out.progress = progress
	out.onProgress = cb
	return &out
}

// BatchSize returns the configured batch size.
func (p *Processor) BatchSize() int {
	return p.batchSize
}

// Ranges returns the batches covering total items. Zero items yields no batches.
func (p *Processor) Ranges(total int) []Range {
	n := p.CountBatches(total)
	ranges := make([]Range, n)
	for i := range n {
		start := i * p.batchSize
		ranges[i] = Range{Index: i, Start: start, End: min(start+p.batchSize, total)}
	}
	return ranges
}

// CountBatches returns the number of batches needed for total items.
func (p *Processor) CountBatches(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + p.batchSize - 1) / p.batchSize
}

// Process runs callback over each batch in index order and stops on the first
// error. The context is checked before every batch.
func (p *Processor) Process(ctx context.Context, total int, callback BatchCallback) error {
	if callback == nil {
		return ErrNilCallback
	}
	for _, r := range p.Ranges(total) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(ctx, r); err != nil {
			return fmt.Errorf("batch %d failed: %w", r.Index, err)
		}
		p.report(r)
	}
	return nil
}

// ProcessConcurrent runs up to maxConcurrency batches at once. The first
// error cancels the remaining batches and is returned.
func (p *Processor) ProcessConcurrent(
	ctx context.Context,
	total int,
	callback BatchCallback,
	maxConcurrency int,
) error {
	if callback == nil {
		return ErrNilCallback
	}
	if maxConcurrency <= 1 {
		return p.Process(ctx, total, callback)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, r := range p.Ranges(total) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := callback(gctx, r); err != nil {
				return fmt.Errorf("batch %d failed: %w", r.Index, err)
			}
			p.report(r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Processor) report(r Range) {
	if p.progress == nil {
		return
	}
	p.progress.AddProcessed(r.Len())
	if p.onProgress != nil {
		p.onProgress(p.progress)
	}
}
