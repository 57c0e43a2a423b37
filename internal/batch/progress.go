package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks completed individuals and batches across one evaluation.
// All methods are safe for concurrent use.
type Progress struct {
	totalItems       int
	processedItems   int
	totalBatches     int
	processedBatches int
	startTime        time.Time
	lastUpdateTime   time.Time

	mu sync.RWMutex
}

// NewProgress creates a tracker expecting totalItems across totalBatches.
func NewProgress(totalItems, totalBatches int) *Progress {
	now := time.Now()
	return &Progress{
		totalItems:     totalItems,
		totalBatches:   totalBatches,
		startTime:      now,
		lastUpdateTime: now,
	}
}

// AddProcessed records one finished batch of n items.
func (p *Progress) AddProcessed(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processedItems += n
	p.processedBatches++
	p.lastUpdateTime = time.Now()
}

// PercentComplete returns the completion percentage (0-100).
func (p *Progress) PercentComplete() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.percentCompleteUnsafe()
}

// IsComplete returns true once every batch has been processed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.processedBatches >= p.totalBatches
}

// EstimatedTimeRemaining extrapolates from the average time per item.
// Returns 0 before the first batch finishes.
func (p *Progress) EstimatedTimeRemaining() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.processedItems == 0 {
		return 0
	}
	elapsed := p.lastUpdateTime.Sub(p.startTime)
	perItem := elapsed / time.Duration(p.processedItems)
	return perItem * time.Duration(p.totalItems-p.processedItems)
}

// Snapshot returns a consistent copy of the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := time.Since(p.startTime)
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(p.processedItems) / s
	}
	return ProgressSnapshot{
		TotalItems:       p.totalItems,
		ProcessedItems:   p.processedItems,
		TotalBatches:     p.totalBatches,
		ProcessedBatches: p.processedBatches,
		PercentComplete:  p.percentCompleteUnsafe(),
		ElapsedTime:      elapsed,
		ItemsPerSecond:   rate,
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems       int
	ProcessedItems   int
	TotalBatches     int
	ProcessedBatches int
	PercentComplete  float64
	ElapsedTime      time.Duration
	ItemsPerSecond   float64
}

// percentCompleteUnsafe must be called with the lock held.
func (p *Progress) percentCompleteUnsafe() float64 {
	if p.totalBatches == 0 {
		return percentMultiplier
	}
	if p.totalItems == 0 {
		return float64(p.processedBatches) / float64(p.totalBatches) * percentMultiplier
	}
	return float64(p.processedItems) / float64(p.totalItems) * percentMultiplier
}
