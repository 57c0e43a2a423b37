// Package batch splits a population into fixed-size index ranges and processes
// them sequentially or concurrently.
//
// Key properties:
//   - Configurable batch size (default 1000 individuals per batch)
//   - Shared progress tracking for UI updates
//   - Context-aware cancellation between batches
//   - O(batch size) memory: callbacks receive index ranges, never materialised items
//
// Batches are identified by a stable index so callers can seed per-batch random
// streams and merge partial results in index order, independent of scheduling.
package batch
