// Package cache stores evaluation results keyed by their inputs.
//
// An evaluation with a fixed seed is a pure function of the scenario, the
// factor table digest, the run count and the seed, so its result can be
// reused. Two stores are provided:
//   - FileStore persists entries as JSON files with a TTL, for the CLI
//   - MemoryStore keeps a bounded LRU in process, for the HTTP server
//
// Evaluations without a seed are never cached.
package cache
