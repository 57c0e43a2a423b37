package engine

import "math/rand/v2"

const golden = 0x9e3779b97f4a7c15

// splitMix64 is the SplitMix64 finaliser. It turns correlated inputs such as
// consecutive run indices into well-spread seeds.
func splitMix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// RunSeed derives the seed of run i from the evaluation seed.
func RunSeed(base uint64, run int) uint64 {
	return splitMix64(base + uint64(run)*golden)
}

// StreamBlock is the number of individuals drawn from one random stream.
// Streams never depend on the processing batch size.
const StreamBlock = 1000

// blockCount returns the number of stream blocks in a population of n.
func blockCount(n int) int {
	return (n + StreamBlock - 1) / StreamBlock
}

// alignToBlock rounds a batch size up to a whole number of stream blocks.
func alignToBlock(n int) int {
	return blockCount(n) * StreamBlock
}

// blockSource returns the PCG stream for one block of one run.
func blockSource(runSeed uint64, block int) *rand.PCG {
	return rand.NewPCG(runSeed, splitMix64(uint64(block)))
}

// NewSeed draws a fresh evaluation seed.
func NewSeed() uint64 {
	return rand.Uint64()
}
