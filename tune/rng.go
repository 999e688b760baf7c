package tune

import "hash/fnv"

// Seed derivation for bandit instances.
//
// Two bandit registries (one per strategy) share a single base seed, yet must
// never share random streams: a random-strategy run and a gaussian-strategy
// run with the same base seed are independent experiments. Each instance's
// seed is therefore derived as
//
//	base XOR fnv1a64(strategy) XOR creationIndex
//
// where creationIndex is the registry's monotonically increasing creation
// counter. Replaying the same workload with the same base seed recreates
// instances in the same order with the same seeds, so choices reproduce
// bit-for-bit.

// deriveSeed computes the seed for the n-th bandit instance created by the
// registry for the named strategy.
func deriveSeed(base int64, strategy Strategy, n int64) int64 {
	return base ^ fnv1a64(string(strategy)) ^ n
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
