// Package randutil derives reproducible random sources from integer seeds.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed.
func New(seed int64) *rand.Rand {
	return Stream(uint64(seed), 0)
}

// Stream returns an independent deterministic source for one numbered stream
// of a seed, such as the deck of one poker round. Distinct streams of the
// same seed yield unrelated sequences.
func Stream(seed, stream uint64) *rand.Rand {
	base := mix(seed + stream*goldenRatio64)
	return rand.New(rand.NewPCG(base, mix(base+goldenRatio64)))
}

// Seed returns a fresh non-deterministic seed.
func Seed() uint64 {
	return rand.Uint64()
}

// splitmix64 finalizer.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
