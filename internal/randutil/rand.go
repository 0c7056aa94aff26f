// Package randutil centralises how deck-shuffle RNGs are seeded so a
// single int64 seed reproduces a full game.
package randutil

import "math/rand"

// New returns a *rand.Rand seeded deterministically from the provided
// int64. The seed passes through an avalanche mix first so adjacent
// seeds do not produce correlated shuffle sequences.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(int64(mix(uint64(seed)))))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
