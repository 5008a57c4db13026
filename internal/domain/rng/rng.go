// Package rng builds the pseudo-random generators behind the default
// simulator sources.
package rng

import (
	"hash/fnv"
	"math/rand/v2"
)

// New returns a generator seeded with seed, or a randomly seeded one when
// seed is zero.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Derive mixes stream into seed so simulators sharing one configured seed
// draw independent sequences. Zero stays zero.
func Derive(seed int64, stream string) int64 {
	if seed == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(stream))
	v := int64(h.Sum64() ^ uint64(seed))
	if v == 0 {
		return seed
	}
	return v
}
