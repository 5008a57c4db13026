package series

import (
	"math/rand/v2"

	"github.com/okian/kolarena/internal/domain/rng"
)

// Source produces seed values and per-tick steps for the window.
type Source interface {
	// Seed returns a starting value for spec.
	Seed(spec Spec) int
	// Step returns the change applied to series name on one tick.
	Step(name string) int
}

// RandomSource jitters seeds uniformly and steps by ±1 with equal odds.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource returns the default source. A zero seed draws a random one.
func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rng: rng.New(seed)}
}

// Seed implements Source.
func (s *RandomSource) Seed(spec Spec) int {
	if spec.Jitter <= 0 {
		return spec.Base
	}
	return spec.Base + s.rng.IntN(spec.Jitter)
}

// Step implements Source.
func (s *RandomSource) Step(string) int {
	if s.rng.IntN(2) == 0 {
		return -1
	}
	return 1
}
