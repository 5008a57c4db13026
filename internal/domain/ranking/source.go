package ranking

import (
	"math/rand/v2"

	"github.com/okian/kolarena/internal/domain/rng"
)

// Increment is the change a Source proposes for one entry on a tick.
type Increment struct {
	Primary   int
	Secondary int
}

// Source proposes per-entry increments.
type Source interface {
	Next(name string) Increment
}

// SourceFunc adapts a function to Source.
type SourceFunc func(name string) Increment

// Next implements Source.
func (f SourceFunc) Next(name string) Increment { return f(name) }

// RandomSource adds one to each metric independently with probability 1/2.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource returns the default source. A zero seed draws a random one.
func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rng: rng.New(seed)}
}

// Next implements Source.
func (s *RandomSource) Next(string) Increment {
	return Increment{Primary: s.rng.IntN(2), Secondary: s.rng.IntN(2)}
}
