package followers

import (
	"math/rand/v2"

	"github.com/okian/kolarena/internal/domain/rng"
)

// DefaultGainProbability is the chance a tick adds a follower.
const DefaultGainProbability = 0.4

// Delta is one change proposed by a Source.
type Delta struct {
	ID     string
	Amount int
}

// Source decides which entity changes on a tick and by how much.
// Next is called with the feed lock held and must not call back into it.
type Source interface {
	Next(ids []string) Delta
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ids []string) Delta

// Next implements Source.
func (f SourceFunc) Next(ids []string) Delta { return f(ids) }

// RandomSource picks an entity uniformly and moves it by one.
type RandomSource struct {
	rng  *rand.Rand
	gain float64
}

// NewRandomSource returns a source adding a follower with probability gain
// and removing one otherwise. A zero seed draws a random one.
func NewRandomSource(seed int64, gain float64) *RandomSource {
	return &RandomSource{rng: rng.New(seed), gain: gain}
}

// Next implements Source.
func (s *RandomSource) Next(ids []string) Delta {
	if len(ids) == 0 {
		return Delta{}
	}
	d := Delta{ID: ids[s.rng.IntN(len(ids))], Amount: -1}
	if s.rng.Float64() < s.gain {
		d.Amount = 1
	}
	return d
}
