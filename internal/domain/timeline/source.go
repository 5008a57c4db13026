package timeline

import (
	"math/rand/v2"

	"github.com/okian/kolarena/internal/domain/rng"
)

// Upper bounds (exclusive) for randomized reactions.
const (
	MaxLikes   = 200
	MaxReposts = 80
	MaxReplies = 50
)

// Source chooses the next post from the pool.
type Source interface {
	Next(pool []Template) Template
}

// SourceFunc adapts a function to Source.
type SourceFunc func(pool []Template) Template

// Next implements Source.
func (f SourceFunc) Next(pool []Template) Template { return f(pool) }

// RandomSource picks a template uniformly and rerolls its reactions.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource returns the default source. A zero seed draws a random one.
func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rng: rng.New(seed)}
}

// Next implements Source.
func (s *RandomSource) Next(pool []Template) Template {
	t := pool[s.rng.IntN(len(pool))]
	t.Reactions.Likes = s.rng.IntN(MaxLikes)
	t.Reactions.Reposts = s.rng.IntN(MaxReposts)
	t.Reactions.Replies = s.rng.IntN(MaxReplies)
	return t
}
