// Package movers ranks agents by how often their follower count moved
// over a sliding window of feed ticks.
package movers

import (
	"sort"
	"sync"

	"github.com/keilerkonzept/topk/sliding"

	"github.com/okian/kolarena/internal/domain/model"
)

// Defaults used when options are not given.
const (
	DefaultK           = 4
	DefaultWindowTicks = 30
	defaultWidth       = 1024
	defaultDepth       = 4
)

// Mover is one ranked agent.
type Mover struct {
	ID     string
	Events uint32
	Gains  uint32
	Losses uint32
}

// Net returns gains minus losses.
func (m Mover) Net() int { return int(m.Gains) - int(m.Losses) }

// Board holds two sliding top-k sketches: all events and gains only.
type Board struct {
	mu     sync.Mutex
	k      int
	window int
	events *sliding.Sketch
	gains  *sliding.Sketch
}

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithK sets how many agents are tracked.
func WithK(k int) Option {
	return func(b *Board) {
		if k > 0 {
			b.k = k
		}
	}
}

// WithWindowTicks sets the window length in ticks.
func WithWindowTicks(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.window = n
		}
	}
}

// New creates an empty board.
func New(opts ...Option) *Board {
	b := &Board{k: DefaultK, window: DefaultWindowTicks}
	for _, opt := range opts {
		opt(b)
	}
	b.events = newSketch(b.k, b.window)
	b.gains = newSketch(b.k, b.window)
	return b
}

func newSketch(k, window int) *sliding.Sketch {
	return sliding.New(k, window,
		sliding.WithWidth(defaultWidth),
		sliding.WithDepth(defaultDepth),
	)
}

// Observe counts one event for id.
func (b *Board) Observe(id string, kind model.EventKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events.Incr(id)
	if kind == model.KindGain {
		b.gains.Incr(id)
	}
}

// Advance moves the window forward by n ticks.
func (b *Board) Advance(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events.Ticks(n)
	b.gains.Ticks(n)
}

// Top returns at most n movers by event count, busiest first. Agents with
// no events in the window are omitted. n <= 0 returns up to K.
func (b *Board) Top(n int) []Mover {
	b.mu.Lock()
	items := b.events.SortedSlice()
	out := make([]Mover, 0, len(items))
	for _, it := range items {
		events := b.events.Count(it.Item)
		if events == 0 {
			continue
		}
		gains := min(b.gains.Count(it.Item), events)
		out = append(out, Mover{ID: it.Item, Events: events, Gains: gains, Losses: events - gains})
	}
	b.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Events != out[j].Events {
			return out[i].Events > out[j].Events
		}
		return out[i].ID < out[j].ID
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// K returns the number of tracked agents.
func (b *Board) K() int { return b.k }

// Window returns the window length in ticks.
func (b *Board) Window() int { return b.window }
