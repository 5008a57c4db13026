// Package ranking maintains the leaderboard.
//
// Ranks are derived: every tick re-sorts entries by primary metric in
// descending order and numbers them from one. Equal primaries keep their
// previous relative order.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

// Seed is one starting row.
type Seed struct {
	Name      string
	Primary   int
	Secondary int
}

// Board is the ranked list.
type Board struct {
	mu      sync.RWMutex
	entries []model.RankedEntry

	source Source
	logger logger.Logger
}

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithSource replaces the random source.
func WithSource(s Source) Option {
	return func(b *Board) {
		if s != nil {
			b.source = s
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

// New builds a board from seeds and ranks it once. Seed order is the
// initial tie-break order.
func New(seeds []Seed, opts ...Option) (*Board, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: empty leaderboard", model.ErrInvalidArgument)
	}
	b := &Board{entries: make([]model.RankedEntry, 0, len(seeds))}
	seen := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q", model.ErrInvalidArgument, s.Name)
		}
		seen[s.Name] = struct{}{}
		b.entries = append(b.entries, model.RankedEntry{Name: s.Name, Primary: s.Primary, Secondary: s.Secondary})
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.source == nil {
		b.source = NewRandomSource(0)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("ranking")
	}
	b.rerank()
	b.publish()
	return b, nil
}

// Tick applies one increment per entry and re-ranks.
func (b *Board) Tick(ctx context.Context) []model.RankedEntry {
	b.mu.Lock()
	for i := range b.entries {
		inc := b.source.Next(b.entries[i].Name)
		b.entries[i].Primary += inc.Primary
		b.entries[i].Secondary += inc.Secondary
	}
	b.rerank()
	out := b.copyLocked()
	b.mu.Unlock()

	b.publish()
	b.logger.Debug(ctx, "leaderboard re-ranked", logger.String("leader", out[0].Name), logger.Int("primary", out[0].Primary))
	return out
}

// rerank orders entries by primary descending; ties keep the prior order.
func (b *Board) rerank() {
	sort.SliceStable(b.entries, func(i, j int) bool {
		return b.entries[i].Primary > b.entries[j].Primary
	})
	for i := range b.entries {
		b.entries[i].Rank = i + 1
	}
}

func (b *Board) publish() {
	for _, e := range b.Snapshot() {
		metrics.UpdateEntityRank(e.Name, e.Rank)
	}
}

func (b *Board) copyLocked() []model.RankedEntry {
	out := make([]model.RankedEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Snapshot returns the entries in rank order.
func (b *Board) Snapshot() []model.RankedEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.copyLocked()
}

// Top returns at most n entries in rank order. n <= 0 returns all.
func (b *Board) Top(n int) []model.RankedEntry {
	out := b.Snapshot()
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Lookup returns the entry called name.
func (b *Board) Lookup(name string) (model.RankedEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entries {
		if e.Name == name {
			return e, nil
		}
	}
	return model.RankedEntry{}, fmt.Errorf("%w: %q", model.ErrUnknownEntity, name)
}
