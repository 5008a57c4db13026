// Package repository keeps the most recent update per topic so late
// subscribers can be brought up to date before live updates flow.
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/kolarena/internal/domain/types"
)

// Store provides read/write access to the latest updates.
type Store interface {
	// Put records u as the latest update of its topic. Older sequence numbers
	// never replace newer ones; it reports whether u was stored.
	Put(ctx context.Context, u types.Update) bool

	// Get returns the latest update of topic.
	// Returns ErrNotFound if nothing was recorded for it.
	Get(ctx context.Context, topic string) (types.Update, error)

	// All returns the latest update of every topic ordered by sequence.
	All(ctx context.Context) []types.Update

	// Count returns the number of topics recorded.
	Count(ctx context.Context) int
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu     sync.RWMutex
	latest map[string]types.Update
	skip   map[string]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		latest: make(map[string]types.Update),
		skip:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, u types.Update) bool {
	if _, skip := s.skip[u.Topic]; skip {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.latest[u.Topic]; ok && cur.Seq > u.Seq {
		return false
	}
	s.latest[u.Topic] = u
	return true
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, topic string) (types.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.latest[topic]
	if !ok {
		return types.Update{}, ErrNotFound
	}
	return u, nil
}

// All implements Store.
func (s *MemoryStore) All(_ context.Context) []types.Update {
	s.mu.RLock()
	out := make([]types.Update, 0, len(s.latest))
	for _, u := range s.latest {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.latest)
}
