// Package timeline keeps the capped feed of agent posts, newest first.
package timeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

// Defaults used when options are not given.
const (
	DefaultCapacity    = 10
	DefaultSeedSpacing = 5 * time.Minute
)

// Log is the capped feed.
type Log struct {
	mu          sync.RWMutex
	entries     []model.LogEntry
	pool        []Template
	capacity    int
	seedSpacing time.Duration

	source Source
	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// Option applies a configuration option to the Log.
type Option func(*Log)

// WithCapacity sets the maximum number of entries kept.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithSeedSpacing sets the age gap between seeded entries.
func WithSeedSpacing(d time.Duration) Option {
	return func(l *Log) {
		if d > 0 {
			l.seedSpacing = d
		}
	}
}

// WithSource replaces the random source.
func WithSource(s Source) Option {
	return func(l *Log) {
		if s != nil {
			l.source = s
		}
	}
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDs replaces the entry id generator.
func WithIDs(gen func() string) Option {
	return func(l *Log) {
		if gen != nil {
			l.newID = gen
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Log) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// New creates a log over pool and seeds it.
func New(pool []Template, opts ...Option) (*Log, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: empty post pool", model.ErrInvalidArgument)
	}
	l := &Log{
		pool:        append([]Template(nil), pool...),
		capacity:    DefaultCapacity,
		seedSpacing: DefaultSeedSpacing,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.source == nil {
		l.source = NewRandomSource(0)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("timeline")
	}
	l.Seed()
	return l, nil
}

// Seed replaces the entries with one copy of every template in pool order,
// each older than the previous by the seed spacing.
func (l *Log) Seed() {
	now := l.now()
	entries := make([]model.LogEntry, 0, min(len(l.pool), l.capacity))
	for i, t := range l.pool {
		if i == l.capacity {
			break
		}
		entries = append(entries, l.stamp(t, now.Add(-time.Duration(i)*l.seedSpacing)))
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	metrics.UpdateLogLength(len(entries))
}

// Tick publishes one post at the head and drops entries past capacity.
func (l *Log) Tick(ctx context.Context) model.LogEntry {
	l.mu.Lock()
	e := l.stamp(l.source.Next(l.pool), l.now())
	l.entries = append(l.entries, model.LogEntry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = e
	if len(l.entries) > l.capacity {
		clear(l.entries[l.capacity:])
		l.entries = l.entries[:l.capacity]
	}
	n := len(l.entries)
	l.mu.Unlock()

	metrics.UpdateLogLength(n)
	l.logger.Debug(ctx, "post published", logger.String("id", e.ID), logger.String("author", e.Author))
	return e
}

func (l *Log) stamp(t Template, at time.Time) model.LogEntry {
	return model.LogEntry{
		ID:        l.newID(),
		Author:    t.Author,
		Source:    t.Source,
		Body:      t.Body,
		CreatedAt: at,
		Reactions: t.Reactions,
	}
}

// Snapshot returns the entries, newest first.
func (l *Log) Snapshot() []model.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Latest returns at most n entries, newest first. n <= 0 returns all.
func (l *Log) Latest(n int) []model.LogEntry {
	out := l.Snapshot()
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Capacity returns the maximum number of entries kept.
func (l *Log) Capacity() int { return l.capacity }

// Len returns the number of entries held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
