// Package followers simulates the follower counters of the agent roster.
//
// Every tick moves one entity by one follower and hands a gain or loss
// marker to the event sink.
package followers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

// EventSink receives a marker for every applied change.
type EventSink interface {
	Trigger(key string, kind model.EventKind) model.TransientEvent
}

// Feed owns the fixed entity set.
type Feed struct {
	mu       sync.RWMutex
	entities []model.TrackedEntity
	index    map[string]int

	source Source
	sink   EventSink
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Feed.
type Option func(*Feed)

// WithSource replaces the random source.
func WithSource(s Source) Option {
	return func(f *Feed) {
		if s != nil {
			f.source = s
		}
	}
}

// WithSink routes change markers to s.
func WithSink(s EventSink) Option {
	return func(f *Feed) {
		f.sink = s
	}
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a feed over entities. IDs must be non-empty and unique.
func New(entities []model.TrackedEntity, opts ...Option) (*Feed, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: empty entity set", model.ErrInvalidArgument)
	}
	f := &Feed{
		entities: make([]model.TrackedEntity, len(entities)),
		index:    make(map[string]int, len(entities)),
		now:      time.Now,
	}
	copy(f.entities, entities)
	for i, e := range f.entities {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entity %d has no id", model.ErrInvalidArgument, i)
		}
		if _, dup := f.index[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate entity id %q", model.ErrInvalidArgument, e.ID)
		}
		f.index[e.ID] = i
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.source == nil {
		f.source = NewRandomSource(0, DefaultGainProbability)
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("followers")
	}
	for _, e := range f.entities {
		metrics.UpdateEntityCounter(e.Name, e.Counter)
	}
	return f, nil
}

// Tick asks the source for one change and applies it.
func (f *Feed) Tick(ctx context.Context) (model.TrackedEntity, error) {
	f.mu.Lock()
	ids := make([]string, len(f.entities))
	for i, e := range f.entities {
		ids[i] = e.ID
	}
	d := f.source.Next(ids)
	e, changed, err := f.applyLocked(d.ID, d.Amount)
	f.mu.Unlock()
	if err != nil {
		return model.TrackedEntity{}, err
	}
	if changed {
		f.emit(ctx, e)
	}
	return e, nil
}

// Apply adds delta to the counter of id. A zero delta changes nothing and
// emits no marker.
func (f *Feed) Apply(ctx context.Context, id string, delta int) (model.TrackedEntity, error) {
	f.mu.Lock()
	e, changed, err := f.applyLocked(id, delta)
	f.mu.Unlock()
	if err != nil {
		return model.TrackedEntity{}, err
	}
	if changed {
		f.emit(ctx, e)
	}
	return e, nil
}

func (f *Feed) applyLocked(id string, delta int) (model.TrackedEntity, bool, error) {
	i, ok := f.index[id]
	if !ok {
		return model.TrackedEntity{}, false, fmt.Errorf("%w: %q", model.ErrUnknownEntity, id)
	}
	if delta == 0 {
		return f.entities[i], false, nil
	}
	e := &f.entities[i]
	e.Counter += delta
	e.LastDelta = delta
	e.LastUpdate = f.now()
	return *e, true, nil
}

func (f *Feed) emit(ctx context.Context, e model.TrackedEntity) {
	metrics.UpdateEntityCounter(e.Name, e.Counter)
	f.logger.Debug(ctx, "follower count changed",
		logger.String("entity", e.ID),
		logger.Int("delta", e.LastDelta),
		logger.Int("followers", e.Counter))
	if f.sink != nil {
		f.sink.Trigger(e.ID, model.KindOf(e.LastDelta))
	}
}

// Snapshot returns a copy of every entity in seed order.
func (f *Feed) Snapshot() []model.TrackedEntity {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.TrackedEntity, len(f.entities))
	copy(out, f.entities)
	return out
}

// Get returns one entity.
func (f *Feed) Get(id string) (model.TrackedEntity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	i, ok := f.index[id]
	if !ok {
		return model.TrackedEntity{}, fmt.Errorf("%w: %q", model.ErrUnknownEntity, id)
	}
	return f.entities[i], nil
}

// Len returns the number of entities.
func (f *Feed) Len() int {
	return len(f.entities)
}
