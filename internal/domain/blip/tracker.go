// Package blip tracks short-lived gain/loss markers attached to entity keys.
//
// A Tracker holds at most one active event per key. Every Trigger schedules
// its own removal after the display duration; the removal deletes whatever
// event occupies the key when it fires, so a later event on the same key can
// be dismissed early by an earlier timer.
//
// Observers see every event's Created before its Expired, and Stop expires
// the events it clears.
package blip

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

// DefaultDisplay is how long an event stays active.
const DefaultDisplay = 1500 * time.Millisecond

// Change is the lifecycle step reported to observers.
type Change string

// Lifecycle steps.
const (
	Created Change = "created"
	Expired Change = "expired"
)

// Observer receives lifecycle notifications in the order the changes
// happened. It is called without the tracker lock held and must not call
// Trigger, Remove or Stop.
type Observer func(change Change, ev model.TransientEvent)

type notice struct {
	change Change
	ev     model.TransientEvent
}

// Tracker stores active transient events keyed by entity.
type Tracker struct {
	mu       sync.Mutex
	display  time.Duration
	clock    Clock
	observer Observer
	logger   logger.Logger

	seq    uint64
	active map[string]model.TransientEvent
	timers map[uint64]Timer

	// notices are queued under mu and delivered under notifyMu.
	notifyMu sync.Mutex
	notices  []notice
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithDisplay sets the forced-removal delay.
func WithDisplay(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.display = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithObserver registers the lifecycle callback.
func WithObserver(o Observer) Option {
	return func(t *Tracker) {
		t.observer = o
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		display: DefaultDisplay,
		clock:   SystemClock(),
		active:  make(map[string]model.TransientEvent),
		timers:  make(map[uint64]Timer),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("blip")
	}
	return t
}

// Display returns the forced-removal delay.
func (t *Tracker) Display() time.Duration { return t.display }

// Trigger installs a new event on key, replacing any active one, and
// schedules its unconditional removal.
func (t *Tracker) Trigger(key string, kind model.EventKind) model.TransientEvent {
	t.mu.Lock()
	t.seq++
	seq := t.seq
	now := t.clock.Now()
	ev := model.TransientEvent{
		Key:       key,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(t.display),
		Seq:       seq,
	}
	_, overwritten := t.active[key]
	t.active[key] = ev
	t.timers[seq] = t.clock.AfterFunc(t.display, func() { t.fire(seq, key) })
	t.enqueue(Created, ev)
	n := len(t.active)
	t.mu.Unlock()

	metrics.RecordBlipCreated(string(kind))
	metrics.UpdateBlipsActive(n)
	if overwritten {
		metrics.RecordBlipOverwritten()
		t.logger.Debug(context.Background(), "transient event replaced an active one",
			logger.String("key", key), logger.Uint64("seq", seq))
	}
	t.flush()
	return ev
}

// fire runs when the removal timer of event seq elapses.
func (t *Tracker) fire(seq uint64, key string) {
	t.mu.Lock()
	if _, pending := t.timers[seq]; !pending {
		// cancelled by Stop
		t.mu.Unlock()
		return
	}
	delete(t.timers, seq)
	ev, ok := t.active[key]
	if ok {
		delete(t.active, key)
		t.enqueue(Expired, ev)
	}
	n := len(t.active)
	t.mu.Unlock()

	if !ok {
		return
	}
	metrics.RecordBlipExpired()
	metrics.UpdateBlipsActive(n)
	t.flush()
}

// Remove deletes the active event on key. Removing an absent key is a no-op.
func (t *Tracker) Remove(key string) bool {
	t.mu.Lock()
	ev, ok := t.active[key]
	if ok {
		delete(t.active, key)
		t.enqueue(Expired, ev)
	}
	n := len(t.active)
	t.mu.Unlock()

	if !ok {
		return false
	}
	metrics.UpdateBlipsActive(n)
	t.flush()
	return true
}

// Get returns the active event on key.
func (t *Tracker) Get(key string) (model.TransientEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev, ok := t.active[key]
	return ev, ok
}

// Active returns a snapshot of all active events ordered by creation.
func (t *Tracker) Active() []model.TransientEvent {
	t.mu.Lock()
	out := make([]model.TransientEvent, 0, len(t.active))
	for _, ev := range t.active {
		out = append(out, ev)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Pending returns the number of scheduled removals.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// Stop cancels every pending removal and clears active events.
// The tracker can be triggered again afterwards.
func (t *Tracker) Stop() {
	t.mu.Lock()
	for seq, timer := range t.timers {
		timer.Stop()
		delete(t.timers, seq)
	}
	cleared := make([]model.TransientEvent, 0, len(t.active))
	for _, ev := range t.active {
		cleared = append(cleared, ev)
	}
	clear(t.active)
	sort.Slice(cleared, func(i, j int) bool { return cleared[i].Seq < cleared[j].Seq })
	for _, ev := range cleared {
		t.enqueue(Expired, ev)
	}
	t.mu.Unlock()
	metrics.UpdateBlipsActive(0)
	t.flush()
}

// enqueue must be called with mu held.
func (t *Tracker) enqueue(change Change, ev model.TransientEvent) {
	if t.observer != nil {
		t.notices = append(t.notices, notice{change: change, ev: ev})
	}
}

// flush delivers queued notices in order. Whoever holds notifyMu drains
// notices queued by other goroutines too.
func (t *Tracker) flush() {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	for {
		t.mu.Lock()
		if len(t.notices) == 0 {
			t.mu.Unlock()
			return
		}
		n := t.notices[0]
		t.notices = t.notices[1:]
		t.mu.Unlock()
		t.observer(n.change, n.ev)
	}
}
