// Package broadcast fans change notifications out to subscribers.
//
// Publishing never blocks: an update that does not fit in a subscriber's
// buffer is dropped for that subscriber and counted.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

const defaultBufferSize = 64

// Update is the payload flowing through the hub.
type Update = types.Update

// Hub is an in-memory publish/subscribe fan-out.
type Hub struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	closed     bool
	bufferSize int

	seq       atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64

	now    func() time.Time
	logger logger.Logger
}

// Subscription receives updates on C until closed.
type Subscription struct {
	ID string
	C  <-chan Update

	ch      chan Update
	topics  map[string]struct{}
	hub     *Hub
	once    sync.Once
	dropped atomic.Uint64
}

// NewHub creates an open hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:       make(map[string]*Subscription),
		bufferSize: defaultBufferSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("broadcast")
	}
	metrics.UpdateSubscribers(0)
	return h
}

// Subscribe registers a subscriber for topics, or for every topic when none
// are given.
func (h *Hub) Subscribe(topics ...string) (*Subscription, error) {
	ch := make(chan Update, h.bufferSize)
	s := &Subscription{ID: uuid.NewString(), C: ch, ch: ch, hub: h}
	if len(topics) > 0 {
		s.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.subs[s.ID] = s
	n := len(h.subs)
	h.mu.Unlock()

	metrics.UpdateSubscribers(n)
	h.logger.Debug(context.Background(), "subscriber added", logger.String("subscriber", s.ID), logger.Int("subscribers", n))
	return s, nil
}

// Publish stamps payload with the next sequence number and offers it to
// every interested subscriber without blocking.
func (h *Hub) Publish(topic string, payload any) Update {
	u := Update{Topic: topic, Seq: h.seq.Add(1), At: h.now(), Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return u
	}
	h.published.Add(1)
	metrics.RecordUpdatePublished(topic)
	for _, s := range h.subs {
		if !s.wants(topic) {
			continue
		}
		select {
		case s.ch <- u:
		default:
			s.dropped.Add(1)
			h.dropped.Add(1)
			metrics.RecordUpdateDropped(topic)
		}
	}
	return u
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Published returns how many updates were published.
func (h *Hub) Published() uint64 { return h.published.Load() }

// Dropped returns how many deliveries were discarded on full buffers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close removes every subscriber and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*Subscription)
	for _, s := range subs {
		s.once.Do(func() { close(s.ch) })
	}
	h.mu.Unlock()
	metrics.UpdateSubscribers(0)
	return nil
}

// IsClosed reports whether Close was called.
func (h *Hub) IsClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

func (s *Subscription) wants(topic string) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// Dropped returns how many updates this subscriber missed.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	delete(h.subs, s.ID)
	n := len(h.subs)
	s.once.Do(func() { close(s.ch) })
	h.mu.Unlock()
	metrics.UpdateSubscribers(n)
}
