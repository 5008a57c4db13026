// Package dedupe remembers recently observed IDs.
//
// The probe keys it by update sequence number to catch updates the stream
// delivers more than once.
package dedupe

import (
	"context"
	"sync"
)

// DefaultMaxSize bounds memory when no option is given.
const DefaultMaxSize = 4096

// Deduper records seen IDs.
type Deduper interface {
	// SeenAndRecord reports whether id was seen before and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool
	// Forget drops id so it counts as new again.
	Forget(ctx context.Context, id string)
	Size() int
}

// window keeps at most maxSize IDs and evicts the oldest first.
// maxSize <= 0 keeps everything.
type window struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	maxSize int
}

// New creates an in-memory deduper.
func New(opts ...Option) Deduper {
	w := &window{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(w)
	}
	w.seen = make(map[string]struct{})
	return w
}

func (w *window) SeenAndRecord(_ context.Context, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[id]; ok {
		return true
	}
	if w.maxSize > 0 && len(w.order) >= w.maxSize {
		oldest := w.order[0]
		w.order[0] = ""
		w.order = w.order[1:]
		delete(w.seen, oldest)
	}
	w.seen[id] = struct{}{}
	w.order = append(w.order, id)
	return false
}

func (w *window) Forget(_ context.Context, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[id]; !ok {
		return
	}
	delete(w.seen, id)
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *window) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
