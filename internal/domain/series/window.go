// Package series keeps the fixed-length sample window behind the
// follower chart.
package series

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

// LabelLayout formats sample times for display.
const LabelLayout = "03:04 PM"

// Defaults used when options are not given.
const (
	DefaultWindowSize = 21
	DefaultSpacing    = time.Minute
)

// Spec describes one series: a base value and the width of its seed jitter.
type Spec struct {
	Name   string
	Base   int
	Jitter int
}

// Window is a FIFO of samples with a fixed capacity.
type Window struct {
	mu      sync.RWMutex
	specs   []Spec
	samples []model.Sample
	size    int
	spacing time.Duration

	source Source
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Window.
type Option func(*Window)

// WithSize sets the number of samples kept.
func WithSize(n int) Option {
	return func(w *Window) {
		if n > 0 {
			w.size = n
		}
	}
}

// WithSpacing sets the distance between seeded samples.
func WithSpacing(d time.Duration) Option {
	return func(w *Window) {
		if d > 0 {
			w.spacing = d
		}
	}
}

// WithSource replaces the random source.
func WithSource(s Source) Option {
	return func(w *Window) {
		if s != nil {
			w.source = s
		}
	}
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(w *Window) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Window) {
		if l != nil {
			w.logger = l
		}
	}
}

// New seeds a full window ending at the current time.
func New(specs []Spec, opts ...Option) (*Window, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no series", model.ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: series without a name", model.ErrInvalidArgument)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate series %q", model.ErrInvalidArgument, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	w := &Window{
		specs:   append([]Spec(nil), specs...),
		size:    DefaultWindowSize,
		spacing: DefaultSpacing,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.source == nil {
		w.source = NewRandomSource(0)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("series")
	}
	w.seed()
	return w, nil
}

func (w *Window) seed() {
	end := w.now()
	w.samples = make([]model.Sample, 0, w.size)
	for i := w.size - 1; i >= 0; i-- {
		at := end.Add(-time.Duration(i) * w.spacing)
		values := make(map[string]int, len(w.specs))
		for _, s := range w.specs {
			values[s.Name] = w.source.Seed(s)
		}
		w.samples = append(w.samples, model.Sample{At: at, Label: at.Format(LabelLayout), Values: values})
	}
	metrics.UpdateWindowLength(len(w.samples))
}

// Tick appends a sample derived from the newest one and evicts the oldest.
func (w *Window) Tick(ctx context.Context) model.Sample {
	w.mu.Lock()
	last := w.samples[len(w.samples)-1]
	at := w.now()
	if at.Before(last.At) {
		at = last.At
	}
	next := model.Sample{At: at, Label: at.Format(LabelLayout), Values: make(map[string]int, len(w.specs))}
	for _, s := range w.specs {
		next.Values[s.Name] = last.Values[s.Name] + w.source.Step(s.Name)
	}
	w.samples = append(w.samples, next)
	if over := len(w.samples) - w.size; over > 0 {
		clear(w.samples[:over])
		w.samples = append(w.samples[:0], w.samples[over:]...)
	}
	n := len(w.samples)
	w.mu.Unlock()

	metrics.UpdateWindowLength(n)
	w.logger.Debug(ctx, "sample appended", logger.String("label", next.Label), logger.Int("window", n))
	return next.Clone()
}

// Snapshot returns copies of the samples, oldest first.
func (w *Window) Snapshot() []model.Sample {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.Sample, len(w.samples))
	for i, s := range w.samples {
		out[i] = s.Clone()
	}
	return out
}

// Latest returns the newest sample.
func (w *Window) Latest() model.Sample {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.samples[len(w.samples)-1].Clone()
}

// Names lists the series in configured order.
func (w *Window) Names() []string {
	out := make([]string, len(w.specs))
	for i, s := range w.specs {
		out[i] = s.Name
	}
	return out
}

// Size returns the window capacity.
func (w *Window) Size() int { return w.size }

// Len returns the number of samples held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.samples)
}
