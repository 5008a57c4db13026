// Package loop drives simulators on a fixed period.
//
// A Runner owns one ticker and calls its tick function until stopped. It can
// be started again after Stop. A Group starts and stops several runners
// together.
package loop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

// TickFunc performs one bounded state update.
type TickFunc func(ctx context.Context) error

// Runner calls a TickFunc every interval.
type Runner struct {
	name     string
	interval time.Duration
	tick     TickFunc
	onStop   func()

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	ticks  atomic.Uint64
	errors atomic.Uint64

	logger logger.Logger
}

// New creates a stopped runner.
func New(name string, interval time.Duration, tick TickFunc, opts ...Option) (*Runner, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrBadInterval, name)
	}
	r := &Runner{
		name:     name,
		interval: interval,
		tick:     tick,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("loop").With(logger.String("runner", name))
	}
	return r, nil
}

// Name returns the runner name.
func (r *Runner) Name() string { return r.name }

// Interval returns the tick period.
func (r *Runner) Interval() time.Duration { return r.interval }

// Ticks returns how many ticks ran since creation.
func (r *Runner) Ticks() uint64 { return r.ticks.Load() }

// Errors returns how many ticks failed since creation.
func (r *Runner) Errors() uint64 { return r.errors.Load() }

// Running reports whether the loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches the loop in a goroutine.
func (r *Runner) Start(ctx context.Context) error {
	runCtx, done, err := r.begin(ctx)
	if err != nil {
		return err
	}
	go r.loop(runCtx, done)
	return nil
}

func (r *Runner) begin(ctx context.Context) (context.Context, chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, r.name)
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	metrics.UpdateRunnerActive(r.name, true)
	r.logger.Info(ctx, "runner started", logger.Duration("interval", r.interval))
	return runCtx, r.done, nil
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer func() {
		ticker.Stop()
		if r.onStop != nil {
			r.onStop()
		}
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		metrics.UpdateRunnerActive(r.name, false)
		r.logger.Info(context.Background(), "runner stopped", logger.Uint64("ticks", r.ticks.Load()))
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runTick(ctx)
		}
	}
}

// runTick executes one tick and records its latency.
func (r *Runner) runTick(ctx context.Context) {
	start := time.Now()
	err := r.tick(ctx)
	metrics.RecordTick(r.name, float64(time.Since(start).Microseconds())/1000)
	r.ticks.Add(1)
	if err != nil {
		r.errors.Add(1)
		metrics.RecordTickError(r.name)
		metrics.RecordErrorByComponent("loop", r.name)
		r.logger.Error(ctx, "tick failed", logger.Error(err))
	}
}

// Stop cancels the loop and waits for it to exit. Stopping a stopped runner
// is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Shutdown stops the loop, giving up when ctx expires.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("runner %s shutdown timed out: %w", r.name, ctx.Err())
	}
}
