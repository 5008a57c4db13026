package loop

import (
	"context"
	"errors"
)

// Group manages runners as one unit.
type Group struct {
	runners []*Runner
}

// NewGroup creates a group over runners.
func NewGroup(runners ...*Runner) *Group {
	return &Group{runners: runners}
}

// Add appends a runner.
func (g *Group) Add(r *Runner) {
	g.runners = append(g.runners, r)
}

// Runners returns the managed runners.
func (g *Group) Runners() []*Runner {
	return append([]*Runner(nil), g.runners...)
}

// Start launches every runner. When one fails to start the ones already
// started are stopped again.
func (g *Group) Start(ctx context.Context) error {
	for i, r := range g.runners {
		if err := r.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				g.runners[j].Stop()
			}
			return err
		}
	}
	return nil
}

// Stop stops every runner in reverse start order.
func (g *Group) Stop() {
	for i := len(g.runners) - 1; i >= 0; i-- {
		g.runners[i].Stop()
	}
}

// Shutdown stops every runner, collecting timeouts.
func (g *Group) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(g.runners) - 1; i >= 0; i-- {
		if err := g.runners[i].Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ticks returns tick counts keyed by runner name.
func (g *Group) Ticks() map[string]uint64 {
	out := make(map[string]uint64, len(g.runners))
	for _, r := range g.runners {
		out[r.Name()] = r.Ticks()
	}
	return out
}
