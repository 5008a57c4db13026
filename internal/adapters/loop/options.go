package loop

import (
	"github.com/okian/kolarena/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOnStop registers a hook run after the loop exits, e.g. to cancel
// timers owned by the simulator.
func WithOnStop(f func()) Option {
	return func(r *Runner) {
		r.onStop = f
	}
}
