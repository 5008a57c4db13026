package stream

import (
	"time"

	"github.com/okian/kolarena/pkg/logger"
)

// Option configures a Handler.
type Option func(*Handler)

// WithHeartbeat sets the SSE keep-alive comment period.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// An empty list or "*" accepts any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		h.origins = append([]string(nil), origins...)
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}
