// Package stream pushes change notifications to browsers over Server-Sent
// Events and websockets.
//
// Every connection first receives the latest update of each replayable
// topic, then live updates as they are published. Live updates that are
// not newer than the replayed one for their topic are skipped.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/kolarena/internal/adapters/broadcast"
	"github.com/okian/kolarena/internal/adapters/http/api"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
)

const defaultHeartbeat = 15 * time.Second

// Source provides live updates and the replay backlog.
type Source interface {
	Subscribe(topics ...string) (*broadcast.Subscription, error)
	Latest(ctx context.Context) []types.Update
}

// Handler serves /api/stream (SSE) and /api/ws (websocket).
type Handler struct {
	src       Source
	heartbeat time.Duration
	origins   []string
	upgrader  websocket.Upgrader
	logger    logger.Logger
}

// New creates a stream handler over src.
func New(src Source, opts ...Option) *Handler {
	h := &Handler{src: src, heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("stream")
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Register attaches the stream routes to mux.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/api/stream", api.MetricsMiddleware(h.ServeSSE, "stream_sse"))
	mux.HandleFunc("/api/ws", api.MetricsMiddleware(h.ServeWS, "stream_ws"))
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 || slices.Contains(h.origins, "*") {
		return true
	}
	return slices.Contains(h.origins, origin)
}

// parseTopics reads ?topics=a,b. No filter means every topic.
func parseTopics(r *http.Request) ([]string, error) {
	raw := r.URL.Query().Get("topics")
	if raw == "" {
		return nil, nil
	}
	known := types.Topics()
	var out []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !slices.Contains(known, t) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, t)
		}
		out = append(out, t)
	}
	return out, nil
}

// replay tracks the newest replayed sequence per topic.
type replay map[string]uint64

// backlog returns the replayable updates matching topics.
func (h *Handler) backlog(ctx context.Context, topics []string) ([]types.Update, replay) {
	seen := make(replay)
	var out []types.Update
	for _, u := range h.src.Latest(ctx) {
		if len(topics) > 0 && !slices.Contains(topics, u.Topic) {
			continue
		}
		out = append(out, u)
		seen[u.Topic] = u.Seq
	}
	return out, seen
}

func (r replay) stale(u types.Update) bool {
	seq, ok := r[u.Topic]
	return ok && u.Seq <= seq
}
