package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/kolarena/internal/adapters/http/api"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

// ServeSSE handles GET /api/stream?topics=a,b.
func (h *Handler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	topics, err := parseTopics(r)
	if err != nil {
		api.WriteErr(w, api.WrapKind("stream.sse", api.ErrBadRequest, err))
		return
	}
	sub, err := h.src.Subscribe(topics...)
	if err != nil {
		api.WriteErr(w, api.WrapKind("stream.sse", api.ErrUnavailable, err))
		return
	}
	defer sub.Close()

	ctx := r.Context()
	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})
	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.AddStreamConnection("sse", 1)
	defer metrics.AddStreamConnection("sse", -1)
	log := h.logger.With(logger.String("subscriber", sub.ID))
	log.Debug(ctx, "sse client connected")

	backlog, seen := h.backlog(ctx, topics)
	for _, u := range backlog {
		if err := writeEvent(w, u); err != nil {
			return
		}
	}
	if err := rc.Flush(); err != nil {
		log.Warn(ctx, "sse flush unsupported", logger.Error(err))
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug(ctx, "sse client gone")
			return
		case u, ok := <-sub.C:
			if !ok {
				return
			}
			if seen.stale(u) {
				continue
			}
			if err := writeEvent(w, u); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// writeEvent frames u as one SSE event named after its topic.
func writeEvent(w io.Writer, u types.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", u.Seq, u.Topic, data)
	return err
}
