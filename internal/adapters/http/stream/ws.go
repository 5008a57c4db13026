package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/kolarena/internal/adapters/broadcast"
	"github.com/okian/kolarena/internal/adapters/http/api"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
	"github.com/okian/kolarena/pkg/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames, so keep inbound messages small.
	maxMessageSize = 4 * 1024
)

// ServeWS handles GET /api/ws?topics=a,b. Each update is sent as one JSON
// text message.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topics, err := parseTopics(r)
	if err != nil {
		api.WriteErr(w, api.WrapKind("stream.ws", api.ErrBadRequest, err))
		return
	}
	sub, err := h.src.Subscribe(topics...)
	if err != nil {
		api.WriteErr(w, api.WrapKind("stream.ws", api.ErrUnavailable, err))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		sub.Close()
		return
	}

	ctx := context.WithoutCancel(r.Context())
	backlog, seen := h.backlog(ctx, topics)
	c := &client{
		conn:   conn,
		sub:    sub,
		seen:   seen,
		logger: h.logger.With(logger.String("subscriber", sub.ID)),
	}

	metrics.AddStreamConnection("ws", 1)
	defer metrics.AddStreamConnection("ws", -1)
	c.logger.Debug(ctx, "websocket client connected")

	go c.readPump(ctx)
	c.writePump(ctx, backlog)
}

// client is one websocket connection bound to a hub subscription.
type client struct {
	conn   *websocket.Conn
	sub    *broadcast.Subscription
	seen   replay
	logger logger.Logger
}

// readPump drains control frames until the peer goes away, then releases
// the subscription so writePump exits.
func (c *client) readPump(ctx context.Context) {
	defer c.sub.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn(ctx, "websocket read error", logger.Error(err))
			}
			return
		}
	}
}

// writePump sends the backlog, then live updates and periodic pings.
func (c *client) writePump(ctx context.Context, backlog []types.Update) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.logger.Debug(ctx, "websocket client gone")
	}()

	for _, u := range backlog {
		if err := c.write(u); err != nil {
			return
		}
	}

	for {
		select {
		case u, ok := <-c.sub.C:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if c.seen.stale(u) {
				continue
			}
			if err := c.write(u); err != nil {
				c.logger.Debug(ctx, "websocket write failed", logger.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) write(u types.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
