package stream_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kolarena/internal/adapters/broadcast"
	"github.com/okian/kolarena/internal/adapters/http/stream"
	"github.com/okian/kolarena/internal/domain/types"
	"github.com/okian/kolarena/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeSource struct {
	*broadcast.Hub
	latest []types.Update
}

func (f *fakeSource) Latest(context.Context) []types.Update { return f.latest }

func newFixture(opts ...stream.Option) (*fakeSource, *httptest.Server) {
	hub := broadcast.NewHub(broadcast.WithBufferSize(8))
	// Published before anyone subscribes, so only the backlog carries it.
	chart := hub.Publish(types.TopicChart, map[string]int{"CryptoGPT": 1200})
	src := &fakeSource{Hub: hub, latest: []types.Update{chart}}
	mux := http.NewServeMux()
	stream.New(src, opts...).Register(context.Background(), mux)
	return src, httptest.NewServer(mux)
}

type event struct {
	id, name, data string
}

func readEvent(r *bufio.Reader) (event, error) {
	var ev event
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return ev, err
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" {
				return ev, nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id: "):
			ev.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestSSE(t *testing.T) {
	Convey("Given an SSE stream", t, func() {
		src, srv := newFixture(stream.WithHeartbeat(20 * time.Millisecond))
		defer srv.Close()
		client := &http.Client{Timeout: 5 * time.Second}

		Convey("The backlog is replayed, then live updates follow", func() {
			resp, err := client.Get(srv.URL + "/api/stream")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldEqual, "text/event-stream")

			r := bufio.NewReader(resp.Body)
			ev, err := readEvent(r)
			So(err, ShouldBeNil)
			So(ev.name, ShouldEqual, types.TopicChart)
			So(ev.id, ShouldEqual, "1")

			src.Publish(types.TopicAgent, map[string]any{"id": "1", "followers": 1235})
			ev, err = readEvent(r)
			So(err, ShouldBeNil)
			So(ev.name, ShouldEqual, types.TopicAgent)
			So(ev.id, ShouldEqual, "2")

			var u types.Update
			So(json.Unmarshal([]byte(ev.data), &u), ShouldBeNil)
			So(u.Topic, ShouldEqual, types.TopicAgent)
			So(u.Seq, ShouldEqual, 2)
		})

		Convey("A topic filter limits both backlog and live updates", func() {
			resp, err := client.Get(srv.URL + "/api/stream?topics=" + types.TopicFeed)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			r := bufio.NewReader(resp.Body)
			// The heartbeat proves the handler is past its backlog.
			line, err := r.ReadString('\n')
			So(err, ShouldBeNil)
			So(line, ShouldEqual, ": ping\n")

			src.Publish(types.TopicAgent, nil)
			src.Publish(types.TopicFeed, map[string]string{"id": "p1"})
			ev, err := readEvent(r)
			So(err, ShouldBeNil)
			So(ev.name, ShouldEqual, types.TopicFeed)
		})

		Convey("Unknown topics are rejected", func() {
			resp, err := client.Get(srv.URL + "/api/stream?topics=nope")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Closing the hub ends the stream", func() {
			resp, err := client.Get(srv.URL + "/api/stream")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			r := bufio.NewReader(resp.Body)
			_, err = readEvent(r)
			So(err, ShouldBeNil)

			So(src.Close(), ShouldBeNil)
			_, err = io.ReadAll(r)
			So(err, ShouldBeNil)
		})

		Convey("A closed hub answers new streams with 503", func() {
			So(src.Close(), ShouldBeNil)
			resp, err := client.Get(srv.URL + "/api/stream")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)

			var body struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body.Code, ShouldEqual, "unavailable")
			So(body.Message, ShouldContainSubstring, broadcast.ErrClosed.Error())
		})
	})
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestWebsocket(t *testing.T) {
	Convey("Given a websocket stream", t, func() {
		src, srv := newFixture()
		defer srv.Close()

		Convey("The backlog arrives first, then live updates", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws"), nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

			var u types.Update
			So(conn.ReadJSON(&u), ShouldBeNil)
			So(u.Topic, ShouldEqual, types.TopicChart)

			src.Publish(types.TopicLeaderboard, []string{"QwenCoin"})
			So(conn.ReadJSON(&u), ShouldBeNil)
			So(u.Topic, ShouldEqual, types.TopicLeaderboard)
			So(u.Seq, ShouldEqual, 2)
		})

		Convey("The subscription is released when the client leaves", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws"), nil)
			So(err, ShouldBeNil)
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			var u types.Update
			So(conn.ReadJSON(&u), ShouldBeNil)
			So(src.Len(), ShouldEqual, 1)

			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()

			deadline := time.Now().Add(2 * time.Second)
			for src.Len() > 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(src.Len(), ShouldEqual, 0)
		})

		Convey("A closed hub refuses the upgrade with 503", func() {
			So(src.Close(), ShouldBeNil)
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws"), nil)
			So(err, ShouldNotBeNil)
			So(resp, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given a websocket stream restricted to one origin", t, func() {
		src, srv := newFixture(stream.WithAllowedOrigins("http://arena.local"))
		defer srv.Close()

		Convey("A foreign origin is refused", func() {
			hdr := http.Header{"Origin": []string{"http://evil.local"}}
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws"), hdr)
			So(err, ShouldNotBeNil)
			So(resp, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
			So(src.Len(), ShouldEqual, 0)
		})

		Convey("The allowed origin connects", func() {
			hdr := http.Header{"Origin": []string{"http://arena.local"}}
			conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws"), hdr)
			So(err, ShouldBeNil)
			_ = conn.Close()
		})
	})
}
