package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/kolarena/internal/adapters/http/api"
	"github.com/okian/kolarena/internal/domain/model"
	"github.com/okian/kolarena/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	agents  []types.Agent
	chart   types.Chart
	board   []types.RankEntry
	posts   []types.Post
	blips   []types.Blip
	movers  []types.Mover
	lastLim int
}

func (m *mockDependencies) Agents(context.Context) []types.Agent { return m.agents }

func (m *mockDependencies) Agent(_ context.Context, id string) (types.Agent, error) {
	for _, a := range m.agents {
		if a.ID == id {
			return a, nil
		}
	}
	return types.Agent{}, fmt.Errorf("%w: %q", model.ErrUnknownEntity, id)
}

func (m *mockDependencies) Chart(context.Context) types.Chart { return m.chart }

func (m *mockDependencies) Leaderboard(_ context.Context, limit int) []types.RankEntry {
	m.lastLim = limit
	if limit > 0 && limit < len(m.board) {
		return m.board[:limit]
	}
	return m.board
}

func (m *mockDependencies) LeaderboardEntry(_ context.Context, name string) (types.RankEntry, error) {
	for _, e := range m.board {
		if e.Name == name {
			return e, nil
		}
	}
	return types.RankEntry{}, fmt.Errorf("%w: %q", model.ErrUnknownEntity, name)
}

func (m *mockDependencies) Feed(_ context.Context, limit int) []types.Post {
	m.lastLim = limit
	if limit > 0 && limit < len(m.posts) {
		return m.posts[:limit]
	}
	return m.posts
}

func (m *mockDependencies) Blips(context.Context) []types.Blip { return m.blips }

func (m *mockDependencies) Movers(_ context.Context, limit int) []types.Mover {
	m.lastLim = limit
	return m.movers
}

type mockStatsProvider struct {
	stats types.Stats
}

func (m *mockStatsProvider) GetStats() types.Stats { return m.stats }

func newDeps() *mockDependencies {
	now := time.Date(2025, 3, 1, 15, 4, 0, 0, time.UTC)
	return &mockDependencies{
		agents: []types.Agent{
			{ID: "1", Name: "CryptoGPT", Followers: 1234},
			{ID: "2", Name: "GeminiCrypto", Followers: 987, Blip: &types.Blip{Key: "2", Kind: "gain", Glyph: "+1"}},
		},
		chart: types.Chart{
			Series:  []string{"CryptoGPT"},
			Samples: []types.Sample{{Time: now, Label: "03:04 PM", Values: map[string]int{"CryptoGPT": 1200}}},
		},
		board: []types.RankEntry{
			{Rank: 1, Name: "QwenCoin", Followers: 1567, Change24h: 127},
			{Rank: 2, Name: "CryptoGPT", Followers: 1234, Change24h: 89},
			{Rank: 3, Name: "GeminiCrypto", Followers: 987, Change24h: 56},
		},
		posts: []types.Post{
			{ID: "p2", Author: "QwenCoin", Body: "newer"},
			{ID: "p1", Author: "CryptoGPT", Body: "older"},
		},
		blips:  []types.Blip{{Key: "2", Kind: "gain", Glyph: "+1"}},
		movers: []types.Mover{{ID: "2", Name: "GeminiCrypto", Events: 3, Gains: 2, Losses: 1, Net: 1}},
	}
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newDeps()
		stats := &mockStatsProvider{stats: types.Stats{Started: true, Agents: 2, Choreography: "graceful"}}
		mux := http.NewServeMux()
		api.NewServer(deps, stats, 10).Register(context.Background(), mux)

		Convey("Health serves Prometheus text", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
		})

		Convey("The metrics dashboard page is embedded", func() {
			w := serve(mux, http.MethodGet, "/dashboard")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "kolarena simulator metrics")
		})

		Convey("Stats are returned as JSON", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got types.Stats
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.Agents, ShouldEqual, 2)
			So(got.Choreography, ShouldEqual, "graceful")
		})

		Convey("Non-GET methods are not routed", func() {
			for _, p := range []string{"/stats", "/api/agents", "/api/chart", "/api/feed", "/api/blips", "/api/movers", "/api/leaderboard"} {
				So(serve(mux, http.MethodPost, p).Code, ShouldEqual, http.StatusNotFound)
			}
		})
	})
}

func TestAgentsHandler(t *testing.T) {
	Convey("Given the agents routes", t, func() {
		mux := http.NewServeMux()
		api.NewServer(newDeps(), &mockStatsProvider{}, 10).Register(context.Background(), mux)

		Convey("The list includes active blips", func() {
			w := serve(mux, http.MethodGet, "/api/agents")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got []types.Agent
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].Blip, ShouldBeNil)
			So(got[1].Blip, ShouldNotBeNil)
			So(got[1].Blip.Glyph, ShouldEqual, "+1")
		})

		Convey("A known id returns the agent", func() {
			w := serve(mux, http.MethodGet, "/api/agents/1")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "CryptoGPT")
		})

		Convey("An unknown id is a 404", func() {
			w := serve(mux, http.MethodGet, "/api/agents/99")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			body := decodeError(w)
			So(body["code"], ShouldEqual, "not_found")
			So(body["message"], ShouldContainSubstring, "api.get_agent")
			So(body["message"], ShouldContainSubstring, `"99"`)
		})

		Convey("A nested path is a bad request", func() {
			w := serve(mux, http.MethodGet, "/api/agents/1/extra")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given the leaderboard routes", t, func() {
		deps := newDeps()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}, 10).Register(context.Background(), mux)

		Convey("No limit returns every row in rank order", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 3)
			for i, e := range got {
				So(e.Rank, ShouldEqual, i+1)
			}
			So(deps.lastLim, ShouldEqual, 0)
		})

		Convey("A limit is passed through", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard?limit=2")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(deps.lastLim, ShouldEqual, 2)
		})

		Convey("Bad limits are rejected", func() {
			for _, q := range []string{"0", "-1", "abc", "11"} {
				w := serve(mux, http.MethodGet, "/api/leaderboard?limit="+q)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("A single entry is addressable by name", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard/CryptoGPT")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.Rank, ShouldEqual, 2)
		})

		Convey("An unknown name is a 404", func() {
			So(serve(mux, http.MethodGet, "/api/leaderboard/Nobody").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestWidgetHandlers(t *testing.T) {
	Convey("Given the widget routes", t, func() {
		deps := newDeps()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}, 10).Register(context.Background(), mux)

		Convey("Chart returns series and labelled samples", func() {
			w := serve(mux, http.MethodGet, "/api/chart")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got types.Chart
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got.Series, ShouldResemble, []string{"CryptoGPT"})
			So(got.Samples[0].Label, ShouldEqual, "03:04 PM")
		})

		Convey("Feed keeps newest first and honours limit", func() {
			w := serve(mux, http.MethodGet, "/api/feed?limit=1")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got []types.Post
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].ID, ShouldEqual, "p2")
		})

		Convey("Blips lists active transient events", func() {
			w := serve(mux, http.MethodGet, "/api/blips")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"glyph":"+1"`)
		})

		Convey("Movers passes the limit", func() {
			w := serve(mux, http.MethodGet, "/api/movers?limit=3")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLim, ShouldEqual, 3)
			So(w.Body.String(), ShouldContainSubstring, "GeminiCrypto")
		})

		Convey("Responses are JSON", func() {
			w := serve(mux, http.MethodGet, "/api/feed")
			So(strings.HasPrefix(w.Header().Get("Content-Type"), "application/json"), ShouldBeTrue)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Wrap derives the kind from domain errors", t, func() {
		err := api.Wrap("api.op", fmt.Errorf("%w: %q", model.ErrUnknownEntity, "x"))
		So(errors.Is(err, api.ErrNotFound), ShouldBeTrue)
		So(errors.Is(err, model.ErrUnknownEntity), ShouldBeTrue)
		So(err.Error(), ShouldStartWith, "api.op: not found")

		err = api.Wrap("api.op", model.ErrInvalidArgument)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)

		So(api.Wrap("api.op", nil), ShouldBeNil)
	})

	Convey("NewKind and WrapKind carry explicit kinds", t, func() {
		err := api.NewKind("api.op", api.ErrUnavailable)
		So(errors.Is(err, api.ErrUnavailable), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: unavailable")

		cause := errors.New("boom")
		err = api.WrapKind("api.op", api.ErrBadRequest, cause)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)

		var apiErr *api.Error
		So(errors.As(err, &apiErr), ShouldBeTrue)
		So(apiErr.Op, ShouldEqual, "api.op")
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("The wrapper forwards Flush to the underlying writer", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("x"))
			w.(http.Flusher).Flush()
		}, "flush_test")
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		So(w.Flushed, ShouldBeTrue)
		So(w.Body.String(), ShouldEqual, "x")
	})

	Convey("Error statuses pass through", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}, "teapot_test")
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", nil))
		So(w.Code, ShouldEqual, http.StatusTeapot)
	})
}
