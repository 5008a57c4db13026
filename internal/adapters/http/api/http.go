// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/kolarena/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AgentDependencies
	ChartDependencies
	LeaderboardDependencies
	FeedDependencies
	BlipDependencies
	MoverDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	agentsHandler      *AgentsHandler
	chartHandler       *ChartHandler
	leaderboardHandler *LeaderboardHandler
	feedHandler        *FeedHandler
	blipsHandler       *BlipsHandler
	moversHandler      *MoversHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		agentsHandler:      NewAgentsHandler(deps),
		chartHandler:       NewChartHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		feedHandler:        NewFeedHandler(deps, maxLimit),
		blipsHandler:       NewBlipsHandler(deps),
		moversHandler:      NewMoversHandler(deps, maxLimit),
		dashboardHandler:   newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/agents", MetricsMiddleware(s.agentsHandler.HandleList, "agents"))
	mux.HandleFunc("/api/agents/", MetricsMiddleware(s.agentsHandler.HandleGet, "agent"))
	mux.HandleFunc("/api/chart", MetricsMiddleware(s.chartHandler.HandleGet, "chart"))
	mux.HandleFunc("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/leaderboard/", MetricsMiddleware(s.leaderboardHandler.HandleGetEntry, "leaderboard_entry"))
	mux.HandleFunc("/api/feed", MetricsMiddleware(s.feedHandler.HandleGet, "feed"))
	mux.HandleFunc("/api/blips", MetricsMiddleware(s.blipsHandler.HandleGet, "blips"))
	mux.HandleFunc("/api/movers", MetricsMiddleware(s.moversHandler.HandleGet, "movers"))
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.RankEntry

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// WriteErr writes err as a JSON error, deriving status and code from its kind.
func WriteErr(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, err)
}

// parseLimit reads ?limit=N. A missing value yields 0, meaning no limit.
func parseLimit(r *http.Request, op string, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be a positive integer, got %q", raw))
	}
	if maxLimit > 0 && n > maxLimit {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("limit %d exceeds %d", n, maxLimit))
	}
	return n, nil
}

// pathParam returns the single path segment after prefix.
func pathParam(r *http.Request, prefix string) (string, bool) {
	p := strings.TrimPrefix(r.URL.Path, prefix)
	if p == "" || strings.Contains(p, "/") {
		return "", false
	}
	return p, true
}
