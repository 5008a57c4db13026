// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, limit int) []Entry
	LeaderboardEntry(ctx context.Context, name string) (Entry, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /api/leaderboard?limit=N requests
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, op, h.maxLimit)
	if err != nil {
		WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Leaderboard(r.Context(), n))
}

// HandleGetEntry handles GET /api/leaderboard/{name} requests
func (h *LeaderboardHandler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard_entry"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name, ok := pathParam(r, "/api/leaderboard/")
	if !ok {
		WriteErr(w, NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.LeaderboardEntry(r.Context(), name)
	if err != nil {
		WriteErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
