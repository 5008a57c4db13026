package api

import (
	"context"
	"net/http"

	"github.com/okian/kolarena/internal/domain/types"
)

// FeedDependencies defines the interface for feed reads.
type FeedDependencies interface {
	Feed(ctx context.Context, limit int) []types.Post
}

// FeedHandler handles feed requests.
type FeedHandler struct {
	deps     FeedDependencies
	maxLimit int
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(deps FeedDependencies, maxLimit int) *FeedHandler {
	return &FeedHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGet handles GET /api/feed?limit=N requests. Posts are newest first.
func (h *FeedHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_feed"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, op, h.maxLimit)
	if err != nil {
		WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Feed(r.Context(), n))
}
