package api

import (
	"context"
	"net/http"

	"github.com/okian/kolarena/internal/domain/types"
)

// BlipDependencies defines the interface for transient event reads.
type BlipDependencies interface {
	Blips(ctx context.Context) []types.Blip
}

// BlipsHandler handles transient event requests.
type BlipsHandler struct {
	deps BlipDependencies
}

// NewBlipsHandler creates a new blips handler.
func NewBlipsHandler(deps BlipDependencies) *BlipsHandler {
	return &BlipsHandler{deps: deps}
}

// HandleGet handles GET /api/blips requests.
func (h *BlipsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Blips(r.Context()))
}
