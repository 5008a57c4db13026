package api

import (
	"context"
	"net/http"

	"github.com/okian/kolarena/internal/domain/types"
)

// MoverDependencies defines the interface for trending reads.
type MoverDependencies interface {
	Movers(ctx context.Context, limit int) []types.Mover
}

// MoversHandler handles trending movers requests.
type MoversHandler struct {
	deps     MoverDependencies
	maxLimit int
}

// NewMoversHandler creates a new movers handler.
func NewMoversHandler(deps MoverDependencies, maxLimit int) *MoversHandler {
	return &MoversHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGet handles GET /api/movers?limit=N requests.
func (h *MoversHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_movers"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, op, h.maxLimit)
	if err != nil {
		WriteErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Movers(r.Context(), n))
}
