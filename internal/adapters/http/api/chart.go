package api

import (
	"context"
	"net/http"

	"github.com/okian/kolarena/internal/domain/types"
)

// ChartDependencies defines the interface for chart reads.
type ChartDependencies interface {
	Chart(ctx context.Context) types.Chart
}

// ChartHandler handles chart requests.
type ChartHandler struct {
	deps ChartDependencies
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps ChartDependencies) *ChartHandler {
	return &ChartHandler{deps: deps}
}

// HandleGet handles GET /api/chart requests.
func (h *ChartHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Chart(r.Context()))
}
