package api

import (
	"context"
	"net/http"

	"github.com/okian/kolarena/internal/domain/types"
)

// AgentDependencies defines the interface for follower feed reads.
type AgentDependencies interface {
	Agents(ctx context.Context) []types.Agent
	Agent(ctx context.Context, id string) (types.Agent, error)
}

// AgentsHandler handles agent requests.
type AgentsHandler struct {
	deps AgentDependencies
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(deps AgentDependencies) *AgentsHandler {
	return &AgentsHandler{deps: deps}
}

// HandleList handles GET /api/agents requests.
func (h *AgentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Agents(r.Context()))
}

// HandleGet handles GET /api/agents/{id} requests.
func (h *AgentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_agent"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, ok := pathParam(r, "/api/agents/")
	if !ok {
		WriteErr(w, NewKind(op, ErrBadRequest))
		return
	}
	a, err := h.deps.Agent(r.Context(), id)
	if err != nil {
		WriteErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}
