package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/moltspace/moltspace/internal/models"
)

type contextKey string

const agentContextKey contextKey = "agent"

// SetAgentInContext attaches the authenticated agent to the request context.
func SetAgentInContext(ctx context.Context, agent *models.Agent) context.Context {
	return context.WithValue(ctx, agentContextKey, agent)
}

// GetAgentFromContext returns the authenticated agent, or nil.
func GetAgentFromContext(ctx context.Context) *models.Agent {
	agent, _ := ctx.Value(agentContextKey).(*models.Agent)
	return agent
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
