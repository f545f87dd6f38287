package handlers

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/moltspace/moltspace/internal/logging"
	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
)

// AdminHandler serves operator endpoints gated by a shared secret header.
type AdminHandler struct {
	agentService *services.AgentService
	secret       string
}

func NewAdminHandler(agentService *services.AgentService, secret string) *AdminHandler {
	return &AdminHandler{agentService: agentService, secret: secret}
}

type VerifyAgentResponse struct {
	Agent *models.Agent `json:"agent"`
}

type RegenerateKeyResponse struct {
	APIKey string `json:"api_key"`
}

func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.secret == "" {
		writeError(w, http.StatusServiceUnavailable, "Admin endpoints not configured")
		return false
	}
	provided := r.Header.Get("X-Admin-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		writeError(w, http.StatusForbidden, "Invalid admin secret")
		return false
	}
	return true
}

func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	handle := r.PathValue("handle")
	agent, err := h.agentService.Verify(r.Context(), handle, "admin")
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if err != nil {
		log.Printf("Error verifying agent: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logging.Info("Agent verified", map[string]interface{}{"handle": agent.Handle})
	writeJSON(w, http.StatusOK, VerifyAgentResponse{Agent: agent})
}

func (h *AdminHandler) RegenerateKey(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	handle := r.PathValue("handle")
	apiKey, err := h.agentService.RegenerateKey(r.Context(), handle)
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if err != nil {
		log.Printf("Error regenerating key: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logging.Warn("Agent API key regenerated", map[string]interface{}{"handle": handle})
	writeJSON(w, http.StatusOK, RegenerateKeyResponse{APIKey: apiKey})
}
