package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
)

type TopFriendsHandler struct {
	topFriendsService *services.TopFriendsService
	agentService      *services.AgentService
}

func NewTopFriendsHandler(topFriendsService *services.TopFriendsService, agentService *services.AgentService) *TopFriendsHandler {
	return &TopFriendsHandler{topFriendsService: topFriendsService, agentService: agentService}
}

type SetTopFriendsRequest struct {
	TopFriends []models.TopFriendEntry `json:"top_friends"`
}

type TopFriendsResponse struct {
	TopFriends []models.TopFriendSlot `json:"top_friends"`
}

// Set replaces the caller's Top 8. Only the profile owner may change it.
func (h *TopFriendsHandler) Set(w http.ResponseWriter, r *http.Request) {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	handle := r.PathValue("handle")
	if handle != agent.Handle {
		writeError(w, http.StatusForbidden, "You can only edit your own top friends")
		return
	}

	var req SetTopFriendsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slots, err := h.topFriendsService.SetTopFriends(r.Context(), agent.ID, req.TopFriends)
	if errors.Is(err, services.ErrTooManyTopFriends) {
		writeError(w, http.StatusBadRequest, "Top friends list cannot exceed 8 entries")
		return
	}
	if errors.Is(err, services.ErrInvalidPosition) {
		writeError(w, http.StatusBadRequest, "Positions must be between 1 and 8")
		return
	}
	if errors.Is(err, services.ErrDuplicatePosition) {
		writeError(w, http.StatusBadRequest, "Each position can only be used once")
		return
	}
	if errors.Is(err, services.ErrDuplicateTopFriend) {
		writeError(w, http.StatusBadRequest, "Each friend can only appear once")
		return
	}
	if errors.Is(err, services.ErrSelfTopFriend) {
		writeError(w, http.StatusBadRequest, "You cannot feature yourself")
		return
	}
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if errors.Is(err, services.ErrNotFriend) {
		writeError(w, http.StatusConflict, "Top friends must be friends first")
		return
	}
	if err != nil {
		log.Printf("Error setting top friends: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TopFriendsResponse{TopFriends: slots})
}

// Get serves any agent's Top 8 by handle.
func (h *TopFriendsHandler) Get(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")

	target, err := h.agentService.GetByHandle(r.Context(), handle)
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if err != nil {
		log.Printf("Error resolving agent: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slots, err := h.topFriendsService.GetTopFriends(r.Context(), target.ID)
	if err != nil {
		log.Printf("Error getting top friends: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TopFriendsResponse{TopFriends: slots})
}
