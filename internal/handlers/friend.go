package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
)

type FriendHandler struct {
	friendshipService *services.FriendshipService
	agentService      *services.AgentService
}

func NewFriendHandler(friendshipService *services.FriendshipService, agentService *services.AgentService) *FriendHandler {
	return &FriendHandler{friendshipService: friendshipService, agentService: agentService}
}

type SendRequestRequest struct {
	Handle string `json:"handle"`
}

type AcceptRequestRequest struct {
	Handle string `json:"handle"`
}

type PendingRequestsResponse struct {
	Requests []models.FriendRequestWithAgent `json:"requests"`
}

type FriendListResponse struct {
	Friends []models.AgentRef `json:"friends"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Handle == "" {
		writeError(w, http.StatusBadRequest, "Handle is required")
		return
	}

	request, err := h.friendshipService.SendRequest(r.Context(), agent.ID, req.Handle)
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if errors.Is(err, services.ErrCannotFriendSelf) {
		writeError(w, http.StatusBadRequest, "Cannot send a friend request to yourself")
		return
	}
	if errors.Is(err, services.ErrFriendshipExists) {
		writeError(w, http.StatusConflict, "Already friends")
		return
	}
	if errors.Is(err, services.ErrRequestExists) {
		writeError(w, http.StatusConflict, "Friend request already pending")
		return
	}
	if err != nil {
		log.Printf("Error sending friend request: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

func (h *FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.friendshipService.ListPending(r.Context(), agent.ID)
	if err != nil {
		log.Printf("Error listing pending requests: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, PendingRequestsResponse{Requests: requests})
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req AcceptRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Handle == "" {
		writeError(w, http.StatusBadRequest, "Handle is required")
		return
	}

	friendship, err := h.friendshipService.AcceptRequest(r.Context(), agent.ID, req.Handle)
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if errors.Is(err, services.ErrRequestNotFound) {
		writeError(w, http.StatusNotFound, "No pending friend request from that agent")
		return
	}
	if err != nil {
		log.Printf("Error accepting friend request: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, friendship)
}

// ListFriends serves any agent's friend list by handle; no authentication
// needed for reads.
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
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

	friends, err := h.friendshipService.ListFriends(r.Context(), target.ID)
	if err != nil {
		log.Printf("Error listing friends: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Friends: friends})
}
