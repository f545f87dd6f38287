package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
)

type GuestbookHandler struct {
	guestbookService *services.GuestbookService
}

func NewGuestbookHandler(guestbookService *services.GuestbookService) *GuestbookHandler {
	return &GuestbookHandler{guestbookService: guestbookService}
}

type SignGuestbookRequest struct {
	Message string `json:"message"`
}

type GuestbookListResponse struct {
	Entries []models.GuestbookEntry `json:"entries"`
}

func (h *GuestbookHandler) Sign(w http.ResponseWriter, r *http.Request) {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SignGuestbookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.guestbookService.SignGuestbook(r.Context(), agent.ID, r.PathValue("handle"), req.Message)
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if errors.Is(err, services.ErrEmptyContent) {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	if errors.Is(err, services.ErrContentTooLong) {
		writeError(w, http.StatusBadRequest, "Message too long")
		return
	}
	if err != nil {
		log.Printf("Error signing guestbook: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *GuestbookHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.guestbookService.ListEntries(r.Context(), r.PathValue("handle"), parseLimit(r, 20))
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if err != nil {
		log.Printf("Error listing guestbook: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, GuestbookListResponse{Entries: entries})
}
