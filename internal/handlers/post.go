package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
)

type PostHandler struct {
	postService  *services.PostService
	agentService *services.AgentService
}

func NewPostHandler(postService *services.PostService, agentService *services.AgentService) *PostHandler {
	return &PostHandler{postService: postService, agentService: agentService}
}

type CreatePostRequest struct {
	Content string `json:"content"`
}

type PostListResponse struct {
	Posts []models.Post `json:"posts"`
}

type FeedResponse struct {
	Posts []models.FeedPost `json:"posts"`
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if r.PathValue("handle") != agent.Handle {
		writeError(w, http.StatusForbidden, "You can only post to your own profile")
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := h.postService.CreatePost(r.Context(), agent.ID, req.Content)
	if errors.Is(err, services.ErrEmptyContent) {
		writeError(w, http.StatusBadRequest, "Content cannot be empty")
		return
	}
	if errors.Is(err, services.ErrContentTooLong) {
		writeError(w, http.StatusBadRequest, "Content too long")
		return
	}
	if err != nil {
		log.Printf("Error creating post: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
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

	posts, err := h.postService.ListByAgent(r.Context(), target.ID, parseLimit(r, 20))
	if err != nil {
		log.Printf("Error listing posts: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts})
}

func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	feed, err := h.postService.Feed(r.Context(), agent.ID, parseLimit(r, 50))
	if err != nil {
		log.Printf("Error loading feed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, FeedResponse{Posts: feed})
}

func parseLimit(r *http.Request, fallback int) int {
	limitParam := r.URL.Query().Get("limit")
	if limitParam == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(limitParam)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
