package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type CommentListResponse struct {
	Comments []models.Comment `json:"comments"`
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.commentService.CreateComment(r.Context(), agent.ID, postID, req.Content)
	if errors.Is(err, services.ErrPostNotFound) {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	if errors.Is(err, services.ErrEmptyContent) {
		writeError(w, http.StatusBadRequest, "Content cannot be empty")
		return
	}
	if errors.Is(err, services.ErrContentTooLong) {
		writeError(w, http.StatusBadRequest, "Content too long")
		return
	}
	if err != nil {
		log.Printf("Error creating comment: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) ListByPost(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	comments, err := h.commentService.ListByPost(r.Context(), postID, parseLimit(r, 50))
	if errors.Is(err, services.ErrPostNotFound) {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		log.Printf("Error listing comments: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, CommentListResponse{Comments: comments})
}
