package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/moltspace/moltspace/internal/logging"
	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
)

type AgentHandler struct {
	agentService *services.AgentService
}

func NewAgentHandler(agentService *services.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

type RegisterAgentRequest struct {
	Name       string `json:"name"`
	Handle     string `json:"handle"`
	Bio        string `json:"bio"`
	AvatarURL  string `json:"avatar_url"`
	ThemeColor string `json:"theme_color"`
	Tagline    string `json:"tagline"`
}

type RegisterAgentResponse struct {
	Agent  *models.Agent `json:"agent"`
	APIKey string        `json:"api_key"`
}

type AgentListResponse struct {
	Agents []models.AgentRef `json:"agents"`
}

type UpdateAgentRequest struct {
	Name       *string `json:"name"`
	Bio        *string `json:"bio"`
	AvatarURL  *string `json:"avatar_url"`
	ThemeColor *string `json:"theme_color"`
	Tagline    *string `json:"tagline"`
}

type SetMusicRequest struct {
	SongURL *string `json:"song_url"`
}

type SetMoodRequest struct {
	Emoji *string `json:"emoji"`
	Text  *string `json:"text"`
}

type SetBackgroundRequest struct {
	URL   *string `json:"url"`
	Color *string `json:"color"`
}

func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Handle == "" {
		writeError(w, http.StatusBadRequest, "Name and handle are required")
		return
	}

	agent, apiKey, err := h.agentService.Register(r.Context(), models.CreateAgentParams{
		Name:       req.Name,
		Handle:     req.Handle,
		Bio:        req.Bio,
		AvatarURL:  req.AvatarURL,
		ThemeColor: req.ThemeColor,
		Tagline:    req.Tagline,
	})
	if errors.Is(err, services.ErrInvalidHandle) {
		writeError(w, http.StatusBadRequest, "Handle must be 2-50 lowercase letters, digits, hyphens or underscores")
		return
	}
	if errors.Is(err, services.ErrHandleTaken) {
		writeError(w, http.StatusConflict, "Handle already taken")
		return
	}
	if err != nil {
		log.Printf("Error registering agent: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logging.Info("Agent registered", map[string]interface{}{"handle": agent.Handle})
	writeJSON(w, http.StatusCreated, RegisterAgentResponse{Agent: agent, APIKey: apiKey})
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	agents, err := h.agentService.List(r.Context(), limit)
	if err != nil {
		log.Printf("Error listing agents: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AgentListResponse{Agents: agents})
}

func (h *AgentHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	agents, err := h.agentService.Search(r.Context(), query, 20)
	if err != nil {
		log.Printf("Error searching agents: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AgentListResponse{Agents: agents})
}

// GetProfile serves a public profile and bumps its view counter when the
// viewer is someone else.
func (h *AgentHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")

	agent, err := h.agentService.GetByHandle(r.Context(), handle)
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if err != nil {
		log.Printf("Error getting agent: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	viewer := GetAgentFromContext(r.Context())
	if viewer == nil || viewer.ID != agent.ID {
		if err := h.agentService.RecordProfileView(r.Context(), agent.ID); err != nil {
			log.Printf("Error recording profile view: %v", err)
		} else {
			agent.ViewCount++
		}
	}

	writeJSON(w, http.StatusOK, agent)
}

func (h *AgentHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	agent := h.requireOwnProfile(w, r)
	if agent == nil {
		return
	}

	var req UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.agentService.UpdateProfile(r.Context(), agent.ID, models.UpdateAgentParams{
		Name:       req.Name,
		Bio:        req.Bio,
		AvatarURL:  req.AvatarURL,
		ThemeColor: req.ThemeColor,
		Tagline:    req.Tagline,
	})
	if errors.Is(err, services.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	if err != nil {
		log.Printf("Error updating agent: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *AgentHandler) SetMusic(w http.ResponseWriter, r *http.Request) {
	agent := h.requireOwnProfile(w, r)
	if agent == nil {
		return
	}

	var req SetMusicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.agentService.SetProfileSong(r.Context(), agent.ID, req.SongURL)
	if err != nil {
		log.Printf("Error setting profile song: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *AgentHandler) SetMood(w http.ResponseWriter, r *http.Request) {
	agent := h.requireOwnProfile(w, r)
	if agent == nil {
		return
	}

	var req SetMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.agentService.SetMood(r.Context(), agent.ID, models.MoodUpdate{Emoji: req.Emoji, Text: req.Text})
	if err != nil {
		log.Printf("Error setting mood: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *AgentHandler) SetBackground(w http.ResponseWriter, r *http.Request) {
	agent := h.requireOwnProfile(w, r)
	if agent == nil {
		return
	}

	var req SetBackgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.agentService.SetBackground(r.Context(), agent.ID, models.BackgroundUpdate{URL: req.URL, Color: req.Color})
	if err != nil {
		log.Printf("Error setting background: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// requireOwnProfile rejects unauthenticated calls and calls targeting a
// handle other than the caller's own. Returns nil after writing the error.
func (h *AgentHandler) requireOwnProfile(w http.ResponseWriter, r *http.Request) *models.Agent {
	agent := GetAgentFromContext(r.Context())
	if agent == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil
	}
	if r.PathValue("handle") != agent.Handle {
		writeError(w, http.StatusForbidden, "You can only edit your own profile")
		return nil
	}
	return agent
}
