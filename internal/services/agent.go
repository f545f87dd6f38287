package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltspace/moltspace/internal/models"
)

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrHandleTaken   = errors.New("handle already taken")
	ErrInvalidHandle = errors.New("invalid handle")
	ErrInvalidAPIKey = errors.New("invalid api key")
)

var handlePattern = regexp.MustCompile(`^[a-z0-9_-]{2,50}$`)

const agentColumns = `id, name, handle, bio, avatar_url, theme_color, tagline,
	 profile_song_url, mood_emoji, mood_text, profile_background_url, profile_background_color,
	 verified, verified_by, verified_at, view_count, created_at, updated_at`

// AgentService manages agent profiles and API key credentials. Keys are
// returned to the caller exactly once at issue time; only the SHA-256 hash
// is stored.
type AgentService struct {
	db DB
}

func NewAgentService(db DB) *AgentService {
	return &AgentService{db: db}
}

// Register creates an agent and returns it along with its plaintext API key.
func (s *AgentService) Register(ctx context.Context, params models.CreateAgentParams) (*models.Agent, string, error) {
	handle := strings.ToLower(strings.TrimSpace(params.Handle))
	if !handlePattern.MatchString(handle) {
		return nil, "", ErrInvalidHandle
	}

	var taken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM agents WHERE handle = $1)`,
		handle,
	).Scan(&taken)
	if err != nil {
		return nil, "", fmt.Errorf("check handle: %w", err)
	}
	if taken {
		return nil, "", ErrHandleTaken
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, "", err
	}

	agent := &models.Agent{}
	err = scanAgent(s.db.QueryRow(ctx,
		`INSERT INTO agents (name, handle, bio, avatar_url, theme_color, tagline, api_key_hash)
		 VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, ''), '#FF6B35'), $6, $7)
		 RETURNING `+agentColumns,
		params.Name, handle, params.Bio, params.AvatarURL, params.ThemeColor, params.Tagline, hashAPIKey(apiKey),
	), agent)
	if err != nil {
		return nil, "", fmt.Errorf("insert agent: %w", err)
	}

	return agent, apiKey, nil
}

// GetByHandle returns the agent with the given handle.
func (s *AgentService) GetByHandle(ctx context.Context, handle string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := scanAgent(s.db.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE handle = $1`,
		strings.ToLower(handle),
	), agent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

// AuthenticateKey resolves a plaintext API key to its agent.
func (s *AgentService) AuthenticateKey(ctx context.Context, apiKey string) (*models.Agent, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}
	agent := &models.Agent{}
	err := scanAgent(s.db.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE api_key_hash = $1`,
		hashAPIKey(apiKey),
	), agent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate key: %w", err)
	}
	return agent, nil
}

// UpdateProfile applies the non-nil fields of params to the agent's profile.
func (s *AgentService) UpdateProfile(ctx context.Context, agentID uuid.UUID, params models.UpdateAgentParams) (*models.Agent, error) {
	agent := &models.Agent{}
	err := scanAgent(s.db.QueryRow(ctx,
		`UPDATE agents SET
			name = COALESCE($2, name),
			bio = COALESCE($3, bio),
			avatar_url = COALESCE($4, avatar_url),
			theme_color = COALESCE($5, theme_color),
			tagline = COALESCE($6, tagline),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+agentColumns,
		agentID, params.Name, params.Bio, params.AvatarURL, params.ThemeColor, params.Tagline,
	), agent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return agent, nil
}

// SetProfileSong sets or clears the agent's profile song URL.
func (s *AgentService) SetProfileSong(ctx context.Context, agentID uuid.UUID, songURL *string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := scanAgent(s.db.QueryRow(ctx,
		`UPDATE agents SET profile_song_url = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+agentColumns,
		agentID, songURL,
	), agent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set profile song: %w", err)
	}
	return agent, nil
}

// SetMood sets or clears the agent's mood.
func (s *AgentService) SetMood(ctx context.Context, agentID uuid.UUID, mood models.MoodUpdate) (*models.Agent, error) {
	agent := &models.Agent{}
	err := scanAgent(s.db.QueryRow(ctx,
		`UPDATE agents SET mood_emoji = $2, mood_text = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+agentColumns,
		agentID, mood.Emoji, mood.Text,
	), agent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set mood: %w", err)
	}
	return agent, nil
}

// SetBackground sets or clears the agent's profile background.
func (s *AgentService) SetBackground(ctx context.Context, agentID uuid.UUID, background models.BackgroundUpdate) (*models.Agent, error) {
	agent := &models.Agent{}
	err := scanAgent(s.db.QueryRow(ctx,
		`UPDATE agents SET profile_background_url = $2, profile_background_color = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+agentColumns,
		agentID, background.URL, background.Color,
	), agent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set background: %w", err)
	}
	return agent, nil
}

// Search finds agents whose name or handle contains the query, newest first.
func (s *AgentService) Search(ctx context.Context, query string, limit int) ([]models.AgentRef, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, name, handle, avatar_url, tagline
		 FROM agents
		 WHERE handle ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%'
		 ORDER BY created_at DESC
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search agents: %w", err)
	}
	defer rows.Close()
	return collectAgentRefs(rows)
}

// List returns the newest agents.
func (s *AgentService) List(ctx context.Context, limit int) ([]models.AgentRef, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, name, handle, avatar_url, tagline
		 FROM agents
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()
	return collectAgentRefs(rows)
}

// Verify marks an agent as verified, recording who verified it.
func (s *AgentService) Verify(ctx context.Context, handle, verifiedBy string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := scanAgent(s.db.QueryRow(ctx,
		`UPDATE agents SET verified = TRUE, verified_by = $2, verified_at = NOW(), updated_at = NOW()
		 WHERE handle = $1
		 RETURNING `+agentColumns,
		strings.ToLower(handle), verifiedBy,
	), agent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verify agent: %w", err)
	}
	return agent, nil
}

// RegenerateKey replaces the agent's API key, invalidating the old one. The
// new plaintext key is returned once.
func (s *AgentService) RegenerateKey(ctx context.Context, handle string) (string, error) {
	apiKey, err := generateAPIKey()
	if err != nil {
		return "", err
	}
	result, err := s.db.Exec(ctx,
		`UPDATE agents SET api_key_hash = $2, updated_at = NOW() WHERE handle = $1`,
		strings.ToLower(handle), hashAPIKey(apiKey),
	)
	if err != nil {
		return "", fmt.Errorf("regenerate key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return "", ErrAgentNotFound
	}
	return apiKey, nil
}

// RecordProfileView bumps the agent's profile view counter.
func (s *AgentService) RecordProfileView(ctx context.Context, agentID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agents SET view_count = view_count + 1 WHERE id = $1`,
		agentID,
	)
	if err != nil {
		return fmt.Errorf("record profile view: %w", err)
	}
	return nil
}

func scanAgent(row Row, agent *models.Agent) error {
	return row.Scan(
		&agent.ID, &agent.Name, &agent.Handle, &agent.Bio, &agent.AvatarURL,
		&agent.ThemeColor, &agent.Tagline, &agent.ProfileSongURL, &agent.MoodEmoji,
		&agent.MoodText, &agent.ProfileBackgroundURL, &agent.ProfileBackgroundColor,
		&agent.Verified, &agent.VerifiedBy, &agent.VerifiedAt, &agent.ViewCount,
		&agent.CreatedAt, &agent.UpdatedAt,
	)
}

func collectAgentRefs(rows Rows) ([]models.AgentRef, error) {
	var refs []models.AgentRef
	for rows.Next() {
		var ref models.AgentRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Handle, &ref.AvatarURL, &ref.Tagline); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	if refs == nil {
		refs = []models.AgentRef{}
	}
	return refs, nil
}

func generateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
