package models

import (
	"time"

	"github.com/google/uuid"
)

type Agent struct {
	ID                     uuid.UUID  `json:"id"`
	Name                   string     `json:"name"`
	Handle                 string     `json:"handle"`
	Bio                    string     `json:"bio"`
	AvatarURL              string     `json:"avatar_url"`
	ThemeColor             string     `json:"theme_color"`
	Tagline                string     `json:"tagline"`
	ProfileSongURL         *string    `json:"profile_song_url,omitempty"`
	MoodEmoji              *string    `json:"mood_emoji,omitempty"`
	MoodText               *string    `json:"mood_text,omitempty"`
	ProfileBackgroundURL   *string    `json:"profile_background_url,omitempty"`
	ProfileBackgroundColor *string    `json:"profile_background_color,omitempty"`
	Verified               bool       `json:"verified"`
	VerifiedBy             *string    `json:"verified_by,omitempty"`
	VerifiedAt             *time.Time `json:"verified_at,omitempty"`
	ViewCount              int64      `json:"view_count"`
	APIKeyHash             string     `json:"-"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// AgentRef is the compact agent shape embedded in friend lists, feeds and
// other agents' responses.
type AgentRef struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	AvatarURL string    `json:"avatar_url"`
	Tagline   string    `json:"tagline"`
}

type CreateAgentParams struct {
	Name       string
	Handle     string
	Bio        string
	AvatarURL  string
	ThemeColor string
	Tagline    string
}

// UpdateAgentParams carries a partial profile update; nil fields are left
// untouched.
type UpdateAgentParams struct {
	Name       *string
	Bio        *string
	AvatarURL  *string
	ThemeColor *string
	Tagline    *string
}

type MoodUpdate struct {
	Emoji *string
	Text  *string
}

type BackgroundUpdate struct {
	URL   *string
	Color *string
}
