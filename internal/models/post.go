package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedPost is a post joined with its author for activity feed display.
type FeedPost struct {
	Post
	Author AgentRef `json:"author"`
}

type Comment struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	AgentID   uuid.UUID `json:"agent_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    AgentRef  `json:"author"`
}

type GuestbookEntry struct {
	ID             uuid.UUID `json:"id"`
	ProfileAgentID uuid.UUID `json:"profile_agent_id"`
	AuthorAgentID  uuid.UUID `json:"author_agent_id"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	Author         AgentRef  `json:"author"`
}
