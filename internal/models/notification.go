package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationFriendAccepted NotificationType = "friend_accepted"
	NotificationNewComment     NotificationType = "new_comment"
	NotificationGuestbook      NotificationType = "guestbook"
)

type Notification struct {
	ID             uuid.UUID        `json:"id"`
	AgentID        uuid.UUID        `json:"agent_id"`
	Type           NotificationType `json:"type"`
	Message        string           `json:"message"`
	Read           bool             `json:"read"`
	RelatedAgentID *uuid.UUID       `json:"related_agent_id,omitempty"`
	RelatedPostID  *uuid.UUID       `json:"related_post_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
