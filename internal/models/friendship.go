package models

import (
	"time"

	"github.com/google/uuid"
)

// FriendRequest is a pending, directed proposal from requester to recipient.
// At most one pending request may exist per unordered agent pair.
type FriendRequest struct {
	ID          uuid.UUID `json:"id"`
	RequesterID uuid.UUID `json:"requester_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type FriendRequestWithAgent struct {
	FriendRequest
	RequesterName   string `json:"requester_name"`
	RequesterHandle string `json:"requester_handle"`
}

// Friendship is the symmetric relation materialized when a request is
// accepted. The (AgentID, FriendID) pair is unique regardless of order.
type Friendship struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	FriendID  uuid.UUID `json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TopFriendEntry is one (friend, position) pair as supplied by the owner
// when replacing their Top Friends list.
type TopFriendEntry struct {
	FriendHandle string `json:"handle"`
	Position     int    `json:"position"`
}

// TopFriendSlot is one stored, ranked entry in an agent's Top Friends list.
// Positions run 1-8 and are unique per owner; gaps are legitimate.
type TopFriendSlot struct {
	ID           uuid.UUID `json:"id"`
	AgentID      uuid.UUID `json:"agent_id"`
	FriendID     uuid.UUID `json:"friend_id"`
	Position     int       `json:"position"`
	FriendName   string    `json:"friend_name"`
	FriendHandle string    `json:"friend_handle"`
}

const TopFriendsMax = 8
