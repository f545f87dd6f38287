package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltspace/moltspace/internal/models"
)

var (
	ErrTooManyTopFriends  = errors.New("too many top friends")
	ErrInvalidPosition    = errors.New("top friend position out of range")
	ErrDuplicatePosition  = errors.New("duplicate top friend position")
	ErrDuplicateTopFriend = errors.New("duplicate top friend")
	ErrSelfTopFriend      = errors.New("cannot feature self in top friends")
	ErrNotFriend          = errors.New("not friends with agent")
)

// FriendshipChecker reports whether two agents are friends.
type FriendshipChecker interface {
	AreFriends(ctx context.Context, agentA, agentB uuid.UUID) (bool, error)
}

// TopFriendsService manages each agent's ranked Top 8. The list is replaced
// wholesale on every update; partial edits are not supported.
type TopFriendsService struct {
	db         DB
	friendship FriendshipChecker
}

func NewTopFriendsService(db DB, friendship FriendshipChecker) *TopFriendsService {
	return &TopFriendsService{db: db, friendship: friendship}
}

type resolvedTopFriend struct {
	friendID uuid.UUID
	name     string
	handle   string
	position int
}

// SetTopFriends validates and stores the agent's full Top 8 list. Every entry
// must name an existing friend, positions must be unique and within 1..8, and
// no friend may appear twice. Any failure leaves the previous list intact.
func (s *TopFriendsService) SetTopFriends(ctx context.Context, agentID uuid.UUID, entries []models.TopFriendEntry) ([]models.TopFriendSlot, error) {
	if len(entries) > models.TopFriendsMax {
		return nil, ErrTooManyTopFriends
	}

	// Structural checks cover the whole input before any handle is resolved,
	// so a bad position is reported even when an earlier entry would not
	// resolve.
	seenPositions := make(map[int]bool, len(entries))
	seenHandles := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.Position < 1 || entry.Position > models.TopFriendsMax {
			return nil, ErrInvalidPosition
		}
		if seenPositions[entry.Position] {
			return nil, ErrDuplicatePosition
		}
		seenPositions[entry.Position] = true

		if seenHandles[entry.FriendHandle] {
			return nil, ErrDuplicateTopFriend
		}
		seenHandles[entry.FriendHandle] = true
	}

	resolved := make([]resolvedTopFriend, 0, len(entries))
	for _, entry := range entries {
		var friendID uuid.UUID
		var friendName string
		err := s.db.QueryRow(ctx,
			`SELECT id, name FROM agents WHERE handle = $1`,
			entry.FriendHandle,
		).Scan(&friendID, &friendName)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("resolve top friend: %w", err)
		}

		if friendID == agentID {
			return nil, ErrSelfTopFriend
		}

		isFriend, err := s.friendship.AreFriends(ctx, agentID, friendID)
		if err != nil {
			return nil, fmt.Errorf("check friendship: %w", err)
		}
		if !isFriend {
			return nil, ErrNotFriend
		}

		resolved = append(resolved, resolvedTopFriend{
			friendID: friendID,
			name:     friendName,
			handle:   entry.FriendHandle,
			position: entry.Position,
		})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].position < resolved[j].position
	})

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin top friends transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := lockAgentForUpdate(ctx, tx, agentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("lock agent: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM top_friends WHERE agent_id = $1`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("clear top friends: %w", err)
	}

	slots := make([]models.TopFriendSlot, 0, len(resolved))
	for _, rf := range resolved {
		var slotID uuid.UUID
		err = tx.QueryRow(ctx,
			`INSERT INTO top_friends (agent_id, friend_id, position)
			 VALUES ($1, $2, $3)
			 RETURNING id`,
			agentID, rf.friendID, rf.position,
		).Scan(&slotID)
		if err != nil {
			return nil, fmt.Errorf("insert top friend slot: %w", err)
		}
		slots = append(slots, models.TopFriendSlot{
			ID:           slotID,
			AgentID:      agentID,
			FriendID:     rf.friendID,
			Position:     rf.position,
			FriendName:   rf.name,
			FriendHandle: rf.handle,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit top friends: %w", err)
	}
	committed = true

	return slots, nil
}

// GetTopFriends returns the agent's Top 8 ordered by position. An agent with
// no list gets an empty slice, not an error.
func (s *TopFriendsService) GetTopFriends(ctx context.Context, agentID uuid.UUID) ([]models.TopFriendSlot, error) {
	rows, err := s.db.Query(ctx,
		`SELECT tf.id, tf.agent_id, tf.friend_id, tf.position, a.name, a.handle
		 FROM top_friends tf
		 JOIN agents a ON tf.friend_id = a.id
		 WHERE tf.agent_id = $1
		 ORDER BY tf.position ASC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list top friends: %w", err)
	}
	defer rows.Close()

	var slots []models.TopFriendSlot
	for rows.Next() {
		var slot models.TopFriendSlot
		if err := rows.Scan(&slot.ID, &slot.AgentID, &slot.FriendID, &slot.Position, &slot.FriendName, &slot.FriendHandle); err != nil {
			return nil, fmt.Errorf("scan top friend slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top friends: %w", err)
	}
	if slots == nil {
		slots = []models.TopFriendSlot{}
	}
	return slots, nil
}
