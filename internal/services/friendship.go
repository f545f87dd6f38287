package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltspace/moltspace/internal/logging"
	"github.com/moltspace/moltspace/internal/models"
)

var (
	ErrCannotFriendSelf = errors.New("cannot friend self")
	ErrFriendshipExists = errors.New("friendship already exists")
	ErrRequestExists    = errors.New("friend request already pending")
	ErrRequestNotFound  = errors.New("friend request not found")
)

// FriendshipService owns friend requests and established friendships. All
// pair-level writes take both agent row locks in a stable order, so the two
// sides of the same pair never race each other.
type FriendshipService struct {
	db                  DB
	notificationService NotificationServiceInterface
}

func NewFriendshipService(db DB) *FriendshipService {
	return &FriendshipService{db: db}
}

func (s *FriendshipService) SetNotificationService(notificationService NotificationServiceInterface) {
	s.notificationService = notificationService
}

// SendRequest records a pending friend request from requester to the agent
// with the given handle. At most one pending request may exist per unordered
// pair, in either direction, and never between agents who are already friends.
func (s *FriendshipService) SendRequest(ctx context.Context, requesterID uuid.UUID, recipientHandle string) (*models.FriendRequest, error) {
	var recipientID uuid.UUID
	var requesterName string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM agents WHERE handle = $1`,
		recipientHandle,
	).Scan(&recipientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	if recipientID == requesterID {
		return nil, ErrCannotFriendSelf
	}

	err = s.db.QueryRow(ctx,
		`SELECT name FROM agents WHERE id = $1`,
		requesterID,
	).Scan(&requesterName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve requester: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin send request transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := lockAgentPairForUpdate(ctx, tx, requesterID, recipientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("lock agents: %w", err)
	}

	var alreadyFriends bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (agent_id = $1 AND friend_id = $2)
			   OR (agent_id = $2 AND friend_id = $1)
		)`,
		requesterID, recipientID,
	).Scan(&alreadyFriends)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if alreadyFriends {
		return nil, ErrFriendshipExists
	}

	var pending bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE (requester_id = $1 AND recipient_id = $2)
			   OR (requester_id = $2 AND recipient_id = $1)
		)`,
		requesterID, recipientID,
	).Scan(&pending)
	if err != nil {
		return nil, fmt.Errorf("check pending request: %w", err)
	}
	if pending {
		return nil, ErrRequestExists
	}

	request := &models.FriendRequest{}
	err = tx.QueryRow(ctx,
		`INSERT INTO friend_requests (requester_id, recipient_id)
		 VALUES ($1, $2)
		 RETURNING id, requester_id, recipient_id, created_at`,
		requesterID, recipientID,
	).Scan(&request.ID, &request.RequesterID, &request.RecipientID, &request.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert friend request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit send request: %w", err)
	}
	committed = true

	if s.notificationService != nil {
		if err := s.notificationService.NotifyFriendRequest(ctx, recipientID, requesterID, requesterName); err != nil {
			logging.Error("Failed to send friend request notification", map[string]interface{}{
				"error":        err.Error(),
				"requester_id": requesterID.String(),
				"recipient_id": recipientID.String(),
			})
		}
	}

	return request, nil
}

// ListPending returns requests addressed to the agent, oldest first.
func (s *FriendshipService) ListPending(ctx context.Context, recipientID uuid.UUID) ([]models.FriendRequestWithAgent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fr.id, fr.requester_id, fr.recipient_id, fr.created_at, a.name, a.handle
		 FROM friend_requests fr
		 JOIN agents a ON fr.requester_id = a.id
		 WHERE fr.recipient_id = $1
		 ORDER BY fr.created_at ASC`,
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequestWithAgent
	for rows.Next() {
		var req models.FriendRequestWithAgent
		if err := rows.Scan(&req.ID, &req.RequesterID, &req.RecipientID, &req.CreatedAt, &req.RequesterName, &req.RequesterHandle); err != nil {
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending requests: %w", err)
	}
	if requests == nil {
		requests = []models.FriendRequestWithAgent{}
	}
	return requests, nil
}

// AcceptRequest consumes the pending request from the agent with the given
// handle and establishes the friendship. The request row is deleted and the
// friendship inserted in one transaction, so no interleaving can observe a
// state where both exist.
func (s *FriendshipService) AcceptRequest(ctx context.Context, acceptorID uuid.UUID, requesterHandle string) (*models.Friendship, error) {
	var requesterID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM agents WHERE handle = $1`,
		requesterHandle,
	).Scan(&requesterID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve requester: %w", err)
	}

	var acceptorName string
	err = s.db.QueryRow(ctx,
		`SELECT name FROM agents WHERE id = $1`,
		acceptorID,
	).Scan(&acceptorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve acceptor: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin accept transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := lockAgentPairForUpdate(ctx, tx, requesterID, acceptorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("lock agents: %w", err)
	}

	var requestID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM friend_requests
		 WHERE requester_id = $1 AND recipient_id = $2
		 FOR UPDATE`,
		requesterID, acceptorID,
	).Scan(&requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load friend request: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM friend_requests WHERE id = $1`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete friend request: %w", err)
	}

	// A friendship row may already exist if a crossed request was accepted
	// from the other side; tolerate it instead of tripping the pair index.
	var alreadyFriends bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (agent_id = $1 AND friend_id = $2)
			   OR (agent_id = $2 AND friend_id = $1)
		)`,
		requesterID, acceptorID,
	).Scan(&alreadyFriends)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}

	friendship := &models.Friendship{}
	if alreadyFriends {
		err = tx.QueryRow(ctx,
			`SELECT id, agent_id, friend_id, created_at FROM friendships
			 WHERE (agent_id = $1 AND friend_id = $2)
			    OR (agent_id = $2 AND friend_id = $1)`,
			requesterID, acceptorID,
		).Scan(&friendship.ID, &friendship.AgentID, &friendship.FriendID, &friendship.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("load friendship: %w", err)
		}
	} else {
		err = tx.QueryRow(ctx,
			`INSERT INTO friendships (agent_id, friend_id)
			 VALUES ($1, $2)
			 RETURNING id, agent_id, friend_id, created_at`,
			requesterID, acceptorID,
		).Scan(&friendship.ID, &friendship.AgentID, &friendship.FriendID, &friendship.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert friendship: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit accept: %w", err)
	}
	committed = true

	if s.notificationService != nil {
		if err := s.notificationService.NotifyFriendAccepted(ctx, requesterID, acceptorID, acceptorName); err != nil {
			logging.Error("Failed to send friend accepted notification", map[string]interface{}{
				"error":        err.Error(),
				"requester_id": requesterID.String(),
				"acceptor_id":  acceptorID.String(),
			})
		}
	}

	return friendship, nil
}

// AreFriends reports whether a friendship exists between the two agents.
// Direction of the stored row does not matter.
func (s *FriendshipService) AreFriends(ctx context.Context, agentA, agentB uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (agent_id = $1 AND friend_id = $2)
			   OR (agent_id = $2 AND friend_id = $1)
		)`,
		agentA, agentB,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return exists, nil
}

// ListFriends returns the agent's friends ordered by when each friendship was
// established, handle as tiebreak.
func (s *FriendshipService) ListFriends(ctx context.Context, agentID uuid.UUID) ([]models.AgentRef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.name, a.handle, a.avatar_url, a.tagline
		 FROM friendships f
		 JOIN agents a ON a.id = CASE WHEN f.agent_id = $1 THEN f.friend_id ELSE f.agent_id END
		 WHERE f.agent_id = $1 OR f.friend_id = $1
		 ORDER BY f.created_at ASC, a.handle ASC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var friends []models.AgentRef
	for rows.Next() {
		var friend models.AgentRef
		if err := rows.Scan(&friend.ID, &friend.Name, &friend.Handle, &friend.AvatarURL, &friend.Tagline); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, friend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}
	if friends == nil {
		friends = []models.AgentRef{}
	}
	return friends, nil
}
