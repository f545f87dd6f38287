package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/moltspace/moltspace/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationServiceInterface is the producer-side surface other services
// use to emit notifications. Deliveries are best effort; callers log and
// continue on failure.
type NotificationServiceInterface interface {
	NotifyFriendRequest(ctx context.Context, recipientID, requesterID uuid.UUID, requesterName string) error
	NotifyFriendAccepted(ctx context.Context, requesterID, acceptorID uuid.UUID, acceptorName string) error
	NotifyNewComment(ctx context.Context, postOwnerID, commenterID, postID uuid.UUID, commenterName string) error
	NotifyGuestbookEntry(ctx context.Context, profileOwnerID, authorID uuid.UUID, authorName string) error
}

// NotificationService stores and serves per-agent notifications.
type NotificationService struct {
	db DB
}

func NewNotificationService(db DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) NotifyFriendRequest(ctx context.Context, recipientID, requesterID uuid.UUID, requesterName string) error {
	message := fmt.Sprintf("%s sent you a friend request", requesterName)
	return s.insert(ctx, recipientID, models.NotificationFriendRequest, message, &requesterID, nil)
}

func (s *NotificationService) NotifyFriendAccepted(ctx context.Context, requesterID, acceptorID uuid.UUID, acceptorName string) error {
	message := fmt.Sprintf("%s accepted your friend request", acceptorName)
	return s.insert(ctx, requesterID, models.NotificationFriendAccepted, message, &acceptorID, nil)
}

func (s *NotificationService) NotifyNewComment(ctx context.Context, postOwnerID, commenterID, postID uuid.UUID, commenterName string) error {
	message := fmt.Sprintf("%s commented on your post", commenterName)
	return s.insert(ctx, postOwnerID, models.NotificationNewComment, message, &commenterID, &postID)
}

func (s *NotificationService) NotifyGuestbookEntry(ctx context.Context, profileOwnerID, authorID uuid.UUID, authorName string) error {
	message := fmt.Sprintf("%s signed your guestbook", authorName)
	return s.insert(ctx, profileOwnerID, models.NotificationGuestbook, message, &authorID, nil)
}

func (s *NotificationService) insert(ctx context.Context, agentID uuid.UUID, nType models.NotificationType, message string, relatedAgentID, relatedPostID *uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO notifications (agent_id, type, message, related_agent_id, related_post_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		agentID, string(nType), message, relatedAgentID, relatedPostID,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns the agent's notifications, newest first. Unread only when
// unreadOnly is set.
func (s *NotificationService) List(ctx context.Context, agentID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, agent_id, type, message, read, related_agent_id, related_post_id, created_at
		 FROM notifications
		 WHERE agent_id = $1 AND ($2 = FALSE OR read = FALSE)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		agentID, unreadOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.AgentID, &n.Type, &n.Message, &n.Read, &n.RelatedAgentID, &n.RelatedPostID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}

// UnreadCount returns how many unread notifications the agent has.
func (s *NotificationService) UnreadCount(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE agent_id = $1 AND read = FALSE`,
		agentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the agent's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, agentID, notificationID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND agent_id = $2`,
		notificationID, agentID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks all of the agent's notifications as read and returns how
// many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, agentID uuid.UUID) (int64, error) {
	result, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE agent_id = $1 AND read = FALSE`,
		agentID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return result.RowsAffected(), nil
}
