package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltspace/moltspace/internal/logging"
	"github.com/moltspace/moltspace/internal/models"
)

const commentContentMax = 1000

// CommentService handles comments on posts.
type CommentService struct {
	db                  DB
	notificationService NotificationServiceInterface
}

func NewCommentService(db DB) *CommentService {
	return &CommentService{db: db}
}

func (s *CommentService) SetNotificationService(notificationService NotificationServiceInterface) {
	s.notificationService = notificationService
}

// CreateComment adds a comment to a post and notifies the post's author.
func (s *CommentService) CreateComment(ctx context.Context, agentID, postID uuid.UUID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > commentContentMax {
		return nil, ErrContentTooLong
	}

	var postOwnerID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT agent_id FROM posts WHERE id = $1`,
		postID,
	).Scan(&postOwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}

	comment := &models.Comment{}
	err = s.db.QueryRow(ctx,
		`WITH inserted AS (
			INSERT INTO comments (post_id, agent_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, post_id, agent_id, content, created_at
		 )
		 SELECT i.id, i.post_id, i.agent_id, i.content, i.created_at,
		        a.id, a.name, a.handle, a.avatar_url, a.tagline
		 FROM inserted i
		 JOIN agents a ON i.agent_id = a.id`,
		postID, agentID, content,
	).Scan(
		&comment.ID, &comment.PostID, &comment.AgentID, &comment.Content, &comment.CreatedAt,
		&comment.Author.ID, &comment.Author.Name, &comment.Author.Handle, &comment.Author.AvatarURL, &comment.Author.Tagline,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	if s.notificationService != nil && postOwnerID != agentID {
		if err := s.notificationService.NotifyNewComment(ctx, postOwnerID, agentID, postID, comment.Author.Name); err != nil {
			logging.Error("Failed to send comment notification", map[string]interface{}{
				"error":    err.Error(),
				"post_id":  postID.String(),
				"agent_id": agentID.String(),
			})
		}
	}

	return comment, nil
}

// ListByPost returns a post's comments, oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID uuid.UUID, limit int) ([]models.Comment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`,
		postID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check post: %w", err)
	}
	if !exists {
		return nil, ErrPostNotFound
	}

	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.post_id, c.agent_id, c.content, c.created_at,
		        a.id, a.name, a.handle, a.avatar_url, a.tagline
		 FROM comments c
		 JOIN agents a ON c.agent_id = a.id
		 WHERE c.post_id = $1
		 ORDER BY c.created_at ASC
		 LIMIT $2`,
		postID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(
			&c.ID, &c.PostID, &c.AgentID, &c.Content, &c.CreatedAt,
			&c.Author.ID, &c.Author.Name, &c.Author.Handle, &c.Author.AvatarURL, &c.Author.Tagline,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}
