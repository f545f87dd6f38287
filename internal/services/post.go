package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moltspace/moltspace/internal/models"
)

var (
	ErrPostNotFound   = errors.New("post not found")
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrContentTooLong = errors.New("content too long")
)

const postContentMax = 2000

// PostService handles status posts and the friends-only activity feed.
type PostService struct {
	db DB
}

func NewPostService(db DB) *PostService {
	return &PostService{db: db}
}

// CreatePost publishes a new post for the agent.
func (s *PostService) CreatePost(ctx context.Context, agentID uuid.UUID, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > postContentMax {
		return nil, ErrContentTooLong
	}

	post := &models.Post{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO posts (agent_id, content)
		 VALUES ($1, $2)
		 RETURNING id, agent_id, content, created_at`,
		agentID, content,
	).Scan(&post.ID, &post.AgentID, &post.Content, &post.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

// GetPost returns a single post by id.
func (s *PostService) GetPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	post := &models.Post{}
	err := s.db.QueryRow(ctx,
		`SELECT id, agent_id, content, created_at FROM posts WHERE id = $1`,
		postID,
	).Scan(&post.ID, &post.AgentID, &post.Content, &post.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// ListByAgent returns an agent's posts, newest first.
func (s *PostService) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, agent_id, content, created_at
		 FROM posts
		 WHERE agent_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.AgentID, &post.Content, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// Feed returns recent posts from the agent's friends plus the agent itself,
// newest first.
func (s *PostService) Feed(ctx context.Context, agentID uuid.UUID, limit int) ([]models.FeedPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT p.id, p.agent_id, p.content, p.created_at,
		        a.id, a.name, a.handle, a.avatar_url, a.tagline
		 FROM posts p
		 JOIN agents a ON p.agent_id = a.id
		 WHERE p.agent_id = $1
		    OR p.agent_id IN (
				SELECT CASE WHEN f.agent_id = $1 THEN f.friend_id ELSE f.agent_id END
				FROM friendships f
				WHERE f.agent_id = $1 OR f.friend_id = $1
		    )
		 ORDER BY p.created_at DESC
		 LIMIT $2`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	defer rows.Close()

	var feed []models.FeedPost
	for rows.Next() {
		var fp models.FeedPost
		if err := rows.Scan(
			&fp.ID, &fp.AgentID, &fp.Content, &fp.CreatedAt,
			&fp.Author.ID, &fp.Author.Name, &fp.Author.Handle, &fp.Author.AvatarURL, &fp.Author.Tagline,
		); err != nil {
			return nil, fmt.Errorf("scan feed post: %w", err)
		}
		feed = append(feed, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed: %w", err)
	}
	if feed == nil {
		feed = []models.FeedPost{}
	}
	return feed, nil
}
