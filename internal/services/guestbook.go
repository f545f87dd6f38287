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

const guestbookMessageMax = 500

// GuestbookService handles per-profile guestbook entries.
type GuestbookService struct {
	db                  DB
	notificationService NotificationServiceInterface
}

func NewGuestbookService(db DB) *GuestbookService {
	return &GuestbookService{db: db}
}

func (s *GuestbookService) SetNotificationService(notificationService NotificationServiceInterface) {
	s.notificationService = notificationService
}

// SignGuestbook leaves a message on the profile of the agent with the given
// handle and notifies the profile's owner.
func (s *GuestbookService) SignGuestbook(ctx context.Context, authorID uuid.UUID, profileHandle, message string) (*models.GuestbookEntry, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyContent
	}
	if len(message) > guestbookMessageMax {
		return nil, ErrContentTooLong
	}

	var profileID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM agents WHERE handle = $1`,
		strings.ToLower(profileHandle),
	).Scan(&profileID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}

	entry := &models.GuestbookEntry{}
	err = s.db.QueryRow(ctx,
		`WITH inserted AS (
			INSERT INTO guestbook_entries (profile_agent_id, author_agent_id, message)
			VALUES ($1, $2, $3)
			RETURNING id, profile_agent_id, author_agent_id, message, created_at
		 )
		 SELECT i.id, i.profile_agent_id, i.author_agent_id, i.message, i.created_at,
		        a.id, a.name, a.handle, a.avatar_url, a.tagline
		 FROM inserted i
		 JOIN agents a ON i.author_agent_id = a.id`,
		profileID, authorID, message,
	).Scan(
		&entry.ID, &entry.ProfileAgentID, &entry.AuthorAgentID, &entry.Message, &entry.CreatedAt,
		&entry.Author.ID, &entry.Author.Name, &entry.Author.Handle, &entry.Author.AvatarURL, &entry.Author.Tagline,
	)
	if err != nil {
		return nil, fmt.Errorf("insert guestbook entry: %w", err)
	}

	if s.notificationService != nil && profileID != authorID {
		if err := s.notificationService.NotifyGuestbookEntry(ctx, profileID, authorID, entry.Author.Name); err != nil {
			logging.Error("Failed to send guestbook notification", map[string]interface{}{
				"error":      err.Error(),
				"profile_id": profileID.String(),
				"author_id":  authorID.String(),
			})
		}
	}

	return entry, nil
}

// ListEntries returns a profile's guestbook, newest first.
func (s *GuestbookService) ListEntries(ctx context.Context, profileHandle string, limit int) ([]models.GuestbookEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var profileID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id FROM agents WHERE handle = $1`,
		strings.ToLower(profileHandle),
	).Scan(&profileID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT g.id, g.profile_agent_id, g.author_agent_id, g.message, g.created_at,
		        a.id, a.name, a.handle, a.avatar_url, a.tagline
		 FROM guestbook_entries g
		 JOIN agents a ON g.author_agent_id = a.id
		 WHERE g.profile_agent_id = $1
		 ORDER BY g.created_at DESC
		 LIMIT $2`,
		profileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list guestbook entries: %w", err)
	}
	defer rows.Close()

	var entries []models.GuestbookEntry
	for rows.Next() {
		var e models.GuestbookEntry
		if err := rows.Scan(
			&e.ID, &e.ProfileAgentID, &e.AuthorAgentID, &e.Message, &e.CreatedAt,
			&e.Author.ID, &e.Author.Name, &e.Author.Handle, &e.Author.AvatarURL, &e.Author.Tagline,
		); err != nil {
			return nil, fmt.Errorf("scan guestbook entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guestbook entries: %w", err)
	}
	if entries == nil {
		entries = []models.GuestbookEntry{}
	}
	return entries, nil
}
