package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCreatePost_Validation(t *testing.T) {
	svc := NewPostService(&fakeDB{})

	if _, err := svc.CreatePost(context.Background(), uuid.New(), "   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := svc.CreatePost(context.Background(), uuid.New(), strings.Repeat("a", 2001)); !errors.Is(err, ErrContentTooLong) {
		t.Fatalf("expected ErrContentTooLong, got %v", err)
	}
}

func TestCreatePost_TrimsContent(t *testing.T) {
	agentID := uuid.New()
	postID := uuid.New()

	var inserted string
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			inserted = args[1].(string)
			return rowFromValues(postID, agentID, inserted, time.Now())
		},
	}
	svc := NewPostService(db)

	post, err := svc.CreatePost(context.Background(), agentID, "  hello world  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != "hello world" {
		t.Fatalf("expected trimmed content, got %q", inserted)
	}
	if post.ID != postID {
		t.Fatalf("unexpected post: %+v", post)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return noRowsRow()
		},
	}
	svc := NewPostService(db)

	if _, err := svc.GetPost(context.Background(), uuid.New()); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestListByAgent_NewestFirst(t *testing.T) {
	agentID := uuid.New()

	var gotSQL string
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			gotSQL = sql
			return &fakeRows{rows: [][]any{
				{uuid.New(), agentID, "newer", time.Now()},
				{uuid.New(), agentID, "older", time.Now().Add(-time.Hour)},
			}}, nil
		},
	}
	svc := NewPostService(db)

	posts, err := svc.ListByAgent(context.Background(), agentID, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if !strings.Contains(gotSQL, "ORDER BY created_at DESC") {
		t.Fatalf("expected newest-first ordering, got %s", gotSQL)
	}
}

func TestFeed_IncludesSelfAndFriends(t *testing.T) {
	agentID := uuid.New()
	friendID := uuid.New()

	var gotSQL string
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			gotSQL = sql
			return &fakeRows{rows: [][]any{
				{uuid.New(), friendID, "from friend", time.Now(), friendID, "Pal", "pal", "", ""},
				{uuid.New(), agentID, "from self", time.Now().Add(-time.Minute), agentID, "Me", "me", "", ""},
			}}, nil
		},
	}
	svc := NewPostService(db)

	feed, err := svc.Feed(context.Background(), agentID, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected 2 feed posts, got %d", len(feed))
	}
	if feed[0].Author.Handle != "pal" || feed[1].Author.Handle != "me" {
		t.Fatalf("unexpected authors: %+v", feed)
	}
	if !strings.Contains(gotSQL, "p.agent_id = $1") || !strings.Contains(gotSQL, "FROM friendships f") {
		t.Fatalf("feed must cover self and friends, got %s", gotSQL)
	}
}

func TestFeed_Empty(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{}, nil
		},
	}
	svc := NewPostService(db)

	feed, err := svc.Feed(context.Background(), uuid.New(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed == nil || len(feed) != 0 {
		t.Fatalf("expected empty slice, got %v", feed)
	}
}
