package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/moltspace/moltspace/internal/models"
)

type stubFriendshipChecker struct {
	friends map[uuid.UUID]bool
	err     error
}

func (s *stubFriendshipChecker) AreFriends(ctx context.Context, agentA, agentB uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.friends[agentB], nil
}

type knownAgent struct {
	id   uuid.UUID
	name string
}

// topFriendsDB resolves handles from the given directory and fails loudly on
// anything else hitting the pool outside a transaction.
func topFriendsDB(directory map[string]knownAgent, begin func(ctx context.Context) (Tx, error)) *fakeDB {
	return &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "WHERE handle") {
				agent, ok := directory[args[0].(string)]
				if !ok {
					return noRowsRow()
				}
				return rowFromValues(agent.id, agent.name)
			}
			return fakeRow{scanFunc: func(dest ...any) error {
				return fmt.Errorf("unexpected query: %s", sql)
			}}
		},
		BeginFunc: begin,
	}
}

func mustNotBegin(t *testing.T) func(ctx context.Context) (Tx, error) {
	return func(ctx context.Context) (Tx, error) {
		t.Fatal("transaction must not start when validation fails")
		return nil, nil
	}
}

func TestSetTopFriends_TooMany(t *testing.T) {
	svc := NewTopFriendsService(topFriendsDB(nil, mustNotBegin(t)), &stubFriendshipChecker{})

	entries := make([]models.TopFriendEntry, 9)
	for i := range entries {
		entries[i] = models.TopFriendEntry{FriendHandle: fmt.Sprintf("friend%d", i), Position: i + 1}
	}

	_, err := svc.SetTopFriends(context.Background(), uuid.New(), entries)
	if !errors.Is(err, ErrTooManyTopFriends) {
		t.Fatalf("expected ErrTooManyTopFriends, got %v", err)
	}
}

func TestSetTopFriends_PositionOutOfRange(t *testing.T) {
	svc := NewTopFriendsService(topFriendsDB(nil, mustNotBegin(t)), &stubFriendshipChecker{})

	for _, position := range []int{0, 9, -1} {
		_, err := svc.SetTopFriends(context.Background(), uuid.New(), []models.TopFriendEntry{
			{FriendHandle: "pal", Position: position},
		})
		if !errors.Is(err, ErrInvalidPosition) {
			t.Fatalf("position %d: expected ErrInvalidPosition, got %v", position, err)
		}
	}
}

func TestSetTopFriends_DuplicatePosition(t *testing.T) {
	svc := NewTopFriendsService(topFriendsDB(nil, mustNotBegin(t)), &stubFriendshipChecker{})

	_, err := svc.SetTopFriends(context.Background(), uuid.New(), []models.TopFriendEntry{
		{FriendHandle: "pal", Position: 1},
		{FriendHandle: "buddy", Position: 1},
	})
	if !errors.Is(err, ErrDuplicatePosition) {
		t.Fatalf("expected ErrDuplicatePosition, got %v", err)
	}
}

func TestSetTopFriends_DuplicateFriend(t *testing.T) {
	palID := uuid.New()
	directory := map[string]knownAgent{"pal": {id: palID, name: "Pal"}}
	checker := &stubFriendshipChecker{friends: map[uuid.UUID]bool{palID: true}}
	svc := NewTopFriendsService(topFriendsDB(directory, mustNotBegin(t)), checker)

	_, err := svc.SetTopFriends(context.Background(), uuid.New(), []models.TopFriendEntry{
		{FriendHandle: "pal", Position: 1},
		{FriendHandle: "pal", Position: 2},
	})
	if !errors.Is(err, ErrDuplicateTopFriend) {
		t.Fatalf("expected ErrDuplicateTopFriend, got %v", err)
	}
}

func TestSetTopFriends_UnknownHandle(t *testing.T) {
	svc := NewTopFriendsService(topFriendsDB(map[string]knownAgent{}, mustNotBegin(t)), &stubFriendshipChecker{})

	_, err := svc.SetTopFriends(context.Background(), uuid.New(), []models.TopFriendEntry{
		{FriendHandle: "ghost", Position: 1},
	})
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestSetTopFriends_Self(t *testing.T) {
	agentID := uuid.New()
	directory := map[string]knownAgent{"me": {id: agentID, name: "Me"}}
	svc := NewTopFriendsService(topFriendsDB(directory, mustNotBegin(t)), &stubFriendshipChecker{})

	_, err := svc.SetTopFriends(context.Background(), agentID, []models.TopFriendEntry{
		{FriendHandle: "me", Position: 1},
	})
	if !errors.Is(err, ErrSelfTopFriend) {
		t.Fatalf("expected ErrSelfTopFriend, got %v", err)
	}
}

func TestSetTopFriends_NotFriend(t *testing.T) {
	strangerID := uuid.New()
	directory := map[string]knownAgent{"stranger": {id: strangerID, name: "Stranger"}}
	svc := NewTopFriendsService(topFriendsDB(directory, mustNotBegin(t)), &stubFriendshipChecker{friends: map[uuid.UUID]bool{}})

	_, err := svc.SetTopFriends(context.Background(), uuid.New(), []models.TopFriendEntry{
		{FriendHandle: "stranger", Position: 1},
	})
	if !errors.Is(err, ErrNotFriend) {
		t.Fatalf("expected ErrNotFriend, got %v", err)
	}
}

func TestSetTopFriends_ReplacesAndOrders(t *testing.T) {
	agentID := uuid.New()
	palID := uuid.New()
	buddyID := uuid.New()
	directory := map[string]knownAgent{
		"pal":   {id: palID, name: "Pal"},
		"buddy": {id: buddyID, name: "Buddy"},
	}
	checker := &stubFriendshipChecker{friends: map[uuid.UUID]bool{palID: true, buddyID: true}}

	var deleteSQL string
	var insertedPositions []int
	tx := &fakeTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "FOR UPDATE") {
				return rowFromValues(agentID)
			}
			if strings.Contains(sql, "INSERT INTO top_friends") {
				insertedPositions = append(insertedPositions, args[2].(int))
				return rowFromValues(uuid.New())
			}
			return fakeRow{scanFunc: func(dest ...any) error {
				return fmt.Errorf("unexpected query: %s", sql)
			}}
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			deleteSQL = sql
			return fakeCommandTag{rowsAffected: 3}, nil
		},
	}

	db := topFriendsDB(directory, func(ctx context.Context) (Tx, error) {
		return tx, nil
	})
	svc := NewTopFriendsService(db, checker)

	slots, err := svc.SetTopFriends(context.Background(), agentID, []models.TopFriendEntry{
		{FriendHandle: "buddy", Position: 5},
		{FriendHandle: "pal", Position: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(deleteSQL, "DELETE FROM top_friends WHERE agent_id = $1") {
		t.Fatalf("expected wholesale replace, got %s", deleteSQL)
	}
	if len(insertedPositions) != 2 || insertedPositions[0] != 2 || insertedPositions[1] != 5 {
		t.Fatalf("expected inserts ordered by position, got %v", insertedPositions)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].FriendHandle != "pal" || slots[0].Position != 2 {
		t.Fatalf("unexpected first slot: %+v", slots[0])
	}
	if slots[1].FriendHandle != "buddy" || slots[1].Position != 5 {
		t.Fatalf("unexpected second slot: %+v", slots[1])
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
}

func TestSetTopFriends_EmptyClearsList(t *testing.T) {
	agentID := uuid.New()

	cleared := false
	tx := &fakeTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "FOR UPDATE") {
				return rowFromValues(agentID)
			}
			return fakeRow{scanFunc: func(dest ...any) error {
				return fmt.Errorf("unexpected query: %s", sql)
			}}
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			cleared = true
			return fakeCommandTag{}, nil
		},
	}

	db := topFriendsDB(nil, func(ctx context.Context) (Tx, error) {
		return tx, nil
	})
	svc := NewTopFriendsService(db, &stubFriendshipChecker{})

	slots, err := svc.SetTopFriends(context.Background(), agentID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty list, got %v", slots)
	}
	if !cleared {
		t.Fatal("expected delete of existing slots")
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
}

func TestSetTopFriends_InsertFailureRollsBack(t *testing.T) {
	agentID := uuid.New()
	palID := uuid.New()
	directory := map[string]knownAgent{"pal": {id: palID, name: "Pal"}}
	checker := &stubFriendshipChecker{friends: map[uuid.UUID]bool{palID: true}}

	insertErr := errors.New("insert failed")
	tx := &fakeTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if strings.Contains(sql, "FOR UPDATE") {
				return rowFromValues(agentID)
			}
			return fakeRow{scanFunc: func(dest ...any) error {
				return insertErr
			}}
		},
	}

	db := topFriendsDB(directory, func(ctx context.Context) (Tx, error) {
		return tx, nil
	})
	svc := NewTopFriendsService(db, checker)

	_, err := svc.SetTopFriends(context.Background(), agentID, []models.TopFriendEntry{
		{FriendHandle: "pal", Position: 1},
	})
	if !errors.Is(err, insertErr) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if !tx.rolledBack {
		t.Fatal("expected rollback")
	}
	if tx.committed {
		t.Fatal("unexpected commit")
	}
}

func TestGetTopFriends(t *testing.T) {
	agentID := uuid.New()
	palID := uuid.New()
	buddyID := uuid.New()

	var gotSQL string
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			gotSQL = sql
			return &fakeRows{rows: [][]any{
				{uuid.New(), agentID, palID, 1, "Pal", "pal"},
				{uuid.New(), agentID, buddyID, 4, "Buddy", "buddy"},
			}}, nil
		},
	}
	svc := NewTopFriendsService(db, &stubFriendshipChecker{})

	slots, err := svc.GetTopFriends(context.Background(), agentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Position != 1 || slots[0].FriendHandle != "pal" {
		t.Fatalf("unexpected first slot: %+v", slots[0])
	}
	if slots[1].Position != 4 || slots[1].FriendName != "Buddy" {
		t.Fatalf("unexpected second slot: %+v", slots[1])
	}
	if !strings.Contains(gotSQL, "ORDER BY tf.position ASC") {
		t.Fatalf("expected position ordering, got %s", gotSQL)
	}
}

func TestGetTopFriends_Empty(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{}, nil
		},
	}
	svc := NewTopFriendsService(db, &stubFriendshipChecker{})

	slots, err := svc.GetTopFriends(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty slice, got %v", slots)
	}
}
