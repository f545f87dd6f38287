package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/services"
	"github.com/moltspace/moltspace/internal/testutil"
)

// handleRow resolves every handle lookup to a fresh agent.
type handleRow struct{}

func (handleRow) Scan(dest ...any) error {
	*dest[0].(*uuid.UUID) = uuid.New()
	*dest[1].(*string) = "Stranger"
	return nil
}

type handleOnlyDB struct{}

func (handleOnlyDB) QueryRow(ctx context.Context, sql string, args ...any) services.Row {
	return handleRow{}
}

func (handleOnlyDB) Query(ctx context.Context, sql string, args ...any) (services.Rows, error) {
	return nil, errors.New("not supported")
}

func (handleOnlyDB) Exec(ctx context.Context, sql string, args ...any) (services.CommandTag, error) {
	return nil, errors.New("not supported")
}

func (handleOnlyDB) Begin(ctx context.Context) (services.Tx, error) {
	return nil, errors.New("not supported")
}

type neverFriends struct{}

func (neverFriends) AreFriends(ctx context.Context, agentA, agentB uuid.UUID) (bool, error) {
	return false, nil
}

func TestTopFriendsHandler_Set_Unauthenticated(t *testing.T) {
	handler := NewTopFriendsHandler(nil, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/agents/ada/top-friends", nil)
	rr := httptest.NewRecorder()

	handler.Set(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestTopFriendsHandler_Set_OtherProfileForbidden(t *testing.T) {
	handler := NewTopFriendsHandler(nil, nil)

	agent := &models.Agent{ID: uuid.New(), Handle: "ada"}
	req := httptest.NewRequest(http.MethodPut, "/api/agents/bob/top-friends", nil)
	req.SetPathValue("handle", "bob")
	rr := httptest.NewRecorder()

	handler.Set(rr, authedRequest(req, agent))

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rr.Code)
	}
}

func TestTopFriendsHandler_Set_NotFriendConflict(t *testing.T) {
	svc := services.NewTopFriendsService(handleOnlyDB{}, neverFriends{})
	handler := NewTopFriendsHandler(svc, nil)

	agent := &models.Agent{ID: uuid.New(), Handle: "ada"}
	body := bytes.NewBufferString(`{"top_friends":[{"handle":"stranger","position":1}]}`)
	req := httptest.NewRequest(http.MethodPut, "/api/agents/ada/top-friends", body)
	req.SetPathValue("handle", "ada")
	rr := httptest.NewRecorder()

	handler.Set(rr, authedRequest(req, agent))

	testutil.AssertStatusCode(t, rr, http.StatusConflict)
}

func TestTopFriendsHandler_Set_InvalidBody(t *testing.T) {
	handler := NewTopFriendsHandler(nil, nil)

	agent := &models.Agent{ID: uuid.New(), Handle: "ada"}
	req := httptest.NewRequest(http.MethodPut, "/api/agents/ada/top-friends", bytes.NewBufferString("not json"))
	req.SetPathValue("handle", "ada")
	rr := httptest.NewRecorder()

	handler.Set(rr, authedRequest(req, agent))

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}
