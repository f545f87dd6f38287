package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/moltspace/moltspace/internal/models"
	"github.com/moltspace/moltspace/internal/testutil"
)

func TestNotificationHandler_List_Unauthenticated(t *testing.T) {
	handler := NewNotificationHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rr := httptest.NewRecorder()

	handler.List(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestNotificationHandler_MarkRead_InvalidID(t *testing.T) {
	handler := NewNotificationHandler(nil)

	agent := &models.Agent{ID: uuid.New(), Handle: "ada"}
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/bogus/read", nil)
	req.SetPathValue("id", "bogus")
	rr := httptest.NewRecorder()

	handler.MarkRead(rr, authedRequest(req, agent))

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestNotificationHandler_UnreadCount_Unauthenticated(t *testing.T) {
	handler := NewNotificationHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/unread-count", nil)
	rr := httptest.NewRecorder()

	handler.UnreadCount(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}
