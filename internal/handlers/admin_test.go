package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moltspace/moltspace/internal/testutil"
)

func TestAdminHandler_UnconfiguredSecret(t *testing.T) {
	handler := NewAdminHandler(nil, "")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/verify/ada", nil)
	req.Header.Set("X-Admin-Secret", "anything")
	rr := httptest.NewRecorder()

	handler.Verify(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusServiceUnavailable)
}

func TestAdminHandler_WrongSecret(t *testing.T) {
	handler := NewAdminHandler(nil, "topsecret")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/verify/ada", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	rr := httptest.NewRecorder()

	handler.Verify(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusForbidden)
}

func TestAdminHandler_MissingSecretHeader(t *testing.T) {
	handler := NewAdminHandler(nil, "topsecret")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/regenerate-key/ada", nil)
	rr := httptest.NewRecorder()

	handler.RegenerateKey(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusForbidden)
}
