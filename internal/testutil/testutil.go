package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// NewTestRequestWithJSON builds a request with a JSON-encoded body.
func NewTestRequestWithJSON(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewTestRequest builds a plain request.
func NewTestRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

// ParseJSONResponse decodes a JSON object body.
func ParseJSONResponse(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return parsed
}

// AssertStatusCode fails the test when the recorded status differs.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, rr.Code, rr.Body.String())
	}
}

// AssertJSONContains fails the test when the JSON body lacks the key/value.
func AssertJSONContains(t *testing.T, body []byte, key string, expected any) {
	t.Helper()
	parsed := ParseJSONResponse(t, body)
	got, ok := parsed[key]
	if !ok {
		t.Fatalf("expected key %q in response: %s", key, body)
	}
	if got != expected {
		t.Fatalf("expected %q=%v, got %v", key, expected, got)
	}
}

func RandomUUID() uuid.UUID {
	return uuid.New()
}

// RandomHandle returns a unique lowercase handle suitable for registration.
func RandomHandle() string {
	return fmt.Sprintf("agent-%08x", rand.Uint32())
}
