package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/models"
)

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d", status, rr.Code)
	}
	if ct := rr.Result().Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected content type application/json, got %q", ct)
	}

	var response ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Error != message {
		t.Fatalf("expected error %q, got %q", message, response.Error)
	}
}

// authedRequest builds a request carrying user in its context.
func authedRequest(method, target string, body io.Reader, user *models.User) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(SetUserInContext(req.Context(), user))
}

func quietLogger() *logging.Logger {
	return logging.New().SetOutput(io.Discard)
}

// withRequestID sets the {id} path value the router would have matched.
func withRequestID(req *http.Request, id string) *http.Request {
	req.SetPathValue("id", id)
	return req
}
