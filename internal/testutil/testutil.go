// Package testutil wires in-memory pairing environments and JSON request
// helpers for tests above the services layer.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/models"
	"github.com/HammerMeetNail/anniversary/internal/services"
	"github.com/HammerMeetNail/anniversary/internal/store"
)

// QuietLogger discards everything.
func QuietLogger() *logging.Logger {
	return logging.New().SetOutput(io.Discard)
}

// Env is a user directory and pairing service over one memory store.
type Env struct {
	Store   *store.Memory
	Users   *services.UserService
	Pairing *services.PairingService
}

func NewEnv() *Env {
	mem := store.NewMemory()
	pairing := services.NewPairingService(mem)
	pairing.SetLogger(QuietLogger())
	return &Env{Store: mem, Users: services.NewUserService(mem), Pairing: pairing}
}

// Register creates one user per username, failing the test on any error.
func (e *Env) Register(t *testing.T, usernames ...string) []*models.User {
	t.Helper()
	users := make([]*models.User, 0, len(usernames))
	for _, name := range usernames {
		user, err := e.Users.Create(context.Background(), models.CreateUserParams{Username: name})
		if err != nil {
			t.Fatalf("registering %s: %v", name, err)
		}
		users = append(users, user)
	}
	return users
}

// NewJSONRequest builds a request with data encoded as its JSON body. A nil
// data sends no body.
func NewJSONRequest(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("failed to marshal JSON: %v", err)
		}
		body = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, body)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// DecodeJSON parses a recorded response body into T.
func DecodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse JSON response %q: %v", rr.Body.String(), err)
	}
	return out
}
