package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Health(ctx context.Context) error {
	return m.err
}

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		db         error
		redis      error
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "all healthy",
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
			wantChecks: map[string]string{"postgres": "healthy", "redis": "healthy"},
		},
		{
			name:       "postgres down",
			db:         errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
			wantChecks: map[string]string{"postgres": "unhealthy: connection refused", "redis": "healthy"},
		},
		{
			name:       "redis down",
			redis:      errors.New("timeout"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
			wantChecks: map[string]string{"postgres": "healthy", "redis": "unhealthy: timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(&mockHealthChecker{err: tt.db}, &mockHealthChecker{err: tt.redis})

			rr := httptest.NewRecorder()
			handler.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("unexpected content type %q", ct)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Status != tt.wantBody || resp.Timestamp == "" {
				t.Fatalf("unexpected response %+v", resp)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("check %s: expected %q, got %q", name, want, resp.Checks[name])
				}
			}
		})
	}
}

func TestHealthHandler_SkipsNilCheckers(t *testing.T) {
	handler := NewHealthHandler(&mockHealthChecker{}, nil)

	rr := httptest.NewRecorder()
	handler.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if _, ok := resp.Checks["redis"]; ok {
		t.Fatal("nil redis checker should be skipped")
	}
}

func TestHealthHandler_ReadyAndLive(t *testing.T) {
	ready := NewHealthHandler(&mockHealthChecker{}, &mockHealthChecker{})
	notReady := NewHealthHandler(&mockHealthChecker{}, &mockHealthChecker{err: errors.New("down")})

	rr := httptest.NewRecorder()
	ready.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ready" {
		t.Fatalf("expected ready, got %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	notReady.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rr.Code != http.StatusServiceUnavailable || rr.Body.String() != "not ready" {
		t.Fatalf("expected not ready, got %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	notReady.Live(rr, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "alive" {
		t.Fatalf("expected alive, got %d %q", rr.Code, rr.Body.String())
	}
}
