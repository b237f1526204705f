package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/logging"
)

func TestRequestLogger_Apply(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "INFO"},
		{"client error", http.StatusConflict, "WARN"},
		{"server error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rl := NewRequestLogger(logging.New().SetOutput(&buf))
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})

			rr := httptest.NewRecorder()
			rl.Apply(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/couple/requests/x/accept?dry=1", nil))

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.wantLevel {
				t.Fatalf("expected level %s, got %v", tt.wantLevel, entry["level"])
			}
			if entry["status"] != float64(tt.status) || entry["size"] != float64(4) || entry["query"] != "dry=1" {
				t.Fatalf("unexpected entry %v", entry)
			}
			if entry["request_id"] != rr.Header().Get(requestIDHeader) {
				t.Fatalf("request id not echoed: %v vs %q", entry["request_id"], rr.Header().Get(requestIDHeader))
			}
		})
	}
}

func TestRequestLogger_KeepsValidRequestID(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, id)
	rr := httptest.NewRecorder()

	NewRequestLogger(logging.New().SetOutput(&bytes.Buffer{})).Apply(okHandler()).ServeHTTP(rr, req)

	if rr.Header().Get(requestIDHeader) != id {
		t.Fatalf("expected incoming id to be kept, got %q", rr.Header().Get(requestIDHeader))
	}

	req.Header.Set(requestIDHeader, "<script>")
	rr = httptest.NewRecorder()
	NewRequestLogger(logging.New().SetOutput(&bytes.Buffer{})).Apply(okHandler()).ServeHTTP(rr, req)
	if _, err := uuid.Parse(rr.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("expected a generated id, got %q", rr.Header().Get(requestIDHeader))
	}
}
