package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports on the named backing services. A nil checker is
// skipped.
type HealthHandler struct {
	checks map[string]HealthChecker
}

func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	checks := map[string]HealthChecker{}
	if db != nil {
		checks["postgres"] = db
	}
	if redis != nil {
		checks["redis"] = redis
	}
	return &HealthHandler{checks: checks}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

func (h *HealthHandler) run(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name].Health(ctx); err != nil {
			healthy = false
			results[name] = "unhealthy: " + err.Error()
			continue
		}
		results[name] = "healthy"
	}
	return results, healthy
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.run(r.Context())
	response := HealthResponse{
		Status:    "healthy",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, healthy := h.run(r.Context()); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
