package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// WriteErrorCode is used by middleware that needs a machine-readable code
// alongside the message.
func WriteErrorCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindInvalidOperation:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service failure to a response. Typed failures
// carry their own message; anything else is logged and hidden.
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, op string, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		writeJSON(w, statusForKind(svcErr.Kind), ErrorResponse{Error: svcErr.Error(), Code: svcErr.Kind.String()})
		return
	}
	logger.Error("Request failed", map[string]interface{}{"op": op, "error": err})
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func loggerOrDefault(logger *logging.Logger) *logging.Logger {
	if logger == nil {
		return logging.Default
	}
	return logger
}
