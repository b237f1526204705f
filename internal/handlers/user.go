package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/models"
	"github.com/HammerMeetNail/anniversary/internal/services"
)

type UserHandler struct {
	users  services.UserServiceInterface
	logger *logging.Logger
}

func NewUserHandler(users services.UserServiceInterface, logger *logging.Logger) *UserHandler {
	return &UserHandler{users: users, logger: loggerOrDefault(logger)}
}

type UserResponse struct {
	User *models.User `json:"user"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// Me returns the authenticated user, re-read so couple_id reflects any
// pairing change made since the session was resolved.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	fresh, err := h.users.GetByID(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "get current user", err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: fresh})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.users.UpdateDisplayName(r.Context(), user.ID, body.DisplayName)
	if err != nil {
		writeServiceError(w, h.logger, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: updated})
}
