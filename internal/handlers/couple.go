package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/models"
	"github.com/HammerMeetNail/anniversary/internal/services"
)

const dateLayout = "2006-01-02"

type CoupleHandler struct {
	pairing services.PairingServiceInterface
	logger  *logging.Logger
}

func NewCoupleHandler(pairing services.PairingServiceInterface, logger *logging.Logger) *CoupleHandler {
	return &CoupleHandler{pairing: pairing, logger: loggerOrDefault(logger)}
}

type SendCoupleRequestRequest struct {
	InviteCode string `json:"invite_code"`
}

type AnniversaryRequest struct {
	AnniversaryDate *string `json:"anniversary_date"`
}

type CoupleRequestResponse struct {
	Request *models.CoupleRequestView `json:"request"`
}

type CoupleRequestListResponse struct {
	Requests []*models.CoupleRequestView `json:"requests"`
}

type PartnerResponse struct {
	Partner      *models.UserSummary `json:"partner"`
	DaysTogether int64               `json:"days_together"`
}

type CoupleResponse struct {
	Couple  *models.CoupleView `json:"couple"`
	Message string             `json:"message,omitempty"`
}

// parseAnniversary accepts a calendar date or an RFC 3339 timestamp.
// Calendar dates are midnight UTC.
func parseAnniversary(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseRequestID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func (h *CoupleHandler) describe(r *http.Request, req *models.CoupleRequest) *models.CoupleRequestView {
	view, err := h.pairing.DescribeRequest(r.Context(), req)
	if err != nil {
		h.logger.Warn("Describing couple request failed", map[string]interface{}{"request_id": req.ID.String(), "error": err})
		return &models.CoupleRequestView{CoupleRequest: *req}
	}
	return view
}

func (h *CoupleHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body SendCoupleRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.InviteCode) == "" {
		writeError(w, http.StatusBadRequest, "Invite code is required")
		return
	}

	req, err := h.pairing.SendRequestByInviteCode(r.Context(), user.ID, body.InviteCode)
	if err != nil {
		writeServiceError(w, h.logger, "send couple request", err)
		return
	}

	writeJSON(w, http.StatusCreated, CoupleRequestResponse{Request: h.describe(r, req)})
}

func (h *CoupleHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	reqs, err := h.pairing.ListIncomingPending(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "list incoming requests", err)
		return
	}
	views, err := h.pairing.DescribeRequests(r.Context(), reqs)
	if err != nil {
		writeServiceError(w, h.logger, "describe incoming requests", err)
		return
	}

	writeJSON(w, http.StatusOK, CoupleRequestListResponse{Requests: views})
}

func (h *CoupleHandler) GetOutgoing(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	req, err := h.pairing.GetOutgoingPending(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "get outgoing request", err)
		return
	}
	if req == nil {
		writeJSON(w, http.StatusOK, CoupleRequestResponse{})
		return
	}

	writeJSON(w, http.StatusOK, CoupleRequestResponse{Request: h.describe(r, req)})
}

func (h *CoupleHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parseRequestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	if err := h.pairing.CancelRequest(r.Context(), requestID, user.ID); err != nil {
		writeServiceError(w, h.logger, "cancel couple request", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Couple request cancelled"})
}

func (h *CoupleHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parseRequestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	// The body is optional; an empty one means "anniversary is today".
	var body AnniversaryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var anniversary *time.Time
	if body.AnniversaryDate != nil && *body.AnniversaryDate != "" {
		date, err := parseAnniversary(*body.AnniversaryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid anniversary date")
			return
		}
		anniversary = &date
	}

	if _, err := h.pairing.AcceptRequest(r.Context(), requestID, user.ID, anniversary); err != nil {
		writeServiceError(w, h.logger, "accept couple request", err)
		return
	}

	view, err := h.pairing.GetCouple(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "get couple", err)
		return
	}
	writeJSON(w, http.StatusOK, CoupleResponse{Couple: view, Message: "Couple request accepted"})
}

func (h *CoupleHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parseRequestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	if err := h.pairing.RejectRequest(r.Context(), requestID, user.ID); err != nil {
		writeServiceError(w, h.logger, "reject couple request", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Couple request rejected"})
}

func (h *CoupleHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	view, err := h.pairing.GetCouple(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "get couple", err)
		return
	}
	if view == nil {
		writeJSON(w, http.StatusOK, CoupleResponse{Message: "Not in a couple"})
		return
	}

	writeJSON(w, http.StatusOK, CoupleResponse{Couple: view})
}

func (h *CoupleHandler) UpdateAnniversary(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body AnniversaryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.AnniversaryDate == nil {
		writeError(w, http.StatusBadRequest, "Anniversary date is required")
		return
	}
	date, err := parseAnniversary(*body.AnniversaryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid anniversary date")
		return
	}

	if _, err := h.pairing.UpdateAnniversary(r.Context(), user.ID, date); err != nil {
		writeServiceError(w, h.logger, "update anniversary", err)
		return
	}

	view, err := h.pairing.GetCouple(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, "get couple", err)
		return
	}
	writeJSON(w, http.StatusOK, CoupleResponse{Couple: view})
}

func (h *CoupleHandler) Breakup(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.pairing.Breakup(r.Context(), user.ID); err != nil {
		writeServiceError(w, h.logger, "breakup", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Couple ended"})
}

// Partner answers with the other member of the caller's couple. It expects
// RequireCouple in front of it and falls back to a lookup otherwise.
func (h *CoupleHandler) Partner(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	view := GetCoupleFromContext(r.Context())
	if view == nil {
		var err error
		view, err = h.pairing.GetCouple(r.Context(), user.ID)
		if err != nil {
			writeServiceError(w, h.logger, "get couple", err)
			return
		}
	}
	if view == nil {
		writeServiceError(w, h.logger, "get partner", services.ErrNotInCouple)
		return
	}

	partner := view.User2
	if view.User2ID == user.ID {
		partner = view.User1
	}
	writeJSON(w, http.StatusOK, PartnerResponse{Partner: partner, DaysTogether: view.DaysTogether})
}
