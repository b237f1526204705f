package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type CoupleRequestStatus string

const (
	CoupleRequestStatusPending   CoupleRequestStatus = "PENDING"
	CoupleRequestStatusAccepted  CoupleRequestStatus = "ACCEPTED"
	CoupleRequestStatusRejected  CoupleRequestStatus = "REJECTED"
	CoupleRequestStatusCancelled CoupleRequestStatus = "CANCELLED"
)

var (
	ErrSelfRequest       = errors.New("couple request cannot target its sender")
	ErrMissingUser       = errors.New("couple request requires both users")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func ParseCoupleRequestStatus(s string) (CoupleRequestStatus, bool) {
	status := CoupleRequestStatus(s)
	return status, status.Valid()
}

func (s CoupleRequestStatus) Valid() bool {
	switch s {
	case CoupleRequestStatusPending, CoupleRequestStatusAccepted, CoupleRequestStatusRejected, CoupleRequestStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is absorbing. Every status other than
// PENDING is terminal.
func (s CoupleRequestStatus) IsTerminal() bool {
	switch s {
	case CoupleRequestStatusPending:
		return false
	case CoupleRequestStatusAccepted, CoupleRequestStatusRejected, CoupleRequestStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a request in status s may move to next.
func (s CoupleRequestStatus) CanTransitionTo(next CoupleRequestStatus) bool {
	switch s {
	case CoupleRequestStatusPending:
		switch next {
		case CoupleRequestStatusAccepted, CoupleRequestStatusRejected, CoupleRequestStatusCancelled:
			return true
		case CoupleRequestStatusPending:
			return false
		default:
			return false
		}
	case CoupleRequestStatusAccepted, CoupleRequestStatusRejected, CoupleRequestStatusCancelled:
		return false
	default:
		return false
	}
}

type CoupleRequest struct {
	ID         uuid.UUID           `json:"id"`
	FromUserID uuid.UUID           `json:"from_user_id"`
	ToUserID   uuid.UUID           `json:"to_user_id"`
	Status     CoupleRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}

// NewCoupleRequest builds a PENDING request. The ID is assigned by the store.
func NewCoupleRequest(fromUserID, toUserID uuid.UUID, now time.Time) (*CoupleRequest, error) {
	if fromUserID == uuid.Nil || toUserID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if fromUserID == toUserID {
		return nil, ErrSelfRequest
	}
	return &CoupleRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     CoupleRequestStatusPending,
		CreatedAt:  now,
	}, nil
}

func (r *CoupleRequest) IsPending() bool {
	return r.Status == CoupleRequestStatusPending
}

// Transition moves the request to next, refusing any move out of a terminal status.
func (r *CoupleRequest) Transition(next CoupleRequestStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	return nil
}

type CoupleRequestView struct {
	CoupleRequest
	FromUser *UserSummary `json:"from_user,omitempty"`
	ToUser   *UserSummary `json:"to_user,omitempty"`
}
