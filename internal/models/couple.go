package models

import (
	"time"

	"github.com/google/uuid"
)

type CoupleStatus string

const (
	CoupleStatusActive   CoupleStatus = "ACTIVE"
	CoupleStatusInactive CoupleStatus = "INACTIVE"
)

func ParseCoupleStatus(s string) (CoupleStatus, bool) {
	status := CoupleStatus(s)
	return status, status.Valid()
}

func (s CoupleStatus) Valid() bool {
	switch s {
	case CoupleStatusActive, CoupleStatusInactive:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a couple in status s may move to next.
// INACTIVE is absorbing; a later pairing creates a new couple.
func (s CoupleStatus) CanTransitionTo(next CoupleStatus) bool {
	switch s {
	case CoupleStatusActive:
		switch next {
		case CoupleStatusInactive:
			return true
		case CoupleStatusActive:
			return false
		default:
			return false
		}
	case CoupleStatusInactive:
		return false
	default:
		return false
	}
}

type Couple struct {
	ID              uuid.UUID    `json:"id"`
	User1ID         uuid.UUID    `json:"user1_id"`
	User2ID         uuid.UUID    `json:"user2_id"`
	AnniversaryDate *time.Time   `json:"anniversary_date"`
	Status          CoupleStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewCouple builds an ACTIVE couple. A nil anniversary defaults to now.
func NewCouple(user1ID, user2ID uuid.UUID, anniversary *time.Time, now time.Time) (*Couple, error) {
	if user1ID == uuid.Nil || user2ID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if user1ID == user2ID {
		return nil, ErrSelfRequest
	}
	date := now
	if anniversary != nil {
		date = *anniversary
	}
	return &Couple{
		User1ID:         user1ID,
		User2ID:         user2ID,
		AnniversaryDate: &date,
		Status:          CoupleStatusActive,
		CreatedAt:       now,
	}, nil
}

func (c *Couple) IsActive() bool {
	return c.Status == CoupleStatusActive
}

func (c *Couple) HasParticipant(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Partner returns the other participant.
func (c *Couple) Partner(userID uuid.UUID) uuid.UUID {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

func (c *Couple) Transition(next CoupleStatus) error {
	if !c.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	c.Status = next
	return nil
}

// DaysTogether counts whole days since the anniversary. A missing or future
// anniversary counts as zero.
func (c *Couple) DaysTogether(now time.Time) int64 {
	if c.AnniversaryDate == nil || now.Before(*c.AnniversaryDate) {
		return 0
	}
	return int64(now.Sub(*c.AnniversaryDate) / (24 * time.Hour))
}

type CoupleView struct {
	Couple
	User1        *UserSummary `json:"user1,omitempty"`
	User2        *UserSummary `json:"user2,omitempty"`
	DaysTogether int64        `json:"days_together"`
}
