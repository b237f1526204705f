// Package store defines the persistence ports used by the pairing core and
// their Postgres and in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violated")
	// ErrStaleState is returned by conditional status updates that matched no
	// row because the record already left the expected status.
	ErrStaleState = errors.New("record is no longer in the expected state")
)

type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByInviteCode(ctx context.Context, code string) (*models.User, error)
	// LockUsers loads the given users for update, acquiring row locks in
	// ascending id order. A missing user yields ErrNotFound.
	LockUsers(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.User, error)
	UpdateCoupleID(ctx context.Context, userID uuid.UUID, coupleID *uuid.UUID) error
	Insert(ctx context.Context, user *models.User) error
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.User, error)
}

type RequestStore interface {
	Insert(ctx context.Context, req *models.CoupleRequest) error
	FindByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.CoupleRequest, error)
	FindPendingByFrom(ctx context.Context, userID uuid.UUID) (*models.CoupleRequest, error)
	FindPendingByTo(ctx context.Context, userID uuid.UUID) ([]*models.CoupleRequest, error)
	FindPendingBetween(ctx context.Context, fromUserID, toUserID uuid.UUID) (*models.CoupleRequest, error)
	// UpdateStatus only rewrites PENDING requests.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CoupleRequestStatus) error
}

type CoupleStore interface {
	Insert(ctx context.Context, couple *models.Couple) error
	FindActiveByParticipant(ctx context.Context, userID uuid.UUID) (*models.Couple, error)
	// UpdateStatus only rewrites ACTIVE couples.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CoupleStatus) error
	UpdateAnniversary(ctx context.Context, id uuid.UUID, date time.Time) error
}

// Stores groups the three ports bound to a single unit of work.
type Stores interface {
	Users() UserDirectory
	Requests() RequestStore
	Couples() CoupleStore
}

type UnitOfWork interface {
	// Within runs fn atomically: every write made through the given Stores
	// becomes visible together when fn returns nil, and none do otherwise.
	Within(ctx context.Context, fn func(Stores) error) error
	Read(ctx context.Context, fn func(Stores) error) error
}
