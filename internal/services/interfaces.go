package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/models"
)

// PairingServiceInterface defines the contract for couple request and couple operations.
type PairingServiceInterface interface {
	SendRequestByInviteCode(ctx context.Context, fromUserID uuid.UUID, inviteCode string) (*models.CoupleRequest, error)
	ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]*models.CoupleRequest, error)
	GetOutgoingPending(ctx context.Context, userID uuid.UUID) (*models.CoupleRequest, error)
	CancelRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error
	AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID, anniversaryDate *time.Time) (*models.Couple, error)
	RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error
	Breakup(ctx context.Context, actingUserID uuid.UUID) error
	GetCouple(ctx context.Context, userID uuid.UUID) (*models.CoupleView, error)
	UpdateAnniversary(ctx context.Context, userID uuid.UUID, date time.Time) (*models.Couple, error)
	DescribeRequest(ctx context.Context, req *models.CoupleRequest) (*models.CoupleRequestView, error)
	DescribeRequests(ctx context.Context, reqs []*models.CoupleRequest) ([]*models.CoupleRequestView, error)
}

// UserServiceInterface defines the contract for user directory operations.
type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByInviteCode(ctx context.Context, code string) (*models.User, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.User, error)
}

// AuthServiceInterface defines the contract for session resolution.
type AuthServiceInterface interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

var (
	_ PairingServiceInterface = (*PairingService)(nil)
	_ UserServiceInterface    = (*UserService)(nil)
	_ AuthServiceInterface    = (*AuthService)(nil)
	_ EventPublisher          = (*RedisEventPublisher)(nil)
)
