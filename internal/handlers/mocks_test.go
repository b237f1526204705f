package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/models"
)

type mockPairingService struct {
	SendRequestByInviteCodeFunc func(ctx context.Context, fromUserID uuid.UUID, inviteCode string) (*models.CoupleRequest, error)
	ListIncomingPendingFunc     func(ctx context.Context, userID uuid.UUID) ([]*models.CoupleRequest, error)
	GetOutgoingPendingFunc      func(ctx context.Context, userID uuid.UUID) (*models.CoupleRequest, error)
	CancelRequestFunc           func(ctx context.Context, requestID, actingUserID uuid.UUID) error
	AcceptRequestFunc           func(ctx context.Context, requestID, actingUserID uuid.UUID, anniversaryDate *time.Time) (*models.Couple, error)
	RejectRequestFunc           func(ctx context.Context, requestID, actingUserID uuid.UUID) error
	BreakupFunc                 func(ctx context.Context, actingUserID uuid.UUID) error
	GetCoupleFunc               func(ctx context.Context, userID uuid.UUID) (*models.CoupleView, error)
	UpdateAnniversaryFunc       func(ctx context.Context, userID uuid.UUID, date time.Time) (*models.Couple, error)
	DescribeRequestsFunc        func(ctx context.Context, reqs []*models.CoupleRequest) ([]*models.CoupleRequestView, error)
}

func (m *mockPairingService) SendRequestByInviteCode(ctx context.Context, fromUserID uuid.UUID, inviteCode string) (*models.CoupleRequest, error) {
	if m.SendRequestByInviteCodeFunc != nil {
		return m.SendRequestByInviteCodeFunc(ctx, fromUserID, inviteCode)
	}
	return nil, nil
}

func (m *mockPairingService) ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]*models.CoupleRequest, error) {
	if m.ListIncomingPendingFunc != nil {
		return m.ListIncomingPendingFunc(ctx, userID)
	}
	return []*models.CoupleRequest{}, nil
}

func (m *mockPairingService) GetOutgoingPending(ctx context.Context, userID uuid.UUID) (*models.CoupleRequest, error) {
	if m.GetOutgoingPendingFunc != nil {
		return m.GetOutgoingPendingFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockPairingService) CancelRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	if m.CancelRequestFunc != nil {
		return m.CancelRequestFunc(ctx, requestID, actingUserID)
	}
	return nil
}

func (m *mockPairingService) AcceptRequest(ctx context.Context, requestID, actingUserID uuid.UUID, anniversaryDate *time.Time) (*models.Couple, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, requestID, actingUserID, anniversaryDate)
	}
	return &models.Couple{}, nil
}

func (m *mockPairingService) RejectRequest(ctx context.Context, requestID, actingUserID uuid.UUID) error {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, requestID, actingUserID)
	}
	return nil
}

func (m *mockPairingService) Breakup(ctx context.Context, actingUserID uuid.UUID) error {
	if m.BreakupFunc != nil {
		return m.BreakupFunc(ctx, actingUserID)
	}
	return nil
}

func (m *mockPairingService) GetCouple(ctx context.Context, userID uuid.UUID) (*models.CoupleView, error) {
	if m.GetCoupleFunc != nil {
		return m.GetCoupleFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockPairingService) UpdateAnniversary(ctx context.Context, userID uuid.UUID, date time.Time) (*models.Couple, error) {
	if m.UpdateAnniversaryFunc != nil {
		return m.UpdateAnniversaryFunc(ctx, userID, date)
	}
	return &models.Couple{}, nil
}

func (m *mockPairingService) DescribeRequest(ctx context.Context, req *models.CoupleRequest) (*models.CoupleRequestView, error) {
	views, err := m.DescribeRequests(ctx, []*models.CoupleRequest{req})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (m *mockPairingService) DescribeRequests(ctx context.Context, reqs []*models.CoupleRequest) ([]*models.CoupleRequestView, error) {
	if m.DescribeRequestsFunc != nil {
		return m.DescribeRequestsFunc(ctx, reqs)
	}
	views := make([]*models.CoupleRequestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, &models.CoupleRequestView{CoupleRequest: *req})
	}
	return views, nil
}

type mockUserService struct {
	CreateFunc            func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByInviteCodeFunc   func(ctx context.Context, code string) (*models.User, error)
	UpdateDisplayNameFunc func(ctx context.Context, userID uuid.UUID, displayName string) (*models.User, error)
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) GetByInviteCode(ctx context.Context, code string) (*models.User, error) {
	if m.GetByInviteCodeFunc != nil {
		return m.GetByInviteCodeFunc(ctx, code)
	}
	return nil, nil
}

func (m *mockUserService) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.User, error) {
	if m.UpdateDisplayNameFunc != nil {
		return m.UpdateDisplayNameFunc(ctx, userID, displayName)
	}
	return nil, nil
}
