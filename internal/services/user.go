package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/models"
	"github.com/HammerMeetNail/anniversary/internal/store"
)

const (
	inviteCodeAttempts = 5
	maxProfileField    = 100
)

// UserService registers users and edits profile fields. It never writes
// couple_id; only PairingService does.
type UserService struct {
	uow     store.UnitOfWork
	newCode func() string
}

func NewUserService(uow store.UnitOfWork) *UserService {
	return &UserService{uow: uow, newCode: models.GenerateInviteCode}
}

func validProfileField(v string) bool {
	return v != "" && len(v) <= maxProfileField
}

// Create registers a user with a fresh invite code, retrying when the code
// collides with an existing one.
func (s *UserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	username := strings.TrimSpace(params.Username)
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = username
	}
	if !validProfileField(username) || !validProfileField(displayName) {
		return nil, ErrInvalidProfile
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		user := &models.User{
			Username:    username,
			DisplayName: displayName,
			InviteCode:  s.newCode(),
		}
		err := s.uow.Within(ctx, func(st store.Stores) error {
			return st.Users().Insert(ctx, user)
		})
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrUniqueViolation) {
			return nil, fmt.Errorf("creating user: %w", err)
		}
		if strings.Contains(err.Error(), "username") {
			return nil, ErrUsernameTaken
		}
	}

	return nil, fmt.Errorf("creating user: no unique invite code after %d attempts", inviteCodeAttempts)
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.find(ctx, ErrUserNotFound, func(st store.Stores) (*models.User, error) {
		return st.Users().FindByID(ctx, id)
	})
}

func (s *UserService) GetByInviteCode(ctx context.Context, code string) (*models.User, error) {
	code = models.NormalizeInviteCode(code)
	if !models.ValidInviteCode(code) {
		return nil, ErrInviteCodeNotFound
	}
	return s.find(ctx, ErrInviteCodeNotFound, func(st store.Stores) (*models.User, error) {
		return st.Users().FindByInviteCode(ctx, code)
	})
}

func (s *UserService) find(ctx context.Context, notFound error, fn func(store.Stores) (*models.User, error)) (*models.User, error) {
	var user *models.User
	err := s.uow.Read(ctx, func(st store.Stores) error {
		var err error
		user, err = fn(st)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.User, error) {
	displayName = strings.TrimSpace(displayName)
	if !validProfileField(displayName) {
		return nil, ErrInvalidProfile
	}

	var user *models.User
	err := s.uow.Within(ctx, func(st store.Stores) error {
		var err error
		user, err = st.Users().UpdateDisplayName(ctx, userID, displayName)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating display name: %w", err)
	}
	return user, nil
}
