package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/anniversary/internal/database"
	"github.com/HammerMeetNail/anniversary/internal/models"
	"github.com/HammerMeetNail/anniversary/internal/store"
)

const (
	sessionDuration  = 30 * 24 * time.Hour
	sessionKeyPrefix = "session:"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionCache is the subset of *redis.Client used for session lookups.
type SessionCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// AuthService resolves session tokens issued by the external auth layer to
// users. Redis is consulted first; the sessions table is the fallback.
type AuthService struct {
	cache SessionCache
	db    database.Conn
	users store.UnitOfWork
	now   func() time.Time
}

func NewAuthService(cache SessionCache, db database.Conn, users store.UnitOfWork) *AuthService {
	return &AuthService{cache: cache, db: db, users: users, now: time.Now}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	tokenHash := hashToken(token)
	redisKey := sessionKeyPrefix + tokenHash

	if s.cache != nil {
		userIDStr, err := s.cache.Get(ctx, redisKey).Result()
		if err == nil {
			s.cache.Expire(ctx, redisKey, sessionDuration)
			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				return nil, fmt.Errorf("parsing user id: %w", err)
			}
			return s.getUser(ctx, userID)
		}
	}

	if s.db == nil {
		return nil, ErrSessionNotFound
	}

	var userID uuid.UUID
	var expiresAt time.Time
	err := s.db.QueryRow(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token_hash = $1`,
		tokenHash,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	remaining := expiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil, ErrSessionExpired
	}
	if s.cache != nil {
		s.cache.Set(ctx, redisKey, userID.String(), remaining)
	}

	return s.getUser(ctx, userID)
}

func (s *AuthService) getUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user *models.User
	err := s.users.Read(ctx, func(st store.Stores) error {
		var err error
		user, err = st.Users().FindByID(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}
