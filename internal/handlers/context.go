package handlers

import (
	"context"

	"github.com/HammerMeetNail/anniversary/internal/models"
)

type contextKey string

const (
	userContextKey   contextKey = "user"
	coupleContextKey contextKey = "couple"
)

func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// SetCoupleInContext stores the caller's active couple once a gate has
// resolved it.
func SetCoupleInContext(ctx context.Context, couple *models.CoupleView) context.Context {
	return context.WithValue(ctx, coupleContextKey, couple)
}

func GetCoupleFromContext(ctx context.Context) *models.CoupleView {
	couple, _ := ctx.Value(coupleContextKey).(*models.CoupleView)
	return couple
}
