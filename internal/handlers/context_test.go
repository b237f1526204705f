package handlers

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/models"
)

func TestGetUserFromContext(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice"}

	tests := []struct {
		name string
		ctx  context.Context
		want *models.User
	}{
		{"with user", SetUserInContext(context.Background(), user), user},
		{"empty context", context.Background(), nil},
		{"wrong value type", context.WithValue(context.Background(), userContextKey, "not a user"), nil},
		{"plain string key", context.WithValue(context.Background(), "user", user), nil},
		{"nil user", SetUserInContext(context.Background(), nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetUserFromContext(tt.ctx); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSetUserInContext_Overwrite(t *testing.T) {
	first := &models.User{ID: uuid.New()}
	second := &models.User{ID: uuid.New()}

	ctx := SetUserInContext(SetUserInContext(context.Background(), first), second)

	if got := GetUserFromContext(ctx); got != second {
		t.Fatal("expected second user to overwrite first")
	}
}
