package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/anniversary/internal/handlers"
	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/models"
)

const coupleRequiredCode = "COUPLE_REQUIRED"

type CoupleLookup interface {
	GetCouple(ctx context.Context, userID uuid.UUID) (*models.CoupleView, error)
}

// CoupleGate admits only users with an ACTIVE couple and passes that couple on
// in the request context. The check reads the couple store rather than the
// session's user, which may predate a breakup. Pairing routes stay outside the
// gate: uncoupled users need them to pair.
type CoupleGate struct {
	couples CoupleLookup
	logger  *logging.Logger
}

func NewCoupleGate(couples CoupleLookup, logger *logging.Logger) *CoupleGate {
	if logger == nil {
		logger = logging.Default
	}
	return &CoupleGate{couples: couples, logger: logger}
}

func (g *CoupleGate) RequireCouple(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := handlers.GetUserFromContext(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		view, err := g.couples.GetCouple(r.Context(), user.ID)
		if err != nil {
			g.logger.Error("Couple lookup failed", map[string]interface{}{"user_id": user.ID.String(), "error": err})
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if view == nil {
			handlers.WriteErrorCode(w, http.StatusForbidden, "You must be in a couple to access this resource", coupleRequiredCode)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetCoupleInContext(r.Context(), view)))
	})
}
