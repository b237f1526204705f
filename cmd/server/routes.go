package main

import (
	"net/http"

	"github.com/HammerMeetNail/anniversary/internal/handlers"
	"github.com/HammerMeetNail/anniversary/internal/logging"
	"github.com/HammerMeetNail/anniversary/internal/middleware"
	"github.com/HammerMeetNail/anniversary/internal/services"
)

// app holds everything the router needs. cmd/server builds it from real
// backends; tests build it over the memory store.
type app struct {
	logger      *logging.Logger
	pairing     *services.PairingService
	users       services.UserServiceInterface
	auth        services.AuthServiceInterface
	health      *handlers.HealthHandler
	rateCounter middleware.Counter
	rateLimit   middleware.RateLimitConfig
	secure      bool
}

func newRouter(a app) http.Handler {
	coupleHandler := handlers.NewCoupleHandler(a.pairing, a.logger)
	userHandler := handlers.NewUserHandler(a.users, a.logger)

	authMiddleware := middleware.NewAuthMiddleware(a.auth)
	coupleGate := middleware.NewCoupleGate(a.pairing, a.logger)
	limiter := middleware.NewPairingRateLimiter(a.rateCounter, a.rateLimit.Limit, a.rateLimit.Window, a.logger)

	requireAuth := authMiddleware.RequireAuth
	requireCouple := func(h http.Handler) http.Handler { return requireAuth(coupleGate.RequireCouple(h)) }
	limited := func(h http.Handler) http.Handler { return requireAuth(limiter.Middleware(h)) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.health.Health)
	mux.HandleFunc("GET /ready", a.health.Ready)
	mux.HandleFunc("GET /live", a.health.Live)

	mux.Handle("GET /api/users/me", requireAuth(http.HandlerFunc(userHandler.Me)))
	mux.Handle("PUT /api/users/me", requireAuth(http.HandlerFunc(userHandler.UpdateMe)))

	mux.Handle("POST /api/couple/requests", limited(http.HandlerFunc(coupleHandler.SendRequest)))
	mux.Handle("GET /api/couple/requests/incoming", requireAuth(http.HandlerFunc(coupleHandler.ListIncoming)))
	mux.Handle("GET /api/couple/requests/outgoing", requireAuth(http.HandlerFunc(coupleHandler.GetOutgoing)))
	mux.Handle("DELETE /api/couple/requests/{id}", limited(http.HandlerFunc(coupleHandler.CancelRequest)))
	mux.Handle("PUT /api/couple/requests/{id}/accept", limited(http.HandlerFunc(coupleHandler.AcceptRequest)))
	mux.Handle("PUT /api/couple/requests/{id}/reject", limited(http.HandlerFunc(coupleHandler.RejectRequest)))

	mux.Handle("GET /api/couple", requireAuth(http.HandlerFunc(coupleHandler.Get)))
	mux.Handle("PUT /api/couple/anniversary", requireAuth(http.HandlerFunc(coupleHandler.UpdateAnniversary)))
	mux.Handle("DELETE /api/couple", limited(http.HandlerFunc(coupleHandler.Breakup)))

	mux.Handle("GET /api/partner", requireCouple(http.HandlerFunc(coupleHandler.Partner)))

	// Outermost first: logger, security headers, then session resolution.
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = middleware.NewSecurityHeaders(a.secure).Apply(handler)
	handler = middleware.NewRequestLogger(a.logger).Apply(handler)
	return handler
}
