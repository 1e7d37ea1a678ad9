package handlers

import (
	"net/http"

	"github.com/tourmates/backend/internal/auth"
	"github.com/tourmates/backend/internal/middleware"
	"github.com/tourmates/backend/internal/ws"
)

// NewRouter wires every endpoint onto a mux and wraps it with the
// authentication and rate limiting middleware.
func NewRouter(
	authService *auth.Service,
	authHandler *AuthHandler,
	tripHandler *TripHandler,
	notificationHandler *NotificationHandler,
	hub *ws.Hub,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusOK, "ok")
	})

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/profile", authHandler.GetProfile)
	mux.HandleFunc("PUT /api/auth/profile", authHandler.UpdateProfile)

	mux.HandleFunc("POST /api/trips", tripHandler.Create)
	mux.HandleFunc("GET /api/trips", tripHandler.List)
	mux.HandleFunc("GET /api/trips/user/my-trips", tripHandler.MyTrips)
	mux.HandleFunc("PUT /api/trips/bulk/update-status", tripHandler.ReconcileStatuses)
	mux.HandleFunc("GET /api/trips/{id}", tripHandler.Get)
	mux.HandleFunc("PUT /api/trips/{id}", tripHandler.Update)
	mux.HandleFunc("DELETE /api/trips/{id}", tripHandler.Cancel)
	mux.HandleFunc("POST /api/trips/{id}/join", tripHandler.RequestJoin)
	mux.HandleFunc("POST /api/trips/{id}/join-requests/{requestId}/{action}", tripHandler.DecideJoinRequest)
	mux.HandleFunc("POST /api/trips/{id}/leave", tripHandler.Leave)
	mux.HandleFunc("PUT /api/trips/{id}/status", tripHandler.OverrideStatus)
	mux.HandleFunc("POST /api/trips/{id}/restart", tripHandler.Restart)
	mux.HandleFunc("POST /api/trips/{id}/reviews", tripHandler.SubmitReview)

	mux.HandleFunc("GET /api/notifications", notificationHandler.List)
	mux.HandleFunc("PUT /api/notifications/{id}/read", notificationHandler.MarkRead)

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, authService, w, r)
	})

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	return rateLimiter.RateLimit(300, 60)(authMiddleware.Authenticate(mux))
}
