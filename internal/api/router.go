package api

import (
	"net/http"

	mw "github.com/crawd/crawd-server/internal/api/middleware"
	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Session *mw.Session
	Bearer  *mw.Auth
	Metrics func(http.Handler) http.Handler

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	// Dashboard surface (session auth)
	CreateKeyHandler     http.HandlerFunc
	ListKeysHandler      http.HandlerFunc
	RevokeKeyHandler     http.HandlerFunc
	ProfileGetHandler    http.HandlerFunc
	ProfileUpdateHandler http.HandlerFunc
	CreateStreamHandler  http.HandlerFunc
	ListStreamsHandler   http.HandlerFunc
	DeleteStreamHandler  http.HandlerFunc
	CLIAuthHandler       http.HandlerFunc

	// CLI surface (bearer auth)
	StreamGetHandler   http.HandlerFunc
	StreamStartHandler http.HandlerFunc
	StreamStopHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if deps.Metrics != nil {
		r.Use(deps.Metrics)
	}

	// Public
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Dashboard routes: authenticated by the identity provider's session token.
	r.Group(func(r chi.Router) {
		r.Use(deps.Session.Authenticate)

		r.Get("/api/v1/keys", orNotImplemented(deps.ListKeysHandler))
		r.Post("/api/v1/keys", orNotImplemented(deps.CreateKeyHandler))
		r.Delete("/api/v1/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))

		r.Get("/api/v1/profile", orNotImplemented(deps.ProfileGetHandler))
		r.Put("/api/v1/profile", orNotImplemented(deps.ProfileUpdateHandler))

		r.Get("/api/v1/streams", orNotImplemented(deps.ListStreamsHandler))
		r.Post("/api/v1/streams", orNotImplemented(deps.CreateStreamHandler))
		r.Delete("/api/v1/streams/{streamID}", orNotImplemented(deps.DeleteStreamHandler))

		r.Get("/auth/cli", orNotImplemented(deps.CLIAuthHandler))
	})

	// CLI routes: authenticated by issued API keys.
	r.Group(func(r chi.Router) {
		r.Use(deps.Bearer.Authenticate)

		r.Get("/api/v1/stream", orNotImplemented(deps.StreamGetHandler))
		r.Post("/api/v1/stream/start", orNotImplemented(deps.StreamStartHandler))
		r.Post("/api/v1/stream/stop", orNotImplemented(deps.StreamStopHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
