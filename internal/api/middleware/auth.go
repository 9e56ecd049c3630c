package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/crawd/crawd-server/internal/apikey"
	"github.com/crawd/crawd-server/internal/metrics"
	"github.com/crawd/crawd-server/internal/store"
)

// Auth authenticates bearer requests carrying an issued API key.
type Auth struct {
	store   store.Store
	metrics metrics.Recorder
}

// NewAuth creates the bearer-auth middleware.
func NewAuth(s store.Store, m metrics.Recorder) *Auth {
	return &Auth{store: s, metrics: m}
}

// Authenticate validates the Authorization header, resolves the key by its
// hash, and sets the owner and credential ids in the request context.
//
// Malformed headers and tokens without the key namespace are rejected before
// any store access. An unknown hash and a revoked key produce the same
// response, so a caller cannot probe which keys exist.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" || !strings.HasPrefix(rawKey, apikey.Namespace) {
			a.reject(w)
			return
		}

		key, err := a.store.GetAPIKeyByHash(r.Context(), apikey.Hash(rawKey))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				a.reject(w)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API key", nil)
			return
		}
		if !key.IsActive {
			a.reject(w)
			return
		}

		ctx := SetUserID(r.Context(), key.UserID)
		ctx = SetAPIKeyID(ctx, key.ID)

		// Usage telemetry only; the auth decision never waits on it.
		go a.store.TouchAPIKey(context.Background(), key.ID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) reject(w http.ResponseWriter) {
	if a.metrics != nil {
		a.metrics.RecordAuthFailure("bearer")
	}
	response.Error(w, http.StatusUnauthorized,
		"INVALID_TOKEN", "Missing or invalid API key", nil)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
