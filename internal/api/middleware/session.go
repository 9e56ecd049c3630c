package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/crawd/crawd-server/internal/apikey"
	"github.com/crawd/crawd-server/internal/metrics"
	"github.com/crawd/crawd-server/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

// Session authenticates dashboard requests carrying a session token minted
// by the external identity provider. The token is an HMAC-signed JWT whose
// subject is the provider's stable user id; everything past verification
// treats that id as an opaque string.
type Session struct {
	store   store.Store
	secret  []byte
	metrics metrics.Recorder
}

// NewSession creates the session-auth middleware.
func NewSession(s store.Store, secret string, m metrics.Recorder) *Session {
	return &Session{store: s, secret: []byte(secret), metrics: m}
}

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticate verifies the session token, lazily provisions the user row on
// first access, and sets the owner id in the request context.
func (s *Session) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" || strings.HasPrefix(token, apikey.Namespace) {
			// API keys do not open dashboard sessions.
			s.reject(w)
			return
		}

		claims := &sessionClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !parsed.Valid || claims.Subject == "" {
			s.reject(w)
			return
		}

		user, err := s.store.EnsureUser(r.Context(), claims.Subject, claims.Email, claims.Name)
		if err != nil {
			slog.Error("ensure user failed", "error", err, "user_id", claims.Subject)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to resolve user", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserID(r.Context(), user.ID)))
	})
}

func (s *Session) reject(w http.ResponseWriter) {
	if s.metrics != nil {
		s.metrics.RecordAuthFailure("session")
	}
	response.Error(w, http.StatusUnauthorized,
		"INVALID_SESSION", "Missing or invalid session token", nil)
}
