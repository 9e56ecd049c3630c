package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	apiKeyIDKey contextKey = "api_key_id"
)

// SetUserID stores the authenticated owner identity. Both the session and
// bearer middlewares set it; downstream code does not care which one did.
func SetUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(userIDKey).(string)
	return id, ok
}

// SetAPIKeyID stores the credential that authenticated a bearer request,
// for usage attribution. Session requests never set it.
func SetAPIKeyID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, apiKeyIDKey, id)
}

func GetAPIKeyID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(apiKeyIDKey).(uuid.UUID)
	return id, ok
}
