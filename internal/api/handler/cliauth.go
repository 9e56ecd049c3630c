package handler

import (
	"net/http"
	"net/url"

	"github.com/crawd/crawd-server/internal/api/middleware"
	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/crawd/crawd-server/internal/store"
)

// NewCLIAuthHandler returns GET /auth/cli, the handshake the CLI drives: the
// browser arrives with a signed-in session and an optional callback URL, a
// fresh API key named "CLI" is issued, and the raw key is handed off via the
// callback redirect. Without a callback the key lands in the response body
// for manual copying; either way it is shown exactly once.
func NewCLIAuthHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing session", nil)
			return
		}

		var target *url.URL
		if callback := r.URL.Query().Get("callback"); callback != "" {
			parsed, ok := parseCallback(callback)
			if !ok {
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid callback URL", nil)
				return
			}
			target = parsed
		}

		raw, err := issueKey(r, s, userID, "CLI")
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key", nil)
			return
		}

		if target != nil {
			q := target.Query()
			q.Set("token", raw)
			target.RawQuery = q.Encode()
			http.Redirect(w, r, target.String(), http.StatusFound)
			return
		}

		response.Created(w, map[string]string{"key": raw})
	}
}

func parseCallback(callback string) (*url.URL, bool) {
	u, err := url.Parse(callback)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}
	return u, true
}
