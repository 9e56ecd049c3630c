package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/crawd/crawd-server/internal/api/middleware"
	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/crawd/crawd-server/internal/store"
)

// NewProfileGetHandler returns GET /api/v1/profile.
func NewProfileGetHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing session", nil)
			return
		}

		user, err := s.GetUser(r.Context(), userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		response.JSON(w, map[string]any{
			"displayName": user.DisplayName,
			"bio":         user.Bio,
		})
	}
}

// NewProfileUpdateHandler returns PUT /api/v1/profile. Blank fields clear
// the stored value rather than writing empty strings.
func NewProfileUpdateHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing session", nil)
			return
		}

		var req struct {
			DisplayName string `json:"displayName"`
			Bio         string `json:"bio"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body", nil)
			return
		}

		if err := s.UpdateUserProfile(r.Context(), userID, optional(req.DisplayName), optional(req.Bio)); err != nil {
			respondStoreError(w, err)
			return
		}
		response.JSON(w, map[string]bool{"success": true})
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
