package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/crawd/crawd-server/internal/api/middleware"
	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/crawd/crawd-server/internal/apikey"
	"github.com/crawd/crawd-server/internal/store"
	"github.com/crawd/crawd-server/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// keyInfo is the display contract for a credential: everything a dashboard
// needs, never the hash and never the raw key.
type keyInfo struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"keyPrefix"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	IsActive   bool       `json:"isActive"`
}

func toKeyInfo(k *models.APIKey) keyInfo {
	return keyInfo{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		IsActive:   k.IsActive,
	}
}

// NewCreateKeyHandler returns POST /api/v1/keys. The raw key appears in this
// one response and nowhere else: not in logs, not in storage, not in any
// later lookup.
func NewCreateKeyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing session", nil)
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body", nil)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Name is required", nil)
			return
		}

		raw, err := issueKey(r, s, userID, req.Name)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key", nil)
			return
		}

		response.Created(w, map[string]string{"key": raw})
	}
}

// issueKey generates a credential and persists its storable artifacts,
// returning the raw key for the caller's single use.
func issueKey(r *http.Request, s store.Store, userID, name string) (string, error) {
	raw, hash, prefix, err := apikey.Generate()
	if err != nil {
		return "", err
	}

	err = s.CreateAPIKey(r.Context(), &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		KeyHash:   hash,
		KeyPrefix: prefix,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// NewListKeysHandler returns GET /api/v1/keys.
func NewListKeysHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing session", nil)
			return
		}

		keys, err := s.ListAPIKeys(r.Context(), userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		infos := make([]keyInfo, 0, len(keys))
		for _, k := range keys {
			infos = append(infos, toKeyInfo(k))
		}
		response.JSON(w, map[string]any{"keys": infos})
	}
}

// NewRevokeKeyHandler returns DELETE /api/v1/keys/{keyID}. Revocation is a
// soft delete and idempotent; a key that does not exist under the caller
// reads as not found whether or not it exists for someone else.
func NewRevokeKeyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing session", nil)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			// A malformed id cannot name any row.
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
			return
		}

		if err := s.RevokeAPIKey(r.Context(), id, userID); err != nil {
			respondStoreError(w, err)
			return
		}
		response.JSON(w, map[string]bool{"success": true})
	}
}
