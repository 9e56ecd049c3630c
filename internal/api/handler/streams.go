package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crawd/crawd-server/internal/api/middleware"
	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/crawd/crawd-server/internal/apikey"
	"github.com/crawd/crawd-server/internal/livestream"
	"github.com/crawd/crawd-server/internal/store"
	"github.com/crawd/crawd-server/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// NewCreateStreamHandler returns POST /api/v1/streams. The row is durable
// before the provider is involved: a provider outage leaves a stream with
// nil provider fields, not a failed request.
func NewCreateStreamHandler(s store.Store, provider livestream.Client) http.HandlerFunc {
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

		streamKey, err := apikey.GenerateStreamKey()
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create stream", nil)
			return
		}

		now := time.Now().UTC()
		st := &models.Stream{
			ID:        uuid.New(),
			UserID:    userID,
			Name:      req.Name,
			StreamKey: streamKey,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateStream(r.Context(), st); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create stream", nil)
			return
		}

		if ls, err := provider.CreateLiveStream(r.Context()); err != nil {
			slog.Warn("provider provisioning failed, stream created without provider ids",
				"error", err, "stream_id", st.ID)
		} else {
			st.ProviderStreamID = &ls.ID
			if ls.PlaybackID != "" {
				st.PlaybackID = &ls.PlaybackID
			}
			if err := s.UpdateStreamProvider(r.Context(), st.ID, st.ProviderStreamID, st.PlaybackID); err != nil {
				slog.Error("persisting provider ids failed", "error", err, "stream_id", st.ID)
			}
		}

		response.Created(w, map[string]any{"stream": st})
	}
}

// NewListStreamsHandler returns GET /api/v1/streams.
func NewListStreamsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing session", nil)
			return
		}

		streams, err := s.ListStreams(r.Context(), userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		if streams == nil {
			streams = []*models.Stream{}
		}
		response.JSON(w, map[string]any{"streams": streams})
	}
}

// NewDeleteStreamHandler returns DELETE /api/v1/streams/{streamID}. Streams
// are hard-deleted; the provider-side stream is torn down best effort.
func NewDeleteStreamHandler(s store.Store, provider livestream.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing session", nil)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "streamID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
			return
		}

		st, err := s.GetStream(r.Context(), id, userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		if err := s.DeleteStream(r.Context(), id, userID); err != nil {
			respondStoreError(w, err)
			return
		}

		if st.ProviderStreamID != nil {
			if err := provider.DeleteLiveStream(r.Context(), *st.ProviderStreamID); err != nil {
				slog.Warn("provider teardown failed", "error", err, "stream_id", st.ID)
			}
		}

		response.JSON(w, map[string]bool{"success": true})
	}
}
