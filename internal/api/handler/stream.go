package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/crawd/crawd-server/internal/api/middleware"
	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/crawd/crawd-server/internal/cache"
	"github.com/crawd/crawd-server/internal/livestream"
	"github.com/crawd/crawd-server/internal/store"
	"github.com/crawd/crawd-server/pkg/models"
	"github.com/google/uuid"
)

// NewStreamGetHandler returns GET /api/v1/stream, the bearer-authenticated
// "my stream" lookup the CLI polls. Live status comes from the provider
// through a short-TTL cache; when the provider cannot answer, the last
// stored flag is served instead.
func NewStreamGetHandler(s store.Store, provider livestream.Client, c cache.Cache, statusTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing or invalid API key", nil)
			return
		}

		st, err := s.GetStreamByUser(r.Context(), userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		isLive := st.IsLive
		if st.ProviderStreamID != nil {
			isLive = liveStatus(r.Context(), provider, c, *st.ProviderStreamID, st.IsLive, statusTTL)
		}

		response.JSON(w, map[string]any{
			"stream": map[string]any{
				"id":         st.ID,
				"name":       st.Name,
				"isLive":     isLive,
				"rtmpUrl":    provider.RTMPURL(),
				"streamKey":  st.StreamKey,
				"playbackId": st.PlaybackID,
			},
		})
	}
}

// liveStatus resolves the provider's live flag through the cache.
func liveStatus(ctx context.Context, provider livestream.Client, c cache.Cache, providerStreamID string, fallback bool, ttl time.Duration) bool {
	key := cache.LiveStatusKey(providerStreamID)
	if val, found, err := c.Get(ctx, key); err == nil && found {
		return string(val) == "1"
	}

	live, err := provider.GetStatus(ctx, providerStreamID)
	if err != nil {
		slog.Warn("provider status lookup failed", "error", err, "provider_stream_id", providerStreamID)
		return fallback
	}

	cached := []byte("0")
	if live {
		cached = []byte("1")
	}
	if err := c.Set(ctx, key, cached, ttl); err != nil {
		slog.Warn("caching live status failed", "error", err)
	}
	return live
}

// NewStreamStartHandler returns POST /api/v1/stream/start.
func NewStreamStartHandler(s store.Store) http.HandlerFunc {
	return setLiveHandler(s, true, "Stream started", "Stream is already live", models.UsageEventStreamStart)
}

// NewStreamStopHandler returns POST /api/v1/stream/stop.
func NewStreamStopHandler(s store.Store) http.HandlerFunc {
	return setLiveHandler(s, false, "Stream stopped", "Stream is already offline", models.UsageEventStreamStop)
}

func setLiveHandler(s store.Store, target bool, changed, unchanged, eventType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing or invalid API key", nil)
			return
		}

		st, err := s.GetStreamByUser(r.Context(), userID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		if st.IsLive == target {
			response.JSON(w, map[string]any{
				"message": unchanged,
				"stream":  map[string]bool{"isLive": target},
			})
			return
		}

		if err := s.SetStreamLive(r.Context(), st.ID, target); err != nil {
			respondStoreError(w, err)
			return
		}

		go recordUsage(s, r, userID, eventType)

		response.JSON(w, map[string]any{
			"message": changed,
			"stream":  map[string]bool{"isLive": target},
		})
	}
}

// recordUsage writes the audit row off the request path; it is telemetry
// and may be dropped.
func recordUsage(s store.Store, r *http.Request, userID, eventType string) {
	event := &models.UsageEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: eventType,
		CreatedAt: time.Now().UTC(),
	}
	if keyID, ok := middleware.GetAPIKeyID(r); ok {
		event.APIKeyID = &keyID
	}
	if err := s.RecordUsageEvent(context.Background(), event); err != nil {
		slog.Warn("recording usage event failed", "error", err, "event_type", eventType)
	}
}
