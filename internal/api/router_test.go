package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crawd/crawd-server/internal/api"
	mw "github.com/crawd/crawd-server/internal/api/middleware"
	"github.com/crawd/crawd-server/internal/store"
	"github.com/crawd/crawd-server/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub store that returns empty results (all auth fails) ---

type stubStore struct{}

func (s *stubStore) Ping(_ context.Context) error { return nil }
func (s *stubStore) GetUser(_ context.Context, _ string) (*models.User, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) EnsureUser(_ context.Context, id, email, _ string) (*models.User, error) {
	return &models.User{ID: id, Email: email}, nil
}
func (s *stubStore) UpdateUserProfile(_ context.Context, _ string, _, _ *string) error { return nil }
func (s *stubStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error            { return nil }
func (s *stubStore) ListAPIKeys(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *stubStore) GetAPIKeyByHash(_ context.Context, _ string) (*models.APIKey, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) RevokeAPIKey(_ context.Context, _ uuid.UUID, _ string) error { return nil }
func (s *stubStore) TouchAPIKey(_ context.Context, _ uuid.UUID) error            { return nil }
func (s *stubStore) CreateStream(_ context.Context, _ *models.Stream) error      { return nil }
func (s *stubStore) ListStreams(_ context.Context, _ string) ([]*models.Stream, error) {
	return nil, nil
}
func (s *stubStore) GetStream(_ context.Context, _ uuid.UUID, _ string) (*models.Stream, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) GetStreamByUser(_ context.Context, _ string) (*models.Stream, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) DeleteStream(_ context.Context, _ uuid.UUID, _ string) error { return nil }
func (s *stubStore) SetStreamLive(_ context.Context, _ uuid.UUID, _ bool) error  { return nil }
func (s *stubStore) UpdateStreamProvider(_ context.Context, _ uuid.UUID, _, _ *string) error {
	return nil
}
func (s *stubStore) RecordUsageEvent(_ context.Context, _ *models.UsageEvent) error { return nil }

var _ store.Store = (*stubStore)(nil)

// --- router tests ---

func newTestRouter() http.Handler {
	ss := &stubStore{}
	return api.NewRouter(api.Dependencies{
		Session: mw.NewSession(ss, "test-secret", nil),
		Bearer:  mw.NewAuth(ss, nil),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func routerErrCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_DashboardEndpoints_RequireSession(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/keys"},
		{"POST", "/api/v1/keys"},
		{"DELETE", "/api/v1/keys/" + uuid.NewString()},
		{"GET", "/api/v1/profile"},
		{"PUT", "/api/v1/profile"},
		{"GET", "/api/v1/streams"},
		{"POST", "/api/v1/streams"},
		{"DELETE", "/api/v1/streams/" + uuid.NewString()},
		{"GET", "/auth/cli"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "INVALID_SESSION", routerErrCode(t, w))
		})
	}
}

func TestRouter_CLIEndpoints_RequireBearerKey(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/stream"},
		{"POST", "/api/v1/stream/start"},
		{"POST", "/api/v1/stream/stop"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "INVALID_TOKEN", routerErrCode(t, w))
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
