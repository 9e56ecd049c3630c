package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/crawd/crawd-server/internal/api/middleware"
	"github.com/crawd/crawd-server/internal/livestream"
	"github.com/crawd/crawd-server/internal/store"
	"github.com/crawd/crawd-server/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// --- in-memory store ---

type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	keys    []*models.APIKey
	streams []*models.Stream
	events  []*models.UsageEvent

	createKeyErr    error
	createStreamErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*models.User{}}
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }

func (f *fakeStore) GetUser(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) EnsureUser(_ context.Context, id, email, _ string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	u := &models.User{ID: id, Email: email}
	f.users[id] = u
	return u, nil
}

func (f *fakeStore) UpdateUserProfile(_ context.Context, id string, displayName, bio *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.DisplayName = displayName
	u.Bio = bio
	return nil
}

func (f *fakeStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createKeyErr != nil {
		return f.createKeyErr
	}
	for _, k := range f.keys {
		if k.KeyHash == key.KeyHash {
			return store.ErrDuplicateKey
		}
	}
	cp := *key
	f.keys = append(f.keys, &cp)
	return nil
}

func (f *fakeStore) ListAPIKeys(_ context.Context, userID string) ([]*models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.APIKey
	for _, k := range f.keys {
		if k.UserID == userID {
			cp := *k
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) GetAPIKeyByHash(_ context.Context, keyHash string) (*models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.KeyHash == keyHash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) RevokeAPIKey(_ context.Context, id uuid.UUID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.ID == id && k.UserID == userID {
			now := time.Now().UTC()
			k.IsActive = false
			k.RevokedAt = &now
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) TouchAPIKey(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.ID == id {
			now := time.Now().UTC()
			k.LastUsedAt = &now
		}
	}
	return nil
}

func (f *fakeStore) CreateStream(_ context.Context, st *models.Stream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createStreamErr != nil {
		return f.createStreamErr
	}
	cp := *st
	f.streams = append(f.streams, &cp)
	return nil
}

func (f *fakeStore) ListStreams(_ context.Context, userID string) ([]*models.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Stream
	for _, st := range f.streams {
		if st.UserID == userID {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) GetStream(_ context.Context, id uuid.UUID, userID string) (*models.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.streams {
		if st.ID == id && st.UserID == userID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetStreamByUser(_ context.Context, userID string) (*models.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.streams {
		if st.UserID == userID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) DeleteStream(_ context.Context, id uuid.UUID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, st := range f.streams {
		if st.ID == id && st.UserID == userID {
			f.streams = append(f.streams[:i], f.streams[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) SetStreamLive(_ context.Context, id uuid.UUID, isLive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.streams {
		if st.ID == id {
			st.IsLive = isLive
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) UpdateStreamProvider(_ context.Context, id uuid.UUID, providerStreamID, playbackID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.streams {
		if st.ID == id {
			st.ProviderStreamID = providerStreamID
			st.PlaybackID = playbackID
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) RecordUsageEvent(_ context.Context, event *models.UsageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *event
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeStore) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

var _ store.Store = (*fakeStore)(nil)

// --- fake provider ---

type fakeProvider struct {
	created   *livestream.LiveStream
	createErr error
	live      bool
	statusErr error
	deleted   []string
}

func (p *fakeProvider) CreateLiveStream(_ context.Context) (*livestream.LiveStream, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.created != nil {
		return p.created, nil
	}
	return &livestream.LiveStream{ID: "prov-1", StreamKey: "prov-key", PlaybackID: "play-1", Status: "idle"}, nil
}

func (p *fakeProvider) GetStatus(_ context.Context, _ string) (bool, error) {
	return p.live, p.statusErr
}

func (p *fakeProvider) DeleteLiveStream(_ context.Context, id string) error {
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *fakeProvider) RTMPURL() string { return "rtmp://ingest.example.com:5222/app" }

var _ livestream.Client = (*fakeProvider)(nil)

// --- fake cache ---

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Ping(_ context.Context) error { return nil }

// --- request helpers ---

func authedRequest(method, path string, body any, userID string) *http.Request {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, rd)
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(middleware.SetUserID(r.Context(), userID))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

func errCode(rec *httptest.ResponseRecorder) string {
	body := decodeBody(rec)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}
