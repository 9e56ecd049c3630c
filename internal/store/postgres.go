package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/crawd/crawd-server/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, display_name, bio, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// EnsureUser creates the user row on first authenticated access. An existing
// row is left untouched so profile edits survive later sign-ins.
func (s *PostgresStore) EnsureUser(ctx context.Context, id, email, displayName string) (*models.User, error) {
	var name *string
	if displayName != "" {
		name = &displayName
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, display_name) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`, id, email, name)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, id string, displayName, bio *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET display_name = $2, bio = $3, updated_at = NOW() WHERE id = $1`,
		id, displayName, bio)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- API Keys ---

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, created_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.IsActive)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, userID string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, last_used_at, created_at, revoked_at, is_active
		 FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.CreatedAt, &k.RevokedAt, &k.IsActive); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// GetAPIKeyByHash is the authenticator's lookup path. Revoked rows are
// returned as-is; the caller decides what an inactive key means.
func (s *PostgresStore) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var k models.APIKey
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, last_used_at, created_at, revoked_at, is_active
		 FROM api_keys WHERE key_hash = $1`, keyHash,
	).Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
		&k.LastUsedAt, &k.CreatedAt, &k.RevokedAt, &k.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key by hash: %w", err)
	}
	return &k, nil
}

// RevokeAPIKey soft-deletes a key owned by userID. Revoking an already
// revoked key matches the row again and succeeds; only a key that does not
// exist under this owner reports ErrNotFound.
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE, revoked_at = NOW()
		 WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TouchAPIKey(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

// --- Streams ---

func (s *PostgresStore) CreateStream(ctx context.Context, stream *models.Stream) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO streams (id, user_id, name, stream_key, provider_stream_id, playback_id, is_live, viewer_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		stream.ID, stream.UserID, stream.Name, stream.StreamKey, stream.ProviderStreamID,
		stream.PlaybackID, stream.IsLive, stream.ViewerCount, stream.CreatedAt, stream.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListStreams(ctx context.Context, userID string) ([]*models.Stream, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, stream_key, provider_stream_id, playback_id, is_live, viewer_count, created_at, updated_at
		 FROM streams WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var streams []*models.Stream
	for rows.Next() {
		var st models.Stream
		if err := rows.Scan(&st.ID, &st.UserID, &st.Name, &st.StreamKey, &st.ProviderStreamID,
			&st.PlaybackID, &st.IsLive, &st.ViewerCount, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		streams = append(streams, &st)
	}
	return streams, rows.Err()
}

func (s *PostgresStore) GetStream(ctx context.Context, id uuid.UUID, userID string) (*models.Stream, error) {
	var st models.Stream
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, stream_key, provider_stream_id, playback_id, is_live, viewer_count, created_at, updated_at
		 FROM streams WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&st.ID, &st.UserID, &st.Name, &st.StreamKey, &st.ProviderStreamID,
		&st.PlaybackID, &st.IsLive, &st.ViewerCount, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return &st, nil
}

// GetStreamByUser returns the caller's stream. Users hold one stream in
// practice; when several exist the newest wins.
func (s *PostgresStore) GetStreamByUser(ctx context.Context, userID string) (*models.Stream, error) {
	var st models.Stream
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, stream_key, provider_stream_id, playback_id, is_live, viewer_count, created_at, updated_at
		 FROM streams WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID,
	).Scan(&st.ID, &st.UserID, &st.Name, &st.StreamKey, &st.ProviderStreamID,
		&st.PlaybackID, &st.IsLive, &st.ViewerCount, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stream by user: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) DeleteStream(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM streams WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete stream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetStreamLive(ctx context.Context, id uuid.UUID, isLive bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE streams SET is_live = $2, updated_at = NOW() WHERE id = $1`, id, isLive)
	if err != nil {
		return fmt.Errorf("set stream live: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateStreamProvider(ctx context.Context, id uuid.UUID, providerStreamID, playbackID *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE streams SET provider_stream_id = $2, playback_id = $3, updated_at = NOW() WHERE id = $1`,
		id, providerStreamID, playbackID)
	if err != nil {
		return fmt.Errorf("update stream provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Usage Events ---

func (s *PostgresStore) RecordUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO usage_events (id, user_id, api_key_id, event_type, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.UserID, event.APIKeyID, event.EventType, event.Metadata, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("record usage event: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
