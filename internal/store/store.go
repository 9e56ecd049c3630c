package store

import (
	"context"
	"errors"

	"github.com/crawd/crawd-server/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through
// here. Operations on owned resources (api keys, streams) filter by both
// the row id and the owner's user id in a single statement; a miss for
// either reason is reported uniformly as ErrNotFound.
type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	EnsureUser(ctx context.Context, id, email, displayName string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id string, displayName, bio *string) error

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID string) ([]*models.APIKey, error)
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, userID string) error
	TouchAPIKey(ctx context.Context, id uuid.UUID) error

	CreateStream(ctx context.Context, stream *models.Stream) error
	ListStreams(ctx context.Context, userID string) ([]*models.Stream, error)
	GetStream(ctx context.Context, id uuid.UUID, userID string) (*models.Stream, error)
	GetStreamByUser(ctx context.Context, userID string) (*models.Stream, error)
	DeleteStream(ctx context.Context, id uuid.UUID, userID string) error
	SetStreamLive(ctx context.Context, id uuid.UUID, isLive bool) error
	UpdateStreamProvider(ctx context.Context, id uuid.UUID, providerStreamID, playbackID *string) error

	RecordUsageEvent(ctx context.Context, event *models.UsageEvent) error
}
