package models

import (
	"time"

	"github.com/google/uuid"
)

// Stream is a livestream destination owned by a user. The stream key is the
// RTMP ingest credential. Provider fields are populated when the upstream
// streaming provider provisions the stream; they stay nil when provisioning
// failed or has not happened yet, and callers must treat them as optional.
type Stream struct {
	ID               uuid.UUID `db:"id"                 json:"id"`
	UserID           string    `db:"user_id"            json:"userId"`
	Name             string    `db:"name"               json:"name"`
	StreamKey        string    `db:"stream_key"         json:"streamKey"`
	ProviderStreamID *string   `db:"provider_stream_id" json:"providerStreamId,omitempty"`
	PlaybackID       *string   `db:"playback_id"        json:"playbackId,omitempty"`
	IsLive           bool      `db:"is_live"            json:"isLive"`
	ViewerCount      int       `db:"viewer_count"       json:"viewerCount"`
	CreatedAt        time.Time `db:"created_at"         json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at"         json:"updatedAt"`
}
