package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	UsageEventStreamStart = "stream_start"
	UsageEventStreamStop  = "stream_stop"
)

// UsageEvent is an audit record of a bearer-authenticated action. APIKeyID
// goes nil when the key is later hard-deleted with its owner.
type UsageEvent struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	UserID    string     `db:"user_id"    json:"user_id"`
	APIKeyID  *uuid.UUID `db:"api_key_id" json:"api_key_id,omitempty"`
	EventType string     `db:"event_type" json:"event_type"`
	Metadata  *string    `db:"metadata"   json:"metadata,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
