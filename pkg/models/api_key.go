package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents an issued bearer credential for CLI and API access.
// The raw key is shown once at creation; only its SHA-256 hash and a short
// display prefix are stored. Revocation is a soft delete: IsActive is false
// exactly when RevokedAt is set, and the row is retained for audit.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	UserID     string     `db:"user_id"      json:"userId"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"keyPrefix"`
	LastUsedAt *time.Time `db:"last_used_at" json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at"   json:"createdAt"`
	RevokedAt  *time.Time `db:"revoked_at"   json:"-"`
	IsActive   bool       `db:"is_active"    json:"isActive"`
}
