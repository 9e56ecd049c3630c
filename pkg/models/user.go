package models

import "time"

// User is an account holder. The ID is the identity provider's stable
// subject identifier; rows are created lazily on first authenticated access.
type User struct {
	ID          string    `db:"id"           json:"id"`
	Email       string    `db:"email"        json:"email"`
	DisplayName *string   `db:"display_name" json:"displayName,omitempty"`
	Bio         *string   `db:"bio"          json:"bio,omitempty"`
	CreatedAt   time.Time `db:"created_at"   json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updatedAt"`
}
