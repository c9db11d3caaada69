package models

import "time"

// RefreshToken is a persisted long-lived credential. Tokens are rotated on
// every refresh and revoked on logout or password change.
type RefreshToken struct {
	ID             string     `db:"id" json:"id"`
	VolunteerEmail string     `db:"volunteer_email" json:"volunteer_email"`
	Token          string     `db:"token" json:"-"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	Revoked        bool       `db:"revoked" json:"revoked"`
	RevokedAt      *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress      string     `db:"ip_address" json:"-"`
	UserAgent      string     `db:"user_agent" json:"-"`
}
