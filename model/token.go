// file: model/token.go

package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a ledger row for an issued refresh token. Only the SHA-256
// hash of the token is stored. A row with RevokedAt set is dead but kept.
type RefreshToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// OneTimeTokenKind selects the table a single-use token lives in.
type OneTimeTokenKind string

const (
	EmailVerificationToken OneTimeTokenKind = "email_verification"
	PasswordResetToken     OneTimeTokenKind = "password_reset"
)

// OneTimeToken is an email verification or password reset token.
// Once UsedAt is set the token can never be used again.
type OneTimeToken struct {
	ID        uuid.UUID        `json:"id"`
	Kind      OneTimeTokenKind `json:"kind"`
	UserID    uuid.UUID        `json:"user_id"`
	TokenHash string           `json:"-"`
	ExpiresAt time.Time        `json:"expires_at"`
	UsedAt    *time.Time       `json:"used_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
