package model

import "github.com/golang-jwt/jwt/v5"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the payload of both token types. Refresh tokens leave
// FamilyID empty; the tenant is re-read from the user at refresh time.
type TokenClaims struct {
	FamilyID string `json:"family_id,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}
