package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/model"
)

// TokenIssuer mints and validates HMAC-signed access and refresh tokens.
// The secret is read once at construction and never changes.
type TokenIssuer struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret []byte, algorithm string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q: only HMAC is allowed", algorithm)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &TokenIssuer{
		secret:     secret,
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (i *TokenIssuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess mints {sub, family_id, type: access, iat, exp}.
func (i *TokenIssuer) IssueAccess(userID, familyID uuid.UUID) (string, error) {
	token, _, err := i.sign(userID, familyID.String(), model.TokenTypeAccess, i.accessTTL)
	return token, err
}

// IssueRefresh mints {sub, type: refresh, iat, exp} and returns the expiry so
// the caller can record it without decoding the token again.
func (i *TokenIssuer) IssueRefresh(userID uuid.UUID) (string, time.Time, error) {
	return i.sign(userID, "", model.TokenTypeRefresh, i.refreshTTL)
}

func (i *TokenIssuer) sign(userID uuid.UUID, familyID, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	claims := &model.TokenClaims{
		FamilyID: familyID,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, claims.ExpiresAt.Time.UTC(), nil
}

// Decode verifies signature and expiry. Any failure (malformed, wrong key or
// algorithm, expired, missing exp) yields nil. A token is expired once now >= exp.
func (i *TokenIssuer) Decode(tokenString string) *model.TokenClaims {
	claims := &model.TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil
	}
	if !i.now().Before(claims.ExpiresAt.Time) {
		return nil
	}
	return claims
}
