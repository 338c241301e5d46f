package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/db"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/repository"
)

// IdentityService turns an access token into the user it was issued to.
// Every call reads the user afresh, so a deactivated account is rejected on
// its next request even while its access token is still valid.
type IdentityService struct {
	conn   db.DBTX
	users  repository.IUserRepository
	issuer *TokenIssuer
}

func NewIdentityService(conn db.DBTX, users repository.IUserRepository, issuer *TokenIssuer) *IdentityService {
	return &IdentityService{conn: conn, users: users, issuer: issuer}
}

// ResolveRequired fails with ErrUnauthenticated when the token is absent or
// its user is missing or inactive, and with ErrInvalidToken when the token
// does not decode to an access token with a subject.
func (s *IdentityService) ResolveRequired(ctx context.Context, accessToken string) (*model.User, error) {
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}

	claims := s.issuer.Decode(accessToken)
	if claims == nil || claims.Type != model.TokenTypeAccess || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, s.conn, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// ResolveOptional runs the same checks but returns a nil user instead of an
// authentication error. Only infrastructure failures are returned.
func (s *IdentityService) ResolveOptional(ctx context.Context, accessToken string) (*model.User, error) {
	user, err := s.ResolveRequired(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrInvalidToken) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// RequireActive guards code paths that already hold a user.
func RequireActive(user *model.User) (*model.User, error) {
	if user == nil || !user.IsActive {
		return nil, ErrForbidden
	}
	return user, nil
}
