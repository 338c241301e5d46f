package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/mgmassand/life-curriculum-assistant/common"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/service"
)

type contextKey string

const UserKey contextKey = "user"

// IdentityResolver resolves the access cookie to a user.
type IdentityResolver interface {
	ResolveRequired(ctx context.Context, accessToken string) (*model.User, error)
	ResolveOptional(ctx context.Context, accessToken string) (*model.User, error)
}

type AuthMiddleware struct {
	identity IdentityResolver
}

func NewAuthMiddleware(identity IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{identity: identity}
}

// CurrentUser returns the user stored by RequireAuth or OptionalAuth.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok && user != nil
}

// RequireAuth rejects the request with 401 unless the access cookie resolves
// to an active user.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.identity.ResolveRequired(r.Context(), cookieValue(r, AccessCookieName))
		if err != nil {
			identityError(err).Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth stores the user when there is one and lets anonymous requests through.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.identity.ResolveOptional(r.Context(), cookieValue(r, AccessCookieName))
		if err != nil {
			common.Internal(err).Send(w)
			return
		}

		ctx := r.Context()
		if user != nil {
			ctx = context.WithValue(ctx, UserKey, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActive must run after RequireAuth.
func RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := CurrentUser(r.Context())
		if _, err := service.RequireActive(user); err != nil {
			common.NewAppError(http.StatusForbidden, "Inactive user", nil).Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return common.NewAppError(http.StatusUnauthorized, "Not authenticated", nil)
	case errors.Is(err, service.ErrInvalidToken):
		return common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", nil)
	default:
		return common.Internal(err)
	}
}
