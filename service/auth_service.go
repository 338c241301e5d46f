package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/db"
	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/repository"
	"github.com/sirupsen/logrus"
)

const (
	limitScopeVerification  = "verification"
	limitScopePasswordReset = "password_reset"

	// timingPassword is hashed once and verified against when a login names
	// an unknown email, so both paths spend one argon2 computation.
	timingPassword = "timing-equalisation-password"
)

// Session is the outcome of a successful register, login or refresh.
type Session struct {
	User             *model.User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Tx                   db.Transactor
	Users                repository.IUserRepository
	Families             repository.IFamilyRepository
	RefreshTokens        repository.ITokenRepository
	Verifications        repository.IOneTimeTokenRepository
	PasswordResets       repository.IOneTimeTokenRepository
	Hasher               *PasswordHasher
	Issuer               *TokenIssuer
	Limiter              Limiter
	Mailer               Mailer
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
}

// AuthService implements registration, login, refresh token rotation, logout
// and the email verification and password reset flows.
type AuthService struct {
	AuthDeps
	now func() time.Time

	timingOnce sync.Once
	timingHash string
}

func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{
		AuthDeps: deps,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a family with the caller as its admin, opens a session and
// emails a verification link.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*Session, error) {
	email := normalizeEmail(req.Email)
	log := logger.Log.WithField("email_domain", emailDomain(email))

	if _, err := s.Users.GetByEmail(ctx, s.Tx.Conn(), email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hashed, err := s.Hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	verificationToken, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	var session *Session
	err = s.Tx.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		family := &model.Family{ID: uuid.New(), Name: strings.TrimSpace(req.FamilyName)}
		if err = s.Families.Create(ctx, tx, family); err != nil {
			return err
		}

		user := &model.User{
			ID:             uuid.New(),
			FamilyID:       family.ID,
			Email:          email,
			HashedPassword: hashed,
			FullName:       strings.TrimSpace(req.FullName),
			Role:           model.RoleAdmin,
		}
		if err = s.Users.Create(ctx, tx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return ErrEmailAlreadyRegistered
			}
			return err
		}

		session, err = s.openSession(ctx, tx, user)
		if err != nil {
			return err
		}
		return s.createOneTimeToken(ctx, tx, s.Verifications, user.ID, verificationToken, s.EmailVerificationTTL)
	})
	if err != nil {
		return nil, err
	}

	log.WithField("user_id", session.User.ID).Info("User registered")
	s.sendVerification(ctx, session.User, verificationToken)
	return session, nil
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*Session, error) {
	email := normalizeEmail(req.Email)

	user, err := s.Users.GetByEmail(ctx, s.Tx.Conn(), email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load user: %w", err)
		}
		if _, err := s.Hasher.Verify(ctx, req.Password, s.dummyHash()); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	ok, err := s.Hasher.Verify(ctx, req.Password, user.HashedPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Log.WithField("user_id", user.ID).Info("Login rejected: bad password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		logger.Log.WithField("user_id", user.ID).Info("Login rejected: account disabled")
		return nil, ErrAccountDisabled
	}

	now := s.now()
	var session *Session
	err = s.Tx.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		if session, err = s.openSession(ctx, tx, user); err != nil {
			return err
		}
		return s.Users.UpdateLastLogin(ctx, tx, user.ID, now)
	})
	if err != nil {
		return nil, err
	}

	user.LastLogin = &now
	logger.Log.WithField("user_id", user.ID).Info("User logged in")
	return session, nil
}

// Refresh rotates a refresh token. The presented token is revoked and its
// replacement recorded in the same transaction, so a refresh token serves at
// most one successful rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenMissing
	}

	claims := s.Issuer.Decode(refreshToken)
	if claims == nil || claims.Type != model.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	now := s.now()
	var session *Session
	err := s.Tx.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		record, err := s.RefreshTokens.FindActive(ctx, tx, HashToken(refreshToken), now)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRefreshTokenRevoked
			}
			return err
		}

		if err := s.RefreshTokens.Revoke(ctx, tx, record.ID, now); err != nil {
			return err
		}

		user, err := s.Users.GetByID(ctx, tx, record.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserInactive
			}
			return err
		}
		if !user.IsActive {
			return ErrUserInactive
		}

		session, err = s.openSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithField("user_id", session.User.ID).Info("Refresh token rotated")
	return session, nil
}

// Logout revokes the ledger record of refreshToken if it is still active.
// It succeeds when there is nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	now := s.now()
	return s.Tx.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		record, err := s.RefreshTokens.FindActive(ctx, tx, HashToken(refreshToken), now)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := s.RefreshTokens.Revoke(ctx, tx, record.ID, now); err != nil {
			return err
		}
		logger.Log.WithField("user_id", record.UserID).Info("User logged out")
		return nil
	})
}

// VerifyEmail consumes a verification token and marks its user verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerificationToken
	}

	now := s.now()
	return s.Tx.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		record, err := s.consumeOneTimeToken(ctx, tx, s.Verifications, token, now)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidVerificationToken
			}
			return err
		}

		if err := s.Users.MarkEmailVerified(ctx, tx, record.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidVerificationToken
			}
			return err
		}
		logger.Log.WithField("user_id", record.UserID).Info("Email verified")
		return nil
	})
}

// ResendVerification issues a fresh verification email when the address
// belongs to an unverified account. The outcome is never reported to the
// caller beyond infrastructure failures.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !s.allow(ctx, limitScopeVerification, email) {
		return nil
	}

	user, err := s.Users.GetByEmail(ctx, s.Tx.Conn(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	token, err := GenerateOpaqueToken()
	if err != nil {
		return err
	}
	err = s.Tx.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return s.createOneTimeToken(ctx, tx, s.Verifications, user.ID, token, s.EmailVerificationTTL)
	})
	if err != nil {
		return err
	}

	s.sendVerification(ctx, user, token)
	return nil
}

// ForgotPassword emails a password reset link when the address has an
// account. Like ResendVerification it reveals nothing about the account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !s.allow(ctx, limitScopePasswordReset, email) {
		return nil
	}

	user, err := s.Users.GetByEmail(ctx, s.Tx.Conn(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	token, err := GenerateOpaqueToken()
	if err != nil {
		return err
	}
	err = s.Tx.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return s.createOneTimeToken(ctx, tx, s.PasswordResets, user.ID, token, s.PasswordResetTTL)
	})
	if err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordResetEmail(ctx, user.Email, user.FullName, token); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("Failed to send password reset email")
	}
	return nil
}

// ResetPassword consumes a reset token, replaces the password hash and revokes
// every outstanding refresh token of the user.
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	hashed, err := s.Hasher.Hash(ctx, req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	return s.Tx.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		record, err := s.consumeOneTimeToken(ctx, tx, s.PasswordResets, req.Token, now)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}

		if err := s.Users.UpdatePassword(ctx, tx, record.UserID, hashed); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}

		revoked, err := s.RefreshTokens.RevokeAllForUser(ctx, tx, record.UserID, now)
		if err != nil {
			return err
		}
		logger.Log.WithFields(logrus.Fields{
			"user_id":          record.UserID,
			"revoked_sessions": revoked,
		}).Info("Password reset")
		return nil
	})
}

// openSession mints an access/refresh pair for user and records the refresh
// token in the ledger using tx.
func (s *AuthService) openSession(ctx context.Context, tx db.DBTX, user *model.User) (*Session, error) {
	access, err := s.Issuer.IssueAccess(user.ID, user.FamilyID)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.Issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	record := &model.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashToken(refresh),
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	if err := s.RefreshTokens.Create(ctx, tx, record); err != nil {
		return nil, err
	}

	return &Session{
		User:             user,
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) createOneTimeToken(ctx context.Context, tx db.DBTX, repo repository.IOneTimeTokenRepository, userID uuid.UUID, token string, ttl time.Duration) error {
	now := s.now()
	return repo.Create(ctx, tx, &model.OneTimeToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
}

// consumeOneTimeToken finds a valid token and marks it used. Missing, used and
// expired tokens all come back as repository.ErrNotFound.
func (s *AuthService) consumeOneTimeToken(ctx context.Context, tx db.DBTX, repo repository.IOneTimeTokenRepository, token string, now time.Time) (*model.OneTimeToken, error) {
	record, err := repo.FindValid(ctx, tx, HashToken(token), now)
	if err != nil {
		return nil, err
	}
	if err := repo.MarkUsed(ctx, tx, record.ID, now); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *model.User, token string) {
	if err := s.Mailer.SendVerificationEmail(ctx, user.Email, user.FullName, token); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("Failed to send verification email")
	}
}

// allow applies the limiter. Limiter outages fail open.
func (s *AuthService) allow(ctx context.Context, scope, email string) bool {
	if s.Limiter == nil {
		return true
	}
	ok, err := s.Limiter.Allow(ctx, scope, email)
	if err != nil {
		logger.Log.WithError(err).WithField("scope", scope).Warn("Request limiter unavailable, allowing request")
		return true
	}
	if !ok {
		logger.Log.WithField("scope", scope).Info("Request rate limited")
	}
	return ok
}

func (s *AuthService) dummyHash() string {
	s.timingOnce.Do(func() {
		h, err := s.Hasher.Hash(context.Background(), timingPassword)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to prepare timing hash")
			return
		}
		s.timingHash = h
	})
	return s.timingHash
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
