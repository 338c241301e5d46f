package service

import "errors"

var (
	ErrEmailAlreadyRegistered   = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrAccountDisabled          = errors.New("account disabled")
	ErrRefreshTokenMissing      = errors.New("refresh token missing")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrRefreshTokenRevoked      = errors.New("token revoked or invalid")
	ErrUserInactive             = errors.New("user not found or inactive")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrInvalidResetToken        = errors.New("invalid or expired reset token")

	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrForbidden       = errors.New("forbidden")
	ErrFamilyNotFound  = errors.New("family not found")
)
