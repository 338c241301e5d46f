package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/mgmassand/life-curriculum-assistant/common"
	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/service"
)

const (
	msgRegistered        = "Registration successful. Please check your email to verify your account."
	msgLoggedIn          = "Login successful"
	msgRefreshed         = "Tokens refreshed"
	msgLoggedOut         = "Logged out successfully"
	msgEmailVerified     = "Email verified successfully"
	msgVerificationSent  = "If an account exists, a verification email has been sent."
	msgPasswordResetSent = "If an account exists, a password reset email has been sent."
	msgPasswordReset     = "Password reset successfully. Please log in with your new password."
)

// IAuthService is the part of service.AuthService the handlers call.
type IAuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*service.Session, error)
	Login(ctx context.Context, req model.LoginRequest) (*service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*service.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error
}

type AuthHandler struct {
	service IAuthService
	cookies SessionCookies
}

func NewAuthHandler(service IAuthService, cookies SessionCookies) *AuthHandler {
	return &AuthHandler{service: service, cookies: cookies}
}

// Register godoc
// @Summary      Register a family and its first user
// @Description  Creates the family, the admin user and a session. A verification email is sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterRequest true "Registration details"
// @Success      200  {object}  model.AuthResponse
// @Failure      400  {object}  common.AppError
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		return authError(err)
	}
	return h.openSession(w, session, msgRegistered)
}

// Login godoc
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Credentials"
// @Success      200  {object}  model.AuthResponse
// @Failure      401  {object}  common.AppError
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		return authError(err)
	}
	return h.openSession(w, session, msgLoggedIn)
}

// Refresh godoc
// @Summary      Rotate the session tokens
// @Description  Reads the refresh_token cookie, revokes it and sets a new token pair.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.MessageResponse
// @Failure      401  {object}  common.AppError
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	session, err := h.service.Refresh(r.Context(), cookieValue(r, RefreshCookieName))
	if err != nil {
		return authError(err)
	}
	if err := h.cookies.Set(w, session.AccessToken, session.RefreshToken); err != nil {
		return common.Internal(err)
	}
	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: msgRefreshed})
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the refresh token if present and clears the session cookies. Always succeeds.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.MessageResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	if err := h.service.Logout(r.Context(), cookieValue(r, RefreshCookieName)); err != nil {
		return common.Internal(err)
	}
	h.cookies.Clear(w)
	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: msgLoggedOut})
	return nil
}

// VerifyEmail godoc
// @Summary      Verify an email address
// @Tags         auth
// @Produce      json
// @Param        token query string true "Verification token"
// @Success      200  {object}  model.MessageResponse
// @Failure      400  {object}  common.AppError
// @Router       /api/auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) *common.AppError {
	if err := h.service.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		return authError(err)
	}
	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: msgEmailVerified})
	return nil
}

// ResendVerification godoc
// @Summary      Resend the verification email
// @Description  The response is the same whether or not the address has an account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.EmailRequest true "Email"
// @Success      200  {object}  model.MessageResponse
// @Router       /api/auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.EmailRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}
	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		return common.Internal(err)
	}
	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: msgVerificationSent})
	return nil
}

// ForgotPassword godoc
// @Summary      Request a password reset email
// @Description  The response is the same whether or not the address has an account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.EmailRequest true "Email"
// @Success      200  {object}  model.MessageResponse
// @Router       /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.EmailRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}
	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		return common.Internal(err)
	}
	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: msgPasswordResetSent})
	return nil
}

// ResetPassword godoc
// @Summary      Reset the password with an emailed token
// @Description  Every existing session of the user is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.ResetPasswordRequest true "Token and new password"
// @Success      200  {object}  model.MessageResponse
// @Failure      400  {object}  common.AppError
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ResetPasswordRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}
	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		return authError(err)
	}
	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: msgPasswordReset})
	return nil
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.UserResponse
// @Failure      401  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := CurrentUser(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Not authenticated", nil)
	}
	common.WriteJSON(w, http.StatusOK, model.NewUserResponse(user))
	return nil
}

// Session godoc
// @Summary      Session state
// @Description  Reports whether the caller is logged in. Never fails for anonymous callers.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.SessionResponse
// @Router       /api/auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) *common.AppError {
	resp := model.SessionResponse{}
	if user, ok := CurrentUser(r.Context()); ok {
		u := model.NewUserResponse(user)
		resp.Authenticated = true
		resp.User = &u
	}
	common.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *AuthHandler) openSession(w http.ResponseWriter, session *service.Session, message string) *common.AppError {
	if err := h.cookies.Set(w, session.AccessToken, session.RefreshToken); err != nil {
		return common.Internal(err)
	}
	logger.Log.WithField("user_id", session.User.ID).Debug("Session cookies set")
	common.WriteJSON(w, http.StatusOK, model.AuthResponse{
		Message: message,
		User:    model.NewUserResponse(session.User),
	})
	return nil
}

// authError maps service errors to responses. Anything unrecognised is a 500
// whose cause is only logged.
func authError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return common.NewAppError(http.StatusBadRequest, "Email already registered", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, service.ErrAccountDisabled):
		return common.NewAppError(http.StatusUnauthorized, "Account disabled", nil)
	case errors.Is(err, service.ErrRefreshTokenMissing):
		return common.NewAppError(http.StatusUnauthorized, "Refresh token missing", nil)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return common.NewAppError(http.StatusUnauthorized, "Invalid refresh token", nil)
	case errors.Is(err, service.ErrRefreshTokenRevoked):
		return common.NewAppError(http.StatusUnauthorized, "Token revoked or invalid", nil)
	case errors.Is(err, service.ErrUserInactive):
		return common.NewAppError(http.StatusUnauthorized, "User not found or inactive", nil)
	case errors.Is(err, service.ErrInvalidVerificationToken):
		return common.NewAppError(http.StatusBadRequest, "Invalid or expired verification token", nil)
	case errors.Is(err, service.ErrInvalidResetToken):
		return common.NewAppError(http.StatusBadRequest, "Invalid or expired reset token", nil)
	default:
		return common.Internal(err)
	}
}
