package router

import (
	"net/http"

	"github.com/mgmassand/life-curriculum-assistant/handler"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	// Registers the OpenAPI document served under /swagger/.
	_ "github.com/mgmassand/life-curriculum-assistant/docs"
)

func NewRouter(
	authHandler *handler.AuthHandler,
	familyHandler *handler.FamilyHandler,
	authMiddleware *handler.AuthMiddleware,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Public auth routes
	mux.Handle("POST /api/auth/register", handler.ErrorHandlingMiddleware(authHandler.Register))
	mux.Handle("POST /api/auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("POST /api/auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /api/auth/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))
	mux.Handle("POST /api/auth/verify-email", handler.ErrorHandlingMiddleware(authHandler.VerifyEmail))
	mux.Handle("POST /api/auth/resend-verification", handler.ErrorHandlingMiddleware(authHandler.ResendVerification))
	mux.Handle("POST /api/auth/forgot-password", handler.ErrorHandlingMiddleware(authHandler.ForgotPassword))
	mux.Handle("POST /api/auth/reset-password", handler.ErrorHandlingMiddleware(authHandler.ResetPassword))

	mux.Handle("GET /api/auth/session", authMiddleware.OptionalAuth(handler.ErrorHandlingMiddleware(authHandler.Session)))

	// Protected routes
	protected := func(h http.Handler) http.Handler {
		return authMiddleware.RequireAuth(handler.RequireActive(h))
	}
	mux.Handle("GET /api/auth/me", protected(handler.ErrorHandlingMiddleware(authHandler.Me)))
	mux.Handle("GET /api/families/{familyId}", protected(handler.ErrorHandlingMiddleware(familyHandler.GetFamily)))

	return handler.RequestLogger(mux)
}
