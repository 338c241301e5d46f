package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgmassand/life-curriculum-assistant/config"
	"github.com/mgmassand/life-curriculum-assistant/db"
	"github.com/mgmassand/life-curriculum-assistant/handler"
	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/repository"
	"github.com/mgmassand/life-curriculum-assistant/router"
	"github.com/mgmassand/life-curriculum-assistant/service"
)

// App is the wired handler graph. Tests build one with New against their own
// database and Redis.
type App struct {
	DB     *sql.DB
	Router http.Handler
	Auth   *service.AuthService
}

// New wires repositories, services, handlers and the router. counter may be
// nil, in which case email flows are not rate limited.
func New(cfg config.Config, conn *sql.DB, counter service.ICounterStore, mailer service.Mailer) (*App, error) {
	hasher, err := service.NewPasswordHasher(service.PasswordParams{
		Memory:      cfg.Password.MemoryKB,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	}, cfg.Password.MaxConcurrent)
	if err != nil {
		return nil, err
	}

	issuer, err := service.NewTokenIssuer([]byte(cfg.JWT.SecretKey), cfg.JWT.Algorithm, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		return nil, err
	}

	if mailer == nil {
		mailer = service.NewLogMailer(cfg.Server.FrontendURL)
	}

	var limiter service.Limiter
	if counter != nil {
		limiter = service.NewRequestLimiter(counter, cfg.Limits.Window, cfg.Limits.MaxRequests)
	}

	// Repositories
	userRepo := repository.NewUserRepository()
	familyRepo := repository.NewFamilyRepository()

	// Services
	authService := service.NewAuthService(service.AuthDeps{
		Tx:                   db.NewTransactor(conn),
		Users:                userRepo,
		Families:             familyRepo,
		RefreshTokens:        repository.NewTokenRepository(),
		Verifications:        repository.NewOneTimeTokenRepository(model.EmailVerificationToken),
		PasswordResets:       repository.NewOneTimeTokenRepository(model.PasswordResetToken),
		Hasher:               hasher,
		Issuer:               issuer,
		Limiter:              limiter,
		Mailer:               mailer,
		EmailVerificationTTL: cfg.EmailVerificationTTL(),
		PasswordResetTTL:     cfg.PasswordResetTTL(),
	})
	identityService := service.NewIdentityService(conn, userRepo, issuer)
	familyService := service.NewFamilyService(conn, familyRepo)

	// Handlers
	cookies := handler.NewSessionCookies(!cfg.Server.Debug, cfg.AccessTTL(), cfg.RefreshTTL())
	authHandler := handler.NewAuthHandler(authService, cookies)
	familyHandler := handler.NewFamilyHandler(familyService)
	authMiddleware := handler.NewAuthMiddleware(identityService)

	return &App{
		DB:     conn,
		Router: router.NewRouter(authHandler, familyHandler, authMiddleware),
		Auth:   authService,
	}, nil
}

func Run() {
	logger.Init()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	logger.Log.Info("Configuration loaded successfully")
	if cfg.Server.Debug {
		logger.Log.Warn("Debug mode: session cookies are sent without the Secure flag")
	}

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(cfg.Database.MigrationsPath, cfg.DatabaseURL()); err != nil {
			logger.Log.Fatalf("Error running migrations: %v", err)
		}
	}

	var counter service.ICounterStore
	rdb, err := db.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Log.WithError(err).Warn("Redis unavailable, email flows will not be rate limited")
	} else {
		defer rdb.Close()
		counter = rdb
	}

	application, err := New(cfg, database, counter, nil)
	if err != nil {
		logger.Log.Fatalf("Error wiring application: %v", err)
	}

	// --- Start the Server with Graceful Shutdown ---
	port := cfg.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: application.Router,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("Server forced to shutdown: %v", err)
		return
	}

	logger.Log.Info("Server exited properly")
}
