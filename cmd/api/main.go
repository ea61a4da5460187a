package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/vestibule/internal/auth"
	"github.com/BradenHooton/vestibule/internal/background"
	"github.com/BradenHooton/vestibule/internal/config"
	"github.com/BradenHooton/vestibule/internal/database"
	"github.com/BradenHooton/vestibule/internal/handlers"
	"github.com/BradenHooton/vestibule/internal/mail"
	middlewareCustom "github.com/BradenHooton/vestibule/internal/middleware"
	"github.com/BradenHooton/vestibule/internal/models"
	"github.com/BradenHooton/vestibule/internal/repositories"
	"github.com/BradenHooton/vestibule/internal/routes"
	"github.com/BradenHooton/vestibule/internal/services"
	"github.com/BradenHooton/vestibule/internal/session"
	"github.com/BradenHooton/vestibule/internal/views"
	pkgauth "github.com/BradenHooton/vestibule/pkg/auth"
	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
	pkglogger "github.com/BradenHooton/vestibule/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = pkglogger.New(pkglogger.Config{Level: cfg.Server.LogLevel, File: cfg.Server.LogFile})
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env), slog.String("session_store", cfg.Session.Store))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(startupCtx, db.Pool); err != nil {
		startupCancel()
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	blacklistRepo := repositories.NewBlacklistRepository(db)

	// Session store
	var (
		store  session.Store
		purger background.SessionPurger
		checks = map[string]handlers.HealthChecker{"database": db}
	)
	switch cfg.Session.Store {
	case "redis":
		redisStore, err := session.NewRedisStore(startupCtx, cfg.Session.RedisURL)
		if err != nil {
			startupCancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		checks["sessions"] = redisStore
	default:
		sessionRepo := repositories.NewSessionRepository(db)
		store = sessionRepo
		purger = sessionRepo
	}

	// Mail
	mailer, err := mail.NewFromConfig(startupCtx, cfg.Mail, logger)
	if err != nil {
		startupCancel()
		logger.Error("failed to initialize mailer", slog.Any("error", err))
		os.Exit(1)
	}

	// Bootstrap first admin user if configured
	if err := ensureAdminUser(startupCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	startupCancel()

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)
	blacklistService := services.NewBlacklistService(blacklistRepo, auditLogger, logger).
		WithAlerts(mailer, cfg.Auth.AdminAlertEmail)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})
	authService := services.NewAuthService(userRepo, blacklistService, timingDelay, auditLogger, logger)

	sessions := session.NewManager(store, session.Config{
		Cookie: auth.CookieConfig{
			Name:     cfg.Session.CookieName,
			Secure:   cfg.Session.CookieSecure,
			SameSite: "lax",
		},
		IdleTimeout: cfg.Session.Timeout,
		Lifetime:    cfg.Session.Lifetime,
	}, logger)

	renderer, err := views.NewRenderer()
	if err != nil {
		logger.Error("failed to parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Initialize handlers
	h := routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService, sessions, renderer, ipConfig, logger),
		Home:   handlers.NewHomeHandler(renderer, logger),
		Health: handlers.NewHealthHandler(checks, logger),
	}
	guard := middlewareCustom.NewGuard(blacklistService, sessions, ipConfig, auditLogger, logger)
	loginLimit := middlewareCustom.RateLimitByIP(middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.LoginRateLimit,
		IPConfig:          ipConfig,
	})

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middlewareCustom.Recoverer(logger))
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, guard, sessions, loginLimit)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(blacklistService, purger, logger, cfg.Auth.CleanupInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// let pending blacklist alerts go out
	blacklistService.Wait()

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin credential if ADMIN_USERNAME and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminUsername := strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminPassword == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := userRepo.GetByUsername(ctx, adminUsername)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = userRepo.Create(ctx, &models.User{
		Username:     adminUsername,
		PasswordHash: hashedPassword,
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
