package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"casefile/internal/auth"
	"casefile/internal/background"
	"casefile/internal/config"
	"casefile/internal/database"
	"casefile/internal/handlers"
	"casefile/internal/middleware"
	"casefile/internal/repositories"
	"casefile/internal/routes"
	"casefile/internal/services"
	"casefile/internal/session"
	pkghttp "casefile/pkg/http"
	pkglogger "casefile/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Redis holds recovery sessions and the token revocation list
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	pingCancel()

	recoverySessions := session.NewRedisStore(redisClient)
	revocationList := session.NewRedisRevocationList(redisClient)

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	personRepo := repositories.NewPersonRepository(db)
	offenseRepo := repositories.NewOffenseRepository(db)
	linkRepo := repositories.NewLinkRepository(db)
	importStore := repositories.NewPgImportStore(db)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   200,
		RandomDelayMs: 100,
	})

	// Credential emails go out only when SES is configured
	var mailer services.CredentialMailer
	if cfg.Email.Enabled {
		sesMailer, err := services.NewAWSSESEmailService(
			cfg.Email.Region,
			cfg.Email.FromAddress,
			cfg.Email.SignInURL,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		mailer = sesMailer
	}

	// Initialize services
	authService := services.NewAuthService(accountRepo, tokenManager, revocationList, timingDelay, logger, auditLogger)
	recoveryService := services.NewRecoveryService(accountRepo, recoverySessions, cfg.Auth.RecoverySessionTTL, timingDelay, logger, auditLogger)
	accountService := services.NewAccountService(accountRepo, tokenManager, mailer, logger, auditLogger)
	personService := services.NewPersonService(personRepo, offenseRepo, linkRepo, logger)
	importService := services.NewImportService(importStore, mailer, logger, auditLogger)

	// Expired accounts are purged on a timer
	sweeper := background.NewAccountSweeper(accountRepo, logger, cfg.Cleanup.SweepInterval)

	// Auth middleware: fail open on revocation-list errors outside production
	authMW := auth.NewMiddleware(tokenManager, revocationList, accountRepo, auth.RevocationConfig{
		FailClosed: cfg.Server.Env == "production",
	})

	// Initialize handlers
	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Recovery:  handlers.NewRecoveryHandler(recoveryService),
		Accounts:  handlers.NewAccountHandler(accountService),
		Criminals: handlers.NewCriminalHandler(personService),
		Imports:   handlers.NewImportHandler(importService),
	}

	// Setup CORS middleware
	corsConfig := middleware.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Setup router
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middleware.CORS(corsConfig))
	router.Use(middleware.SecureLogger(logger, ipConfig))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, h, authMW)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start expired-account sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
