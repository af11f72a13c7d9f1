package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"casefile/internal/auth"
	"casefile/internal/config"
	"casefile/internal/database"
	"casefile/internal/handlers"
	"casefile/internal/repositories"
	"casefile/internal/routes"
	"casefile/internal/services"
	"casefile/internal/session"
	pkglogger "casefile/pkg/logger"
)

// SentCredential is one captured credential email
type SentCredential struct {
	Email        string
	Username     string
	TempPassword string
	Expiration   *time.Time
}

// MockMailer captures credential emails for test assertions
type MockMailer struct {
	Sent []SentCredential
	mu   sync.Mutex
}

func (m *MockMailer) SendCredentials(ctx context.Context, email, username, tempPassword string, expiration *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentCredential{
		Email:        email,
		Username:     username,
		TempPassword: tempPassword,
		Expiration:   expiration,
	})
	return nil
}

// GetLastCredential returns the most recent credential email sent
func (m *MockMailer) GetLastCredential() *SentCredential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server   *httptest.Server
	Pool     *database.DB
	Mailer   *MockMailer
	Config   *config.Config
	Sessions *session.MemoryStore

	logger *slog.Logger
}

// NewTestServer initializes a complete HTTP server with a real database,
// in-memory session stores and a captured mailer.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			RecoverySessionTTL: 10 * time.Minute,
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
		},
	}

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	personRepo := repositories.NewPersonRepository(db)
	offenseRepo := repositories.NewOffenseRepository(db)
	linkRepo := repositories.NewLinkRepository(db)
	importStore := repositories.NewPgImportStore(db)

	// In-memory stand-ins for redis
	recoverySessions := session.NewMemoryStore()
	revocationList := session.NewMemoryRevocationList()

	mailer := &MockMailer{}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Minimal delays so the suite stays fast
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 1, RandomDelayMs: 1})

	authService := services.NewAuthService(accountRepo, tokenManager, revocationList, timingDelay, logger, auditLogger)
	recoveryService := services.NewRecoveryService(accountRepo, recoverySessions, cfg.Auth.RecoverySessionTTL, timingDelay, logger, auditLogger)
	accountService := services.NewAccountService(accountRepo, tokenManager, mailer, logger, auditLogger)
	personService := services.NewPersonService(personRepo, offenseRepo, linkRepo, logger)
	importService := services.NewImportService(importStore, mailer, logger, auditLogger)

	authMW := auth.NewMiddleware(tokenManager, revocationList, accountRepo, auth.RevocationConfig{})

	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Recovery:  handlers.NewRecoveryHandler(recoveryService),
		Accounts:  handlers.NewAccountHandler(accountService),
		Criminals: handlers.NewCriminalHandler(personService),
		Imports:   handlers.NewImportHandler(importService),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Generous limits so the suite never trips the per-IP throttle
	routes.RegisterRoutes(r, h, authMW, routes.Options{
		AuthLimit: routes.RateLimitOverride{RequestsPerMinute: 1000},
	})

	server := httptest.NewServer(r)

	return &TestServer{
		Server:   server,
		Pool:     db,
		Mailer:   mailer,
		Config:   cfg,
		Sessions: recoverySessions,
		logger:   logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractTokensFromResponse extracts tokens and redirect from an auth response
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken, redirect string, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", "", fmt.Errorf("failed to parse response: %w", err)
	}

	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}
	if r, ok := authResp["redirect"].(string); ok {
		redirect = r
	}

	return
}

// GetErrorMessage extracts error message from error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
