package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"casefile/internal/auth"
	"casefile/internal/models"
	"casefile/internal/session"
	pkgauth "casefile/pkg/auth"
	pkglogger "casefile/pkg/logger"
)

// AccountRepository is the account storage surface the services need.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByUsernameEmail(ctx context.Context, username, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateSecurityQuestion(ctx context.Context, id uuid.UUID, question, answerHash string) error
	ClearFirstLogin(ctx context.Context, id uuid.UUID) error
}

// TimingDelayer masks the timing difference between unknown-account and
// wrong-password failures.
type TimingDelayer interface {
	WaitFrom(startTime time.Time, success bool)
}

// Redirect targets returned to the client after login or gate checks.
const (
	RedirectForceReset       = "/accounts/force-reset"
	RedirectSecurityQuestion = "/accounts/security-question"
	RedirectHome             = "/criminals"
)

// AuthService handles authentication business logic
type AuthService struct {
	repo        AccountRepository
	revoked     session.RevocationList
	tm          *auth.TokenManager
	timing      TimingDelayer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuthService(repo AccountRepository, tm *auth.TokenManager, revoked session.RevocationList, timing TimingDelayer, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		revoked:     revoked,
		tm:          tm,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// AccountResponse represents an account in HTTP responses.
type AccountResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Staff      bool   `json:"staff"`
	Superuser  bool   `json:"superuser"`
	FirstLogin bool   `json:"first_login"`
	CreatedAt  string `json:"created_at"`
}

// AuthResponse represents the response from auth operations. Redirect tells
// the client where the user must go next: a forced password reset for fresh
// accounts, security question setup when none is on file, or home.
type AuthResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	Account      *AccountResponse `json:"account"`
	Redirect     string           `json:"redirect"`
}

// Login authenticates by username and returns tokens plus the post-login
// redirect. Expired accounts are rejected as if the credentials were wrong.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	start := time.Now()

	if username = strings.TrimSpace(username); username == "" {
		s.logger.Warn("login attempt with empty username")
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			s.timing.WaitFrom(start, false)
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get account by username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.IsExpired(time.Now()) {
		s.logger.Info("login blocked: account expired", slog.String("user_id", account.ID.String()))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        account.ID.String(),
			FailureReason: "account_expired",
			Success:       false,
		})
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        account.ID.String(),
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	resp, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", account.ID.String()))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    account.ID.String(),
		Success:   true,
	})
	s.timing.WaitFrom(start, true)

	return resp, nil
}

// RefreshToken generates a new token pair from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("account not found for token refresh", slog.String("user_id", claims.UserID))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get account for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.IsExpired(time.Now()) {
		return nil, models.ErrUnauthorized
	}

	// Tokens issued before a password change are dead.
	if account.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(*account.PasswordChangedAt) {
		s.logger.Info("token refresh blocked: issued before password change",
			slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	resp, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("token refreshed", slog.String("user_id", account.ID.String()))
	return resp, nil
}

// Logout revokes the current access token
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tm.ValidateToken(accessToken)
	if err != nil {
		return models.ErrUnauthorized
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// CheckLogin reports where the authenticated user should be sent. Fresh
// accounts (first login, not superuser) must reset their password; accounts
// without a security question must set one.
func (s *AuthService) CheckLogin(ctx context.Context, userID uuid.UUID) (string, error) {
	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrUnauthorized
		}
		s.logger.Error("failed to get account for login check", slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	return redirectFor(account), nil
}

func redirectFor(account *models.Account) string {
	if account.NeedsForcedReset() {
		return RedirectForceReset
	}
	if !account.HasSecurityQuestion() {
		return RedirectSecurityQuestion
	}
	return RedirectHome
}

func (s *AuthService) issueTokens(account *models.Account) (*AuthResponse, error) {
	accessToken, err := s.tm.GenerateAccessToken(account.ID.String(), account.Username)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", account.ID.String()), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(account.ID.String(), account.Username)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", account.ID.String()), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      accountModelToResponse(account),
		Redirect:     redirectFor(account),
	}, nil
}

func accountModelToResponse(account *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:         account.ID.String(),
		Username:   account.Username,
		Email:      account.Email,
		FirstName:  account.FirstName,
		LastName:   account.LastName,
		Staff:      account.Staff,
		Superuser:  account.Superuser,
		FirstLogin: account.FirstLogin,
		CreatedAt:  account.CreatedAt.Format(time.RFC3339),
	}
}
