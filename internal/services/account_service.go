package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"casefile/internal/auth"
	"casefile/internal/models"
	pkgauth "casefile/pkg/auth"
	pkglogger "casefile/pkg/logger"
)

// CredentialMailer delivers initial credentials to newly provisioned users.
type CredentialMailer interface {
	SendCredentials(ctx context.Context, email, username, tempPassword string, expiration *time.Time) error
}

// AccountService covers account provisioning and the post-login gates:
// the forced first-login password reset and security question setup.
type AccountService struct {
	repo        AccountRepository
	tm          *auth.TokenManager
	mailer      CredentialMailer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAccountService(repo AccountRepository, tm *auth.TokenManager, mailer CredentialMailer, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AccountService {
	return &AccountService{
		repo:        repo,
		tm:          tm,
		mailer:      mailer,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// CreateAccountInput is the admin-facing create request. Username defaults
// to the local part of the email when empty.
type CreateAccountInput struct {
	FirstName      string
	LastName       string
	Email          string
	Username       string
	Staff          bool
	ExpirationDate *time.Time
}

// CreatedAccount pairs the stored account with its one-time temporary
// password, shown once to the administrator.
type CreatedAccount struct {
	Account      *models.Account
	TempPassword string
}

// Create provisions an account with a generated temporary password and the
// first-login flag set, so the user must choose their own password before
// using the system.
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*CreatedAccount, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", models.ErrBadRequest)
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = UsernameFromEmail(email)
	}

	tempPassword, err := pkgauth.GenerateTempPassword()
	if err != nil {
		s.logger.Error("failed to generate temporary password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(tempPassword)
	if err != nil {
		s.logger.Error("failed to hash temporary password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account := &models.Account{
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Staff:          input.Staff,
		FirstLogin:     true,
		ExpirationDate: input.ExpirationDate,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if s.mailer != nil {
		if err := s.mailer.SendCredentials(ctx, email, username, tempPassword, input.ExpirationDate); err != nil {
			// The account exists either way; the admin still sees the
			// temporary password in the response.
			s.logger.Warn("failed to send credentials email",
				slog.String("user_id", created.ID.String()), slog.Any("error", err))
		}
	}

	s.logger.Info("account created", slog.String("user_id", created.ID.String()))
	s.auditLogger.LogAccountAction("account_created", created.ID.String(), "", map[string]string{
		"username": username,
	})

	return &CreatedAccount{Account: created, TempPassword: tempPassword}, nil
}

// ForceReset replaces the temporary password during the first-login gate and
// clears the first-login flag. Fresh tokens are returned so the user stays
// signed in after the old ones are invalidated by the password change.
func (s *AccountService) ForceReset(ctx context.Context, userID uuid.UUID, password, confirm string) (*AuthResponse, error) {
	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load account for forced reset", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if password != confirm {
		return nil, models.ErrPasswordMismatch
	}

	if err := pkgauth.ValidatePassword(password, identityAttrs(account)); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, account.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", account.ID.String()), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.FirstLogin {
		if err := s.repo.ClearFirstLogin(ctx, account.ID); err != nil {
			s.logger.Error("failed to clear first-login flag", slog.String("user_id", account.ID.String()), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		account.FirstLogin = false
	}

	s.logger.Info("forced password reset completed", slog.String("user_id", account.ID.String()))
	s.auditLogger.LogPasswordChange(account.ID.String(), "", true)

	accessToken, err := s.tm.GenerateAccessToken(account.ID.String(), account.Username)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	refreshToken, err := s.tm.GenerateRefreshToken(account.ID.String(), account.Username)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      accountModelToResponse(account),
		Redirect:     redirectFor(account),
	}, nil
}

// SetSecurityQuestion stores the question and the hash of the trimmed
// answer, then reports where the client should go next. Accounts that
// already have both on file keep their existing pair untouched and are
// sent straight home.
func (s *AccountService) SetSecurityQuestion(ctx context.Context, userID uuid.UUID, question, answer string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: security question is required", models.ErrBadRequest)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%w: security answer is required", models.ErrBadRequest)
	}

	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrUnauthorized
		}
		s.logger.Error("failed to load account", slog.String("user_id", userID.String()), slog.Any("error", err))
		return "", models.ErrInternalServer
	}
	if account.HasSecurityQuestion() {
		return RedirectHome, nil
	}

	answerHash, err := pkgauth.HashSecurityAnswer(answer)
	if err != nil {
		s.logger.Error("failed to hash security answer", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.repo.UpdateSecurityQuestion(ctx, userID, question, answerHash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrUnauthorized
		}
		s.logger.Error("failed to store security question", slog.String("user_id", userID.String()), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("security question set", slog.String("user_id", userID.String()))
	s.auditLogger.LogAccountAction("security_question_set", userID.String(), "", nil)
	return RedirectHome, nil
}

// UsernameFromEmail derives the default username from an email address.
func UsernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
