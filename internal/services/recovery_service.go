package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"casefile/internal/models"
	"casefile/internal/session"
	pkgauth "casefile/pkg/auth"
	pkglogger "casefile/pkg/logger"
)

// RecoveryService runs the three-step account recovery flow. State between
// steps lives server-side in the session store, keyed by an opaque token the
// client must present; the store's TTL bounds how long a recovery may stall.
type RecoveryService struct {
	repo        AccountRepository
	sessions    session.Store
	sessionTTL  time.Duration
	timing      TimingDelayer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewRecoveryService(repo AccountRepository, sessions session.Store, sessionTTL time.Duration, timing TimingDelayer, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *RecoveryService {
	return &RecoveryService{
		repo:        repo,
		sessions:    sessions,
		sessionTTL:  sessionTTL,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// IdentifyResponse carries the recovery token and the question to answer.
type IdentifyResponse struct {
	Token            string `json:"recovery_token"`
	SecurityQuestion string `json:"security_question"`
}

// Identify matches username and email to a single account and opens a
// recovery session. Accounts without a security question on file cannot be
// recovered this way and report the same failure as an unknown account.
func (s *RecoveryService) Identify(ctx context.Context, username, email string) (*IdentifyResponse, error) {
	start := time.Now()

	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		s.timing.WaitFrom(start, false)
		return nil, models.ErrNotFound
	}

	account, err := s.repo.GetByUsernameEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("recovery identify failed: no matching account",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "recovery_identify_failed",
				FailureReason: "no_matching_account",
				Success:       false,
			})
			s.timing.WaitFrom(start, false)
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up account for recovery", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !account.HasSecurityQuestion() {
		s.logger.Info("recovery identify failed: no security question on file",
			slog.String("user_id", account.ID.String()))
		s.timing.WaitFrom(start, false)
		return nil, models.ErrNotFound
	}

	token := session.NewToken()
	rec := session.Recovery{
		UserID:           account.ID,
		SecurityQuestion: *account.SecurityQuestion,
	}
	if err := s.sessions.Put(ctx, token, rec, s.sessionTTL); err != nil {
		s.logger.Error("failed to store recovery session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("recovery session opened", slog.String("user_id", account.ID.String()))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "recovery_identify",
		UserID:    account.ID.String(),
		Success:   true,
	})
	s.timing.WaitFrom(start, true)

	return &IdentifyResponse{Token: token, SecurityQuestion: rec.SecurityQuestion}, nil
}

// Challenge checks the security answer for an open recovery session. The
// comparison trims surrounding whitespace but is otherwise exact. A wrong
// answer leaves the session open so the user may retry until it expires.
func (s *RecoveryService) Challenge(ctx context.Context, token, answer string) error {
	rec, err := s.getSession(ctx, token)
	if err != nil {
		return err
	}

	account, err := s.repo.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = s.sessions.Delete(ctx, token)
			return models.ErrRecoveryExpired
		}
		s.logger.Error("failed to load account for recovery challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if account.SecurityAnswerHash == nil ||
		pkgauth.CompareSecurityAnswer(*account.SecurityAnswerHash, answer) != nil {
		s.logger.Info("recovery challenge failed", slog.String("user_id", account.ID.String()))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "recovery_challenge_failed",
			UserID:        account.ID.String(),
			FailureReason: "wrong_answer",
			Success:       false,
		})
		return models.ErrWrongAnswer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "recovery_challenge",
		UserID:    account.ID.String(),
		Success:   true,
	})
	return nil
}

// Reset sets a new password for the account in the recovery session. The two
// entries must match before the strength policy is checked. On success the
// session is destroyed and every existing token for the account stops
// working, because the stored password-change time moves forward.
func (s *RecoveryService) Reset(ctx context.Context, token, password, confirm string) error {
	rec, err := s.getSession(ctx, token)
	if err != nil {
		return err
	}

	if password != confirm {
		return models.ErrPasswordMismatch
	}

	account, err := s.repo.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = s.sessions.Delete(ctx, token)
			return models.ErrRecoveryExpired
		}
		s.logger.Error("failed to load account for recovery reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ValidatePassword(password, identityAttrs(account)); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, account.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", account.ID.String()), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.sessions.Delete(ctx, token); err != nil {
		s.logger.Warn("failed to delete recovery session", slog.Any("error", err))
	}

	s.logger.Info("password reset via recovery", slog.String("user_id", account.ID.String()))
	s.auditLogger.LogPasswordChange(account.ID.String(), "", true)
	return nil
}

func (s *RecoveryService) getSession(ctx context.Context, token string) (session.Recovery, error) {
	if token == "" {
		return session.Recovery{}, models.ErrRecoveryExpired
	}
	rec, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return session.Recovery{}, models.ErrRecoveryExpired
		}
		s.logger.Error("failed to load recovery session", slog.Any("error", err))
		return session.Recovery{}, models.ErrInternalServer
	}
	return rec, nil
}

// identityAttrs lists the account fields a new password must not resemble.
func identityAttrs(account *models.Account) []string {
	return []string{account.Username, account.Email, account.FirstName, account.LastName}
}
