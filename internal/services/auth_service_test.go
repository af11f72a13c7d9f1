package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"casefile/internal/auth"
	"casefile/internal/models"
	"casefile/internal/session"
)

func quickHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthService(repo *MockAccountRepository) (*AuthService, *auth.TokenManager, *session.MemoryRevocationList) {
	tm := auth.NewTokenManager("test-secret-32-characters-long!", 15*time.Minute, 24*time.Hour)
	revoked := session.NewMemoryRevocationList()
	logger, auditLogger := testLoggers()
	return NewAuthService(repo, tm, revoked, NoopTiming{}, logger, auditLogger), tm, revoked
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns tokens and home redirect", func(t *testing.T) {
		account := NewTestAccountWithQuestion("jsmith", "jsmith@example.com",
			quickHash(t, "correct-horse-battery"), "Favorite color?", quickHash(t, "blue"))
		repo := &MockAccountRepository{
			GetByUsernameFunc: func(_ context.Context, username string) (*models.Account, error) {
				require.Equal(t, "jsmith", username)
				return account, nil
			},
		}
		svc, _, _ := newAuthService(repo)

		resp, err := svc.Login(ctx, "jsmith", "correct-horse-battery")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, RedirectHome, resp.Redirect)
		assert.Equal(t, "jsmith", resp.Account.Username)
	})

	t.Run("first login redirects to forced reset", func(t *testing.T) {
		account := NewTestAccount("fresh", "fresh@example.com", quickHash(t, "temp-pass-123"))
		account.FirstLogin = true
		repo := &MockAccountRepository{
			GetByUsernameFunc: func(_ context.Context, _ string) (*models.Account, error) {
				return account, nil
			},
		}
		svc, _, _ := newAuthService(repo)

		resp, err := svc.Login(ctx, "fresh", "temp-pass-123")
		require.NoError(t, err)
		assert.Equal(t, RedirectForceReset, resp.Redirect)
	})

	t.Run("superuser skips forced reset", func(t *testing.T) {
		account := NewTestAccountWithQuestion("root", "root@example.com",
			quickHash(t, "admin-pass-xyz"), "Favorite color?", quickHash(t, "blue"))
		account.FirstLogin = true
		account.Superuser = true
		repo := &MockAccountRepository{
			GetByUsernameFunc: func(_ context.Context, _ string) (*models.Account, error) {
				return account, nil
			},
		}
		svc, _, _ := newAuthService(repo)

		resp, err := svc.Login(ctx, "root", "admin-pass-xyz")
		require.NoError(t, err)
		assert.Equal(t, RedirectHome, resp.Redirect)
	})

	t.Run("missing security question redirects to setup", func(t *testing.T) {
		account := NewTestAccount("noq", "noq@example.com", quickHash(t, "some-pass-123"))
		repo := &MockAccountRepository{
			GetByUsernameFunc: func(_ context.Context, _ string) (*models.Account, error) {
				return account, nil
			},
		}
		svc, _, _ := newAuthService(repo)

		resp, err := svc.Login(ctx, "noq", "some-pass-123")
		require.NoError(t, err)
		assert.Equal(t, RedirectSecurityQuestion, resp.Redirect)
	})

	t.Run("unknown username", func(t *testing.T) {
		svc, _, _ := newAuthService(&MockAccountRepository{})
		_, err := svc.Login(ctx, "nobody", "whatever-pass")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("wrong password", func(t *testing.T) {
		account := NewTestAccount("jsmith", "jsmith@example.com", quickHash(t, "right-password"))
		repo := &MockAccountRepository{
			GetByUsernameFunc: func(_ context.Context, _ string) (*models.Account, error) {
				return account, nil
			},
		}
		svc, _, _ := newAuthService(repo)

		_, err := svc.Login(ctx, "jsmith", "wrong-password")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("expired account cannot log in", func(t *testing.T) {
		account := NewTestAccount("old", "old@example.com", quickHash(t, "their-password"))
		yesterday := time.Now().AddDate(0, 0, -1)
		account.ExpirationDate = &yesterday
		repo := &MockAccountRepository{
			GetByUsernameFunc: func(_ context.Context, _ string) (*models.Account, error) {
				return account, nil
			},
		}
		svc, _, _ := newAuthService(repo)

		_, err := svc.Login(ctx, "old", "their-password")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("account expiring today can still log in", func(t *testing.T) {
		account := NewTestAccountWithQuestion("today", "today@example.com",
			quickHash(t, "their-password"), "Favorite color?", quickHash(t, "blue"))
		today := time.Now()
		account.ExpirationDate = &today
		repo := &MockAccountRepository{
			GetByUsernameFunc: func(_ context.Context, _ string) (*models.Account, error) {
				return account, nil
			},
		}
		svc, _, _ := newAuthService(repo)

		_, err := svc.Login(ctx, "today", "their-password")
		assert.NoError(t, err)
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("valid refresh token issues new pair", func(t *testing.T) {
		account := NewTestAccountWithQuestion("jsmith", "jsmith@example.com",
			quickHash(t, "pass"), "Favorite color?", quickHash(t, "blue"))
		repo := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*models.Account, error) {
				require.Equal(t, account.ID, id)
				return account, nil
			},
		}
		svc, tm, _ := newAuthService(repo)

		refresh, err := tm.GenerateRefreshToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		resp, err := svc.RefreshToken(ctx, refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("access token rejected", func(t *testing.T) {
		account := NewTestAccount("jsmith", "jsmith@example.com", quickHash(t, "pass"))
		svc, tm, _ := newAuthService(&MockAccountRepository{})

		access, err := tm.GenerateAccessToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		_, err = svc.RefreshToken(ctx, access)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("token issued before password change rejected", func(t *testing.T) {
		account := NewTestAccount("jsmith", "jsmith@example.com", quickHash(t, "pass"))
		repo := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Account, error) {
				return account, nil
			},
		}
		svc, tm, _ := newAuthService(repo)

		refresh, err := tm.GenerateRefreshToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		changed := time.Now().Add(time.Minute)
		account.PasswordChangedAt = &changed

		_, err = svc.RefreshToken(ctx, refresh)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("token issued in the same second as password change accepted", func(t *testing.T) {
		account := NewTestAccount("jsmith", "jsmith@example.com", quickHash(t, "pass"))
		changed := time.Now().UTC().Truncate(time.Second)
		account.PasswordChangedAt = &changed
		repo := &MockAccountRepository{
			GetByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Account, error) {
				return account, nil
			},
		}
		svc, tm, _ := newAuthService(repo)

		refresh, err := tm.GenerateRefreshToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		resp, err := svc.RefreshToken(ctx, refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	account := NewTestAccount("jsmith", "jsmith@example.com", quickHash(t, "pass"))
	svc, tm, revoked := newAuthService(&MockAccountRepository{})

	access, err := tm.GenerateAccessToken(account.ID.String(), account.Username)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, access))

	claims, err := tm.ValidateToken(access)
	require.NoError(t, err)
	isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, isRevoked)
}

func TestAuthService_CheckLogin(t *testing.T) {
	ctx := context.Background()

	account := NewTestAccount("fresh", "fresh@example.com", quickHash(t, "pass"))
	account.FirstLogin = true
	repo := &MockAccountRepository{
		GetByIDFunc: func(_ context.Context, _ uuid.UUID) (*models.Account, error) {
			return account, nil
		},
	}
	svc, _, _ := newAuthService(repo)

	redirect, err := svc.CheckLogin(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, RedirectForceReset, redirect)

	account.FirstLogin = false
	redirect, err = svc.CheckLogin(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, RedirectSecurityQuestion, redirect)

	question := "Favorite color?"
	answerHash := quickHash(t, "blue")
	account.SecurityQuestion = &question
	account.SecurityAnswerHash = &answerHash
	redirect, err = svc.CheckLogin(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, RedirectHome, redirect)
}
