package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casefile/internal/models"
	"casefile/internal/session"
)

func newRecoveryService(repo *MockAccountRepository, ttl time.Duration) (*RecoveryService, *session.MemoryStore) {
	store := session.NewMemoryStore()
	logger, auditLogger := testLoggers()
	return NewRecoveryService(repo, store, ttl, NoopTiming{}, logger, auditLogger), store
}

func recoveryAccount(t *testing.T) *models.Account {
	t.Helper()
	return NewTestAccountWithQuestion("jsmith", "jsmith@example.com",
		quickHash(t, "old-password-1"), "What color was your first car?", quickHash(t, "blue"))
}

func repoFor(account *models.Account) *MockAccountRepository {
	return &MockAccountRepository{
		GetByUsernameEmailFunc: func(_ context.Context, username, email string) (*models.Account, error) {
			if username == account.Username && email == account.Email {
				return account, nil
			}
			return nil, models.ErrNotFound
		},
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*models.Account, error) {
			if id == account.ID {
				return account, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

func TestRecoveryService_Identify(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a session and returns the question", func(t *testing.T) {
		account := recoveryAccount(t)
		svc, store := newRecoveryService(repoFor(account), 10*time.Minute)

		resp, err := svc.Identify(ctx, "jsmith", "jsmith@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "What color was your first car?", resp.SecurityQuestion)

		rec, err := store.Get(ctx, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, account.ID, rec.UserID)
	})

	t.Run("username and email must match the same account", func(t *testing.T) {
		account := recoveryAccount(t)
		svc, _ := newRecoveryService(repoFor(account), 10*time.Minute)

		_, err := svc.Identify(ctx, "jsmith", "other@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("account without security question is unrecoverable", func(t *testing.T) {
		account := NewTestAccount("noq", "noq@example.com", quickHash(t, "pass"))
		repo := &MockAccountRepository{
			GetByUsernameEmailFunc: func(_ context.Context, _, _ string) (*models.Account, error) {
				return account, nil
			},
		}
		svc, _ := newRecoveryService(repo, 10*time.Minute)

		_, err := svc.Identify(ctx, "noq", "noq@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("email matching is case insensitive", func(t *testing.T) {
		account := recoveryAccount(t)
		svc, _ := newRecoveryService(repoFor(account), 10*time.Minute)

		_, err := svc.Identify(ctx, "jsmith", "JSmith@Example.com")
		assert.NoError(t, err)
	})
}

func TestRecoveryService_Challenge(t *testing.T) {
	ctx := context.Background()

	open := func(t *testing.T, svc *RecoveryService) string {
		t.Helper()
		resp, err := svc.Identify(ctx, "jsmith", "jsmith@example.com")
		require.NoError(t, err)
		return resp.Token
	}

	t.Run("correct answer", func(t *testing.T) {
		svc, _ := newRecoveryService(repoFor(recoveryAccount(t)), 10*time.Minute)
		token := open(t, svc)
		assert.NoError(t, svc.Challenge(ctx, token, "blue"))
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		svc, _ := newRecoveryService(repoFor(recoveryAccount(t)), 10*time.Minute)
		token := open(t, svc)
		assert.NoError(t, svc.Challenge(ctx, token, "  blue  "))
	})

	t.Run("comparison is case sensitive", func(t *testing.T) {
		svc, _ := newRecoveryService(repoFor(recoveryAccount(t)), 10*time.Minute)
		token := open(t, svc)
		assert.ErrorIs(t, svc.Challenge(ctx, token, "Blue"), models.ErrWrongAnswer)
	})

	t.Run("wrong answer keeps the session open for retry", func(t *testing.T) {
		svc, _ := newRecoveryService(repoFor(recoveryAccount(t)), 10*time.Minute)
		token := open(t, svc)

		require.ErrorIs(t, svc.Challenge(ctx, token, "green"), models.ErrWrongAnswer)
		assert.NoError(t, svc.Challenge(ctx, token, "blue"))
	})

	t.Run("missing session", func(t *testing.T) {
		svc, _ := newRecoveryService(repoFor(recoveryAccount(t)), 10*time.Minute)
		assert.ErrorIs(t, svc.Challenge(ctx, "bogus-token", "blue"), models.ErrRecoveryExpired)
	})
}

func TestRecoveryService_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("sets new password and destroys the session", func(t *testing.T) {
		account := recoveryAccount(t)
		repo := repoFor(account)
		var updatedHash string
		repo.UpdatePasswordFunc = func(_ context.Context, id uuid.UUID, hash string) error {
			require.Equal(t, account.ID, id)
			updatedHash = hash
			return nil
		}
		svc, store := newRecoveryService(repo, 10*time.Minute)

		resp, err := svc.Identify(ctx, "jsmith", "jsmith@example.com")
		require.NoError(t, err)
		require.NoError(t, svc.Challenge(ctx, resp.Token, "blue"))

		require.NoError(t, svc.Reset(ctx, resp.Token, "tall ships at dawn 7", "tall ships at dawn 7"))
		assert.NotEmpty(t, updatedHash)

		_, err = store.Get(ctx, resp.Token)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("mismatched entries reported before strength", func(t *testing.T) {
		svc, _ := newRecoveryService(repoFor(recoveryAccount(t)), 10*time.Minute)
		resp, err := svc.Identify(ctx, "jsmith", "jsmith@example.com")
		require.NoError(t, err)

		// Both entries are too short, but the mismatch is what gets reported.
		err = svc.Reset(ctx, resp.Token, "abc", "abd")
		assert.ErrorIs(t, err, models.ErrPasswordMismatch)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		svc, _ := newRecoveryService(repoFor(recoveryAccount(t)), 10*time.Minute)
		resp, err := svc.Identify(ctx, "jsmith", "jsmith@example.com")
		require.NoError(t, err)

		err = svc.Reset(ctx, resp.Token, "12345678", "12345678")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrPasswordMismatch)
	})

	t.Run("expired session", func(t *testing.T) {
		account := recoveryAccount(t)
		svc, store := newRecoveryService(repoFor(account), 10*time.Minute)
		resp, err := svc.Identify(ctx, "jsmith", "jsmith@example.com")
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, resp.Token))
		err = svc.Reset(ctx, resp.Token, "tall ships at dawn 7", "tall ships at dawn 7")
		assert.ErrorIs(t, err, models.ErrRecoveryExpired)
	})
}
