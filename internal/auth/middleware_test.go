package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casefile/internal/auth"
	"casefile/internal/models"
	"casefile/internal/session"
)

type fakeAccounts struct {
	accounts map[uuid.UUID]*models.Account
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return a, nil
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func newTestSetup(t *testing.T) (*auth.TokenManager, *fakeAccounts, *session.MemoryRevocationList, *auth.Middleware, *models.Account) {
	t.Helper()
	tm := auth.NewTokenManager("test-secret-32-characters-long!", 15*time.Minute, 24*time.Hour)
	account := &models.Account{
		ID:       uuid.New(),
		Username: "jsmith",
	}
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Account{account.ID: account}}
	revoked := session.NewMemoryRevocationList()
	mw := auth.NewMiddleware(tm, revoked, accounts, auth.RevocationConfig{})
	return tm, accounts, revoked, mw, account
}

func authedRequest(t *testing.T, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/criminals", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthenticate(t *testing.T) {
	t.Run("valid token passes", func(t *testing.T) {
		tm, _, _, mw, account := newTestSetup(t)
		token, err := tm.GenerateAccessToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		next, called := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, authedRequest(t, token))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *called)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		_, _, _, mw, _ := newTestSetup(t)
		next, called := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, authedRequest(t, ""))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *called)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		_, _, _, mw, _ := newTestSetup(t)
		req := httptest.NewRequest(http.MethodGet, "/criminals", nil)
		req.Header.Set("Authorization", "Token abc")

		next, _ := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token rejected on API routes", func(t *testing.T) {
		tm, _, _, mw, account := newTestSetup(t)
		token, err := tm.GenerateRefreshToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		next, _ := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, authedRequest(t, token))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		tm, _, revoked, mw, account := newTestSetup(t)
		token, err := tm.GenerateAccessToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		require.NoError(t, revoked.Revoke(context.Background(), claims.ID, 15*time.Minute))

		next, _ := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, authedRequest(t, token))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token issued before password change rejected", func(t *testing.T) {
		tm, _, _, mw, account := newTestSetup(t)
		token, err := tm.GenerateAccessToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		changed := time.Now().Add(time.Minute)
		account.PasswordChangedAt = &changed

		next, _ := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, authedRequest(t, token))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token issued in the same second as password change accepted", func(t *testing.T) {
		tm, _, _, mw, account := newTestSetup(t)

		// Password change stamps are stored truncated to whole seconds,
		// matching the resolution of the token's iat claim.
		changed := time.Now().UTC().Truncate(time.Second)
		account.PasswordChangedAt = &changed

		token, err := tm.GenerateAccessToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		next, called := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, authedRequest(t, token))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *called)
	})

	t.Run("deleted account rejected", func(t *testing.T) {
		tm, accounts, _, mw, account := newTestSetup(t)
		token, err := tm.GenerateAccessToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		delete(accounts.accounts, account.ID)

		next, _ := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, authedRequest(t, token))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireStaff(t *testing.T) {
	run := func(t *testing.T, account *models.Account, wantCode int) {
		tm, _, _, mw, _ := newTestSetup(t)
		accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Account{account.ID: account}}
		mw = auth.NewMiddleware(tm, session.NewMemoryRevocationList(), accounts, auth.RevocationConfig{})

		token, err := tm.GenerateAccessToken(account.ID.String(), account.Username)
		require.NoError(t, err)

		next, _ := okHandler()
		rec := httptest.NewRecorder()
		mw.Authenticate(mw.RequireStaff(next)).ServeHTTP(rec, authedRequest(t, token))
		assert.Equal(t, wantCode, rec.Code)
	}

	t.Run("plain account forbidden", func(t *testing.T) {
		run(t, &models.Account{ID: uuid.New(), Username: "user"}, http.StatusForbidden)
	})

	t.Run("staff allowed", func(t *testing.T) {
		run(t, &models.Account{ID: uuid.New(), Username: "staff", Staff: true}, http.StatusOK)
	})

	t.Run("superuser allowed", func(t *testing.T) {
		run(t, &models.Account{ID: uuid.New(), Username: "root", Superuser: true}, http.StatusOK)
	})
}

func TestRequireSuperuser(t *testing.T) {
	tm, _, _, _, _ := newTestSetup(t)
	staff := &models.Account{ID: uuid.New(), Username: "staff", Staff: true}
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Account{staff.ID: staff}}
	mw := auth.NewMiddleware(tm, session.NewMemoryRevocationList(), accounts, auth.RevocationConfig{})

	token, err := tm.GenerateAccessToken(staff.ID.String(), staff.Username)
	require.NoError(t, err)

	next, _ := okHandler()
	rec := httptest.NewRecorder()
	mw.Authenticate(mw.RequireSuperuser(next)).ServeHTTP(rec, authedRequest(t, token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetUserFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, auth.GetUserFromContext(req))
}
