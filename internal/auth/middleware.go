package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"casefile/internal/models"
	"casefile/internal/session"
	pkghttp "casefile/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing user claims in context
	UserContextKey contextKey = "user"
)

// AccountFetcher loads the current account record for claim checks.
type AccountFetcher interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// RevocationConfig holds configuration for token revocation behavior
type RevocationConfig struct {
	FailClosed bool // deny access when the revocation check itself fails
}

// Middleware bundles the token checks applied to authenticated routes.
type Middleware struct {
	tm       *TokenManager
	revoked  session.RevocationList
	accounts AccountFetcher
	cfg      RevocationConfig
}

func NewMiddleware(tm *TokenManager, revoked session.RevocationList, accounts AccountFetcher, cfg RevocationConfig) *Middleware {
	return &Middleware{tm: tm, revoked: revoked, accounts: accounts, cfg: cfg}
}

// Authenticate validates the bearer token, rejects revoked or stale tokens,
// and injects the claims into the request context. A token issued before the
// account's last password change is stale; this is what makes a password
// reset invalidate every open session.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkghttp.WriteUnauthorized(w, "Missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			pkghttp.WriteUnauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.tm.ValidateToken(parts[1])
		if err != nil {
			pkghttp.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		// Refresh tokens are only accepted by the refresh endpoint.
		if claims.Type == "refresh" {
			pkghttp.WriteUnauthorized(w, "Refresh tokens cannot be used for API access")
			return
		}

		if m.revoked != nil && claims.ID != "" {
			revoked, err := m.revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				if m.cfg.FailClosed {
					pkghttp.WriteError(w, http.StatusServiceUnavailable, "token_check_unavailable", "Unable to verify token status")
					return
				}
			}
			if revoked {
				pkghttp.WriteUnauthorized(w, "Token has been revoked")
				return
			}
		}

		if m.accounts != nil {
			account, err := m.fetchAccount(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "Account not found")
					return
				}
				pkghttp.WriteInternalError(w, "Internal server error")
				return
			}
			if account.PasswordChangedAt != nil && claims.IssuedAt != nil &&
				claims.IssuedAt.Time.Before(*account.PasswordChangedAt) {
				pkghttp.WriteUnauthorized(w, "Token has been invalidated")
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireStaff allows only staff or superuser accounts through.
func (m *Middleware) RequireStaff(next http.Handler) http.Handler {
	return m.requireAccount(next, func(a *models.Account) bool {
		return a.Staff || a.Superuser
	})
}

// RequireSuperuser allows only superuser accounts through.
func (m *Middleware) RequireSuperuser(next http.Handler) http.Handler {
	return m.requireAccount(next, func(a *models.Account) bool {
		return a.Superuser
	})
}

func (m *Middleware) requireAccount(next http.Handler, allowed func(*models.Account) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r)
		if claims == nil {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}

		account, err := m.fetchAccount(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				pkghttp.WriteUnauthorized(w, "Account not found")
				return
			}
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}

		if !allowed(account) {
			pkghttp.WriteForbidden(w, "Insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) fetchAccount(ctx context.Context, userID string) (*models.Account, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return m.accounts.GetByID(ctx, id)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
