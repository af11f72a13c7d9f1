package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"casefile/internal/auth"
	pkghttp "casefile/pkg/http"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns the limit applied to login, refresh and the
// recovery endpoints (5 requests per minute per IP)
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 5,
	}
}

// AuthenticatedRateLimitConfig holds per-user limits by operation kind.
type AuthenticatedRateLimitConfig struct {
	ReadOperationsPerMinute  int
	WriteOperationsPerMinute int
	AdminOperationsPerMinute int
}

// DefaultAuthenticatedRateLimit returns the per-user limits for signed-in
// traffic. Imports count as admin operations.
func DefaultAuthenticatedRateLimit() AuthenticatedRateLimitConfig {
	return AuthenticatedRateLimitConfig{
		ReadOperationsPerMinute:  100,
		WriteOperationsPerMinute: 30,
		AdminOperationsPerMinute: 60,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// RateLimitByUserID creates a middleware that rate limits by the
// authenticated user, falling back to the client IP when no claims are on
// the request. kind selects which of the three limits applies.
func RateLimitByUserID(config AuthenticatedRateLimitConfig, kind string) func(next http.Handler) http.Handler {
	limit := config.ReadOperationsPerMinute
	switch kind {
	case "write":
		limit = config.WriteOperationsPerMinute
	case "admin":
		limit = config.AdminOperationsPerMinute
	}

	return httprate.Limit(
		limit,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := auth.GetUserFromContext(r); claims != nil && claims.UserID != "" {
				return kind + ":" + claims.UserID, nil
			}
			return httprate.KeyByRealIP(r)
		}),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Too many requests")
}
