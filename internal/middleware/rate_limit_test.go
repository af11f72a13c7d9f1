package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casefile/internal/auth"
	"casefile/internal/models"
	pkghttp "casefile/pkg/http"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authenticatedRequest(userID string) *http.Request {
	req := httptest.NewRequest("GET", "/criminals", nil)
	claims := &models.TokenClaims{UserID: userID, Type: "access"}
	return req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, claims))
}

func send(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestRateLimitByUserID_EnforcesPerKindLimits(t *testing.T) {
	config := AuthenticatedRateLimitConfig{
		ReadOperationsPerMinute:  100,
		WriteOperationsPerMinute: 30,
		AdminOperationsPerMinute: 60,
	}

	tests := []struct {
		kind  string
		limit int
	}{
		{"read", 100},
		{"write", 30},
		{"admin", 60},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			handler := RateLimitByUserID(config, tt.kind)(okHandler())
			userID := fmt.Sprintf("user-%s-limit", tt.kind)

			for i := 0; i < tt.limit; i++ {
				rec := send(handler, authenticatedRequest(userID))
				require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
			}

			rec := send(handler, authenticatedRequest(userID))
			assert.Equal(t, http.StatusTooManyRequests, rec.Code, "request %d should be limited", tt.limit+1)
		})
	}
}

func TestRateLimitByUserID_FallsBackToIPWithoutClaims(t *testing.T) {
	handler := RateLimitByUserID(AuthenticatedRateLimitConfig{ReadOperationsPerMinute: 2}, "read")(okHandler())

	// Unauthenticated requests share the IP bucket.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/criminals", nil)
		req.RemoteAddr = "192.168.1.1:8080"
		require.Equal(t, http.StatusOK, send(handler, req).Code)
	}

	req := httptest.NewRequest("GET", "/criminals", nil)
	req.RemoteAddr = "192.168.1.1:8080"
	assert.Equal(t, http.StatusTooManyRequests, send(handler, req).Code)

	// A different IP still gets through.
	other := httptest.NewRequest("GET", "/criminals", nil)
	other.RemoteAddr = "192.168.1.2:8080"
	assert.Equal(t, http.StatusOK, send(handler, other).Code)
}

func TestRateLimitByUserID_IsolatesUserBuckets(t *testing.T) {
	handler := RateLimitByUserID(AuthenticatedRateLimitConfig{ReadOperationsPerMinute: 10}, "read")(okHandler())

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, send(handler, authenticatedRequest("user-a")).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(handler, authenticatedRequest("user-a")).Code)

	// Exhausting one user's bucket leaves other users untouched.
	assert.Equal(t, http.StatusOK, send(handler, authenticatedRequest("user-b")).Code)
}

func TestRateLimitByUserID_429Body(t *testing.T) {
	handler := RateLimitByUserID(AuthenticatedRateLimitConfig{WriteOperationsPerMinute: 1}, "write")(okHandler())

	require.Equal(t, http.StatusOK, send(handler, authenticatedRequest("user-429")).Code)

	rec := send(handler, authenticatedRequest("user-429"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
	assert.Equal(t, "Too many requests", resp.Message)
}

func TestRateLimitByIP(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 5})(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		require.Equal(t, http.StatusOK, send(handler, req).Code, "request %d should pass", i+1)
	}

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	assert.Equal(t, http.StatusTooManyRequests, send(handler, req).Code)
}
