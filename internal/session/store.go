// Package session holds the short-lived server-side state for the account
// recovery flow, plus the token revocation list used at logout.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Recovery is the state carried between recovery steps. It exists only
// after a successful identify step and is destroyed on completion, abandon,
// or TTL expiry.
type Recovery struct {
	UserID           uuid.UUID `json:"user_id"`
	SecurityQuestion string    `json:"security_question"`
}

// Store persists recovery sessions keyed by an opaque token. Get returns
// models.ErrNotFound for missing or expired sessions.
type Store interface {
	Put(ctx context.Context, token string, rec Recovery, ttl time.Duration) error
	Get(ctx context.Context, token string) (Recovery, error)
	Delete(ctx context.Context, token string) error
}

// RevocationList records access token IDs that must no longer be accepted.
// Entries expire on their own once the token itself would have expired.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NewToken returns an opaque session token.
func NewToken() string {
	return uuid.NewString()
}
