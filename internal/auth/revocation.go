package auth

import (
	"context"
	"time"

	"github.com/spec-kit/orderme/internal/domain"
)

const revocationKeyPrefix = "token:"

// RevocationKey returns the store key holding the validity flag of token.
func RevocationKey(token string) string {
	return revocationKeyPrefix + token
}

// RevocationStore records the live validity of issued tokens. Every method
// is a network round trip and may fail; callers must never treat a failure
// as a valid token.
type RevocationStore interface {
	// Put writes status under key with a store-managed expiry in one atomic call.
	Put(ctx context.Context, key string, status domain.TokenStatus, ttl time.Duration) error
	// Get returns TokenStatusAbsent when no record exists.
	Get(ctx context.Context, key string) (domain.TokenStatus, error)
	// Invalidate flips an existing record to invalid without touching its expiry.
	Invalidate(ctx context.Context, key string) error
}
