package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/orderme/internal/domain"
)

// TokenRepository keeps token validity flags in Redis. Records expire with
// their tokens, so nothing outlives natural expiry.
type TokenRepository struct {
	client  redis.Cmdable
	timeout time.Duration
}

// NewTokenRepository constructs the Redis revocation store. Each call is
// bounded by timeout.
func NewTokenRepository(client redis.Cmdable, timeout time.Duration) *TokenRepository {
	return &TokenRepository{client: client, timeout: timeout}
}

// Put writes status with an expiry in a single SET.
func (r *TokenRepository) Put(ctx context.Context, key string, status domain.TokenStatus, ttl time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Set(ctx, key, string(status), ttl).Err()
}

// Get reads the flag; a missing key is reported as TokenStatusAbsent and any
// unrecognized value as invalid.
func (r *TokenRepository) Get(ctx context.Context, key string) (domain.TokenStatus, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.TokenStatusAbsent, nil
	}
	if err != nil {
		return domain.TokenStatusAbsent, err
	}

	switch domain.TokenStatus(val) {
	case domain.TokenStatusValid:
		return domain.TokenStatusValid, nil
	default:
		return domain.TokenStatusInvalid, nil
	}
}

// Invalidate overwrites an existing record with invalid and keeps its TTL.
// Missing keys are left missing.
func (r *TokenRepository) Invalidate(ctx context.Context, key string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.client.SetArgs(ctx, key, string(domain.TokenStatusInvalid), redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *TokenRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
