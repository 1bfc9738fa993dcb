package repository

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/redis/go-redis/v9"
)

const verificationKeyPrefix = "sms:verification:"

// MaxVerificationAttempts is how many wrong guesses a pending code survives.
const MaxVerificationAttempts = 5

// recordFailedAttempt bumps the attempt counter of a live entry and deletes
// it once the limit is reached. A missing key is left alone so no counter is
// created without a TTL.
var recordFailedAttempt = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local attempts = redis.call("HINCRBY", KEYS[1], "attempts", 1)
if attempts >= tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
end
return attempts
`)

// Verification is a pending SMS code bound to a phone number.
type Verification struct {
	ID          string
	PhoneNumber string
	Code        string
}

// VerificationRepository stores short-lived SMS verification codes.
type VerificationRepository interface {
	Save(ctx context.Context, v Verification, ttl time.Duration) error
	// Consume reports whether phone and code match the stored entry and
	// deletes it on a match, so a code can only be used once. Mismatches
	// count against the entry, which is dropped after
	// MaxVerificationAttempts of them.
	Consume(ctx context.Context, id, phone, code string) (bool, error)
}

type verificationRepository struct {
	client redis.Cmdable
}

// NewVerificationRepository returns a Redis hash backed implementation.
func NewVerificationRepository(client redis.Cmdable) VerificationRepository {
	return &verificationRepository{client: client}
}

func (r *verificationRepository) Save(ctx context.Context, v Verification, ttl time.Duration) error {
	key := verificationKeyPrefix + v.ID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "phoneNumber", v.PhoneNumber, "code", v.Code)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (r *verificationRepository) Consume(ctx context.Context, id, phone, code string) (bool, error) {
	key := verificationKeyPrefix + id
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if len(fields) == 0 {
		return false, nil
	}

	phoneOK := subtle.ConstantTimeCompare([]byte(fields["phoneNumber"]), []byte(phone)) == 1
	codeOK := subtle.ConstantTimeCompare([]byte(fields["code"]), []byte(code)) == 1
	if !phoneOK || !codeOK {
		if err := recordFailedAttempt.Run(ctx, r.client, []string{key}, MaxVerificationAttempts).Err(); err != nil {
			return false, err
		}
		return false, nil
	}

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	// A concurrent confirmation already consumed the code.
	return deleted == 1, nil
}
