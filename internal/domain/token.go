package domain

import (
	"context"
	"fmt"
	"time"
)

// TokenClass identifies the actor a bearer token was minted for.
type TokenClass string

const (
	TokenClassApp     TokenClass = "APP"
	TokenClassKiosk   TokenClass = "KIOSK"
	TokenClassRefresh TokenClass = "REFRESH"
	TokenClassAdmin   TokenClass = "ADMIN"
)

// Valid reports whether c is one of the known token classes.
func (c TokenClass) Valid() bool {
	switch c {
	case TokenClassApp, TokenClassKiosk, TokenClassRefresh, TokenClassAdmin:
		return true
	}
	return false
}

// ParseTokenClass converts a raw claim value into a TokenClass.
func ParseTokenClass(raw string) (TokenClass, error) {
	class := TokenClass(raw)
	if !class.Valid() {
		return "", fmt.Errorf("unknown token class %q", raw)
	}
	return class, nil
}

// TokenStatus is the validity flag kept in the revocation store.
type TokenStatus string

const (
	TokenStatusValid   TokenStatus = "valid"
	TokenStatusInvalid TokenStatus = "invalid"
	// TokenStatusAbsent means the store holds no record; treated as invalid.
	TokenStatusAbsent TokenStatus = ""
)

// Identity is the caller resolved from a validated bearer token. It only
// lives for the duration of a request.
type Identity struct {
	Subject string
	Class   TokenClass
	Context string
}

// IssuedToken is a freshly minted bearer token and its signed timestamps.
type IssuedToken struct {
	Token     string
	Class     TokenClass
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresIn returns the token lifetime in whole seconds.
func (t IssuedToken) ExpiresIn() int64 {
	return int64(t.ExpiresAt.Sub(t.IssuedAt) / time.Second)
}

type identityKey struct{}

// WithIdentity attaches the resolved identity to ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
