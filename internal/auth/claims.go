package auth

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/orderme/internal/domain"
)

// Claims describes the signed token payload.
//
// Context carries optional data bound to the token: the terminal id for
// kiosk tokens, or the access class a refresh token mints.
type Claims struct {
	Class   domain.TokenClass `json:"type"`
	Context string            `json:"ctx,omitempty"`
	jwt.RegisteredClaims
}

// NewClaims builds the payload for a new token. Every call gets a fresh jti.
func NewClaims(subject string, class domain.TokenClass, context string, issuedAt, expiresAt time.Time) *Claims {
	return &Claims{
		Class:   class,
		Context: context,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

// Validate is invoked by the jwt parser once the standard checks pass and
// rejects payloads missing any required field.
func (c *Claims) Validate() error {
	switch {
	case c.Subject == "":
		return fmt.Errorf("%w: missing sub", ErrMalformedClaims)
	case !c.Class.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrMalformedClaims, c.Class)
	case c.ID == "":
		return fmt.Errorf("%w: missing jti", ErrMalformedClaims)
	case c.IssuedAt == nil:
		return fmt.Errorf("%w: missing iat", ErrMalformedClaims)
	case c.ExpiresAt == nil:
		return fmt.Errorf("%w: missing exp", ErrMalformedClaims)
	}
	return nil
}

// Identity projects the claims onto the request-scoped identity.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		Subject: c.Subject,
		Class:   c.Class,
		Context: c.Context,
	}
}
