package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Clock returns the current time.
type Clock func() time.Time

// Signer signs and verifies token claims with a single HS256 secret.
type Signer struct {
	secret  []byte
	options []jwt.ParserOption
}

// NewSigner builds a signer. A nil clock falls back to time.Now.
func NewSigner(secret string, clock Clock) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Signer{
		secret: []byte(secret),
		options: []jwt.ParserOption{
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock),
		},
	}, nil
}

// Sign serializes and signs claims.
func (s *Signer) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature first and the embedded expiry second.
func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, s.options...)
	if err != nil {
		return nil, classifyJWTError(err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
}
