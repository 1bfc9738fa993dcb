package auth

import "errors"

// Rejection reasons. Validate wraps every one of them in ErrInvalidToken so
// callers at the trust boundary only ever need to check the umbrella error.
var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrMalformedClaims      = errors.New("malformed claims")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrExpired              = errors.New("token expired")
	ErrRevoked              = errors.New("token revoked")
	ErrAuthorityUnavailable = errors.New("token authority unavailable")
)

var (
	ErrUnknownTokenClass = errors.New("unknown token class")
	ErrInvalidLifetime   = errors.New("token lifetime must be at least one second")
	ErrEmptySubject      = errors.New("token subject is required")
)

// rejectionReason maps an error onto a short label for logs and metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrAuthorityUnavailable):
		return "unavailable"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "signature"
	default:
		return "malformed"
	}
}
