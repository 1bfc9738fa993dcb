package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orderme/internal/domain"
	apperrors "github.com/spec-kit/orderme/pkg/util/errorutil"
)

// RequireClass admits only identities minted for one of the allowed classes.
func RequireClass(allowed ...domain.TokenClass) fiber.Handler {
	allowedSet := make(map[domain.TokenClass]struct{}, len(allowed))
	for _, class := range allowed {
		allowedSet[class] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(unauthenticated)
		}
		if _, exists := allowedSet[identity.Class]; !exists {
			return apperrors.NewForbidden("token class not permitted")
		}
		return c.Next()
	}
}
