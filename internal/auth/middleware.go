package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orderme/internal/domain"
	apperrors "github.com/spec-kit/orderme/pkg/util/errorutil"
)

const identityKey = "auth_identity"

const unauthenticated = "unauthenticated"

// TokenValidator resolves a bearer token into an identity.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (domain.Identity, error)
}

// AuthMiddleware authenticates every request outside the public allow-list.
type AuthMiddleware struct {
	tokens TokenValidator
	public []pathRule
}

type pathRule struct {
	path   string
	prefix bool
}

// NewAuthMiddleware constructs middleware. Public paths are matched exactly,
// or by prefix when they end in "/**".
func NewAuthMiddleware(tokens TokenValidator, publicPaths []string) *AuthMiddleware {
	rules := make([]pathRule, 0, len(publicPaths))
	for _, p := range publicPaths {
		if base, ok := strings.CutSuffix(p, "/**"); ok {
			rules = append(rules, pathRule{path: base, prefix: true})
			continue
		}
		rules = append(rules, pathRule{path: normalizePath(p)})
	}
	return &AuthMiddleware{tokens: tokens, public: rules}
}

// Handle authenticates or rejects, before any downstream handler runs.
// Rejections carry no detail about why the token was refused.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if m.isPublic(c.Path()) {
		return c.Next()
	}

	token, err := BearerToken(c)
	if err != nil {
		return err
	}

	identity, err := m.tokens.Validate(c.UserContext(), token)
	if err != nil {
		return apperrors.NewUnauthorized(unauthenticated)
	}

	c.Locals(identityKey, identity)
	c.SetUserContext(domain.WithIdentity(c.UserContext(), identity))
	return c.Next()
}

func (m *AuthMiddleware) isPublic(path string) bool {
	path = normalizePath(path)
	for _, rule := range m.public {
		if path == rule.path {
			return true
		}
		if rule.prefix && strings.HasPrefix(path, rule.path+"/") {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	if len(p) > 1 {
		return strings.TrimRight(p, "/")
	}
	return p
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperrors.NewUnauthorized(unauthenticated)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized(unauthenticated)
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
