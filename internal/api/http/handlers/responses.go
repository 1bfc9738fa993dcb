package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orderme/internal/api/dto"
	"github.com/spec-kit/orderme/internal/auth"
	"github.com/spec-kit/orderme/internal/domain"
	"github.com/spec-kit/orderme/internal/service"
	apperrors "github.com/spec-kit/orderme/pkg/util/errorutil"
)

func tokenResponse(t domain.IssuedToken) dto.TokenResponse {
	return dto.TokenResponse{
		Token:     t.Token,
		Type:      string(t.Class),
		ExpiresIn: t.ExpiresIn(),
		ExpiresAt: t.ExpiresAt,
	}
}

func sessionResponse(s service.Session) dto.SessionResponse {
	return dto.SessionResponse{
		Access:  tokenResponse(s.Access),
		Refresh: tokenResponse(s.Refresh),
	}
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		BirthDate:   u.BirthDate.Format("2006-01-02"),
		Gender:      string(u.Gender),
		CreatedAt:   u.CreatedAt,
	}
}

func adminResponse(a *domain.Admin) dto.AdminResponse {
	return dto.AdminResponse{ID: a.ID, StoreID: a.StoreID, CreatedAt: a.CreatedAt}
}

// currentIdentity returns the identity the gate attached to the request.
func currentIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("unauthenticated")
	}
	return identity, nil
}
