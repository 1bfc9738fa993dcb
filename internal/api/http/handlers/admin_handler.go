package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orderme/internal/api/dto"
	"github.com/spec-kit/orderme/internal/service"
)

// AdminHandler exposes store administrator endpoints.
type AdminHandler struct {
	auth *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{auth: authService}
}

// Login handles POST /api/auth/admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.ID == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "id and password required")
	}

	admin, session, err := h.auth.AdminLogin(c.UserContext(), req.ID, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"admin": adminResponse(admin),
			"auth":  sessionResponse(session),
		},
	})
}

// Register handles POST /api/auth/admin/register.
func (h *AdminHandler) Register(c *fiber.Ctx) error {
	var req dto.AdminRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	admin, err := h.auth.AdminRegister(c.UserContext(), req.ID, req.Password, req.StoreID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": adminResponse(admin)})
}

// Me handles GET /api/admin/me.
func (h *AdminHandler) Me(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	admin, err := h.auth.CurrentAdmin(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminResponse(admin)})
}
