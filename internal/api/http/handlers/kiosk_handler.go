package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orderme/internal/api/dto"
	"github.com/spec-kit/orderme/internal/auth"
	"github.com/spec-kit/orderme/internal/service"
)

// KioskHandler exposes kiosk session endpoints.
type KioskHandler struct {
	auth *service.AuthService
}

// NewKioskHandler constructs handler.
func NewKioskHandler(authService *service.AuthService) *KioskHandler {
	return &KioskHandler{auth: authService}
}

// PhoneLogin handles POST /api/auth/kiosk/phone-login.
func (h *KioskHandler) PhoneLogin(c *fiber.Ctx) error {
	var req dto.KioskPhoneLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.PhoneNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "phone_number required")
	}

	user, token, err := h.auth.KioskPhoneLogin(c.UserContext(), req.PhoneNumber, req.KioskID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": tokenResponse(token),
		},
	})
}

// ExtendSession handles POST /api/auth/kiosk/extend-session. The presented
// token stays valid until its own expiry.
func (h *KioskHandler) ExtendSession(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	var req dto.KioskExtendRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
	}

	token, err := h.auth.ExtendKioskSession(c.UserContext(), identity, req.KioskID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tokenResponse(token)})
}

// Logout handles POST /api/auth/kiosk/logout.
func (h *KioskHandler) Logout(c *fiber.Ctx) error {
	return logout(c, h.auth)
}

func logout(c *fiber.Ctx, svc *service.AuthService) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	token, err := auth.BearerToken(c)
	if err != nil {
		return err
	}
	if err := svc.Logout(c.UserContext(), identity, token); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
