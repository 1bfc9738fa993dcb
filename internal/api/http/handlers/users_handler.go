package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orderme/internal/api/dto"
	"github.com/spec-kit/orderme/internal/service"
)

// UsersHandler exposes registration and profile endpoints for app users.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// RequestVerification handles POST /api/auth/verify/request.
func (h *UsersHandler) RequestVerification(c *fiber.Ctx) error {
	var req dto.VerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.PhoneNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "phone_number required")
	}

	ticket, err := h.auth.RequestVerification(c.UserContext(), service.VerificationRequest{
		Name:           req.Name,
		IDNumberFront:  req.IDNumberFront,
		IDNumberGender: req.IDNumberGender,
		PhoneNumber:    req.PhoneNumber,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": dto.VerificationResponse{VerificationID: ticket.ID, ExpiresIn: ticket.ExpiresIn},
	})
}

// ConfirmVerification handles POST /api/auth/verify/confirm.
func (h *UsersHandler) ConfirmVerification(c *fiber.Ctx) error {
	var req dto.VerificationConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.VerificationID == "" || req.Code == "" || req.PhoneNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "verification_id, code and phone_number required")
	}

	user, session, err := h.auth.ConfirmVerification(c.UserContext(), service.RegistrationRequest{
		VerificationID: req.VerificationID,
		Code:           req.Code,
		Name:           req.Name,
		IDNumberFront:  req.IDNumberFront,
		IDNumberGender: req.IDNumberGender,
		PhoneNumber:    req.PhoneNumber,
		Password:       req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": sessionResponse(session),
		},
	})
}

// Refresh handles POST /api/auth/refresh.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken == "" {
		return fiber.NewError(http.StatusBadRequest, "refresh_token required")
	}

	token, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tokenResponse(token)})
}

// Logout handles POST /api/auth/logout for any token class.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	return logout(c, h.auth)
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	user, err := h.auth.CurrentUser(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}
