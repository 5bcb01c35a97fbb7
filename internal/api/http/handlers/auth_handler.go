package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jtec/maintenance-service/internal/api/dto"
	"github.com/jtec/maintenance-service/internal/service"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

// AuthHandler manages registration and login endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, token, exp, err := h.service.Register(c.Context(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Nom:          req.Nom,
		Role:         req.Role,
		RegieID:      req.RegieID,
		EntrepriseID: req.EntrepriseID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:     token,
			ExpiresAt: exp,
			Profile:   profileResponse(profile),
		},
		"message": "profile created",
	})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, token, exp, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:     token,
			ExpiresAt: exp,
			Profile:   profileResponse(profile),
		},
		"message": "login successful",
	})
}
