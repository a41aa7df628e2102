package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/livestock-marketplace/backend/internal/auth"
	"github.com/livestock-marketplace/backend/internal/config"
	"github.com/livestock-marketplace/backend/internal/http/dto"
	"go.uber.org/zap"
)

type AuthHandler struct {
	cfg *config.Config
	log *zap.Logger
}

func NewAuthHandler(cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, log: log}
}

// IssueToken exchanges a pre-shared service key for a JWT. Lifecycle
// callers (UI backend, marketplace services) authenticate this way; end
// users never hit this API directly.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if !h.cfg.IsServiceKey(req.ServiceKey) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid service key"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, req.PartyID, req.Service, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to issue token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.TokenResponse{Token: token})
}
