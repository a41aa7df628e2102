package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/livestock-marketplace/backend/internal/auth"
	"github.com/livestock-marketplace/backend/internal/config"
	"go.uber.org/zap"
)

const (
	CtxPartyID = "party_id"
	CtxService = "service"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxPartyID, claims.PartyID)
		c.Locals(CtxService, claims.Service)

		return c.Next()
	}
}

func GetPartyID(c *fiber.Ctx) string {
	id, _ := c.Locals(CtxPartyID).(string)
	return id
}

func GetService(c *fiber.Ctx) string {
	s, _ := c.Locals(CtxService).(string)
	return s
}
