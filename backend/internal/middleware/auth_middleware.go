package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/auth"
	"github.com/user/nftmarket/backend/internal/logger"
)

// Locals keys set by Protected.
const (
	LocalPrincipal = "principal"
	LocalUsername  = "username"
)

// Protected is a middleware function to verify JWT authentication.
func Protected(signer *auth.Signer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization header format"})
		}

		claims, err := signer.ValidateJWT(parts[1])
		if err != nil {
			logger.Debug("jwt validation failed", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		// Store identity in context for downstream handlers
		c.Locals(LocalPrincipal, claims.Principal)
		c.Locals(LocalUsername, claims.Username)
		return c.Next()
	}
}
