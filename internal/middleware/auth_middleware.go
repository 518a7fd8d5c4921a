package middleware

import (
	"strings"

	"go-stock-ledger/internal/service"
	"go-stock-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth validates the bearer token, resolves the claimed actor id to
// a live attribution (unknown or deactivated actors fall back to the
// configured default with Known=false) and sets actor info in context so
// every mutation downstream can attribute its audit rows.
func RequireAuth(resolver *service.ActorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := jwt.ValidateToken(parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		actor := resolver.Resolve(c.Context(), claims.ActorID.String())
		c.Locals("actor_id", actor.ID)
		c.Locals("actor_name", actor.Name)
		c.Locals("actor_known", actor.Known)
		c.Locals("actor_email", claims.Email)

		return c.Next()
	}
}
