// middleware/admin.go
package middleware

import (
	"context"
	"log"

	"coin-task-desk/models"

	"github.com/gofiber/fiber/v2"
)

type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// AdminOnly lets the request through only when the caller's profile is
// flagged as admin. Must run after UserContextMiddleware.
func AdminOnly(profiles ProfileLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		p, err := profiles.GetProfile(c.UserContext(), userID)
		if err != nil || !p.IsAdmin {
			log.Printf("🚫 [USER_CTX] Admin route %s refused for %q", c.Path(), userID)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin privileges required",
				"kind":  "Forbidden",
			})
		}
		return c.Next()
	}
}
