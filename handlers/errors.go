// handlers/errors.go
package handlers

import (
	"log"

	"coin-task-desk/services"

	"github.com/gofiber/fiber/v2"
)

var kindStatus = map[services.Kind]int{
	services.KindNotFound:            fiber.StatusNotFound,
	services.KindInvalidState:        fiber.StatusConflict,
	services.KindInsufficientBalance: fiber.StatusPaymentRequired,
	services.KindInvalidBid:          fiber.StatusBadRequest,
	services.KindInvalidInput:        fiber.StatusBadRequest,
	services.KindForbidden:           fiber.StatusForbidden,
	services.KindConflict:            fiber.StatusConflict,
}

// respondError writes an engine failure as {"error", "kind"}. Anything that
// is not a typed engine error is logged and reported as a 500.
func respondError(c *fiber.Ctx, err error) error {
	kind := services.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Printf("❌ %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"kind":  string(services.KindInvalidInput),
	})
}
