// handlers/admin.go
package handlers

import (
	"coin-task-desk/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.engine.ListProfiles(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *Handler) ListAllTransactions(c *fiber.Ctx) error {
	txns, err := h.engine.ListAllTransactions(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txns})
}

func (h *Handler) ApproveTransaction(c *fiber.Ctx) error {
	txn, err := h.engine.ApproveTransaction(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(txn)
}

func (h *Handler) RejectTransaction(c *fiber.Ctx) error {
	txn, err := h.engine.RejectTransaction(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(txn)
}

func (h *Handler) Sweep(c *fiber.Ctx) error {
	res, err := h.engine.SweepExpiredAuctions(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
