// handlers/account.go
package handlers

import (
	"errors"

	"coin-task-desk/middleware"
	"coin-task-desk/services"
	"coin-task-desk/workers"

	"github.com/gofiber/fiber/v2"
)

// Login finds or creates the profile for the signed-in email and starts a
// session. Admin status comes from the gateway's role header only.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		ProfilePic string `json:"profilePic"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.UserContext()
	profile, err := h.engine.AuthenticateOrCreateProfile(ctx, services.LoginRequest{
		Username:   body.Username,
		Email:      body.Email,
		ProfilePic: body.ProfilePic,
		IsAdmin:    middleware.HasRole(middleware.ParseRoles(c.Get("X-User-Roles")), "admin"),
	})
	if err != nil {
		return respondError(c, err)
	}
	sessionID := h.clock.Start(ctx, profile.ID, profile.IsAdmin)
	return c.JSON(fiber.Map{
		"profile":   profile,
		"sessionId": sessionID,
	})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	profile, err := h.engine.GetProfile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

func (h *Handler) MyTransactions(c *fiber.Ctx) error {
	txns, err := h.engine.ListUserTransactions(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txns})
}

func (h *Handler) RequestDeposit(c *fiber.Ctx) error {
	var body struct {
		Amount int64  `json:"amount"`
		UTR    string `json:"utr"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	txn, err := h.engine.RequestDeposit(c.UserContext(), middleware.UserID(c), body.Amount, body.UTR)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(txn)
}

func (h *Handler) Sync(c *fiber.Ctx) error {
	snap, err := h.sync.Sync(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// Heartbeat keeps the caller's session alive, reopening it if it expired.
func (h *Handler) Heartbeat(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	sessionID, err := h.clock.Heartbeat(userID)
	if errors.Is(err, workers.ErrNoSession) {
		profile, perr := h.engine.GetProfile(c.UserContext(), userID)
		if perr != nil {
			return respondError(c, perr)
		}
		sessionID = h.clock.Start(c.UserContext(), profile.ID, profile.IsAdmin)
	}
	return c.JSON(fiber.Map{"sessionId": sessionID})
}

func (h *Handler) StopSession(c *fiber.Ctx) error {
	if err := h.clock.Stop(c.UserContext(), middleware.UserID(c)); err != nil && !errors.Is(err, workers.ErrNoSession) {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
