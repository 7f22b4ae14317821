// handlers/tasks.go
package handlers

import (
	"coin-task-desk/middleware"
	"coin-task-desk/models"
	"coin-task-desk/services"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.engine.ListTasks(c.UserContext(), models.TaskStatus(c.Query("status")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	task, err := h.engine.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	var draft services.TaskDraft
	if err := c.BodyParser(&draft); err != nil {
		return badRequest(c, "invalid request body")
	}
	task, err := h.engine.CreateTask(c.UserContext(), middleware.UserID(c), draft)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	var patch services.TaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "invalid request body")
	}
	task, err := h.engine.UpdateTaskDetails(c.UserContext(), middleware.UserID(c), c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

func (h *Handler) SubmitBid(c *fiber.Ctx) error {
	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	task, err := h.engine.SubmitBid(c.UserContext(), middleware.UserID(c), c.Params("id"), body.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *Handler) MarkEvaluating(c *fiber.Ctx) error {
	task, err := h.engine.MarkEvaluating(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// Award picks a winner. Without a bidId the creator gets the lowest bid and
// any other caller accepts the task directly.
func (h *Handler) Award(c *fiber.Ctx) error {
	var body struct {
		BidID string `json:"bidId"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	task, err := h.engine.AwardManually(c.UserContext(), middleware.UserID(c), c.Params("id"), body.BidID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// Finalize releases payment. The reward defaults to the awarded bid amount.
func (h *Handler) Finalize(c *fiber.Ctx) error {
	var body struct {
		Reward int64 `json:"reward"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	ctx := c.UserContext()
	taskID := c.Params("id")
	if body.Reward == 0 {
		task, err := h.engine.GetTask(ctx, taskID)
		if err != nil {
			return respondError(c, err)
		}
		body.Reward = task.HighestBid
	}
	settlement, err := h.engine.FinalizeTask(ctx, middleware.UserID(c), taskID, body.Reward)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settlement)
}

func (h *Handler) Cancel(c *fiber.Ctx) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	task, err := h.engine.CancelTask(c.UserContext(), middleware.UserID(c), c.Params("id"), body.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}
