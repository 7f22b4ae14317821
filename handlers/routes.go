// handlers/routes.go
package handlers

import (
	"coin-task-desk/middleware"
	"coin-task-desk/services"
	"coin-task-desk/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the engine over HTTP.
type Handler struct {
	engine *services.Engine
	sync   *services.SyncOrchestrator
	clock  *workers.SessionClock
}

func NewHandler(engine *services.Engine, sync *services.SyncOrchestrator, clock *workers.SessionClock) *Handler {
	return &Handler{engine: engine, sync: sync, clock: clock}
}

func SetupRoutes(app *fiber.App, h *Handler) {
	// 🔓 Public routes: no user context, but still behind Gateway auth
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Post("/auth/login", h.Login)
	app.Get("/tasks", h.ListTasks)
	app.Get("/tasks/:id", h.GetTask)

	// 🔐 Secured routes: require X-User-ID from the gateway
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/tasks", h.CreateTask)
	secured.Patch("/tasks/:id", h.UpdateTask)
	secured.Post("/tasks/:id/bids", h.SubmitBid)
	secured.Post("/tasks/:id/evaluate", h.MarkEvaluating)
	secured.Post("/tasks/:id/award", h.Award)
	secured.Post("/tasks/:id/finalize", h.Finalize)
	secured.Post("/tasks/:id/cancel", h.Cancel)

	secured.Get("/me", h.Me)
	secured.Get("/me/transactions", h.MyTransactions)
	secured.Post("/deposits", h.RequestDeposit)
	secured.Get("/sync", h.Sync)
	secured.Post("/session/heartbeat", h.Heartbeat)
	secured.Post("/session/stop", h.StopSession)

	admin := secured.Group("/admin", middleware.AdminOnly(h.engine))
	admin.Get("/users", h.ListUsers)
	admin.Get("/transactions", h.ListAllTransactions)
	admin.Post("/transactions/:id/approve", h.ApproveTransaction)
	admin.Post("/transactions/:id/reject", h.RejectTransaction)
	admin.Post("/sweep", h.Sweep)
}
