package controller

import (
	"context"
	"errors"
	"strconv"
	"time"

	"floatchat-be/internal/dto"
	"floatchat-be/internal/pkg/logger"
	"floatchat-be/internal/pkg/serverutils"
	"floatchat-be/pkg/ocean"

	"github.com/gofiber/fiber/v2"
)

const landingPage = `<!DOCTYPE html>
<html>
<head><title>FloatChat backend</title></head>
<body>
<h1>FloatChat backend</h1>
<p>Connect a websocket to <code>/ws</code> and send <code>{"query": "temperature near 10N 65E"}</code>.</p>
<p>Progress arrives as <code>{"stage": ..., "message": ...}</code> frames and the turn ends with a <code>result</code>, <code>error</code> or <code>no_function_call</code> frame.</p>
</body>
</html>`

type sessionCounter interface {
	Count() int
}

type contextLister interface {
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, page, limit int) ([]ocean.ContextRecord, error)
}

type ISystemController interface {
	RegisterRoutes(app fiber.Router, api fiber.Router, protect ...fiber.Handler)
	Index(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
	GetContexts(ctx *fiber.Ctx) error
}

type systemController struct {
	sessions sessionCounter
	contexts contextLister
	logger   logger.ILogger
	started  time.Time
}

func NewSystemController(sessions sessionCounter, contexts contextLister, log logger.ILogger) ISystemController {
	return &systemController{
		sessions: sessions,
		contexts: contexts,
		logger:   log,
		started:  time.Now(),
	}
}

// RegisterRoutes mounts the landing page on app and the operator endpoints
// on api. protect, when given, guards the log and context readers.
func (c *systemController) RegisterRoutes(app fiber.Router, api fiber.Router, protect ...fiber.Handler) {
	app.Get("/", c.Index)
	api.Get("/health", c.Health)

	logs := api.Group("/logs", protect...)
	logs.Get("/", c.GetLogs)
	logs.Get("/:id", c.GetLogDetail)

	contexts := append([]fiber.Handler{}, protect...)
	api.Get("/contexts", append(contexts, c.GetContexts)...)
}

func (c *systemController) Index(ctx *fiber.Ctx) error {
	ctx.Type("html", "utf-8")
	return ctx.SendString(landingPage)
}

func (c *systemController) Health(ctx *fiber.Ctx) error {
	res := dto.HealthResponse{
		Status:         "ok",
		ActiveSessions: c.sessions.Count(),
		Uptime:         time.Since(c.started).Round(time.Second).String(),
	}

	stored, err := c.contexts.Count(ctx.UserContext())
	if err != nil {
		c.logger.Warn("SYSTEM", "Context store unavailable", map[string]interface{}{"error": err.Error()})
		res.Status = "degraded"
		stored = -1
	}
	res.StoredContexts = stored

	return ctx.JSON(serverutils.SuccessResponse("Health", res))
}

func pageParams(ctx *fiber.Ctx, defaultLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(ctx.Query("page", "1"))
	limit, _ = strconv.Atoi(ctx.Query("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return page, limit
}

func (c *systemController) GetLogs(ctx *fiber.Ctx) error {
	page, limit := pageParams(ctx, 50, 500)
	level := ctx.Query("level", "")

	logs, err := c.logger.GetLogs(level, limit, (page-1)*limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}

func (c *systemController) GetLogDetail(ctx *fiber.Ctx) error {
	entry, err := c.logger.GetLogById(ctx.Params("id"))
	if errors.Is(err, logger.ErrLogNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Log not found"))
	}
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", entry))
}

// GetContexts lists the stored analysed turns, newest first.
func (c *systemController) GetContexts(ctx *fiber.Ctx) error {
	page, limit := pageParams(ctx, 20, 100)

	records, err := c.contexts.Recent(ctx.UserContext(), page, limit)
	if err != nil {
		c.logger.Error("SYSTEM", "Failed to list contexts", map[string]interface{}{"error": err.Error()})
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, "Context store unavailable"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Stored contexts", records))
}
