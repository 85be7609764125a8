// Package router provides HTTP routing, middleware configuration, and server setup for the admin API
package router

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/oliateam/leadfunnel/app/dto"
	"github.com/oliateam/leadfunnel/app/handlers"
	"github.com/oliateam/leadfunnel/app/middleware"
	"github.com/oliateam/leadfunnel/config"
	"github.com/oliateam/leadfunnel/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app     *fiber.App
	admin   handlers.AdminHandlerInterface
	metrics config.MetricsConfig
}

// NewFiberRouter creates the admin/ops server
func NewFiberRouter(serverCfg config.ServerConfig, metricsCfg config.MetricsConfig, admin handlers.AdminHandlerInterface) Router {
	app := fiber.New(fiber.Config{
		AppName:      "leadfunnel admin API",
		ServerHeader: "leadfunnel",
		ErrorHandler: errorHandler,
		BodyLimit:    serverCfg.BodyLimit,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:     app,
		admin:   admin,
		metrics: metricsCfg,
	}
}

// SetupRoutes configures middleware and all admin routes
func (r *FiberRouter) SetupRoutes() {
	r.app.Use(recover.New())
	r.app.Use(requestid.New())
	r.app.Use(logger.New())
	if r.metrics.Enabled {
		r.app.Use(middleware.Metrics())
		r.app.Get(r.metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	r.app.Get("/health", r.healthCheck)

	api := r.app.Group("/api/v1")
	api.Get("/leads", r.admin.GetLeads)
	api.Get("/notes/:id/stats", r.admin.GetNoteStats)
	api.Get("/export/note-stats.xlsx", r.admin.ExportNoteStats)
}

// Start begins listening on the given address
func (r *FiberRouter) Start(address string) error {
	return r.app.Listen(address)
}

// Shutdown drains connections and stops the server
func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

// GetApp exposes the underlying Fiber app, mainly for tests
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Format(time.RFC3339),
		},
	})
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}
