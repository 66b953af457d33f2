package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/chat-relay/modules/broadcast"
	"github.com/example/chat-relay/modules/files"
	"github.com/example/chat-relay/modules/media"
	"github.com/example/chat-relay/modules/registry"
)

// Config carries the gateway's HTTP settings.
type Config struct {
	Addr           string
	AllowedOrigins string
	MaxUploadSize  int64
}

// Module serves the WebSocket endpoint and HTTP API using Fiber.
type Module struct {
	app      *fiber.App
	handlers *Handlers
	cfg      Config
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)

// NewModule creates a new gateway module.
func NewModule(cfg Config, engine *registry.Engine, hub *broadcast.Hub, moduleLogger types.Logger) *Module {
	handlers := NewHandlers(engine, hub, moduleLogger)
	handlers.maxUploadSize = cfg.MaxUploadSize
	return &Module{
		handlers: handlers,
		cfg:      cfg,
		logger:   moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "gateway"
}

// Dependencies declares the modules whose services the gateway calls.
func (m *Module) Dependencies() []string {
	return []string{"registry", "media", "files"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "registry":
		m.handlers.registryPort = registry.NewAdapter(container)
	case "media":
		m.handlers.mediaPort = media.NewAdapter(container)
	case "files":
		m.handlers.filesPort = files.NewAdapter(container)
	}
}

// Start initializes and starts the HTTP server.
func (m *Module) Start(ctx context.Context) error {
	if m.handlers.registryPort == nil || m.handlers.mediaPort == nil || m.handlers.filesPort == nil {
		return fmt.Errorf("gateway dependencies not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "Chat Relay",
		DisableStartupMessage: true,
		BodyLimit:             int(m.cfg.MaxUploadSize) + 1024*1024,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
	}))
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.registerRoutes()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	m.logger.Info("Gateway started", "addr", m.cfg.Addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("Gateway stopped")
	return nil
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	// WebSocket upgrade middleware
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	m.app.Post("/upload", m.handlers.UploadFile)
	m.app.Get("/uploads/:name", m.handlers.ServeUpload)
	m.app.Get("/search-gifs", m.handlers.SearchGifs)

	api := m.app.Group("/api/v1")
	api.Get("/rooms/:code", m.handlers.GetRoom)
	api.Get("/rooms/:code/history", m.handlers.GetRoomHistory)
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
