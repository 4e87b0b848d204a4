// Package api wires the HTTP surface of the bundler service.
package api

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/deco-sites/bundler/internal/bundler"
	"github.com/deco-sites/bundler/internal/config"
	"github.com/deco-sites/bundler/internal/middleware"
	"github.com/deco-sites/bundler/internal/observability"
)

// Server represents the HTTP server
type Server struct {
	app         *fiber.App
	config      *config.Config
	backend     bundler.Backend
	backendName string
	metrics     *observability.Metrics
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config) (*Server, error) {
	app := fiber.New(fiber.Config{
		ServerHeader:          "Bundler",
		AppName:               "Bundler v1.0.0",
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          customErrorHandler,
	})

	backendName, backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	server := &Server{
		app:         app,
		config:      cfg,
		backend:     backend,
		backendName: backendName,
		metrics:     observability.NewMetrics(),
	}

	server.setupMiddlewares()
	server.setupRoutes()

	return server, nil
}

// newBackend selects the build backend from configuration. An explicitly
// configured cli backend with no usable esbuild binary is a startup error,
// not a silent downgrade to the in-process engine.
func newBackend(cfg *config.Config) (string, bundler.Backend, error) {
	if cfg.Build.Backend == config.BackendCLI {
		cli, err := bundler.NewCLI(cfg.Build.WorkDir, cfg.Build.Timeout)
		if err != nil {
			return "", nil, fmt.Errorf("cli backend configured but unavailable: %w", err)
		}
		return config.BackendCLI, cli, nil
	}
	return config.BackendEngine, bundler.NewEngine(), nil
}

func (s *Server) setupMiddlewares() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(cors.New())
	s.app.Use(middleware.StructuredLogger())
}

// setupRoutes sets up all routes. Builds are accepted via POST on any path.
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.metrics.Handler())
	s.app.Post("/*", s.handleBuild)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.app.Listen(s.config.Server.Address())
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Error().
		Err(err).
		Int("status", code).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("Request error")

	return c.Status(code).JSON(fiber.Map{"error": message})
}
