package server

import (
	"context"
	"log"
	"net"

	"flowchat-be/internal/bootstrap"
	"flowchat-be/internal/config"
	"flowchat-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "flowchat-be",
		BodyLimit:             1 * 1024 * 1024, // 1MB
		DisableStartupMessage: true,
		ErrorHandler:          serverutils.ErrorHandler(container.Logger),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.CorsAllowedOrigins,
		// fiber refuses credentials together with a wildcard origin
		AllowCredentials: cfg.App.CorsAllowedOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware(container.Logger))

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

// Serve runs the app on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown closes realtime connections first, then drains HTTP requests and
// stops the hub loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.container.WebSocketHub.CloseAll()
	err := s.app.ShutdownWithContext(ctx)
	s.container.WebSocketHub.Stop()
	return err
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.SessionController.RegisterRoutes(api)
	c.ChatController.RegisterRoutes(api)
	c.FlowController.RegisterRoutes(api)
	c.HealthController.RegisterRoutes(api)

	c.RealtimeHandler.RegisterRoutes(app)
}
