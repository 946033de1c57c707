package server

import (
	"context"
	"os"

	"sloth-wake-be/internal/bootstrap"
	"sloth-wake-be/internal/config"
	"sloth-wake-be/internal/pkg/serverutils"

	"github.com/fatih/color"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, audio uploads
	})

	// Fiber refuses credentials together with a wildcard origin.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: cfg.App.CorsAllowedOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Synthesized clips
	_ = os.MkdirAll(cfg.Speech.AudioDir, 0o755)
	app.Static("/static/audio", cfg.Speech.AudioDir)

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
	color.New(color.FgGreen, color.Bold).Printf("✅ Wake server is running on http://localhost:%s\n", s.cfg.App.Port)
	color.New(color.FgCyan).Printf("   speech: stt=%s tts=%s\n", s.cfg.Speech.STTProvider, s.cfg.Speech.TTSProvider)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.SessionFeedHandler.RegisterRoutes(api)
	c.SessionController.RegisterRoutes(api)
	c.SpeechController.RegisterRoutes(api)
}
