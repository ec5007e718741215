package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func (s *server) registerBaseRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Wisp backend ✅  Try: /health, /time, /version, /api/users/login, /api/rooms, /ws")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := s.Store.Ping(c.UserContext()); err != nil {
			s.Log.Warn("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).SendString("db: down")
		}
		return c.SendString("ok")
	})
	app.Get("/time", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"utc": time.Now().UTC()})
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version": s.Config.Server.Version,
			"uptime":  time.Since(s.started).Round(time.Second).String(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
