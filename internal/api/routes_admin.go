package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func (s *server) registerAdminRoutes(admin fiber.Router) {
	// GET /api/admin/stats: live relay counters for operators.
	admin.Get("/stats", func(c *fiber.Ctx) error {
		return success(c, fiber.StatusOK, fiber.Map{
			"data": fiber.Map{
				"connections": s.Relay.Connections(),
				"presence":    len(s.Relay.Presence()),
				"version":     s.Config.Server.Version,
				"uptime":      time.Since(s.started).Round(time.Second).String(),
			},
		})
	})
}
