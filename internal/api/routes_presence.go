package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Real-time views. These read relay and tracker state; they never emit events.
func (s *server) registerPresenceRoutes(api, rooms, users fiber.Router, protect fiber.Handler) {
	api.Get("/presence", protect, func(c *fiber.Ctx) error {
		entries := s.Relay.Presence()
		return success(c, fiber.StatusOK, fiber.Map{
			"results": len(entries),
			"data":    fiber.Map{"presence": entries},
		})
	})

	rooms.Get("/:roomId/online", func(c *fiber.Ctx) error {
		online := s.Relay.OnlineIn(c.Params("roomId"))
		return success(c, fiber.StatusOK, fiber.Map{"data": fiber.Map{"online": online}})
	})

	rooms.Get("/:roomId/typing", func(c *fiber.Ctx) error {
		typing := []string{}
		if s.Typing != nil {
			typing = s.Typing.InRoom(c.Params("roomId"))
		}
		return success(c, fiber.StatusOK, fiber.Map{"data": fiber.Map{"typing": typing}})
	})

	users.Get("/:id/last-seen", protect, func(c *fiber.Ctx) error {
		if s.LastSeen == nil {
			return newAppError(fiber.StatusServiceUnavailable, "presence mirror disabled")
		}
		id := c.Params("id")
		online, err := s.LastSeen.Online(c.UserContext(), id)
		if err != nil {
			return err
		}
		at, ok, err := s.LastSeen.LastSeen(c.UserContext(), id)
		if err != nil {
			return err
		}
		var lastSeen *time.Time
		if ok {
			lastSeen = &at
		}
		return success(c, fiber.StatusOK, fiber.Map{
			"data": fiber.Map{"userId": id, "online": online, "lastSeen": lastSeen},
		})
	})
}
