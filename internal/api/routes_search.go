package api

import "github.com/gofiber/fiber/v2"

func (s *server) registerSearchRoutes(search fiber.Router) {
	// GET /api/search/messages?q=...&roomId=...&before=RFC3339&limit=50
	search.Get("/messages", func(c *fiber.Ctx) error {
		f, err := parseFilter(c)
		if err != nil {
			return err
		}
		items, err := s.Store.SearchMessages(c.UserContext(), currentUser(c).ID, f)
		if err != nil {
			return err
		}
		page := messagePage(items, f)
		page["appliedQ"] = f.Query
		page["appliedRoomId"] = f.RoomID
		return success(c, fiber.StatusOK, page)
	})
}
