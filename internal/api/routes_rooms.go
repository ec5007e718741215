package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sraza0098/wisp-backend/internal/domain"
)

func (s *server) registerRoomRoutes(rooms fiber.Router) {
	rooms.Get("/", s.listRooms)
	rooms.Post("/", s.createRoom)
	rooms.Get("/:id", s.getRoom)
	// Join is idempotent.
	rooms.Patch("/:id", s.joinRoom)
	rooms.Patch("/:id/leave", s.leaveRoom)
}

func (s *server) listRooms(c *fiber.Ctx) error {
	rooms, err := s.Store.ListRooms(c.UserContext())
	if err != nil {
		return err
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"results": len(rooms),
		"data":    fiber.Map{"rooms": rooms},
	})
}

func (s *server) createRoom(c *fiber.Ctx) error {
	var in domain.NewRoom
	if err := c.BodyParser(&in); err != nil {
		return newAppError(fiber.StatusBadRequest, "invalid request body")
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	room, err := s.Store.CreateRoom(c.UserContext(), in, currentUser(c).ID)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, fiber.Map{"data": fiber.Map{"room": room}})
}

func (s *server) getRoom(c *fiber.Ctx) error {
	room, err := s.Store.RoomByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"data": fiber.Map{"room": room, "membersCount": len(room.Members)},
	})
}

func (s *server) joinRoom(c *fiber.Ctx) error {
	room, added, err := s.Store.AddRoomMember(c.UserContext(), c.Params("id"), currentUser(c).ID)
	if err != nil {
		return err
	}
	body := fiber.Map{"data": fiber.Map{"room": room}}
	if !added {
		body["message"] = "already joined"
	}
	return success(c, fiber.StatusOK, body)
}

func (s *server) leaveRoom(c *fiber.Ctx) error {
	room, removed, err := s.Store.RemoveRoomMember(c.UserContext(), c.Params("id"), currentUser(c).ID)
	if err != nil {
		return err
	}
	body := fiber.Map{"data": fiber.Map{"room": room}}
	if !removed {
		body["message"] = "not a member"
	}
	return success(c, fiber.StatusOK, body)
}
