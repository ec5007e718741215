package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sraza0098/wisp-backend/internal/domain"
)

func (s *server) registerMessageRoutes(messages fiber.Router) {
	messages.Get("/", s.listMessages)
	messages.Post("/", s.createMessage)
}

// memberRoom loads the :roomId room and checks the caller belongs to it.
func (s *server) memberRoom(c *fiber.Ctx) (*domain.Room, error) {
	room, err := s.Store.RoomByID(c.UserContext(), c.Params("roomId"))
	if err != nil {
		return nil, err
	}
	if !room.HasMember(currentUser(c).ID) {
		return nil, newAppError(fiber.StatusForbidden, "join room first")
	}
	return room, nil
}

func (s *server) listMessages(c *fiber.Ctx) error {
	room, err := s.memberRoom(c)
	if err != nil {
		return err
	}
	f, err := parseFilter(c)
	if err != nil {
		return err
	}

	items, err := s.Store.ListMessages(c.UserContext(), room.ID, f)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, messagePage(items, f))
}

func (s *server) createMessage(c *fiber.Ctx) error {
	room, err := s.memberRoom(c)
	if err != nil {
		return err
	}
	var in struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&in); err != nil {
		return newAppError(fiber.StatusBadRequest, "invalid request body")
	}
	n := domain.NewMessage{RoomID: room.ID, SenderID: currentUser(c).ID, Content: in.Content}
	if err := n.Validate(); err != nil {
		return err
	}

	msg, err := s.Store.CreateMessage(c.UserContext(), n)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusCreated, fiber.Map{"data": fiber.Map{"message": msg}})
}

// parseFilter reads q, roomId, before (RFC3339), beforeId and limit from the query string.
func parseFilter(c *fiber.Ctx) (domain.MessageFilter, error) {
	f := domain.MessageFilter{
		Query:  c.Query("q"),
		RoomID: c.Query("roomId"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, newAppError(fiber.StatusBadRequest, "bad limit")
		}
		f.Limit = n
	}
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, newAppError(fiber.StatusBadRequest, "bad before (RFC3339)")
		}
		f.Before = &t
		if id := c.Query("beforeId"); id != "" {
			if _, err := uuid.Parse(id); err != nil {
				return f, newAppError(fiber.StatusBadRequest, "bad beforeId")
			}
			f.BeforeID = id
		}
	}
	return f, nil
}

// messagePage wraps items; a full page carries the (createdAt, id) cursor of its oldest item.
func messagePage(items []domain.Message, f domain.MessageFilter) fiber.Map {
	if items == nil {
		items = []domain.Message{}
	}
	var next, nextID any
	if len(items) > 0 && len(items) == f.EffectiveLimit() {
		last := items[len(items)-1]
		next = last.CreatedAt.UTC().Format(time.RFC3339Nano)
		nextID = last.ID
	}
	return fiber.Map{
		"results":      len(items),
		"nextCursor":   next,
		"nextCursorId": nextID,
		"data":         fiber.Map{"messages": items},
	}
}
