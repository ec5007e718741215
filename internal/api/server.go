package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/auth"
	"github.com/sraza0098/wisp-backend/internal/config"
	"github.com/sraza0098/wisp-backend/internal/domain"
	"github.com/sraza0098/wisp-backend/internal/presence"
	"github.com/sraza0098/wisp-backend/internal/relay"
	"github.com/sraza0098/wisp-backend/internal/store"
	"github.com/sraza0098/wisp-backend/internal/upload"
	"github.com/sraza0098/wisp-backend/internal/ws"
)

// LastSeenReader answers last-seen lookups; the Redis presence mirror implements it.
type LastSeenReader interface {
	LastSeen(ctx context.Context, userID string) (time.Time, bool, error)
	Online(ctx context.Context, userID string) (bool, error)
}

// Deps are the collaborators the HTTP layer is built from.
// LastSeen and LimiterStorage may be nil.
type Deps struct {
	Config         *config.Config
	Store          store.Store
	Auth           *auth.Service
	Relay          *relay.Relay
	Typing         *presence.Typing
	LastSeen       LastSeenReader
	Uploader       upload.Uploader
	WS             *ws.Handler
	LimiterStorage fiber.Storage
	Log            *zap.Logger
}

type server struct {
	Deps
	started time.Time
}

// New builds the fiber app with every route mounted.
func New(d Deps) *fiber.App {
	if d.Uploader == nil {
		d.Uploader = upload.Nop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	s := &server{Deps: d, started: time.Now()}

	app := fiber.New(fiber.Config{
		AppName:               "wisp",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(d.Log),
		BodyLimit:             10 << 20,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     normalizeOrigins(d.Config.Server.CORSOrigins),
		AllowCredentials: true,
	}))
	app.Use(accessLog(d.Log))

	s.registerBaseRoutes(app)
	if d.WS != nil {
		d.WS.Register(app)
	}

	protect := s.protect()
	api := app.Group("/api")
	users := api.Group("/users")
	s.registerUserRoutes(users, protect)

	rooms := api.Group("/rooms", protect)
	s.registerRoomRoutes(rooms)
	s.registerMessageRoutes(rooms.Group("/:roomId/messages"))
	s.registerSearchRoutes(api.Group("/search", protect))
	s.registerPresenceRoutes(api, rooms, users, protect)
	s.registerAdminRoutes(api.Group("/admin", protect, restrictTo(domain.RoleAdmin)))

	return app
}

func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "http://localhost:3000"
	}
	return strings.Join(out, ",")
}

// success writes the {"status":"success", ...} envelope.
func success(c *fiber.Ctx, code int, body fiber.Map) error {
	if body == nil {
		body = fiber.Map{}
	}
	body["status"] = "success"
	return c.Status(code).JSON(body)
}
