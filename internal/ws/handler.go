package ws

import (
	"context"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/auth"
	"github.com/sraza0098/wisp-backend/internal/domain"
	"github.com/sraza0098/wisp-backend/internal/metrics"
	"github.com/sraza0098/wisp-backend/internal/relay"
)

const localSubject = "ws.subject"

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, *auth.Claims, error)
}

type Config struct {
	RequireToken bool
	SendBuffer   int
}

// Handler upgrades /ws requests and binds each socket to the relay.
type Handler struct {
	relay *relay.Relay
	auth  Authenticator
	cfg   Config
	log   *zap.Logger
}

func NewHandler(r *relay.Relay, a Authenticator, cfg Config, log *zap.Logger) *Handler {
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = 256
	}
	return &Handler{relay: r, auth: a, cfg: cfg, log: log}
}

// Register mounts GET /ws on router.
func (h *Handler) Register(router fiber.Router) {
	router.Get("/ws", h.upgrade, websocket.New(h.serve))
}

// upgrade rejects non-websocket requests and verifies the optional token.
func (h *Handler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := strings.TrimSpace(strings.TrimPrefix(c.Query("token"), "Bearer "))
	if token == "" {
		token = auth.TokenFromRequest(c)
	}
	if token == "" {
		if h.cfg.RequireToken {
			return fiber.NewError(fiber.StatusUnauthorized, "you must login")
		}
		c.Locals(localSubject, "")
		return c.Next()
	}

	u, _, err := h.auth.Authenticate(c.UserContext(), token)
	if err != nil {
		h.log.Debug("websocket token rejected", zap.Error(err))
		return fiber.NewError(fiber.StatusUnauthorized, "token not valid")
	}
	c.Locals(localSubject, u.ID)
	return c.Next()
}

func (h *Handler) serve(c *websocket.Conn) {
	subject, _ := c.Locals(localSubject).(string)
	conn := newConn(uuid.NewString(), c, h.cfg.SendBuffer, h.log)

	metrics.TotalConnections.Inc()
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	h.relay.Connect(conn, subject)
	h.log.Info("websocket connected", zap.String("conn", conn.id), zap.String("subject", subject))

	done := make(chan struct{})
	go conn.writeLoop(done)

	conn.readLoop(h.relay.Dispatch)

	// The relay stops sending once Disconnect returns, so the queue can close.
	h.relay.Disconnect(conn.id)
	close(conn.send)
	<-done
	h.log.Info("websocket disconnected", zap.String("conn", conn.id))
}
