package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	jwtware "github.com/gofiber/jwt/v3"
	"go.uber.org/zap"

	"github.com/sraza0098/wisp-backend/internal/auth"
	"github.com/sraza0098/wisp-backend/internal/domain"
)

const (
	localUser   = "user"
	localClaims = "claims"
)

// accessLog logs one line per request. Websocket upgrades log on connect instead.
func accessLog(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/ws" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status, _ = classify(err)
		}
		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	}
}

// protect admits requests carrying a valid session token and stores the
// caller in Locals. The signature check runs in jwtware; revocation, account
// existence and password changes are checked against the store.
func (s *server) protect() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    s.Auth.Tokens().Secret(),
		SigningMethod: "HS256",
		TokenLookup:   "header:" + fiber.HeaderAuthorization + ",cookie:" + auth.CookieName,
		AuthScheme:    "Bearer",
		ContextKey:    "jwt",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return newAppError(fiber.StatusUnauthorized, "you are not logged in! please log in to get access")
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			u, claims, err := s.Auth.Authenticate(c.UserContext(), auth.TokenFromRequest(c))
			if err != nil {
				return err
			}
			c.Locals(localUser, u)
			c.Locals(localClaims, claims)
			return c.Next()
		},
	})
}

// authLimiter throttles login and signup per client IP.
func (s *server) authLimiter() fiber.Handler {
	cfg := limiter.Config{
		Max:        s.Config.Auth.RateLimitMax,
		Expiration: time.Duration(s.Config.Auth.RateLimitWindow) * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "auth:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newAppError(fiber.StatusTooManyRequests, "too many requests from this IP, please try again later")
		},
	}
	if s.LimiterStorage != nil {
		cfg.Storage = s.LimiterStorage
	}
	return limiter.New(cfg)
}

// restrictTo admits callers whose role is one of roles. It runs after protect.
func restrictTo(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			return newAppError(fiber.StatusUnauthorized, "you are not logged in! please log in to get access")
		}
		for _, role := range roles {
			if u.Role == role {
				return c.Next()
			}
		}
		return newAppError(fiber.StatusForbidden, "you are not authorized to do that")
	}
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals(localUser).(*domain.User)
	return u
}
