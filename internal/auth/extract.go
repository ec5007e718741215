package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CookieName is the cookie carrying the session token.
const CookieName = "jwt"

// loggedOutValue replaces the token in the cookie on logout.
const loggedOutValue = "logout"

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the jwt cookie.
func TokenFromRequest(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if v := c.Cookies(CookieName); v != "" && v != loggedOutValue {
		return v
	}
	return ""
}

// LogoutCookieValue is written to the cookie when a session ends.
func LogoutCookieValue() string { return loggedOutValue }
