package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database host and name must be set for postgres")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return errors.New("sqlite path must be set for sqlite driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s. Must be 'postgres' or 'sqlite'", c.Database.Driver)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis address must be specified when redis is enabled")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret must be set")
	}
	if c.Auth.TokenTTLDays < 1 {
		return errors.New("token lifetime must be at least one day")
	}
	if c.Auth.RateLimitMax < 1 || c.Auth.RateLimitWindow < 1 {
		return errors.New("auth rate limit must be positive")
	}

	if c.Presence.TTLSeconds < 1 {
		return errors.New("presence TTL must be positive")
	}
	if c.Presence.TickSeconds < 1 || c.Presence.TickSeconds >= c.Presence.TTLSeconds {
		return errors.New("presence tick should be positive and less than presence TTL")
	}

	if c.Realtime.SendBuffer < 1 {
		return errors.New("realtime send buffer must be positive")
	}
	if c.Realtime.TypingTTLSeconds < 1 {
		return errors.New("typing TTL must be positive")
	}

	return nil
}
