package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Name: "wispdb"},
		Redis:    RedisConfig{Enabled: true, Addr: "localhost:6379"},
		Presence: PresenceConfig{TTLSeconds: 60, TickSeconds: 20},
		Auth: AuthConfig{
			JWTSecret:       "secret",
			TokenTTLDays:    90,
			RateLimitMax:    20,
			RateLimitWindow: 60,
		},
		Realtime: RealtimeConfig{SendBuffer: 256, TypingTTLSeconds: 3},
	}
}

func TestLoad_Defaults(t *testing.T) {

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 90*24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, 60*time.Second, cfg.Presence.TTL())
	assert.Equal(t, 20*time.Second, cfg.Presence.Tick())
	assert.Equal(t, 256, cfg.Realtime.SendBuffer)
	assert.Equal(t, "chat_app", cfg.Cloudinary.Folder)
	assert.False(t, cfg.Cloudinary.Enabled())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/chat.db")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("JWT_COOKIE_EXPIRES_IN", "7")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("WS_REQUIRE_TOKEN", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/chat.db", cfg.Database.SQLitePath)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 7, cfg.Auth.TokenTTLDays)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Realtime.RequireToken)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mongo" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *Config) {
			c.Database.Driver = "sqlite"
			c.Database.SQLitePath = ""
		}, wantErr: true},
		{name: "redis without address", mutate: func(c *Config) { c.Redis.Addr = "" }, wantErr: true},
		{name: "redis disabled without address", mutate: func(c *Config) {
			c.Redis.Enabled = false
			c.Redis.Addr = ""
		}},
		{name: "empty secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "zero token lifetime", mutate: func(c *Config) { c.Auth.TokenTTLDays = 0 }, wantErr: true},
		{name: "tick not below ttl", mutate: func(c *Config) { c.Presence.TickSeconds = 60 }, wantErr: true},
		{name: "zero send buffer", mutate: func(c *Config) { c.Realtime.SendBuffer = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{User: "wisp", Password: "pw", Host: "db", Port: "5432", Name: "wispdb"}
	assert.Equal(t, "postgres://wisp:pw@db:5432/wispdb?sslmode=disable", d.DSN())
}
