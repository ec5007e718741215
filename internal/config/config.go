package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Presence   PresenceConfig
	Auth       AuthConfig
	OAuth      OAuthConfig
	Cloudinary CloudinaryConfig
	Realtime   RealtimeConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port        int
	CORSOrigins string `mapstructure:"corsOrigins"`
	Version     string
}

type DatabaseConfig struct {
	Driver     string // postgres | sqlite
	User       string
	Password   string
	Host       string
	Port       string
	Name       string
	SQLitePath string `mapstructure:"sqlitePath"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type PresenceConfig struct {
	TTLSeconds  int `mapstructure:"ttlSeconds"`
	TickSeconds int `mapstructure:"tickSeconds"`
}

func (p PresenceConfig) TTL() time.Duration  { return time.Duration(p.TTLSeconds) * time.Second }
func (p PresenceConfig) Tick() time.Duration { return time.Duration(p.TickSeconds) * time.Second }

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwtSecret"`
	TokenTTLDays    int    `mapstructure:"tokenTTLDays"`
	CookieSecure    bool   `mapstructure:"cookieSecure"`
	BcryptCost      int    `mapstructure:"bcryptCost"`
	RateLimitMax    int    `mapstructure:"rateLimitMax"`
	RateLimitWindow int    `mapstructure:"rateLimitWindow"` // Seconds
}

// TokenTTL is both the JWT lifetime and the cookie expiry.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLDays) * 24 * time.Hour
}

type OAuthConfig struct {
	GoogleClientID string `mapstructure:"googleClientID"`
	FacebookAppID  string `mapstructure:"facebookAppID"`
}

type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloudName"`
	APIKey    string `mapstructure:"apiKey"`
	APISecret string `mapstructure:"apiSecret"`
	Folder    string
}

// Enabled reports whether uploads can be signed.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type RealtimeConfig struct {
	RequireToken     bool `mapstructure:"requireToken"`
	SendBuffer       int  `mapstructure:"sendBuffer"`
	TypingTTLSeconds int  `mapstructure:"typingTTLSeconds"`
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env (if any), config.yaml (if any) and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
