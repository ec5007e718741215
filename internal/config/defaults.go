package config

import "github.com/spf13/viper"

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.corsOrigins", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("server.version", "dev")

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.user", "wisp")
	v.SetDefault("database.password", "wisp123")
	v.SetDefault("database.host", "postgres-postgresql.postgres.svc.cluster.local")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "wispdb")
	v.SetDefault("database.sqlitePath", "wisp.db")

	// Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Presence
	v.SetDefault("presence.ttlSeconds", 60)
	v.SetDefault("presence.tickSeconds", 20)

	// Auth
	v.SetDefault("auth.jwtSecret", "dev-secret-please-change")
	v.SetDefault("auth.tokenTTLDays", 90)
	v.SetDefault("auth.cookieSecure", false)
	v.SetDefault("auth.bcryptCost", 12)
	v.SetDefault("auth.rateLimitMax", 20)
	v.SetDefault("auth.rateLimitWindow", 60)

	// Cloudinary
	v.SetDefault("cloudinary.folder", "chat_app")

	// Realtime
	v.SetDefault("realtime.requireToken", false)
	v.SetDefault("realtime.sendBuffer", 256)
	v.SetDefault("realtime.typingTTLSeconds", 3)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Server
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.corsOrigins", "CORS_ORIGINS")
	_ = v.BindEnv("server.version", "WISP_VERSION")

	// Database
	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("database.sqlitePath", "SQLITE_PATH")

	// Redis
	_ = v.BindEnv("redis.enabled", "REDIS_ENABLED")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Presence
	_ = v.BindEnv("presence.ttlSeconds", "PRESENCE_TTL_SECONDS")
	_ = v.BindEnv("presence.tickSeconds", "PRESENCE_TICK_SECONDS")

	// Auth
	_ = v.BindEnv("auth.jwtSecret", "JWT_SECRET")
	_ = v.BindEnv("auth.tokenTTLDays", "JWT_COOKIE_EXPIRES_IN")
	_ = v.BindEnv("auth.cookieSecure", "COOKIE_SECURE")

	// OAuth
	_ = v.BindEnv("oauth.googleClientID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("oauth.facebookAppID", "FACEBOOK_APP_ID")

	// Cloudinary
	_ = v.BindEnv("cloudinary.cloudName", "CLOUDINARY_CLOUD_NAME")
	_ = v.BindEnv("cloudinary.apiKey", "CLOUDINARY_API_KEY")
	_ = v.BindEnv("cloudinary.apiSecret", "CLOUDINARY_API_SECRET")
	_ = v.BindEnv("cloudinary.folder", "CLOUDINARY_FOLDER")

	// Realtime
	_ = v.BindEnv("realtime.requireToken", "WS_REQUIRE_TOKEN")
	_ = v.BindEnv("realtime.sendBuffer", "WS_SEND_BUFFER")

	// Log
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}
