package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	DatabaseURL   string
	AutoMigrate   bool
	SessionSecret string
	SessionName   string
	GinMode       string
	// Cache
	CacheBackend string // none, redis, memory (single instance only)
	CacheTTL     time.Duration
	CacheSize    int
	RedisURL     string
	// Logging
	LogLevel  string
	LogFormat string // json, console
	// Lead capture
	LeadTTL time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=threadline port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("SESSION_SECRET", "secret_key_change_me")
	v.SetDefault("SESSION_NAME", "threadline_session")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("CACHE_BACKEND", "none")
	v.SetDefault("CACHE_TTL_SECONDS", 30)
	v.SetDefault("CACHE_SIZE", 500)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LEAD_TTL_HOURS", 7*24)

	return Config{
		Port:          v.GetString("PORT"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
		SessionSecret: v.GetString("SESSION_SECRET"),
		SessionName:   v.GetString("SESSION_NAME"),
		GinMode:       v.GetString("GIN_MODE"),
		CacheBackend:  v.GetString("CACHE_BACKEND"),
		CacheTTL:      time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		CacheSize:     v.GetInt("CACHE_SIZE"),
		RedisURL:      v.GetString("REDIS_URL"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		LeadTTL:       time.Duration(v.GetInt("LEAD_TTL_HOURS")) * time.Hour,
	}
}
