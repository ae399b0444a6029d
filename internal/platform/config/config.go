package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Everything comes from the
// environment so main stays lean; unset values fall back to development
// defaults.
type Config struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	Cache         CacheConfig
	AdminToken    string
	JWTSigningKey string
	SeedOnStart   bool
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis
// and the cache falls back to the in-process backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CacheConfig tunes the cache-aside layer.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:        envOr("MASTERS_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Cache: CacheConfig{
			Enabled: envOr("MASTERS_CACHE_ENABLED", "true") == "true",
			TTL:     envDuration("MASTERS_CACHE_TTL", time.Hour),
			Prefix:  envOr("MASTERS_CACHE_PREFIX", "masters"),
		},
		AdminToken: envOr("MASTERS_ADMIN_TOKEN", "dev-admin-token"),
		// Should be overridden in production.
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SeedOnStart:   os.Getenv("MASTERS_SEED") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
