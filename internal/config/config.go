package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	AppEnv       string
	Port         string
	DatabaseURL  string
	RedisURL     string
	JWTSecret    string
	LogLevel     string
	LogFormat    string
	RedisTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// Timeout applied to every Redis round trip instead of relying on the
	// client default.
	timeout := getEnv("REDIS_TIMEOUT", "2s")
	parsed, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("REDIS_TIMEOUT must be a valid duration: %w", err)
	}
	if parsed <= 0 {
		return nil, fmt.Errorf("REDIS_TIMEOUT must be positive, got %s", parsed)
	}
	cfg.RedisTimeout = parsed

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
