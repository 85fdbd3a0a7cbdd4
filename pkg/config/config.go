package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	StoreBackend       string // "postgres" or "memory"
	MigrationsPath     string
	RedisURL           string // empty disables the Redis rate-limit backend
	OTELEndpoint       string // empty disables trace export
	RateLimitPerMinute int
	OverdueAfterDays   int
	OverdueScanMinutes int
	CORSAllowedOrigins []string
	Database           DatabaseConfig
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	overdueDays, err := strconv.Atoi(getEnv("OVERDUE_AFTER_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERDUE_AFTER_DAYS: %w", err)
	}

	scanMinutes, err := strconv.Atoi(getEnv("OVERDUE_SCAN_INTERVAL_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERDUE_SCAN_INTERVAL_MINUTES: %w", err)
	}

	backend := getEnv("STORE_BACKEND", "postgres")
	if backend != "postgres" && backend != "memory" {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be postgres or memory", backend)
	}

	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		ServerPort:         port,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StoreBackend:       backend,
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "migrations"),
		RedisURL:           getEnv("REDIS_URL", ""),
		OTELEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RateLimitPerMinute: rateLimit,
		OverdueAfterDays:   overdueDays,
		OverdueScanMinutes: scanMinutes,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "bibliotheque"),
			Password: getEnv("DB_PASSWORD", "dev"),
			Name:     getEnv("DB_NAME", "bibliotheque"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
