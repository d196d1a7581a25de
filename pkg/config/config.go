package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	Storage            string
	Database           DatabaseConfig
	RedisURL           string
	JWTSecret          string
	JWTTTL             time.Duration
	CORSAllowedOrigins []string
	ReconcileSchedule  string
	CASMaxAttempts     int
	RateLimitPerMinute int
	ListingCacheTTL    time.Duration
	OTLPEndpoint       string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads configuration from environment variables, after merging an
// optional .env file. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	port, err := getInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	dbPort, err := getInt("DATABASE_PORT", 5432)
	if err != nil {
		return nil, err
	}
	ttlMinutes, err := getInt("JWT_TTL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	casAttempts, err := getInt("CAS_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getInt("LISTING_CACHE_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Storage:     strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DATABASE_USER", "tenarentals"),
			Password: getEnv("DATABASE_PASSWORD", "dev"),
			Name:     getEnv("DATABASE_NAME", "tenarentals"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTL:             time.Duration(ttlMinutes) * time.Minute,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		ReconcileSchedule:  getEnv("RECONCILE_SCHEDULE", "@every 5m"),
		CASMaxAttempts:     casAttempts,
		RateLimitPerMinute: rateLimit,
		ListingCacheTTL:    time.Duration(cacheTTL) * time.Second,
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("invalid STORAGE %q: want %s or %s", c.Storage, StoragePostgres, StorageMemory)
	}
	if c.Environment == "production" && c.JWTSecret == "change-me-in-production" {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.CASMaxAttempts < 1 {
		return fmt.Errorf("invalid CAS_MAX_ATTEMPTS %d", c.CASMaxAttempts)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
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
