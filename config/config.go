package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	ServerHost string
	ServerPort string

	// Database configuration
	DatabaseURL string

	// Redis configuration (optional, enables catalog snapshot caching)
	RedisURL        string
	CatalogCacheTTL time.Duration

	// Catalog (admin GraphQL API) configuration
	CatalogEndpoint string
	CatalogToken    string

	// Storefront configuration (widget-side fetching)
	StorefrontBaseURL string
	WidgetBatchSize   int
	WidgetBatchDelay  time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string

	// Application metadata
	AppName    string
	AppVersion string
}

// Load loads configuration from environment variables. A local .env file is
// read first when present so the service can run outside of a container.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerHost:        getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		CatalogCacheTTL:   getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		CatalogEndpoint:   getEnv("CATALOG_ENDPOINT", ""),
		CatalogToken:      getEnv("CATALOG_TOKEN", ""),
		StorefrontBaseURL: getEnv("STOREFRONT_BASE_URL", ""),
		WidgetBatchSize:   getEnvInt("WIDGET_BATCH_SIZE", 5),
		WidgetBatchDelay:  getEnvDuration("WIDGET_BATCH_DELAY", 200*time.Millisecond),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		AppName:           "bundle-service",
		AppVersion:        getEnv("APP_VERSION", "dev"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && os.Getenv("ENV") == "production" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", c.LogLevel)
	}

	if c.WidgetBatchSize < 1 {
		return fmt.Errorf("WIDGET_BATCH_SIZE must be at least 1")
	}

	return nil
}

// ServerAddress returns the host:port the HTTP server binds to.
func (c *Config) ServerAddress() string {
	return c.ServerHost + ":" + c.ServerPort
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal
		}
		return i
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return defaultVal
		}
		return d
	}
	return defaultVal
}
