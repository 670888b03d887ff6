package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
// Auth, billing, and user management are handled by the magda-cloud gateway;
// the database is optional and only stores generation records.
type Config struct {
	// Environment
	Environment string
	Port        string

	// Persistence (optional)
	// - DatabaseType: "postgres" or "sqlite"
	// - DatabaseURL: DSN or sqlite file path; empty runs stateless
	DatabaseType string
	DatabaseURL  string
	DatabaseLog  bool

	// Arrangement defaults
	TheoryFile   string // YAML document merged over the built-in theory
	DefaultGenre string

	// Observability
	SentryDSN           string // Sentry DSN for error tracking
	CloudWatchNamespace string
	AWSRegion           string

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from magda-cloud
	AuthMode string
}

func Load() *Config {
	return &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseType:        getEnv("DATABASE_TYPE", "postgres"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseLog:         getBool("DATABASE_LOG", false),
		TheoryFile:          getEnv("THEORY_FILE", ""),
		DefaultGenre:        getEnv("DEFAULT_GENRE", "pop"),
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "MagdaAccompanist"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AuthMode:            getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// IsGatewayMode returns true if running behind the Express gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasDatabase reports whether generation records can be stored
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
