package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	SigningKey string // Required: HMAC secret, at least 32 bytes
	Issuer     string // Issuer claim stamped on every credential
	Audience   string // Audience claim stamped on every credential
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	DatabaseFile string // Path to SQLite database file (default: ./keywarden.db)
	PepperFile   string // Path to the password pepper file (default: ./pepper)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)

	Port                 int
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration

	// Admin bootstrap on first run against an empty directory.
	AdminUsername string
	AdminEmail    string
	AdminPassword string // empty means generate one and log it once
}

func LoadConfig() Config {
	return Config{
		SigningKey: os.Getenv("KEYWARDEN_SIGNING_KEY"),
		Issuer:     getEnvOrDefault("KEYWARDEN_ISSUER", "keywarden"),
		Audience:   getEnvOrDefault("KEYWARDEN_AUDIENCE", "keywarden-clients"),
		AccessTTL:  getEnvDurationOrDefault("KEYWARDEN_ACCESS_TTL", 5*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("KEYWARDEN_REFRESH_TTL", 30*24*time.Hour),

		DatabaseFile: getEnvOrDefault("KEYWARDEN_DATABASE_FILE", "keywarden.db"),
		PepperFile:   getEnvOrDefault("KEYWARDEN_PEPPER_FILE", "pepper"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		AdminUsername: getEnvOrDefault("KEYWARDEN_ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnvOrDefault("KEYWARDEN_ADMIN_EMAIL", "admin@localhost"),
		AdminPassword: os.Getenv("KEYWARDEN_ADMIN_PASSWORD"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
