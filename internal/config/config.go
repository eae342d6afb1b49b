// Package config loads runtime settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// DefaultJWTSecret signs tokens when JWT_SECRET is unset. Only fit for development.
const DefaultJWTSecret = "dev-secret-change-me"

// Config holds runtime configuration for the server and the CLI.
type Config struct {
	Addr      string
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration
	Currency  string

	// SyncRemoteURL is the base URL of a peer exposing SyncService. Empty disables outbound sync.
	SyncRemoteURL string
	SyncToken     string
	SyncInterval  time.Duration
	SyncBatchSize int

	// RedisAddr backs the inbound sync target. Empty keeps pushed records in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SeedDemoData bool
}

// Load constructs a Config from environment variables.
func Load() Config {
	return Config{
		Addr:          GetString("ADDR", ":8080"),
		DBPath:        GetString("DB_PATH", "./data/splitit.db"),
		JWTSecret:     GetString("JWT_SECRET", DefaultJWTSecret),
		TokenTTL:      GetDuration("TOKEN_TTL", 24*time.Hour),
		Currency:      GetString("CURRENCY", "USD"),
		SyncRemoteURL: GetString("SYNC_REMOTE_URL", ""),
		SyncToken:     GetString("SYNC_TOKEN", ""),
		SyncInterval:  GetDuration("SYNC_INTERVAL", 30*time.Second),
		SyncBatchSize: GetInt("SYNC_BATCH_SIZE", 50),
		RedisAddr:     GetString("REDIS_ADDR", ""),
		RedisPassword: GetString("REDIS_PASSWORD", ""),
		RedisDB:       GetInt("REDIS_DB", 0),
		SeedDemoData:  GetBool("SEED_DEMO_DATA", false),
	}
}

// InsecureDefaults describes settings that leave the server open. The sync
// endpoint accepts pushes from anyone while SyncToken is empty.
func (c Config) InsecureDefaults() []string {
	var warnings []string
	if c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret {
		warnings = append(warnings, "JWT_SECRET is not set; session tokens are signed with a development key")
	}
	if c.SyncToken == "" {
		warnings = append(warnings, "SYNC_TOKEN is not set; the sync push endpoint is unauthenticated")
	}
	return warnings
}

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			slog.Warn("Invalid integer in environment", "key", key, "error", err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			slog.Warn("Invalid boolean in environment", "key", key, "error", err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetDuration parses values like "30s" or "24h".
func GetDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			slog.Warn("Invalid duration in environment", "key", key, "value", value)
			return fallback
		}
		return parsed
	}
	return fallback
}
