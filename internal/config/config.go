package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Exchange ExchangeConfig
	Snapshot SnapshotConfig
	EA       EAConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// ExchangeConfig holds settings for the share exchange.
type ExchangeConfig struct {
	// OrderBookDepth is the maximum number of price levels returned
	// per side by the order book endpoint.
	OrderBookDepth int
}

// SnapshotConfig holds settings for the daily snapshot job.
type SnapshotConfig struct {
	// CronSpec is the robfig/cron schedule for the daily snapshot run.
	// Defaults to 23:55 UTC, the trading day close.
	CronSpec string

	// Enabled toggles the in-process scheduler. Disable when snapshots
	// are triggered externally.
	Enabled bool

	// MaxConcurrent bounds how many accounts are snapshotted in parallel.
	MaxConcurrent int
}

// EAConfig holds settings for the EA (expert advisor) integration feed.
type EAConfig struct {
	// FernetKey is the base64 fernet key used to verify push tokens
	// sent by the trading robots. Empty disables the EA endpoints.
	FernetKey string

	// TokenTTLSeconds bounds the age of accepted EA push tokens.
	TokenTTLSeconds int
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/exchange.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Exchange: ExchangeConfig{
			OrderBookDepth: getEnvInt("ORDER_BOOK_DEPTH", 20),
		},
		Snapshot: SnapshotConfig{
			CronSpec:      getEnv("SNAPSHOT_CRON", "55 23 * * *"),
			Enabled:       getEnv("SNAPSHOT_SCHEDULER_ENABLED", "true") == "true",
			MaxConcurrent: getEnvInt("SNAPSHOT_MAX_CONCURRENT", 4),
		},
		EA: EAConfig{
			FernetKey:       getEnv("EA_FERNET_KEY", ""),
			TokenTTLSeconds: getEnvInt("EA_TOKEN_TTL_SECONDS", 300),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
		return defaultValue
	}
	return parsed
}
