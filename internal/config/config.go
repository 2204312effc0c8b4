// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Backup settings (S3-compatible storage). Backups are disabled when the
	// bucket is empty.
	BackupBucket    string
	BackupEndpoint  string
	BackupRegion    string
	BackupKeyID     string
	BackupSecretKey string
	BackupRetention int  // days of remote backups to keep
	RestoreOnStart  bool // stage the newest remote backup under <data_dir>/restore at startup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QUANTFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("PORT", 8010),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		BackupBucket:    getEnv("BACKUP_BUCKET", ""),
		BackupEndpoint:  getEnv("BACKUP_ENDPOINT", ""),
		BackupRegion:    getEnv("BACKUP_REGION", "auto"),
		BackupKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		BackupSecretKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		BackupRetention: getEnvAsInt("BACKUP_RETENTION", 7),
		RestoreOnStart:  getEnvAsBool("RESTORE_ON_START", false),
	}

	return cfg, nil
}

// BackupEnabled reports whether S3 backups are configured.
func (c *Config) BackupEnabled() bool {
	return c.BackupBucket != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
