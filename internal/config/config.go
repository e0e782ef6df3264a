package config

import (
	"fmt"
	"os"

	"yield/internal/logger"
)

type Config struct {
	// Record store (PocketBase) configuration
	PBURL           string
	PBAdminEmail    string
	PBAdminPassword string

	// Harvest API configuration (only needed for --from-api imports)
	HarvestAccountID string
	HarvestToken     string
	HarvestBaseURL   string

	// HTTP server configuration
	ServerAddr string

	// Logging configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		PBURL:            getEnv("PB_URL", "http://localhost:8090"),
		PBAdminEmail:     getEnv("PB_ADMIN_EMAIL", ""),
		PBAdminPassword:  getEnv("PB_ADMIN_PASSWORD", ""),
		HarvestAccountID: getEnv("HARVEST_ACCOUNT_ID", ""),
		HarvestToken:     getEnv("HARVEST_TOKEN", ""),
		HarvestBaseURL:   getEnv("HARVEST_BASE_URL", "https://api.harvestapp.com/v2"),
		ServerAddr:       getEnv("SERVER_ADDR", ":4000"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:    getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:        getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.PBURL == "" {
		return fmt.Errorf("PB_URL is required")
	}
	if c.PBAdminEmail == "" {
		return fmt.Errorf("PB_ADMIN_EMAIL is required")
	}
	if c.PBAdminPassword == "" {
		return fmt.Errorf("PB_ADMIN_PASSWORD is required")
	}
	return nil
}

// ValidateHarvestAPI checks the extra credentials needed for API imports.
func (c *Config) ValidateHarvestAPI() error {
	if c.HarvestAccountID == "" {
		return fmt.Errorf("HARVEST_ACCOUNT_ID is required for API imports")
	}
	if c.HarvestToken == "" {
		return fmt.Errorf("HARVEST_TOKEN is required for API imports")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
