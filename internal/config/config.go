// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mosaic-erp/reinsurance/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// NationalCurrency is the reporting currency every written amount is mirrored into.
	NationalCurrency string
	// HomeTerritory marks inward business as domestic when the territory contains it.
	HomeTerritory string
	// HomeTerritoryCode is the short code that also marks a territory as domestic.
	HomeTerritoryCode string

	// StrictPanelValidation rejects reinsurance panels ceding more than 100% in total.
	StrictPanelValidation bool

	Risk         *RiskConfig
	ExchangeRate *ExchangeRateConfig
	Backup       *BackupConfig
}

// RiskConfig holds the default concentration thresholds (percent of total exposure).
// Values stored in the settings table override these at runtime.
type RiskConfig struct {
	TerritoryThreshold float64
	ClassThreshold     float64
	CedantThreshold    float64
	TopN               int
}

// ExchangeRateConfig configures the national-rate lookup and its background sync.
type ExchangeRateConfig struct {
	APIURL       string
	SyncSchedule string   // cron expression (seconds field enabled)
	Currencies   []string // written currencies kept warm in the cache
}

// BackupConfig configures database snapshots and the optional S3-compatible upload.
type BackupConfig struct {
	Enabled         bool
	Schedule        string
	RetentionDays   int
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// RemoteEnabled reports whether snapshots should be shipped to object storage.
func (b *BackupConfig) RemoteEnabled() bool {
	return b != nil && b.Bucket != "" && b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("REINSURANCE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:               absDataDir,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Port:                  getEnvAsInt("PORT", 8080),
		DevMode:               getEnvAsBool("DEV_MODE", false),
		NationalCurrency:      strings.ToUpper(getEnv("NATIONAL_CURRENCY", "UZS")),
		HomeTerritory:         strings.ToLower(getEnv("HOME_TERRITORY", "uzbek")),
		HomeTerritoryCode:     strings.ToLower(getEnv("HOME_TERRITORY_CODE", "uz")),
		StrictPanelValidation: getEnvAsBool("STRICT_PANEL_VALIDATION", false),
		Risk: &RiskConfig{
			TerritoryThreshold: getEnvAsFloat("RISK_THRESHOLD_TERRITORY", 25),
			ClassThreshold:     getEnvAsFloat("RISK_THRESHOLD_CLASS", 30),
			CedantThreshold:    getEnvAsFloat("RISK_THRESHOLD_CEDANT", 15),
			TopN:               getEnvAsInt("RISK_TOP_N", 25),
		},
		ExchangeRate: &ExchangeRateConfig{
			APIURL:       getEnv("EXCHANGE_RATE_API_URL", "https://api.exchangerate-api.com/v4/latest"),
			SyncSchedule: getEnv("RATE_SYNC_SCHEDULE", "0 0 */6 * * *"),
			Currencies:   getEnvAsList("RATE_SYNC_CURRENCIES", []string{"USD", "EUR", "GBP", "RUB", "KZT", "CNY"}),
		},
		Backup: &BackupConfig{
			Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 30 2 * * *"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if len(c.NationalCurrency) != 3 {
		return fmt.Errorf("national currency must be a 3-letter code, got %q", c.NationalCurrency)
	}
	if c.Risk != nil {
		for name, v := range map[string]float64{
			"territory": c.Risk.TerritoryThreshold,
			"class":     c.Risk.ClassThreshold,
			"cedant":    c.Risk.CedantThreshold,
		} {
			if v <= 0 || v > 100 {
				return fmt.Errorf("risk threshold %s must be in (0, 100], got %v", name, v)
			}
		}
		if c.Risk.TopN <= 0 {
			return fmt.Errorf("risk top-N must be positive, got %d", c.Risk.TopN)
		}
	}
	return nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := utils.ParseCSV(value)
	if len(parts) == 0 {
		return defaultValue
	}
	out := make([]string, len(parts))
	for i, part := range parts {
		out[i] = strings.ToUpper(part)
	}
	return out
}
