package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	Reforecast ReforecastConfig
	Extractor  ExtractorConfig
	Sheets     SheetsConfig
	Reporting  ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// ReforecastConfig tunes the recalibration trigger engine.
type ReforecastConfig struct {
	Enabled        bool
	MinCoveragePct float64
	MinPonds       int
	WeekendMode    bool
	WindowDays     int
	// DraftConflict is "soft" (skip when a manual draft blocks a
	// trigger) or "strict" (fail with a conflict).
	DraftConflict string
}

// ExtractorConfig points at the external document extraction service.
type ExtractorConfig struct {
	BaseURL   string
	APIKey    string
	TimeoutMs int
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "aquatrack"),
		},
		Reforecast: ReforecastConfig{
			Enabled:        getenvBool("REFORECAST_ENABLED", true),
			MinCoveragePct: getenvFloat("REFORECAST_MIN_COVERAGE_PCT", 30),
			MinPonds:       getenvInt("REFORECAST_MIN_PONDS", 1),
			WeekendMode:    getenvBool("REFORECAST_WEEKEND_MODE", true),
			WindowDays:     getenvInt("REFORECAST_WINDOW_DAYS", 1),
			DraftConflict:  getenvWithDefault("REFORECAST_DRAFT_CONFLICT", "soft"),
		},
		Extractor: ExtractorConfig{
			BaseURL:   os.Getenv("EXTRACTOR_BASE_URL"),
			APIKey:    os.Getenv("EXTRACTOR_API_KEY"),
			TimeoutMs: getenvInt("EXTRACTOR_TIMEOUT_MS", 30000),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DASHBOARD_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("KPI_EXPORT_CRON", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "America/Mazatlan"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and
// consistent.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Reforecast.MinCoveragePct < 0 || c.Reforecast.MinCoveragePct > 100 {
		return errors.New("REFORECAST_MIN_COVERAGE_PCT must be between 0 and 100")
	}
	if c.Reforecast.MinPonds < 0 {
		return errors.New("REFORECAST_MIN_PONDS must not be negative")
	}
	if c.Reforecast.WindowDays < 0 {
		return errors.New("REFORECAST_WINDOW_DAYS must not be negative")
	}
	if c.Reforecast.DraftConflict != "soft" && c.Reforecast.DraftConflict != "strict" {
		return fmt.Errorf("REFORECAST_DRAFT_CONFLICT must be soft or strict, got %q", c.Reforecast.DraftConflict)
	}

	// Sheets export is optional, but half a configuration is a mistake.
	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DASHBOARD_ID must be provided together")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("KPI_EXPORT_CRON must be provided")
	}
	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return nil
}

// SheetsEnabled reports whether the dashboard export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
