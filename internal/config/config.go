package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// Declaration range
	Year       int
	FirstMonth int
	LastMonth  int
	Force      bool

	// Station lists (YAML)
	StationsFile string

	// Travel history source
	HistoryBackend string
	HistoryDir     string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string
	SheetsCacheTTL      time.Duration

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL              string
	AMQPExchange         string
	AMQPSelectionQueue   string
	AMQPDeclarationQueue string

	// Daemon mode
	Schedule string

	// Observability
	MetricsAddr string
	LogLevel    string
}

func Load() *Config {
	cfg := &Config{
		Year:       getEnvInt("DECLARE_YEAR", time.Now().Year()),
		FirstMonth: getEnvInt("DECLARE_FIRST_MONTH", 1),
		LastMonth:  getEnvInt("DECLARE_LAST_MONTH", 12),
		Force:      getEnvBool("DECLARE_FORCE", false),

		StationsFile: getEnv("STATIONS_FILE", "./stations.yaml"),

		HistoryBackend: getEnv("HISTORY_BACKEND", "files"),
		HistoryDir:     getEnv("HISTORY_DIR", "./data/history"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),
		SheetsCacheTTL:      getEnvDuration("SHEETS_CACHE_TTL", 10*time.Minute),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ovdeclare.db"),

		AMQPURL:              getEnv("AMQP_URL", ""),
		AMQPExchange:         getEnv("AMQP_EXCHANGE", "ovdeclare"),
		AMQPSelectionQueue:   getEnv("AMQP_SELECTION_QUEUE", "month_selections"),
		AMQPDeclarationQueue: getEnv("AMQP_DECLARATION_QUEUE", "declaration_texts"),

		Schedule: getEnv("SCHEDULE", ""),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate month range
	if c.Year < 2000 || c.Year > 2999 {
		errors = append(errors, fmt.Sprintf("invalid year %d: must be between 2000 and 2999", c.Year))
	}
	if c.FirstMonth < 1 || c.FirstMonth > 12 {
		errors = append(errors, fmt.Sprintf("invalid first month %d: must be between 1 and 12", c.FirstMonth))
	}
	if c.LastMonth < 1 || c.LastMonth > 12 {
		errors = append(errors, fmt.Sprintf("invalid last month %d: must be between 1 and 12", c.LastMonth))
	}
	if c.FirstMonth > c.LastMonth {
		errors = append(errors, fmt.Sprintf("invalid month range %d-%d: first month must not be after last month", c.FirstMonth, c.LastMonth))
	}

	if c.StationsFile == "" {
		errors = append(errors, "stations file path cannot be empty")
	}

	// Validate history backend
	validBackends := []string{"files", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.HistoryBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid history backend '%s': must be one of %v", c.HistoryBackend, validBackends))
	}

	if c.HistoryBackend == "files" && c.HistoryDir == "" {
		errors = append(errors, "history directory cannot be empty when using files backend")
	}

	if c.HistoryBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.SheetsCacheTTL < 0 {
			errors = append(errors, fmt.Sprintf("invalid sheets cache TTL %v: must not be negative", c.SheetsCacheTTL))
		}
	}

	// Validate SQLite configuration
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPSelectionQueue == "" || c.AMQPDeclarationQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid schedule '%s': %v", c.Schedule, err))
		}
	}

	if _, ok := parseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
