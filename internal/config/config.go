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

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validBackends = []string{BackendJSON, BackendSQLite, BackendMemory}

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend   string
	StateFilePath string
	SQLiteDBPath  string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Recurring worker
	RecurringCheckInterval time.Duration

	// Exchange rates
	FXEndpoint string
	FXTimeout  time.Duration
	FXCacheTTL time.Duration

	Timezone string
	LogLevel string
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("DATA_BACKEND", BackendJSON)
	v.SetDefault("STATE_FILE_PATH", "./data/fintrack.json")
	v.SetDefault("SQLITE_DB_PATH", "./data/fintrack.db")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "fintrack")
	v.SetDefault("AMQP_QUEUE", "transactions_posted")
	v.SetDefault("RECURRING_CHECK_INTERVAL", "1h")
	v.SetDefault("FX_ENDPOINT", "https://api.exchangerate-api.com/v4/latest/EUR")
	v.SetDefault("FX_TIMEOUT", "8s")
	v.SetDefault("FX_CACHE_TTL", "6h")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	return &Config{
		Port: v.GetString("PORT"),

		DataBackend:   strings.ToLower(v.GetString("DATA_BACKEND")),
		StateFilePath: v.GetString("STATE_FILE_PATH"),
		SQLiteDBPath:  v.GetString("SQLITE_DB_PATH"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		RecurringCheckInterval: getDuration(v, "RECURRING_CHECK_INTERVAL", time.Hour),

		FXEndpoint: v.GetString("FX_ENDPOINT"),
		FXTimeout:  getDuration(v, "FX_TIMEOUT", 8*time.Second),
		FXCacheTTL: getDuration(v, "FX_CACHE_TTL", 6*time.Hour),

		Timezone: v.GetString("TIMEZONE"),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendJSON:
		if c.StateFilePath == "" {
			errors = append(errors, "state file path cannot be empty when using json backend")
		} else if msg := ensureDir(c.StateFilePath); msg != "" {
			errors = append(errors, msg)
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RecurringCheckInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring check interval %v: must be at least 1 minute", c.RecurringCheckInterval))
	} else if c.RecurringCheckInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring check interval %v: must be at most 24 hours", c.RecurringCheckInterval))
	}

	// Validate exchange rate source
	if c.FXEndpoint != "" {
		if parsedURL, err := url.Parse(c.FXEndpoint); err != nil {
			errors = append(errors, fmt.Sprintf("invalid FX endpoint '%s': %v", c.FXEndpoint, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid FX endpoint scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}
	if c.FXTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid FX timeout %v: must be positive", c.FXTimeout))
	}
	if c.FXCacheTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid FX cache TTL %v: must be at least 1 minute", c.FXCacheTTL))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
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

// Location resolves Timezone. An empty value or "Local" is the process
// local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Level maps LogLevel to a slog level, falling back to info.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch s {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// ensureDir creates the parent directory of path when missing and returns
// a validation message on failure.
func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create data directory '%s': %v", dir, err)
		}
	}
	return ""
}

// getDuration reads a duration, keeping the default for unparsable input.
func getDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(v.GetString(key)); err == nil {
		return d
	}
	return defaultValue
}
