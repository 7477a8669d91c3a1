package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Remote backends.
const (
	BackendHTTP   = "http"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

type Config struct {
	// HTTP Server
	Port string `yaml:"port"`

	// Remote source
	RemoteBackend       string        `yaml:"remote_backend"`
	RemoteBaseURL       string        `yaml:"remote_base_url"`
	RemoteSessionCookie string        `yaml:"remote_session_cookie"`
	RemoteTimeout       time.Duration `yaml:"remote_timeout"`
	MemorySeedFile      string        `yaml:"memory_seed_file"`
	SQLiteDBPath        string        `yaml:"sqlite_db_path"`

	// Google Sheets backend
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleSheetName          string `yaml:"google_sheet_name"`
	GoogleServiceAccountJSON string `yaml:"-"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`

	// Synchronizer
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// AMQP (optional)
	AMQPURL               string `yaml:"amqp_url"`
	AMQPExchange          string `yaml:"amqp_exchange"`
	AMQPCreatedRoutingKey string `yaml:"amqp_created_routing_key"`
	AMQPRefreshQueue      string `yaml:"amqp_refresh_queue"`

	// Submit rate limit per client
	SubmitRatePerMinute int `yaml:"submit_rate_per_minute"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:                  "8081",
		RemoteBackend:         BackendHTTP,
		RemoteBaseURL:         "http://localhost:3000",
		RemoteTimeout:         10 * time.Second,
		MemorySeedFile:        "data/expenses.json",
		SQLiteDBPath:          "data/expenseview.db",
		GoogleSheetName:       "Expenses",
		RefreshInterval:       30 * time.Second,
		LogLevel:              "info",
		LogFormat:             "text",
		AMQPExchange:          "expenseview",
		AMQPCreatedRoutingKey: "expense.created",
		AMQPRefreshQueue:      "expenseview.refresh",
		SubmitRatePerMinute:   30,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then the environment. Later sources win.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.overlayEnv()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Port = getEnv("PORT", c.Port)

	c.RemoteBackend = getEnv("REMOTE_BACKEND", c.RemoteBackend)
	c.RemoteBaseURL = getEnv("REMOTE_BASE_URL", c.RemoteBaseURL)
	c.RemoteSessionCookie = getEnv("REMOTE_SESSION_COOKIE", c.RemoteSessionCookie)
	c.RemoteTimeout = getEnvDuration("REMOTE_TIMEOUT", c.RemoteTimeout)
	c.MemorySeedFile = getEnv("MEMORY_SEED_FILE", c.MemorySeedFile)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleServiceAccountFile))

	c.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", c.RefreshInterval)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPCreatedRoutingKey = getEnv("AMQP_CREATED_ROUTING_KEY", c.AMQPCreatedRoutingKey)
	c.AMQPRefreshQueue = getEnv("AMQP_REFRESH_QUEUE", c.AMQPRefreshQueue)

	c.SubmitRatePerMinute = getEnvInt("SUBMIT_RATE_PER_MINUTE", c.SubmitRatePerMinute)
}

// AMQPEnabled reports whether an AMQP broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate remote backend
	validBackends := []string{BackendHTTP, BackendMemory, BackendSQLite, BackendSheets}
	if !slices.Contains(validBackends, c.RemoteBackend) {
		errs = append(errs, fmt.Sprintf("invalid remote backend '%s': must be one of %v", c.RemoteBackend, validBackends))
	}

	if c.RemoteBackend == BackendHTTP {
		if c.RemoteBaseURL == "" {
			errs = append(errs, "remote base URL cannot be empty when using http backend")
		} else if u, err := url.Parse(c.RemoteBaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid remote base URL '%s': %v", c.RemoteBaseURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("invalid remote base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		} else if u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid remote base URL '%s': missing host", c.RemoteBaseURL))
		}
		if c.RemoteSessionCookie != "" && !strings.Contains(c.RemoteSessionCookie, "=") {
			errs = append(errs, "remote session cookie must be in name=value form")
		}
	}

	if c.RemoteBackend == BackendSQLite && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.RemoteBackend == BackendSheets {
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google spreadsheet ID cannot be empty when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errs = append(errs, "Google service account credentials are required when using sheets backend")
		}
	}

	if c.RemoteTimeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid remote timeout %v: must not be negative", c.RemoteTimeout))
	}

	if c.RefreshInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPCreatedRoutingKey == "" {
			errs = append(errs, "AMQP created routing key cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRefreshQueue == "" {
			errs = append(errs, "AMQP refresh queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SubmitRatePerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid submit rate %d: must be at least 1 per minute", c.SubmitRatePerMinute))
	}

	// Return combined errors
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
