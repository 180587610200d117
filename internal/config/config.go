package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	DefaultBind               = ":8080"
	DefaultMaxTags            = 10
	DefaultLockWaitSeconds    = 5
	DefaultRequestTimeoutSecs = 60
)

type Config struct {
	Bind               string
	DBDSN              string
	LockWaitSeconds    int
	MaxTags            int
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
	LogLevel           string
	SwaggerUIPath      string
	OpenAPIPath        string
	MetricsPath        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Bind:               getenv("SCRIBE_BIND", DefaultBind),
		LockWaitSeconds:    getInt("SCRIBE_DB_LOCK_WAIT_SECONDS", DefaultLockWaitSeconds),
		MaxTags:            getInt("SCRIBE_MAX_TAGS", DefaultMaxTags),
		RequestTimeout:     time.Duration(getInt("SCRIBE_REQUEST_TIMEOUT_SECONDS", DefaultRequestTimeoutSecs)) * time.Second,
		CORSAllowedOrigins: splitAndTrim(os.Getenv("SCRIBE_CORS_ALLOWED_ORIGINS")),
		LogLevel:           os.Getenv("SCRIBE_LOG_LEVEL"),
		SwaggerUIPath:      "/swagger",
		OpenAPIPath:        "/openapi.yaml",
		MetricsPath:        "/metrics",
	}

	cfg.DBDSN = os.Getenv("SCRIBE_DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SCRIBE_DB_DSN is required")
	}
	if _, err := cfg.DriverDSN(); err != nil {
		return nil, err
	}

	if cfg.LockWaitSeconds <= 0 {
		return nil, fmt.Errorf("invalid SCRIBE_DB_LOCK_WAIT_SECONDS: %d", cfg.LockWaitSeconds)
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DriverDSN returns DBDSN with the settings the store relies on forced:
// parsed DATE columns in UTC and a bounded InnoDB lock wait.
func (c *Config) DriverDSN() (string, error) {
	dsn, err := mysql.ParseDSN(c.DBDSN)
	if err != nil {
		return "", fmt.Errorf("invalid SCRIBE_DB_DSN: %w", err)
	}
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	if dsn.Params == nil {
		dsn.Params = map[string]string{}
	}
	lockWait := c.LockWaitSeconds
	if lockWait <= 0 {
		lockWait = DefaultLockWaitSeconds
	}
	dsn.Params["innodb_lock_wait_timeout"] = strconv.Itoa(lockWait)
	return dsn.FormatDSN(), nil
}

// SlogLevel maps LogLevel onto a slog level; empty means info.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid SCRIBE_LOG_LEVEL: %s", c.LogLevel)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func splitAndTrim(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
