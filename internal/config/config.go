package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults
const (
	DefaultAPIURL        = "https://api.centrebienetre.ca"
	DefaultTimeout       = 15 * time.Second
	DefaultAPIRPS        = 10
	DefaultSlowRequestMs = 800
	DefaultThumbMaxPx    = 1600
)

type Config struct {
	API     APIConfig
	State   StateConfig
	Mail    MailConfig
	Upload  UploadConfig
	Logging LoggingConfig
}

type APIConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RPS           float64
	SlowRequestMs int
}

type StateConfig struct {
	DBPath string
	Key    string
}

type MailConfig struct {
	ResendKey string
	From      string
}

type UploadConfig struct {
	ThumbMaxPx int
}

type LoggingConfig struct {
	Level string
}

// Load reads a .env file when present, then the environment.
// PRE: none
// POST: Returns a Config with defaults applied, or an error for malformed values
func Load() (*Config, error) {
	godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("CTB_TIMEOUT", DefaultTimeout.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid CTB_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid CTB_TIMEOUT: must be positive")
	}

	rps, err := strconv.ParseFloat(getEnv("CTB_API_RPS", strconv.Itoa(DefaultAPIRPS)), 64)
	if err != nil || rps < 0 {
		return nil, fmt.Errorf("invalid CTB_API_RPS: %q", os.Getenv("CTB_API_RPS"))
	}

	return &Config{
		API: APIConfig{
			BaseURL:       strings.TrimRight(getEnv("CTB_API_URL", DefaultAPIURL), "/"),
			Timeout:       timeout,
			RPS:           rps,
			SlowRequestMs: getEnvAsInt("CTB_SLOW_REQUEST_MS", DefaultSlowRequestMs),
		},
		State: StateConfig{
			DBPath: getEnv("CTB_STATE_DB", defaultStatePath()),
			Key:    os.Getenv("CTB_STATE_KEY"),
		},
		Mail: MailConfig{
			ResendKey: os.Getenv("CTB_RESEND_KEY"),
			From:      getEnv("CTB_MAIL_FROM", "Centre Bien-Être <noreply@centrebienetre.ca>"),
		},
		Upload: UploadConfig{
			ThumbMaxPx: getEnvAsInt("CTB_THUMB_MAX_PX", DefaultThumbMaxPx),
		},
		Logging: LoggingConfig{
			Level: getEnv("CTB_LOG_LEVEL", "info"),
		},
	}, nil
}

// SlogLevel maps the configured level name to a slog level, defaulting to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "ctbadmin-state.db"
	}
	return filepath.Join(home, ".ctbadmin", "state.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil && value >= 0 {
		return value
	}
	return defaultValue
}
