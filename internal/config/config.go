// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/aimanager/internal/fernet"
)

// Log output formats accepted by AIMANAGER_LOG_FORMAT.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// defaultEnvFile is read when AIMANAGER_ENV_FILE is unset and the file exists.
const defaultEnvFile = ".env"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	// SecretKey seals every stored provider token.
	SecretKey *fernet.Key
	// OldSecretKey is the key being rotated away from; nil when unset.
	OldSecretKey *fernet.Key
	LogLevel     slog.Level
	LogFormat    string
	// TokenTTL bounds token age on decrypt. Zero disables the check.
	TokenTTL time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// A dotenv file named by AIMANAGER_ENV_FILE, or ./.env when present, is loaded
// first; variables already set in the process win over the file.
// AIMANAGER_SECRET_KEY is required. Optional variables with defaults:
// AIMANAGER_LISTEN_ADDR (127.0.0.1:8080), AIMANAGER_DB_PATH (aimanager.db),
// AIMANAGER_LOG_LEVEL (info), AIMANAGER_LOG_FORMAT (text), AIMANAGER_TOKEN_TTL (0).
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddr: "127.0.0.1:8080",
		DBPath:     "aimanager.db",
		LogLevel:   slog.LevelInfo,
		LogFormat:  LogFormatText,
	}

	if v, ok := os.LookupEnv("AIMANAGER_LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("AIMANAGER_DB_PATH"); ok && v != "" {
		cfg.DBPath = v
	}

	secret := os.Getenv("AIMANAGER_SECRET_KEY")
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("AIMANAGER_SECRET_KEY is required")
	}
	key, err := fernet.ParseKey(secret)
	if err != nil {
		return nil, fmt.Errorf("AIMANAGER_SECRET_KEY: %w", err)
	}
	cfg.SecretKey = key

	if v := os.Getenv("AIMANAGER_OLD_SECRET_KEY"); strings.TrimSpace(v) != "" {
		old, err := fernet.ParseKey(v)
		if err != nil {
			return nil, fmt.Errorf("AIMANAGER_OLD_SECRET_KEY: %w", err)
		}
		cfg.OldSecretKey = old
	}

	if v, ok := os.LookupEnv("AIMANAGER_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("AIMANAGER_LOG_LEVEL has invalid level %q", v)
		}
	}

	if v, ok := os.LookupEnv("AIMANAGER_LOG_FORMAT"); ok && v != "" {
		v = strings.ToLower(v)
		if v != LogFormatText && v != LogFormatJSON {
			return nil, fmt.Errorf("AIMANAGER_LOG_FORMAT must be %q or %q, got %q", LogFormatText, LogFormatJSON, v)
		}
		cfg.LogFormat = v
	}

	if v, ok := os.LookupEnv("AIMANAGER_TOKEN_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("AIMANAGER_TOKEN_TTL has invalid duration %q: %w", v, err)
		}
		if ttl < 0 {
			return nil, fmt.Errorf("AIMANAGER_TOKEN_TTL must not be negative, got %s", ttl)
		}
		cfg.TokenTTL = ttl
	}

	return cfg, nil
}

// NewLogger builds the process logger described by the config.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadEnvFile applies the dotenv file without overriding the environment.
// An explicit AIMANAGER_ENV_FILE must exist; the default .env is optional.
func loadEnvFile() error {
	if path := os.Getenv("AIMANAGER_ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("AIMANAGER_ENV_FILE %q: %w", path, err)
		}
		return nil
	}

	if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(defaultEnvFile); err != nil {
		return fmt.Errorf("load %s: %w", defaultEnvFile, err)
	}
	return nil
}
