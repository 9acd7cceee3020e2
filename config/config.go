// Package config loads client settings from the environment and an optional
// .env file.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	APIURL      string        `env:"BOOKX_API_URL" default:"http://localhost:8080"`
	SessionDB   string        `env:"BOOKX_SESSION_DB" default:"bookx-session.db"`
	SessionKey  string        `env:"BOOKX_SESSION_KEY"`
	LogLevel    string        `env:"BOOKX_LOG_LEVEL" default:"warn"`
	LogFormat   string        `env:"BOOKX_LOG_FORMAT" default:"text"`
	HTTPTimeout time.Duration `env:"BOOKX_HTTP_TIMEOUT" default:"0s"`

	TitlesPath   string `env:"BOOKX_TITLES_PATH" default:"/api/v1/titles"`
	BooksPath    string `env:"BOOKX_BOOKS_PATH" default:"/api/v1/books"`
	LoginPath    string `env:"BOOKX_LOGIN_PATH" default:"/api/v1/auth/login"`
	RegisterPath string `env:"BOOKX_REGISTER_PATH" default:"/api/v1/auth/register"`
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that flags may also have overridden.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("BOOKX_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	if strings.TrimSpace(c.SessionDB) == "" {
		return fmt.Errorf("BOOKX_SESSION_DB is required")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("BOOKX_HTTP_TIMEOUT must not be negative")
	}
	if c.SessionKey != "" {
		key, err := hex.DecodeString(c.SessionKey)
		if err != nil {
			return fmt.Errorf("BOOKX_SESSION_KEY must be valid hex: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("BOOKX_SESSION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(key))
		}
	}
	for name, p := range map[string]string{
		"BOOKX_TITLES_PATH":   c.TitlesPath,
		"BOOKX_BOOKS_PATH":    c.BooksPath,
		"BOOKX_LOGIN_PATH":    c.LoginPath,
		"BOOKX_REGISTER_PATH": c.RegisterPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with /, got %q", name, p)
		}
	}
	return nil
}
