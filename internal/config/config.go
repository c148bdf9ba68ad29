// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/stockpulse/portfolio-engine/internal/news"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	DatabaseURL string // empty uses the in-memory store
	RedisURL    string // empty uses the in-memory cache

	JWTSecret    string
	AuthDisabled bool // trust the X-User-ID header instead of tokens

	QuoteBaseURL    string
	QuoteRateLimit  float64 // requests per second
	UpstreamTimeout time.Duration
	NewsFeeds       []string

	WarmSchedule string // cron spec; empty disables warming

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the configuration from the environment. Without arguments an
// optional .env file in the working directory is loaded first; with
// arguments each named file must exist. Variables already set win over
// file values.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		QuoteBaseURL: strings.TrimRight(getEnv("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"), "/"),
		WarmSchedule: strings.TrimSpace(os.Getenv("WARM_SCHEDULE")),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "json")),
		NewsFeeds:    news.DefaultFeeds,
	}

	var err error
	if cfg.AuthDisabled, err = getBool("AUTH_DISABLED", false); err != nil {
		return nil, err
	}
	if cfg.QuoteRateLimit, err = getFloat("QUOTE_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if feeds := os.Getenv("NEWS_FEEDS"); feeds != "" {
		cfg.NewsFeeds = splitList(feeds)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT: %q is not a port number", c.Port)
	}
	if c.JWTSecret == "" && !c.AuthDisabled {
		return errors.New("JWT_SECRET is required unless AUTH_DISABLED=true")
	}
	if c.QuoteRateLimit <= 0 {
		return fmt.Errorf("QUOTE_RATE_LIMIT: must be positive, got %v", c.QuoteRateLimit)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT: must be positive, got %s", c.UpstreamTimeout)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT: must be json or text, got %q", c.LogFormat)
	}
	for _, f := range c.NewsFeeds {
		if !strings.HasPrefix(f, "http://") && !strings.HasPrefix(f, "https://") {
			return fmt.Errorf("NEWS_FEEDS: %q is not an http(s) URL", f)
		}
	}
	return nil
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
