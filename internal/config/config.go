package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings, loaded from the environment.
type Config struct {
	// HTTP
	BindAddr    string
	HTTPTimeout time.Duration

	// Generative model
	GeminiAPIKey string
	GeminiModel  string

	// Sheet tier
	SheetID  string
	SheetGID string

	// Retrieval
	MaxResults      int
	DaysLimit       int
	ExtraFeeds      []string
	FeedsConfigPath string
	ArticleMaxChars int
	SummaryWorkers  int

	// Feed gate
	FeedRateWindow   time.Duration
	FeedGateCapacity int

	// Conversation cache
	CacheTTL time.Duration

	// Persistence
	SQLiteDB    string
	DatabaseURL string

	// Retry policy for upstream fetches
	RetryAttempts int
	RetryDelay    time.Duration
}

// Load builds a Config from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		BindAddr:         getEnv("BIND_ADDR", "0.0.0.0:8080"),
		HTTPTimeout:      getDuration("HTTP_TIMEOUT", 12*time.Second),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		SheetID:          strings.TrimSpace(os.Getenv("SHEET_ID")),
		SheetGID:         getEnv("SHEET_GID", "0"),
		MaxResults:       getInt("MAX_RESULTS", 3),
		DaysLimit:        getInt("DAYS_LIMIT", 2),
		ExtraFeeds:       splitAndTrim(os.Getenv("RSS_FEEDS")),
		FeedsConfigPath:  getEnv("FEEDS_CONFIG_PATH", "configs/feeds.yaml"),
		ArticleMaxChars:  getInt("ARTICLE_MAX_CHARS", 15000),
		SummaryWorkers:   getInt("SUMMARY_WORKERS", 3),
		FeedRateWindow:   getDuration("FEED_RATE_WINDOW", 60*time.Second),
		FeedGateCapacity: getInt("FEED_GATE_CAPACITY", 10000),
		CacheTTL:         getDuration("CACHE_TTL", 6*time.Hour),
		SQLiteDB:         getEnv("SQLITE_DB", "nova.db"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RetryAttempts:    getInt("RETRY_ATTEMPTS", 2),
		RetryDelay:       getDuration("RETRY_DELAY", time.Second),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("MAX_RESULTS must be positive")
	}
	if c.DaysLimit <= 0 {
		return fmt.Errorf("DAYS_LIMIT must be positive")
	}
	if c.SummaryWorkers <= 0 {
		return fmt.Errorf("SUMMARY_WORKERS must be positive")
	}
	if c.FeedRateWindow <= 0 {
		return fmt.Errorf("FEED_RATE_WINDOW must be positive")
	}
	if c.FeedGateCapacity <= 0 {
		return fmt.Errorf("FEED_GATE_CAPACITY must be positive")
	}
	if c.SQLiteDB == "" && c.DatabaseURL == "" {
		return fmt.Errorf("either SQLITE_DB or DATABASE_URL must be set")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
