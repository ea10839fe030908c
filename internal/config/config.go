package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env string

	// Online leaderboard; empty URL runs offline
	LeaderboardURL string
	HTTPTimeout    time.Duration

	// Display
	MaxEntries      int
	NameColumnWidth int

	// Local settings store
	PrefsBackend    string
	PrefsPath       string
	PrefsSpacedKeys bool
	RedisURL        string
	RedisKey        string

	// Submission pool
	SubmitWorkers   int
	SubmitQueueSize int

	// Reference server
	Port           int
	PostgresURL    string
	AllowedOrigins []string
}

// Load reads configuration from the environment, after loading any .env
// files given (or ".env" when none are). Missing .env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		LeaderboardURL: strings.TrimRight(getEnv("LEADERBOARD_URL", ""), "/"),
		HTTPTimeout:    getEnvDuration("LEADERBOARD_HTTP_TIMEOUT", 10*time.Second),

		MaxEntries:      getEnvInt("LEADERBOARD_MAX_ENTRIES", 10),
		NameColumnWidth: getEnvInt("LEADERBOARD_NAME_WIDTH", 12),

		PrefsBackend:    strings.ToLower(getEnv("PREFS_BACKEND", "ini")),
		PrefsPath:       getEnv("PREFS_PATH", "upward.ini"),
		PrefsSpacedKeys: getEnvBool("PREFS_SPACED_KEYS", false),
		RedisURL:        getEnv("REDIS_URL", ""),
		RedisKey:        getEnv("REDIS_PREFS_KEY", "upward:prefs"),

		SubmitWorkers:   getEnvInt("SUBMIT_WORKERS", 2),
		SubmitQueueSize: getEnvInt("SUBMIT_QUEUE_SIZE", 64),

		Port:        getEnvInt("PORT", 8080),
		PostgresURL: getEnv("POSTGRES_URL", ""),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("LEADERBOARD_MAX_ENTRIES must be positive, got %d", cfg.MaxEntries)
	}
	if cfg.NameColumnWidth <= 0 {
		return nil, fmt.Errorf("LEADERBOARD_NAME_WIDTH must be positive, got %d", cfg.NameColumnWidth)
	}
	if cfg.PrefsBackend == "redis" {
		var err error
		if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Online reports whether an online leaderboard is configured.
func (c *Config) Online() bool { return c.LeaderboardURL != "" }

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
