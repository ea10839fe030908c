// Package prefs provides the persistent key-value settings store the local
// score ledger lives in. Values are scalar (int, float, string) and keyed by
// flat strings, the way a game engine's player preferences work. Getters
// return the supplied default when a key is missing or holds a value of the
// wrong shape.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
)

// Backend names accepted by Open.
const (
	BackendIni    = "ini"
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

var ErrUnknownBackend = errors.New("unknown prefs backend")

// Store is a persistent scalar key-value store. Implementations are safe for
// concurrent use. Setters may buffer; Save makes every prior write durable.
type Store interface {
	GetInt(key string, def int) int
	SetInt(key string, value int) error
	GetFloat(key string, def float64) float64
	SetFloat(key string, value float64) error
	GetString(key string, def string) string
	SetString(key string, value string) error
	HasKey(key string) bool
	Save() error
	Close() error
}

// OpenConfig selects and configures a backend.
type OpenConfig struct {
	Backend  string
	Path     string
	RedisURL string
	RedisKey string
	Logger   *zap.Logger
}

// Open returns the Store selected by cfg.Backend.
func Open(cfg OpenConfig) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", BackendIni:
		return OpenIni(cfg.Path)
	case BackendJSON:
		return OpenJSON(cfg.Path)
	case BackendSQLite:
		return OpenSQLite(cfg.Path)
	case BackendRedis:
		return OpenRedis(cfg.RedisURL, cfg.RedisKey, cfg.Logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseInt(s string, def int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

// writeFileAtomic replaces path with data so a crash mid-write leaves either
// the old or the new contents on disk, never a torn file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp prefs file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close prefs: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
