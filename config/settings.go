// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/richinex/theseus/storage"
)

// Settings holds all application configuration.
type Settings struct {
	Store  StoreConfig
	Export ExportConfig
}

// StoreConfig holds response store configuration.
type StoreConfig struct {
	Dir           string        // Directory for response files
	TTL           time.Duration // How long stored responses stay addressable
	SizeThreshold int           // Inline limit in bytes
	DBPath        string        // SQLite metadata index path; empty for memory-only
}

// ExportConfig holds exporter configuration.
type ExportConfig struct {
	AllowedPaths []string // Roots exports may write under; empty allows all
}

// New creates settings from environment variables.
// Returns an error if a variable contains an invalid value.
func New() (Settings, error) {
	dir := os.Getenv("THESEUS_STORAGE_DIR")
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "theseus-storage")
	}

	threshold, err := getEnvInt("THESEUS_SIZE_THRESHOLD", storage.DefaultSizeThreshold)
	if err != nil {
		return Settings{}, err
	}
	if threshold <= 0 {
		return Settings{}, fmt.Errorf("THESEUS_SIZE_THRESHOLD must be positive, got %d", threshold)
	}

	ttlMinutes, err := getEnvInt("THESEUS_TTL_MINUTES", 60)
	if err != nil {
		return Settings{}, err
	}
	if ttlMinutes <= 0 {
		return Settings{}, fmt.Errorf("THESEUS_TTL_MINUTES must be positive, got %d", ttlMinutes)
	}

	var allowedPaths []string
	if val := os.Getenv("THESEUS_EXPORT_PATHS"); val != "" {
		allowedPaths = filepath.SplitList(val)
	}

	return Settings{
		Store: StoreConfig{
			Dir:           dir,
			TTL:           time.Duration(ttlMinutes) * time.Minute,
			SizeThreshold: threshold,
			DBPath:        os.Getenv("THESEUS_DB_PATH"),
		},
		Export: ExportConfig{
			AllowedPaths: allowedPaths,
		},
	}, nil
}

// MustNew creates settings from the environment.
// Panics on invalid values. Use this only when configuration errors
// should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}
