package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Mode selects which rename pattern is applied to processed files.
type Mode string

const (
	ModeTV    Mode = "tv"
	ModeMovie Mode = "movie"
)

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tv", "series", "show", "shows":
		return ModeTV, nil
	case "movie", "movies", "film":
		return ModeMovie, nil
	default:
		return "", fmt.Errorf("unknown mode %q (must be tv or movie)", s)
	}
}

// Config holds everything a tagging run needs. It is read-only once a run starts.
type Config struct {
	TagFiles        bool `json:"tag_files"`
	RenameFiles     bool `json:"rename_files"`
	ExtendedTagging bool `json:"extended_tagging"`
	AddCoverArt     bool `json:"add_cover_art"`
	WindowsSafe     bool `json:"windows_safe"`
	Verbose         bool `json:"verbose"`

	Mode               Mode   `json:"mode"`
	TVRenamePattern    string `json:"tv_rename_pattern"`
	MovieRenamePattern string `json:"movie_rename_pattern"`

	WorkerCount      int  `json:"worker_count"`
	EnableLogging    bool `json:"enable_logging"`
	LogRetentionDays int  `json:"log_retention_days"`

	// Cover art download settings
	CoverCacheEnabled      bool `json:"cover_cache_enabled"`
	CoverCacheHours        int  `json:"cover_cache_hours"`
	HTTPTimeoutSeconds     int  `json:"http_timeout_seconds"`
	CoverRequestsPerWindow int  `json:"cover_requests_per_window"`
	CoverWindowSeconds     int  `json:"cover_window_seconds"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TagFiles:           true,
		RenameFiles:        true,
		ExtendedTagging:    false,
		AddCoverArt:        true,
		WindowsSafe:        false,
		Verbose:            false,
		Mode:               ModeTV,
		TVRenamePattern:    "%1 - %2x%3:00 - %4",
		MovieRenamePattern: "%1 (%2)",
		WorkerCount:        4,
		EnableLogging:      true,
		LogRetentionDays:   30,
		CoverCacheEnabled:  false,
		CoverCacheHours:    24,
		HTTPTimeoutSeconds: 30,
	}
}

// Dir returns the directory holding the config file, logs and caches.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".autotag"), nil
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration at path. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys absent from the file keep their default values
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	defaults := DefaultConfig()
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.TVRenamePattern == "" {
		cfg.TVRenamePattern = defaults.TVRenamePattern
	}
	if cfg.MovieRenamePattern == "" {
		cfg.MovieRenamePattern = defaults.MovieRenamePattern
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if cfg.LogRetentionDays == 0 {
		cfg.LogRetentionDays = defaults.LogRetentionDays
	}
	if cfg.CoverCacheHours == 0 {
		cfg.CoverCacheHours = defaults.CoverCacheHours
	}
	if cfg.HTTPTimeoutSeconds == 0 {
		cfg.HTTPTimeoutSeconds = defaults.HTTPTimeoutSeconds
	}

	return cfg, nil
}

// Save writes the configuration to disk
func (cfg *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return cfg.SaveTo(path)
}

// SaveTo writes the configuration to path, creating its directory.
func (cfg *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configuration values that would make a run meaningless.
func (cfg *Config) Validate() error {
	if cfg.Mode != ModeTV && cfg.Mode != ModeMovie {
		return fmt.Errorf("unknown mode %q (must be tv or movie)", cfg.Mode)
	}
	if cfg.RenameFiles {
		if cfg.Mode == ModeTV && strings.TrimSpace(cfg.TVRenamePattern) == "" {
			return fmt.Errorf("tv rename pattern is empty")
		}
		if cfg.Mode == ModeMovie && strings.TrimSpace(cfg.MovieRenamePattern) == "" {
			return fmt.Errorf("movie rename pattern is empty")
		}
	}
	if cfg.CoverRequestsPerWindow < 0 || cfg.CoverWindowSeconds < 0 {
		return fmt.Errorf("cover rate limit values must not be negative")
	}
	return nil
}

// RenamePattern returns the pattern used by the active mode.
func (cfg *Config) RenamePattern() string {
	if cfg.Mode == ModeMovie {
		return cfg.MovieRenamePattern
	}
	return cfg.TVRenamePattern
}

// HTTPTimeout returns the bound applied to each cover art request.
func (cfg *Config) HTTPTimeout() time.Duration {
	if cfg.HTTPTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
}

// CoverCacheTTL returns how long persisted cover art stays valid.
func (cfg *Config) CoverCacheTTL() time.Duration {
	return time.Duration(cfg.CoverCacheHours) * time.Hour
}

// CoverCachePath returns the gob file backing the persistent cover cache.
func CoverCachePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache", "covers.gob"), nil
}
