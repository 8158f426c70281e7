package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	want := &Config{
		TagFiles:           true,
		RenameFiles:        true,
		AddCoverArt:        true,
		Mode:               ModeTV,
		TVRenamePattern:    "%1 - %2x%3:00 - %4",
		MovieRenamePattern: "%1 (%2)",
		WorkerCount:        4,
		EnableLogging:      true,
		LogRetentionDays:   30,
		CoverCacheHours:    24,
		HTTPTimeoutSeconds: 30,
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath() error = %v, want nil", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("ConfigPath() = %v, want absolute path", path)
	}
	if filepath.Base(filepath.Dir(path)) != ".autotag" {
		t.Errorf("ConfigPath() = %v, want path inside .autotag", path)
	}
	if filepath.Base(path) != "config.json" {
		t.Errorf("ConfigPath() = %v, want path ending with config.json", path)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with non-existent file error = %v, want nil", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load() with non-existent file mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		content string
		want    func() *Config
		wantErr bool
	}{
		"partial keeps defaults": {
			content: `{"mode": "movie", "verbose": true}`,
			want: func() *Config {
				c := DefaultConfig()
				c.Mode = ModeMovie
				c.Verbose = true
				return c
			},
		},
		"explicit false overrides default true": {
			content: `{"tag_files": false, "add_cover_art": false}`,
			want: func() *Config {
				c := DefaultConfig()
				c.TagFiles = false
				c.AddCoverArt = false
				return c
			},
		},
		"empty strings and zero numbers fall back": {
			content: `{"tv_rename_pattern": "", "worker_count": 0, "http_timeout_seconds": 0}`,
			want:    DefaultConfig,
		},
		"invalid json": {
			content: `{"mode": `,
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			got, err := LoadFrom(path)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("LoadFrom() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFrom() error = %v", err)
			}
			if diff := cmp.Diff(tc.want(), got); diff != "" {
				t.Errorf("LoadFrom() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Mode = ModeMovie
	cfg.MovieRenamePattern = "%1 [%2]"
	cfg.WindowsSafe = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(*Config)
		wantErr bool
	}{
		"defaults":     {mutate: func(*Config) {}},
		"unknown mode": {mutate: func(c *Config) { c.Mode = "anime" }, wantErr: true},
		"empty tv pattern while renaming": {
			mutate:  func(c *Config) { c.TVRenamePattern = "  " },
			wantErr: true,
		},
		"empty pattern without renaming": {
			mutate: func(c *Config) {
				c.TVRenamePattern = ""
				c.RenameFiles = false
			},
		},
		"negative rate limit": {
			mutate:  func(c *Config) { c.CoverRequestsPerWindow = -1 },
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    Mode
		wantErr bool
	}{
		"tv":        {in: "tv", want: ModeTV},
		"uppercase": {in: "Movie", want: ModeMovie},
		"alias":     {in: " series ", want: ModeTV},
		"unknown":   {in: "music", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMode(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRenamePatternAndDurations(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if got := cfg.RenamePattern(); got != cfg.TVRenamePattern {
		t.Errorf("RenamePattern() tv = %q, want %q", got, cfg.TVRenamePattern)
	}
	cfg.Mode = ModeMovie
	if got := cfg.RenamePattern(); got != cfg.MovieRenamePattern {
		t.Errorf("RenamePattern() movie = %q, want %q", got, cfg.MovieRenamePattern)
	}
	if got := cfg.HTTPTimeout(); got != 30*time.Second {
		t.Errorf("HTTPTimeout() = %v, want 30s", got)
	}
	if got := cfg.CoverCacheTTL(); got != 24*time.Hour {
		t.Errorf("CoverCacheTTL() = %v, want 24h", got)
	}
}
