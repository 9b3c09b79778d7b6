package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Root != "." {
		t.Errorf("default root = %q, want .", cfg.Root)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log level = %q", cfg.LogLevel)
	}
	if len(cfg.Excludes) != 0 {
		t.Errorf("default excludes should be empty, got %v", cfg.Excludes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing explicit file errors", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		if err == nil {
			t.Fatal("expected error for missing explicit config")
		}
	})

	t.Run("file values layer over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := strings.Join([]string{
			`root = "/srv/project"`,
			`log_level = "debug"`,
			`excludes = ["vendor/**"]`,
			``,
			`[watch]`,
			`debounce_ms = 50`,
			`max_batch = 10`,
		}, "\n")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Root != "/srv/project" {
			t.Errorf("root = %q", cfg.Root)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("log_level = %q", cfg.LogLevel)
		}
		if len(cfg.Excludes) != 1 || cfg.Excludes[0] != "vendor/**" {
			t.Errorf("excludes = %v", cfg.Excludes)
		}
		if cfg.Watch.DebounceMillis != 50 || cfg.Watch.MaxBatch != 10 {
			t.Errorf("watch = %+v", cfg.Watch)
		}
		if cfg.Socket == "" {
			t.Error("unset fields should keep their defaults")
		}
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[watch]\ndebounce_ms = -5\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		if _, err := Load(path); err == nil {
			t.Fatal("expected validation error for negative debounce")
		}
	})

	t.Run("malformed toml rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("root = [unclosed\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		if _, err := Load(path); err == nil {
			t.Fatal("expected decode error for malformed file")
		}
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"empty root", func(c *Config) { c.Root = "" }, false},
		{"zero debounce", func(c *Config) { c.Watch.DebounceMillis = 0 }, false},
		{"zero batch", func(c *Config) { c.Watch.MaxBatch = 0 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
