package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/defkit/jsdef/internal/pathutil"
)

// Config carries every tunable the binary accepts. Values resolve in
// three layers: code defaults, then an optional TOML file, then CLI
// flags applied by the caller.
type Config struct {
	Root     string   `toml:"root"`
	LogLevel string   `toml:"log_level"`
	LogJSON  bool     `toml:"log_json"`
	Excludes []string `toml:"excludes"`

	Socket   string `toml:"socket"`
	ExportDB string `toml:"export_db"`

	Watch WatchConfig `toml:"watch"`
}

type WatchConfig struct {
	DebounceMillis int      `toml:"debounce_ms"`
	MaxBatch       int      `toml:"max_batch"`
	Ignore         []string `toml:"ignore"`
	Hidden         bool     `toml:"hidden"`
}

func Default() *Config {
	return &Config{
		Root:     ".",
		LogLevel: "info",
		Socket:   filepath.Join(DataDir(), "jsdef.sock"),
		ExportDB: filepath.Join(DataDir(), "index.db"),
		Watch: WatchConfig{
			DebounceMillis: 300,
			MaxBatch:       100,
			Ignore: []string{
				"**/node_modules/**",
				"**/.git/**",
			},
		},
	}
}

// DataDir is where the socket and snapshot database live unless
// configured elsewhere.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jsdef"
	}
	return filepath.Join(home, ".jsdef")
}

// DefaultFile is the config path probed when none is given explicitly.
func DefaultFile() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Load returns the layered configuration. An explicit path must exist
// and decode; an empty path falls back to DefaultFile when present and
// plain defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultFile()
		if !pathutil.IsFile(path) {
			return cfg, nil
		}
	} else if !pathutil.IsFile(path) {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root must not be empty")
	}
	if c.Watch.DebounceMillis <= 0 {
		return fmt.Errorf("watch.debounce_ms must be positive, got %d", c.Watch.DebounceMillis)
	}
	if c.Watch.MaxBatch <= 0 {
		return fmt.Errorf("watch.max_batch must be positive, got %d", c.Watch.MaxBatch)
	}
	return nil
}

// EnsureDataDir creates the data directory for sockets and snapshots.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o700)
}
