package watcher

import "time"

type Config struct {
	DebounceWindow time.Duration
	MaxBatch       int
	IgnorePatterns []string
	WatchHidden    bool
}

func DefaultConfig() Config {
	return Config{
		DebounceWindow: 300 * time.Millisecond,
		MaxBatch:       100,
		IgnorePatterns: []string{
			"**/node_modules/**",
			"**/.git/**",
		},
	}
}
