package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/defkit/jsdef/internal/config"
	"github.com/defkit/jsdef/internal/daemon"
	"github.com/defkit/jsdef/internal/indexer"
	"github.com/defkit/jsdef/internal/logger"
	"github.com/defkit/jsdef/internal/snapshot"
	"github.com/defkit/jsdef/internal/watcher"
	"github.com/defkit/jsdef/pkg/version"
)

func main() {
	app := &cli.App{
		Name:    "jsdef",
		Usage:   "cross-file function definition lookup for CommonJS projects",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "project root directory to index",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path (TOML)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn, error",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "emit logs as JSON",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "extra exclusion globs, e.g. --exclude 'vendor/**'",
			},
		},
		Commands: []*cli.Command{
			indexCommand(),
			fnCommand(),
			exportCommand(),
			serveCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers CLI flags over the config file over code defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if root := c.String("root"); root != "" {
		cfg.Root = root
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if c.Bool("log-json") {
		cfg.LogJSON = true
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Excludes = append(cfg.Excludes, excludes...)
	}

	logger.Init(logger.Config{
		Level: logger.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	return cfg, nil
}

func buildIndexer(cfg *config.Config) (*indexer.Indexer, error) {
	ix := indexer.New(cfg.Root, indexer.WithExcludes(cfg.Excludes))
	if err := ix.Index(); err != nil {
		return nil, err
	}
	return ix, nil
}

func watcherConfig(cfg *config.Config) watcher.Config {
	return watcher.Config{
		DebounceWindow: time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond,
		MaxBatch:       cfg.Watch.MaxBatch,
		IgnorePatterns: cfg.Watch.Ignore,
		WatchHidden:    cfg.Watch.Hidden,
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "build the catalog and print a summary",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			ix, err := buildIndexer(cfg)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			s := ix.Stats()
			fmt.Printf("indexed %d files, %d functions, %d imports under %s\n",
				s.Files, s.Functions, s.Imports, ix.Root())
			return nil
		},
	}
}

func fnCommand() *cli.Command {
	return &cli.Command{
		Name:      "fn",
		Usage:     "print a function's source from wherever it is defined",
		ArgsUsage: "<file> <function>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "object",
				Aliases: []string{"o"},
				Usage:   "qualifier for member-style calls (obj.method)",
			},
			&cli.IntFlag{
				Name:    "max-lines",
				Aliases: []string{"n"},
				Usage:   "stop after this many lines (0 = to end of file)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: jsdef fn <file> <function>", 1)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			ix, err := buildIndexer(cfg)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			file, funcName := c.Args().Get(0), c.Args().Get(1)
			lines, err := ix.FnContent(file, funcName, c.String("object"))
			if err != nil {
				if errors.Is(err, indexer.ErrNotIndexed) || errors.Is(err, indexer.ErrNoDefinition) {
					return cli.Exit(err.Error(), 2)
				}
				return cli.Exit(err.Error(), 1)
			}

			out := lines.Take(c.Int("max-lines"))
			if len(out) == 0 {
				if hints := suggestions(ix, file, funcName); len(hints) > 0 {
					fmt.Fprintf(os.Stderr, "%s not found; did you mean %s?\n",
						funcName, formatSuggestions(hints))
				}
				return cli.Exit("", 1)
			}
			for _, line := range out {
				fmt.Println(line)
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the catalog to a SQLite snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"O"},
				Usage:   "snapshot database path",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			ix, err := buildIndexer(cfg)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			dbPath := cfg.ExportDB
			if out := c.String("out"); out != "" {
				dbPath = out
			}

			store, err := snapshot.Open(dbPath)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer store.Close()

			if err := store.Write(ix); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			s, err := store.Stats()
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			fmt.Printf("exported %d files, %d functions, %d imports to %s\n",
				s.Files, s.Functions, s.Imports, dbPath)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "answer catalog queries over a unix socket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "socket",
				Usage: "socket path",
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "do not rebuild the catalog on file changes",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			ix, err := buildIndexer(cfg)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			socketPath := cfg.Socket
			if s := c.String("socket"); s != "" {
				socketPath = s
			}

			build := func() (*indexer.Indexer, error) {
				return buildIndexer(cfg)
			}
			d := daemon.New(socketPath, ix, build)

			if !c.Bool("no-watch") {
				w, err := watcher.New(watcherConfig(cfg), cfg.Root, func([]watcher.FileEvent) {
					d.Rebuild()
				})
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				if err := w.Start(context.Background()); err != nil {
					return cli.Exit(err.Error(), 1)
				}
				defer w.Stop()
			}

			if err := d.Start(); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			d.WaitForSignal()
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "rebuild the catalog whenever the tree changes",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			ix, err := buildIndexer(cfg)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			s := ix.Stats()
			fmt.Printf("indexed %d files, %d functions, %d imports; watching %s\n",
				s.Files, s.Functions, s.Imports, ix.Root())

			log := logger.ForComponent("watch")
			rebuild := func(events []watcher.FileEvent) {
				next, err := buildIndexer(cfg)
				if err != nil {
					log.Error("rebuild failed, keeping previous catalog", "error", err)
					return
				}
				s := next.Stats()
				log.Info("catalog rebuilt",
					"changes", len(events), "files", s.Files,
					"functions", s.Functions, "imports", s.Imports)
			}

			w, err := watcher.New(watcherConfig(cfg), cfg.Root, rebuild)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if err := w.Start(context.Background()); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan
			return w.Stop()
		},
	}
}
