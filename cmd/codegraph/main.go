package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/codegraph/internal/ast"
	"github.com/standardbeagle/codegraph/internal/cache"
	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/debug"
	"github.com/standardbeagle/codegraph/internal/engine"
	"github.com/standardbeagle/codegraph/internal/graph"
	"github.com/standardbeagle/codegraph/internal/httpapi"
	"github.com/standardbeagle/codegraph/internal/lang"
	"github.com/standardbeagle/codegraph/internal/mcpserver"
	"github.com/standardbeagle/codegraph/internal/parser"
	"github.com/standardbeagle/codegraph/internal/seam"
)

var Version = "0.1.0"

// loadConfig loads the project config and applies CLI flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = cwd
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if v := c.String("redis-url"); v != "" {
		cfg.RedisURL = v
		cfg.EnableCache = true
	}
	if c.IsSet("debounce-ms") {
		cfg.DebounceMs = c.Int("debounce-ms")
	}
	if c.Bool("no-watch") {
		cfg.WatcherEnabled = false
	}
	if v := c.String("addr"); v != "" {
		cfg.HTTPAddr = v
	}
	return cfg, nil
}

// buildEngine assembles the component stack from a construction record of
// explicit collaborators.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	registry := lang.NewRegistry()
	adapter := ast.NewAdapter()
	detector := seam.NewDetector()
	p := parser.New(registry, adapter, detector)

	var kv cache.KV
	if cfg.EnableCache && cfg.RedisURL != "" {
		redisKV, err := cache.NewRedisKV(ctx, cfg.RedisURL)
		if err != nil {
			// A missing KV tier degrades to L1-only; it never blocks startup.
			fmt.Fprintf(os.Stderr, "warning: %v (continuing L1-only)\n", err)
		} else {
			kv = redisKV
		}
	}
	c := cache.New(kv, time.Duration(cfg.CacheTTLSeconds)*time.Second, cfg.PatternSetVersion)
	if err := c.LoadGeneration(ctx); err != nil {
		return nil, err
	}
	if cfg.PatternSetVersion != lang.PatternSetVersion {
		if err := c.BumpGeneration(ctx); err != nil {
			return nil, err
		}
	}

	store := graph.NewStore(func(language, name string) bool {
		return registry.IsStdlibName(lang.Language(language), name)
	})
	return engine.New(cfg, registry, store, c, p)
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Start(); err != nil {
		return err
	}
	go func() {
		if err := eng.AnalyzeFull(ctx); err != nil {
			debug.LogEngine("initial analysis failed: %v\n", err)
		}
	}()

	srv := httpapi.NewServer(eng, cfg.HTTPAddr)
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Printf("codegraph serving %s on %s\n", cfg.ProjectRoot, cfg.HTTPAddr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(c *cli.Context) error {
	debug.SetMCPMode(true)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Start(); err != nil {
		return err
	}
	go func() {
		if err := eng.AnalyzeFull(ctx); err != nil {
			debug.LogEngine("initial analysis failed: %v\n", err)
		}
	}()

	return mcpserver.NewServer(eng).Run(ctx)
}

func runAnalyze(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.WatcherEnabled = false

	ctx := context.Background()
	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.AnalyzeFull(ctx); err != nil {
		return err
	}
	stats := eng.Stats(ctx)
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	app := &cli.App{
		Name:                   "codegraph",
		Usage:                  "Polyglot code property graph server",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root to analyze (default: current directory)",
			},
			&cli.StringFlag{
				Name:  "redis-url",
				Usage: "Redis endpoint for the L2 cache (absent = L1-only)",
			},
			&cli.IntFlag{
				Name:  "debounce-ms",
				Usage: "File-watcher coalescing interval",
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Disable the file watcher",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug logs to a file under the temp dir (suppressed in mcp mode)",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				if path, err := debug.InitDebugLogFile(); err == nil {
					fmt.Fprintf(os.Stderr, "debug log: %s\n", path)
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Analyze the project and serve the HTTP query API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "HTTP listen address",
					},
				},
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: runMCP,
			},
			{
				Name:   "analyze",
				Usage:  "Run one full analysis and print project statistics",
				Action: runAnalyze,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
