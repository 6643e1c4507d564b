// Package config loads the recognized runtime options: built-in defaults
// merged under a `.codegraph.kdl` file at the project root, with the redis
// endpoint overridable from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/codegraph/internal/lang"
)

// ConfigFileName is the per-project configuration file.
const ConfigFileName = ".codegraph.kdl"

// Config holds every recognized option.
type Config struct {
	ProjectRoot string

	EnableCache     bool
	RedisURL        string
	CacheTTLSeconds int

	// cacheEnabledSet records an explicit `cache { enabled }` in the file.
	cacheEnabledSet bool

	WatcherEnabled bool
	DebounceMs     int

	IgnoreFile        string
	PatternSetVersion int

	MaxNodesPerTraversal int
	MaxDepthPerTraversal int

	HTTPAddr string
}

// Default returns the built-in configuration for a project root.
func Default(root string) *Config {
	return &Config{
		ProjectRoot:          root,
		EnableCache:          false,
		CacheTTLSeconds:      3600,
		WatcherEnabled:       true,
		DebounceMs:           2000,
		IgnoreFile:           ".gitignore",
		PatternSetVersion:    lang.PatternSetVersion,
		MaxNodesPerTraversal: 1000,
		MaxDepthPerTraversal: 10,
		HTTPAddr:             ":8745",
	}
}

// Load reads the project config file (if present) over the defaults and
// applies environment overrides. The project root must exist.
func Load(root string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", absRoot)
	}

	cfg := Default(absRoot)

	content, err := os.ReadFile(filepath.Join(absRoot, ConfigFileName))
	if err == nil {
		if err := cfg.applyKDL(string(content)); err != nil {
			return nil, err
		}
	}

	if url := os.Getenv("CODEGRAPH_REDIS_URL"); url != "" {
		cfg.RedisURL = url
	}
	// enable_cache defaults on when a redis endpoint is configured.
	if cfg.RedisURL != "" && !cfg.cacheEnabledSet {
		cfg.EnableCache = true
	}
	return cfg, nil
}

func (c *Config) applyKDL(content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				if nodeName(cn) == "root" {
					if s, ok := firstStringArg(cn); ok {
						if filepath.IsAbs(s) {
							c.ProjectRoot = filepath.Clean(s)
						} else {
							c.ProjectRoot = filepath.Clean(filepath.Join(c.ProjectRoot, s))
						}
					}
				}
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						c.EnableCache = b
						c.cacheEnabledSet = true
					}
				case "redis_url":
					if s, ok := firstStringArg(cn); ok {
						c.RedisURL = s
					}
				case "ttl_seconds":
					if v, ok := firstIntArg(cn); ok {
						c.CacheTTLSeconds = v
					}
				}
			}
		case "watcher":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						c.WatcherEnabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						c.DebounceMs = v
					}
				}
			}
		case "limits":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_nodes":
					if v, ok := firstIntArg(cn); ok {
						c.MaxNodesPerTraversal = v
					}
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						c.MaxDepthPerTraversal = v
					}
				}
			}
		case "ignore_file":
			if s, ok := firstStringArg(n); ok {
				c.IgnoreFile = s
			}
		case "pattern_set_version":
			if v, ok := firstIntArg(n); ok {
				c.PatternSetVersion = v
			}
		case "http_addr":
			if s, ok := firstStringArg(n); ok {
				c.HTTPAddr = s
			}
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
