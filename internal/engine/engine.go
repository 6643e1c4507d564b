// Package engine orchestrates analysis: the full walk-parse-commit pass,
// incremental re-analysis of watcher batches, and the read queries the
// transports consume. The engine owns the single writer identity for the
// graph: parsing runs on a bounded pool, commits are serialized.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/codegraph/internal/cache"
	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/debug"
	"github.com/standardbeagle/codegraph/internal/graph"
	"github.com/standardbeagle/codegraph/internal/ignore"
	"github.com/standardbeagle/codegraph/internal/lang"
	"github.com/standardbeagle/codegraph/internal/parser"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Engine wires the analysis pipeline. Construct with New, start the writer
// with Start, and shut down with Close.
type Engine struct {
	cfg      *config.Config
	registry *lang.Registry
	store    *graph.Store
	cache    *cache.Cache
	parser   *parser.Parser
	scope    *ignore.Scope

	batches chan []string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	watcher *Watcher

	lastAnalysis atomic.Int64 // unix seconds, 0 = never
	analyzing    atomic.Bool
	projectHash  string
}

// New builds an engine over its collaborators. cache may use a nil KV tier.
func New(cfg *config.Config, registry *lang.Registry, store *graph.Store, c *cache.Cache, p *parser.Parser) (*Engine, error) {
	scope, err := ignore.NewScope(cfg.ProjectRoot, cfg.IgnoreFile)
	if err != nil {
		return nil, fmt.Errorf("compile ignore scope: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:         cfg,
		registry:    registry,
		store:       store,
		cache:       c,
		parser:      p,
		scope:       scope,
		batches:     make(chan []string, 64),
		ctx:         ctx,
		cancel:      cancel,
		projectHash: cache.ScopeHash(cfg.ProjectRoot),
	}, nil
}

// Start launches the writer task consuming incremental batches, and the
// watcher when enabled. Idempotent per engine instance is not required;
// callers start once.
func (e *Engine) Start() error {
	e.wg.Add(1)
	go e.writerLoop()

	if e.cfg.WatcherEnabled {
		w, err := NewWatcher(e.cfg, e.scope, e.registry, e.Enqueue)
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		e.watcher = w
	}
	return nil
}

// Close stops the watcher and the writer. The cache is left open; its owner
// closes it.
func (e *Engine) Close() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	e.cancel()
	e.wg.Wait()
}

// Store exposes the graph store for read queries.
func (e *Engine) Store() *graph.Store { return e.store }

// Cache exposes the cache layer.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// WatcherRunning reports watcher liveness for health checks.
func (e *Engine) WatcherRunning() bool {
	return e.watcher != nil && e.watcher.Running()
}

// WatcherStats reports watcher counters.
func (e *Engine) WatcherStats() (events, batches int64) {
	if e.watcher == nil {
		return 0, 0
	}
	return e.watcher.Stats()
}

// LastAnalysis returns the time of the last completed analysis pass.
func (e *Engine) LastAnalysis() time.Time {
	sec := e.lastAnalysis.Load()
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Enqueue posts a changed-path batch for incremental analysis. The send
// blocks while the batch queue is full; once the engine is closed, a blocked
// send gives up and the batch is dropped.
func (e *Engine) Enqueue(paths []string) {
	if len(paths) == 0 {
		return
	}
	select {
	case e.batches <- paths:
	case <-e.ctx.Done():
	}
}

// writerLoop is the single writer: it serializes every graph commit.
func (e *Engine) writerLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case batch := <-e.batches:
			if err := e.AnalyzeIncremental(e.ctx, batch); err != nil {
				debug.LogEngine("incremental analysis failed: %v\n", err)
			}
		}
	}
}

// parseResult pairs a fragment with its file mtime for cache stamping.
type parseResult struct {
	frag      *types.FileFragment
	mtime     int64
	fromCache bool
}

// AnalyzeFull walks the project, parses every in-scope file on the bounded
// pool, and commits the fragments. Parsing runs twice over new content: the
// first pass populates the symbol table, the second resolves cross-file
// calls against it. Cached fragments skip both passes.
func (e *Engine) AnalyzeFull(ctx context.Context) error {
	if !e.analyzing.CompareAndSwap(false, true) {
		return fmt.Errorf("analysis already running")
	}
	defer e.analyzing.Store(false)

	started := time.Now()
	if err := e.scope.Reload(); err != nil {
		return fmt.Errorf("reload ignore patterns: %w", err)
	}
	files, err := e.scope.Walk(e.registry.IsSupported)
	if err != nil {
		return fmt.Errorf("walk %s: %w", e.cfg.ProjectRoot, err)
	}
	debug.LogEngine("full analysis: %d files in scope\n", len(files))

	// Pass 1: parse everything (cache-aware) and commit. Fresh fragments
	// are not written through yet; their cross-file calls resolve in pass 2.
	results, err := e.parseAll(ctx, files, e.store.SymbolSnapshot(), true)
	if err != nil {
		return err
	}
	var fresh []string
	for _, r := range results {
		e.store.ReplaceFileFragment(r.frag)
		if !r.fromCache {
			fresh = append(fresh, r.frag.Path)
		}
	}

	// Pass 2: re-parse the fresh files against the fully populated symbol
	// table and write the resolved fragments through the cache. Cached
	// fragments were resolved when they were first written.
	results, err = e.parseAll(ctx, fresh, e.store.SymbolSnapshot(), false)
	if err != nil {
		return err
	}
	for _, r := range results {
		e.commit(ctx, r)
	}

	// Drop files that fell out of scope since the last pass.
	inScope := make(map[string]bool, len(files))
	for _, f := range files {
		inScope[f] = true
	}
	for _, committed := range e.store.FilePaths() {
		if !inScope[committed] {
			e.store.RemoveFile(committed)
			e.cache.InvalidateFile(ctx, committed)
		}
	}

	e.refreshStats(ctx)
	e.lastAnalysis.Store(time.Now().Unix())
	debug.LogEngine("full analysis done in %v\n", time.Since(started))
	return nil
}

// parseAll dispatches parse jobs to the bounded pool. Jobs are pure
// (path, content) -> fragment functions; they never touch the graph.
func (e *Engine) parseAll(ctx context.Context, files []string, symbols parser.SymbolSnapshot, useCache bool) ([]parseResult, error) {
	results := make([]parseResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, rel := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r, err := e.parseOne(ctx, rel, symbols, useCache)
			if err != nil {
				debug.LogEngine("parse %s: %v\n", rel, err)
				return nil // per-file failures are local
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := results[:0]
	for _, r := range results {
		if r.frag != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// parseOne reads, consults the cache when asked, and parses on miss.
func (e *Engine) parseOne(ctx context.Context, rel string, symbols parser.SymbolSnapshot, useCache bool) (parseResult, error) {
	abs := filepath.Join(e.cfg.ProjectRoot, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return parseResult{}, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return parseResult{}, err
	}
	hash := parser.ContentHash(content)

	if useCache {
		if frag, ok := e.cache.GetFragment(ctx, rel, hash); ok {
			return parseResult{frag: frag, mtime: info.ModTime().Unix(), fromCache: true}, nil
		}
	}
	frag, err := e.parser.ParseFile(rel, content, symbols)
	if err != nil {
		return parseResult{}, err
	}
	return parseResult{frag: frag, mtime: info.ModTime().Unix()}, nil
}

// commit writes one fragment into the graph and through the cache tiers.
func (e *Engine) commit(ctx context.Context, r parseResult) {
	e.store.ReplaceFileFragment(r.frag)
	if err := e.cache.PutFragment(ctx, r.frag, r.mtime); err != nil {
		debug.LogCache("write-through failed for %s: %v\n", r.frag.Path, err)
	}
}

// AnalyzeIncremental re-analyzes a batch of changed paths: removed or
// out-of-scope files leave the graph, changed files are re-parsed and
// replaced. Derived analyses are invalidated; stats recompute lazily on the
// next read.
func (e *Engine) AnalyzeIncremental(ctx context.Context, paths []string) error {
	if err := e.scope.Reload(); err != nil {
		debug.LogEngine("reload ignore patterns: %v\n", err)
	}
	symbols := e.store.SymbolSnapshot()

	for _, rel := range paths {
		rel = filepath.ToSlash(rel)
		abs := filepath.Join(e.cfg.ProjectRoot, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		gone := err != nil || info.IsDir() ||
			e.scope.IsIgnored(rel, false) || !e.registry.IsSupported(rel)

		if gone {
			if e.store.HasFile(rel) {
				e.store.RemoveFile(rel)
			}
			e.cache.InvalidateFile(ctx, rel)
			continue
		}

		r, err := e.parseOne(ctx, rel, symbols, false)
		if err != nil {
			debug.LogEngine("incremental parse %s: %v\n", rel, err)
			continue
		}
		e.cache.InvalidateFile(ctx, rel)
		e.commit(ctx, r)
	}

	e.cache.InvalidateAnalyses(ctx)
	e.lastAnalysis.Store(time.Now().Unix())
	return nil
}

// refreshStats recomputes project stats and caches them under the project
// scope hash.
func (e *Engine) refreshStats(ctx context.Context) *graph.Stats {
	stats := e.store.ComputeStats()
	if err := e.cache.PutAnalysis(ctx, "stats", e.projectHash, stats); err != nil {
		debug.LogCache("stats cache write failed: %v\n", err)
	}
	return stats
}

// statsFor serves stats from the derived-analysis cache, recomputing on
// miss.
func (e *Engine) statsFor(ctx context.Context) *graph.Stats {
	var cached graph.Stats
	if e.cache.GetAnalysis(ctx, "stats", e.projectHash, &cached) {
		return &cached
	}
	return e.refreshStats(ctx)
}
