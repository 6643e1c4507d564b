package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/codegraph/internal/debug"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Keyspace under the fixed prefix:
//
//	code_graph:nodes:<path>            serialized node records for a file
//	code_graph:edges:<path>            serialized edges originating in a file
//	code_graph:meta:<path>             content hash / mtime / versions stamp
//	code_graph:analysis:<name>:<hash>  derived analysis results
//	code_graph:meta:generation         logical invalidation counter
const Prefix = "code_graph:"

func NodesKey(path string) string { return Prefix + "nodes:" + path }
func EdgesKey(path string) string { return Prefix + "edges:" + path }
func MetaKey(path string) string  { return Prefix + "meta:" + path }
func AnalysisKey(name, scopeHash string) string {
	return Prefix + "analysis:" + name + ":" + scopeHash
}

const generationKey = Prefix + "meta:generation"

// ScopeHash derives the short hash that scopes derived-analysis keys.
func ScopeHash(parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		h.WriteString(p)
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Cache is the two-tier cache. L1 is always present; the KV tier is
// optional (nil means L1-only) and a lost KV connection degrades reads and
// writes to L1-only without failing them.
type Cache struct {
	l1  *L1
	kv  KV
	ttl time.Duration

	patternSetVersion int
	generation        atomic.Int64
	degraded          atomic.Bool
}

// New builds the cache. ttl applies to L2 file entries; kv may be nil.
func New(kv KV, ttl time.Duration, patternSetVersion int) *Cache {
	return &Cache{
		l1:                NewL1(DefaultL1MaxEntries, ttl),
		kv:                kv,
		ttl:               ttl,
		patternSetVersion: patternSetVersion,
	}
}

// Close releases both tiers.
func (c *Cache) Close() error {
	c.l1.Close()
	if c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// Connected reports whether the KV tier is reachable. L1-only caches report
// false without being degraded.
func (c *Cache) Connected(ctx context.Context) bool {
	if c.kv == nil {
		return false
	}
	ok := c.kv.Connected(ctx)
	c.degraded.Store(!ok)
	return ok
}

// Generation returns the current cache generation.
func (c *Cache) Generation() int64 {
	return c.generation.Load()
}

// LoadGeneration reads meta:generation from the KV tier, initializing it to
// 1 when absent. Called once at startup before any reads.
func (c *Cache) LoadGeneration(ctx context.Context) error {
	if c.kv == nil {
		c.generation.Store(1)
		return nil
	}
	data, found, err := c.kv.Get(ctx, generationKey)
	if err != nil {
		c.markDegraded(err)
		c.generation.Store(1)
		return nil
	}
	if !found {
		c.generation.Store(1)
		return c.kvSet(ctx, generationKey, []byte("1"), 0)
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("corrupt generation value %q: %w", data, err)
	}
	c.generation.Store(gen)
	return nil
}

// BumpGeneration increments meta:generation, logically invalidating every
// file entry in both tiers without scanning the keyspace.
func (c *Cache) BumpGeneration(ctx context.Context) error {
	gen := c.generation.Add(1)
	c.l1.Clear()
	if c.kv == nil {
		return nil
	}
	return c.kvSet(ctx, generationKey, []byte(strconv.FormatInt(gen, 10)), 0)
}

// GetFragment returns the cached fragment for a path when its stored stamp
// matches the current content hash, pattern-set version and generation.
// Policy: L1 hit wins; an L2 hit is promoted into L1.
func (c *Cache) GetFragment(ctx context.Context, path, contentHash string) (*types.FileFragment, bool) {
	gen := c.generation.Load()

	if v, ok := c.l1.Get(NodesKey(path), gen); ok {
		frag := v.(*types.FileFragment)
		if frag.ContentHash == contentHash {
			return frag, true
		}
	}
	if c.kv == nil || c.degraded.Load() {
		return nil, false
	}

	metaRaw, found, err := c.kv.Get(ctx, MetaKey(path))
	if err != nil {
		c.markDegraded(err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	meta, err := DecodeMeta(metaRaw)
	if err != nil {
		debug.LogCache("corrupt meta for %s: %v\n", path, err)
		return nil, false
	}
	if meta.ContentHash != contentHash ||
		meta.PatternSetVersion != c.patternSetVersion ||
		meta.Generation != gen {
		return nil, false
	}

	nodesRaw, foundN, err := c.kv.Get(ctx, NodesKey(path))
	if err != nil {
		c.markDegraded(err)
		return nil, false
	}
	edgesRaw, foundE, err := c.kv.Get(ctx, EdgesKey(path))
	if err != nil {
		c.markDegraded(err)
		return nil, false
	}
	if !foundN || !foundE {
		return nil, false
	}
	nodes, err := DecodeNodes(nodesRaw)
	if err != nil {
		debug.LogCache("corrupt nodes for %s: %v\n", path, err)
		return nil, false
	}
	edges, err := DecodeEdges(edgesRaw)
	if err != nil {
		debug.LogCache("corrupt edges for %s: %v\n", path, err)
		return nil, false
	}

	frag := &types.FileFragment{
		Path:        path,
		ContentHash: meta.ContentHash,
		Language:    meta.Language,
		Nodes:       nodes,
		Edges:       edges,
		SeamCalls:   meta.SeamCalls,
		Providers:   meta.Providers,
	}
	c.l1.Set(NodesKey(path), frag, gen)
	return frag, true
}

// PutFragment writes a fragment through both tiers.
func (c *Cache) PutFragment(ctx context.Context, frag *types.FileFragment, mtime int64) error {
	gen := c.generation.Load()
	c.l1.Set(NodesKey(frag.Path), frag, gen)

	if c.kv == nil || c.degraded.Load() {
		return nil
	}
	nodesRaw, err := EncodeNodes(frag.Nodes)
	if err != nil {
		return err
	}
	edgesRaw, err := EncodeEdges(frag.Edges)
	if err != nil {
		return err
	}
	metaRaw, err := EncodeMeta(&FileMeta{
		ContentHash:       frag.ContentHash,
		Mtime:             mtime,
		PatternSetVersion: c.patternSetVersion,
		Generation:        gen,
		Language:          frag.Language,
		SeamCalls:         frag.SeamCalls,
		Providers:         frag.Providers,
	})
	if err != nil {
		return err
	}
	if err := c.kvSet(ctx, NodesKey(frag.Path), nodesRaw, c.ttl); err != nil {
		return nil // degraded; L1 write already happened
	}
	if err := c.kvSet(ctx, EdgesKey(frag.Path), edgesRaw, c.ttl); err != nil {
		return nil
	}
	return c.kvSet(ctx, MetaKey(frag.Path), metaRaw, c.ttl)
}

// InvalidateFile deletes a file's entries from both tiers and every derived
// analysis entry. Callers serialize this with commits through the engine's
// single writer.
func (c *Cache) InvalidateFile(ctx context.Context, path string) {
	c.l1.Delete(NodesKey(path))
	if c.kv != nil && !c.degraded.Load() {
		if err := c.kv.Delete(ctx, NodesKey(path), EdgesKey(path), MetaKey(path)); err != nil {
			c.markDegraded(err)
		}
	}
	c.InvalidateAnalyses(ctx)
}

// InvalidateAnalyses drops every derived-analysis entry.
func (c *Cache) InvalidateAnalyses(ctx context.Context) {
	c.l1.DeletePrefix(Prefix + "analysis:")
	if c.kv != nil && !c.degraded.Load() {
		if _, err := c.kv.DeletePattern(ctx, Prefix+"analysis:*"); err != nil {
			c.markDegraded(err)
		}
	}
}

// FlushAll drops every entry in both tiers.
func (c *Cache) FlushAll(ctx context.Context) error {
	c.l1.Clear()
	if c.kv == nil {
		return nil
	}
	if _, err := c.kv.DeletePattern(ctx, Prefix+"*"); err != nil {
		c.markDegraded(err)
		return err
	}
	return nil
}

// GetAnalysis reads a derived-analysis value (JSON) into target.
func (c *Cache) GetAnalysis(ctx context.Context, name, scopeHash string, target any) bool {
	key := AnalysisKey(name, scopeHash)
	gen := c.generation.Load()

	if v, ok := c.l1.Get(key, gen); ok {
		if raw, ok := v.([]byte); ok {
			if json.Unmarshal(raw, target) == nil {
				return true
			}
		}
	}
	if c.kv == nil || c.degraded.Load() {
		return false
	}
	raw, found, err := c.kv.Get(ctx, key)
	if err != nil {
		c.markDegraded(err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		debug.LogCache("corrupt analysis %s: %v\n", key, err)
		return false
	}
	c.l1.Set(key, raw, gen)
	return true
}

// PutAnalysis writes a derived-analysis value (JSON) through both tiers.
func (c *Cache) PutAnalysis(ctx context.Context, name, scopeHash string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	key := AnalysisKey(name, scopeHash)
	c.l1.Set(key, raw, c.generation.Load())
	if c.kv == nil || c.degraded.Load() {
		return nil
	}
	return c.kvSet(ctx, key, raw, c.ttl)
}

// L1Stats exposes the in-process tier counters.
func (c *Cache) L1Stats() (hits, misses, evictions, count int64) {
	return c.l1.Stats()
}

func (c *Cache) kvSet(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.kv.Set(ctx, key, value, ttl); err != nil {
		c.markDegraded(err)
		return err
	}
	return nil
}

// markDegraded flips the cache to L1-only. The next Connected probe clears
// it when the KV tier recovers.
func (c *Cache) markDegraded(err error) {
	if c.degraded.CompareAndSwap(false, true) {
		debug.LogCache("KV tier degraded to L1-only: %v\n", err)
	}
}
