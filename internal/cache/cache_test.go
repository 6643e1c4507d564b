package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

func testFragment(path, hash string) *types.FileFragment {
	fileID := types.MakeNodeID(types.KindFile, path, "a.py", 1)
	fnID := types.MakeNodeID(types.KindFunction, path, "foo", 2)
	return &types.FileFragment{
		Path:        path,
		ContentHash: hash,
		Language:    "python",
		Nodes: []types.Node{
			{ID: fileID, Name: "a.py", Kind: types.KindFile, Language: "python",
				Location: types.Location{FilePath: path, StartLine: 1, EndLine: 3}},
			{ID: fnID, Name: "foo", Kind: types.KindFunction, Language: "python",
				Location: types.Location{FilePath: path, StartLine: 2, EndLine: 3}, Complexity: 1},
		},
		Edges: []types.Relationship{
			{ID: types.MakeEdgeID(types.RelContains, fileID, fnID),
				Type: types.RelContains, SourceID: fileID, TargetID: fnID},
		},
	}
}

func newTestCache(t *testing.T) (*Cache, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	c := New(kv, time.Hour, 3)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.LoadGeneration(context.Background()))
	return c, kv
}

func TestFragmentWriteThroughAndRead(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	frag := testFragment("src/a.py", "hash1")
	require.NoError(t, c.PutFragment(ctx, frag, 1700000000))

	got, ok := c.GetFragment(ctx, "src/a.py", "hash1")
	require.True(t, ok)
	assert.Equal(t, frag.Path, got.Path)
	assert.Len(t, got.Nodes, 2)
	assert.Len(t, got.Edges, 1)
}

func TestFragmentStaleContentHashMisses(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.PutFragment(ctx, testFragment("src/a.py", "hash1"), 1))
	_, ok := c.GetFragment(ctx, "src/a.py", "hash2")
	assert.False(t, ok)
}

func TestL2HitPromotesToL1(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.PutFragment(ctx, testFragment("src/a.py", "hash1"), 1))
	// Drop L1 only; the L2 copy must satisfy the read and repopulate L1.
	c.l1.Clear()

	_, ok := c.GetFragment(ctx, "src/a.py", "hash1")
	require.True(t, ok)

	hits, _, _, _ := c.L1Stats()
	_, ok = c.GetFragment(ctx, "src/a.py", "hash1")
	require.True(t, ok)
	hits2, _, _, _ := c.L1Stats()
	assert.Greater(t, hits2, hits, "second read should hit L1")
}

func TestInvalidateFileRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	c, kv := newTestCache(t)

	require.NoError(t, c.PutFragment(ctx, testFragment("src/a.py", "hash1"), 1))
	require.NoError(t, c.PutAnalysis(ctx, "stats", "scope1", map[string]int{"n": 1}))

	c.InvalidateFile(ctx, "src/a.py")

	_, ok := c.GetFragment(ctx, "src/a.py", "hash1")
	assert.False(t, ok)
	_, found, err := kv.Get(ctx, NodesKey("src/a.py"))
	require.NoError(t, err)
	assert.False(t, found)

	var out map[string]int
	assert.False(t, c.GetAnalysis(ctx, "stats", "scope1", &out))
}

func TestGenerationBumpInvalidatesLazily(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.PutFragment(ctx, testFragment("src/a.py", "hash1"), 1))
	require.NoError(t, c.BumpGeneration(ctx))

	// The L2 entry still exists physically but its stamp is stale.
	_, ok := c.GetFragment(ctx, "src/a.py", "hash1")
	assert.False(t, ok)
}

func TestGenerationPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	c1 := New(kv, time.Hour, 3)
	require.NoError(t, c1.LoadGeneration(ctx))
	require.NoError(t, c1.BumpGeneration(ctx))
	gen := c1.Generation()
	c1.Close()

	c2 := New(kv, time.Hour, 3)
	defer c2.Close()
	require.NoError(t, c2.LoadGeneration(ctx))
	assert.Equal(t, gen, c2.Generation())
}

func TestL1OnlyModeWorks(t *testing.T) {
	ctx := context.Background()
	c := New(nil, time.Hour, 3)
	defer c.Close()
	require.NoError(t, c.LoadGeneration(ctx))

	frag := testFragment("src/a.py", "hash1")
	require.NoError(t, c.PutFragment(ctx, frag, 1))

	got, ok := c.GetFragment(ctx, "src/a.py", "hash1")
	require.True(t, ok)
	assert.Equal(t, "src/a.py", got.Path)
	assert.False(t, c.Connected(ctx))
}

func TestAnalysisRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	in := map[string]int{"total": 42}
	require.NoError(t, c.PutAnalysis(ctx, "stats", ScopeHash("root"), in))

	var out map[string]int
	require.True(t, c.GetAnalysis(ctx, "stats", ScopeHash("root"), &out))
	assert.Equal(t, in, out)
}

func TestScopeHashDeterministic(t *testing.T) {
	assert.Equal(t, ScopeHash("a", "b"), ScopeHash("a", "b"))
	assert.NotEqual(t, ScopeHash("a", "b"), ScopeHash("ab"))
}

func TestKeyNamespace(t *testing.T) {
	assert.Equal(t, "code_graph:nodes:src/a.py", NodesKey("src/a.py"))
	assert.Equal(t, "code_graph:edges:src/a.py", EdgesKey("src/a.py"))
	assert.Equal(t, "code_graph:meta:src/a.py", MetaKey("src/a.py"))
	assert.Equal(t, "code_graph:analysis:stats:abc", AnalysisKey("stats", "abc"))
}

func TestL1TTLExpiry(t *testing.T) {
	l1 := NewL1(10, 30*time.Millisecond)
	defer l1.Close()

	l1.Set("k", "v", 1)
	_, ok := l1.Get("k", 1)
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = l1.Get("k", 1)
	assert.False(t, ok, "entry should expire after TTL")
}

func TestL1GenerationMismatch(t *testing.T) {
	l1 := NewL1(10, time.Hour)
	defer l1.Close()

	l1.Set("k", "v", 1)
	_, ok := l1.Get("k", 2)
	assert.False(t, ok)
}
