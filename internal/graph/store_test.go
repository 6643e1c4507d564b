package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

// frag builds a minimal python file fragment with the given functions and
// call pairs.
func frag(path, hash string, funcs []string, calls [][2]string) *types.FileFragment {
	f := &types.FileFragment{Path: path, ContentHash: hash, Language: "python"}
	fileID := f.FileNodeID()
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	f.Nodes = append(f.Nodes, types.Node{
		ID: fileID, Name: base, Kind: types.KindFile, Language: "python",
		Location: types.Location{FilePath: path, StartLine: 1, EndLine: 100},
	})
	ids := map[string]types.NodeID{}
	for i, name := range funcs {
		line := i + 2
		id := types.MakeNodeID(types.KindFunction, path, name, line)
		ids[name] = id
		f.Nodes = append(f.Nodes, types.Node{
			ID: id, Name: name, Kind: types.KindFunction, Language: "python",
			Location:   types.Location{FilePath: path, StartLine: line, EndLine: line + 1},
			Complexity: 1,
		})
		f.Edges = append(f.Edges, types.Relationship{
			ID: types.MakeEdgeID(types.RelContains, fileID, id), Type: types.RelContains,
			SourceID: fileID, TargetID: id,
		})
	}
	for _, pair := range calls {
		src, dst := ids[pair[0]], ids[pair[1]]
		f.Edges = append(f.Edges, types.Relationship{
			ID: types.MakeEdgeID(types.RelCalls, src, dst), Type: types.RelCalls,
			SourceID: src, TargetID: dst,
		})
	}
	return f
}

func TestReplaceFileFragmentIdempotent(t *testing.T) {
	s := NewStore(nil)
	f := frag("src/a.py", "h1", []string{"foo", "bar"}, [][2]string{{"bar", "foo"}})

	s.ReplaceFileFragment(f)
	nodes, edges := s.NodeCount(), s.EdgeCount()

	s.ReplaceFileFragment(f)
	assert.Equal(t, nodes, s.NodeCount())
	assert.Equal(t, edges, s.EdgeCount())
}

func TestReplaceFileFragmentSwapsContent(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/a.py", "h1", []string{"foo", "bar"}, [][2]string{{"bar", "foo"}}))
	before := s.EdgeCount()

	// bar is gone: its CONTAINS and CALLS edges must go with it.
	s.ReplaceFileFragment(frag("src/a.py", "h2", []string{"foo"}, nil))

	_, ok := s.GetNode(types.MakeNodeID(types.KindFunction, "src/a.py", "bar", 3))
	assert.False(t, ok)
	_, ok = s.GetNode(types.MakeNodeID(types.KindFunction, "src/a.py", "foo", 2))
	assert.True(t, ok)
	assert.Equal(t, before-2, s.EdgeCount())
}

func TestRemoveFileCascades(t *testing.T) {
	s := NewStore(nil)
	a := frag("src/a.py", "h1", []string{"foo"}, nil)
	b := frag("src/b.py", "h1", []string{"caller"}, nil)
	// Cross-file call b.caller -> a.foo.
	fooID := types.MakeNodeID(types.KindFunction, "src/a.py", "foo", 2)
	callerID := types.MakeNodeID(types.KindFunction, "src/b.py", "caller", 2)
	b.Edges = append(b.Edges, types.Relationship{
		ID: types.MakeEdgeID(types.RelCalls, callerID, fooID), Type: types.RelCalls,
		SourceID: callerID, TargetID: fooID,
	})

	s.ReplaceFileFragment(a)
	s.ReplaceFileFragment(b)
	require.Equal(t, 1, len(s.Neighbors(fooID, []types.RelType{types.RelCalls}, In)))

	s.RemoveFile("src/a.py")

	_, ok := s.GetNode(fooID)
	assert.False(t, ok)
	// The incident cross-file edge is gone too.
	assert.Empty(t, s.Neighbors(callerID, []types.RelType{types.RelCalls}, Out))
	assert.False(t, s.HasFile("src/a.py"))
	assert.True(t, s.HasFile("src/b.py"))
}

func TestMissingEndpointEdgeDropped(t *testing.T) {
	s := NewStore(nil)
	f := frag("src/a.py", "h1", []string{"foo"}, nil)
	fooID := types.MakeNodeID(types.KindFunction, "src/a.py", "foo", 2)
	ghost := types.NodeID("FUNCTION:ghost.py:nope:1")
	f.Edges = append(f.Edges, types.Relationship{
		ID: types.MakeEdgeID(types.RelCalls, fooID, ghost), Type: types.RelCalls,
		SourceID: fooID, TargetID: ghost,
	})

	s.ReplaceFileFragment(f)

	assert.Empty(t, s.Neighbors(fooID, []types.RelType{types.RelCalls}, Out))
	assert.Equal(t, int64(1), s.DroppedEdges())
	// Every committed edge has resident endpoints.
	assert.Equal(t, 1, s.EdgeCount()) // just the CONTAINS edge
}

func TestSymbolTableMaintained(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/a.py", "h1", []string{"foo", "bar"}, nil))

	ids := s.LookupSymbol("python", "foo")
	require.Len(t, ids, 1)

	snap := s.SymbolSnapshot()
	assert.Len(t, snap.Lookup("python", "foo"), 1)
	assert.Empty(t, snap.Lookup("go", "foo"))

	s.RemoveFile("src/a.py")
	assert.Empty(t, s.LookupSymbol("python", "foo"))
	// The snapshot is a frozen copy, unaffected by the removal.
	assert.Len(t, snap.Lookup("python", "foo"), 1)
}

func TestSearchNodesDeterministicOrder(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/a.py", "h1", []string{"alpha", "beta", "alphabet"}, nil))

	res := s.SearchNodes("alpha", "", "")
	require.Len(t, res, 2)
	assert.Equal(t, "alpha", res[0].Name)
	assert.Equal(t, "alphabet", res[1].Name)

	// Case-insensitive.
	res = s.SearchNodes("ALPHA", "python", types.KindFunction)
	assert.Len(t, res, 2)

	// Kind filter on FILE keeps only the FILE node.
	res = s.SearchNodes("", "", types.KindFile)
	assert.Len(t, res, 1)
}

func TestSeamLinkingToProvider(t *testing.T) {
	s := NewStore(nil)

	// TS caller with a seam call to HTTP /api/users.
	ts := &types.FileFragment{Path: "web/app.ts", ContentHash: "h1", Language: "typescript"}
	tsFile := ts.FileNodeID()
	callerID := types.MakeNodeID(types.KindFunction, "web/app.ts", "loadUsers", 2)
	ts.Nodes = []types.Node{
		{ID: tsFile, Name: "app.ts", Kind: types.KindFile, Language: "typescript",
			Location: types.Location{FilePath: "web/app.ts", StartLine: 1, EndLine: 10}},
		{ID: callerID, Name: "loadUsers", Kind: types.KindFunction, Language: "typescript",
			Location: types.Location{FilePath: "web/app.ts", StartLine: 2, EndLine: 5}},
	}
	ts.Edges = []types.Relationship{{
		ID: types.MakeEdgeID(types.RelContains, tsFile, callerID), Type: types.RelContains,
		SourceID: tsFile, TargetID: callerID,
	}}
	ts.SeamCalls = []types.SeamCall{{
		CallerID: callerID, TargetLang: "HTTP", Endpoint: "/api/users",
		Confidence: "high", Line: 3,
	}}
	s.ReplaceFileFragment(ts)

	// Without a provider, the seam lands on a synthetic endpoint node.
	seams := s.Neighbors(callerID, []types.RelType{types.RelSeam}, Out)
	require.Len(t, seams, 1)
	synthetic, ok := s.GetNode(seams[0].TargetID)
	require.True(t, ok)
	assert.Equal(t, "/api/users", synthetic.Name)
	assert.Equal(t, true, synthetic.Metadata["seam_endpoint"])

	// Python provider appears: the seam relinks to the handler.
	py := &types.FileFragment{Path: "api/server.py", ContentHash: "h1", Language: "python"}
	pyFile := py.FileNodeID()
	handlerID := types.MakeNodeID(types.KindFunction, "api/server.py", "users", 4)
	py.Nodes = []types.Node{
		{ID: pyFile, Name: "server.py", Kind: types.KindFile, Language: "python",
			Location: types.Location{FilePath: "api/server.py", StartLine: 1, EndLine: 10}},
		{ID: handlerID, Name: "users", Kind: types.KindFunction, Language: "python",
			Location: types.Location{FilePath: "api/server.py", StartLine: 4, EndLine: 6}},
	}
	py.Edges = []types.Relationship{{
		ID: types.MakeEdgeID(types.RelContains, pyFile, handlerID), Type: types.RelContains,
		SourceID: pyFile, TargetID: handlerID,
	}}
	py.Providers = []types.SeamProvider{{NodeID: handlerID, TargetLang: "HTTP", Endpoint: "/api/users"}}
	s.ReplaceFileFragment(py)

	seams = s.Neighbors(callerID, []types.RelType{types.RelSeam}, Out)
	require.Len(t, seams, 1)
	assert.Equal(t, handlerID, seams[0].TargetID)
	assert.Equal(t, []string{"typescript", "python"}, seams[0].Metadata["languages"])

	// The synthetic endpoint node is gone.
	_, ok = s.GetNode(synthetic.ID)
	assert.False(t, ok)

	// Removing the provider reverts to a synthetic endpoint.
	s.RemoveFile("api/server.py")
	seams = s.Neighbors(callerID, []types.RelType{types.RelSeam}, Out)
	require.Len(t, seams, 1)
	node, ok := s.GetNode(seams[0].TargetID)
	require.True(t, ok)
	assert.Equal(t, true, node.Metadata["seam_endpoint"])
}

func TestClearAll(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/a.py", "h1", []string{"foo"}, nil))
	s.ClearAll()
	assert.Zero(t, s.NodeCount())
	assert.Zero(t, s.EdgeCount())
	assert.Empty(t, s.FilePaths())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/a.py", "h1", []string{"foo", "bar"}, [][2]string{{"bar", "foo"}}))
	s.ReplaceFileFragment(frag("src/b.py", "h2", []string{"baz"}, nil))

	snap := s.Snapshot()

	restored := NewStore(nil)
	restored.Restore(snap)

	assert.Equal(t, s.NodeCount(), restored.NodeCount())
	assert.Equal(t, s.EdgeCount(), restored.EdgeCount())
	assert.ElementsMatch(t, s.FilePaths(), restored.FilePaths())

	fooID := types.MakeNodeID(types.KindFunction, "src/a.py", "foo", 2)
	callers := restored.Neighbors(fooID, []types.RelType{types.RelCalls}, In)
	assert.Len(t, callers, 1)
}
