package graph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

// chainStore builds a linear call chain f0 -> f1 -> ... -> fN in one file.
func chainStore(t *testing.T, n int) *Store {
	t.Helper()
	names := make([]string, n)
	calls := make([][2]string, 0, n-1)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("f%d", i)
		if i > 0 {
			calls = append(calls, [2]string{names[i-1], names[i]})
		}
	}
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/chain.py", "h1", names, calls))
	return s
}

func fnID(name string, idx int) types.NodeID {
	return types.MakeNodeID(types.KindFunction, "src/chain.py", name, idx+2)
}

func TestBFSDepthBound(t *testing.T) {
	s := chainStore(t, 8)
	res, ok := s.BFS(context.Background(), fnID("f0", 0), 3, 0,
		[]types.RelType{types.RelCalls}, Out)
	require.True(t, ok)

	// f0..f3 only; nothing beyond max_depth.
	assert.Len(t, res.Visits, 4)
	for _, v := range res.Visits {
		assert.LessOrEqual(t, v.Depth, 3)
	}
	assert.Equal(t, 3, res.MaxDepth)
	assert.False(t, res.Truncated)
}

func TestBFSNodeBoundTruncates(t *testing.T) {
	// Star graph: hub calls 50 spokes.
	names := []string{"hub"}
	calls := [][2]string{}
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("spoke%02d", i)
		names = append(names, name)
		calls = append(calls, [2]string{"hub", name})
	}
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/chain.py", "h1", names, calls))

	res, ok := s.BFS(context.Background(), fnID("hub", 0), 10, 10,
		[]types.RelType{types.RelCalls}, Out)
	require.True(t, ok)
	assert.Len(t, res.Visits, 10)
	assert.True(t, res.Truncated)
}

func TestBFSMissingStart(t *testing.T) {
	s := chainStore(t, 3)
	_, ok := s.BFS(context.Background(), "FUNCTION:nope.py:x:1", 5, 0, nil, Out)
	assert.False(t, ok)
}

func TestBFSCycleSafe(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/chain.py", "h1",
		[]string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}}))

	res, ok := s.BFS(context.Background(),
		types.MakeNodeID(types.KindFunction, "src/chain.py", "a", 2),
		10, 0, []types.RelType{types.RelCalls}, Out)
	require.True(t, ok)
	assert.Len(t, res.Visits, 2)
}

func TestDFSVisitsAllWithinDepth(t *testing.T) {
	s := chainStore(t, 5)
	res, ok := s.DFS(context.Background(), fnID("f0", 0), 10, 0,
		[]types.RelType{types.RelCalls}, Out)
	require.True(t, ok)
	assert.Len(t, res.Visits, 5)
}

func TestTraversalDeadlineTruncates(t *testing.T) {
	s := chainStore(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already expired

	res, ok := s.BFS(ctx, fnID("f0", 0), 19, 0, []types.RelType{types.RelCalls}, Out)
	require.True(t, ok)
	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, len(res.Visits), 20)
}

func TestShortestPath(t *testing.T) {
	s := NewStore(nil)
	// Diamond with a long detour: a->b->d, a->c->d, a->e->f->d.
	s.ReplaceFileFragment(frag("src/chain.py", "h1",
		[]string{"a", "b", "c", "d", "e", "f"},
		[][2]string{{"a", "b"}, {"b", "d"}, {"a", "c"}, {"c", "d"},
			{"a", "e"}, {"e", "f"}, {"f", "d"}}))

	a := types.MakeNodeID(types.KindFunction, "src/chain.py", "a", 2)
	d := types.MakeNodeID(types.KindFunction, "src/chain.py", "d", 5)
	path := s.ShortestPath(a, d, []types.RelType{types.RelCalls}, 10)
	require.Len(t, path, 3)
	assert.Equal(t, a, path[0])
	assert.Equal(t, d, path[2])

	// Every consecutive pair is a stored edge of the filtered type.
	for i := 0; i+1 < len(path); i++ {
		_, ok := s.EdgeBetween(path[i], path[i+1], types.RelCalls)
		assert.True(t, ok)
	}
}

func TestShortestPathNoRoute(t *testing.T) {
	s := chainStore(t, 4)
	// Reverse direction has no path.
	path := s.ShortestPath(fnID("f3", 3), fnID("f0", 0), []types.RelType{types.RelCalls}, 10)
	assert.Nil(t, path)
}

func TestShortestPathRespectsMaxDepth(t *testing.T) {
	s := chainStore(t, 6)
	path := s.ShortestPath(fnID("f0", 0), fnID("f5", 5), []types.RelType{types.RelCalls}, 3)
	assert.Nil(t, path)
}

func TestFarthestPath(t *testing.T) {
	s := chainStore(t, 5)
	path := s.FarthestPath(fnID("f0", 0), []types.RelType{types.RelCalls}, 10)
	require.Len(t, path, 5)
	assert.Equal(t, fnID("f0", 0), path[0])
	assert.Equal(t, fnID("f4", 4), path[4])
}

func TestSubgraphInducedEdges(t *testing.T) {
	s := NewStore(nil)
	s.ReplaceFileFragment(frag("src/chain.py", "h1",
		[]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}}))

	a := types.MakeNodeID(types.KindFunction, "src/chain.py", "a", 2)
	res, ok := s.Subgraph(context.Background(), a, 1, 0, []types.RelType{types.RelCalls})
	require.True(t, ok)

	member := map[types.NodeID]bool{}
	for _, v := range res.Visits {
		member[v.ID] = true
	}
	// Output edges are restricted to both-endpoint membership.
	for _, e := range res.Edges {
		assert.True(t, member[e.SourceID], "edge source outside subgraph")
		assert.True(t, member[e.TargetID], "edge target outside subgraph")
	}
	// a->c is induced even though c was reached via depth-1 direct edge.
	c := types.MakeNodeID(types.KindFunction, "src/chain.py", "c", 4)
	induced := false
	for _, e := range res.Edges {
		if e.SourceID == a && e.TargetID == c && e.Type == types.RelCalls {
			induced = true
		}
	}
	assert.True(t, induced)
}

func TestTraversalScalesUnderDeadline(t *testing.T) {
	s := chainStore(t, 50)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, ok := s.BFS(ctx, fnID("f0", 0), 49, 0, []types.RelType{types.RelCalls}, Out)
	require.True(t, ok)
	assert.Len(t, res.Visits, 50)
	assert.False(t, res.Truncated)
}
