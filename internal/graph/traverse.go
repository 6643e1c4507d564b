package graph

import (
	"context"
	"sort"

	"github.com/standardbeagle/codegraph/internal/types"
)

// Visit is one traversal result: a node id at the depth it was first
// reached.
type Visit struct {
	ID    types.NodeID
	Depth int
}

// TraversalResult is the bounded output of a BFS/DFS expansion.
type TraversalResult struct {
	Visits    []Visit
	Edges     []types.Relationship
	MaxDepth  int
	Truncated bool
}

// traversalOpts carries the shared bounds.
type traversalOpts struct {
	maxDepth int
	maxNodes int
	filter   map[types.RelType]bool
	dir      Direction
}

// BFS expands breadth-first from start, cycle-safe, stopping at maxDepth or
// maxNodes or the context deadline (the partial result is still a valid
// induced expansion, flagged Truncated).
func (s *Store) BFS(ctx context.Context, start types.NodeID, maxDepth, maxNodes int, relTypes []types.RelType, dir Direction) (*TraversalResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[start]; !ok {
		return nil, false
	}
	opts := traversalOpts{maxDepth: maxDepth, maxNodes: maxNodes,
		filter: typeFilter(relTypes), dir: dir}

	res := &TraversalResult{}
	visited := map[types.NodeID]bool{start: true}
	queue := []Visit{{ID: start, Depth: 0}}
	res.Visits = append(res.Visits, queue[0])

	for len(queue) > 0 {
		if ctx.Err() != nil {
			res.Truncated = true
			break
		}
		cur := queue[0]
		queue = queue[1:]
		if cur.Depth > res.MaxDepth {
			res.MaxDepth = cur.Depth
		}
		if cur.Depth >= opts.maxDepth {
			continue
		}
		for _, e := range s.neighborsLocked(cur.ID, opts.filter, opts.dir) {
			peer := e.TargetID
			if peer == cur.ID {
				peer = e.SourceID
			}
			if visited[peer] {
				continue
			}
			if opts.maxNodes > 0 && len(res.Visits) >= opts.maxNodes {
				res.Truncated = true
				return res, true
			}
			visited[peer] = true
			v := Visit{ID: peer, Depth: cur.Depth + 1}
			res.Visits = append(res.Visits, v)
			res.Edges = append(res.Edges, e)
			queue = append(queue, v)
		}
	}
	return res, true
}

// DFS expands depth-first with the same bounds and cycle safety as BFS.
func (s *Store) DFS(ctx context.Context, start types.NodeID, maxDepth, maxNodes int, relTypes []types.RelType, dir Direction) (*TraversalResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[start]; !ok {
		return nil, false
	}
	opts := traversalOpts{maxDepth: maxDepth, maxNodes: maxNodes,
		filter: typeFilter(relTypes), dir: dir}

	res := &TraversalResult{}
	visited := map[types.NodeID]bool{}
	s.dfsLocked(ctx, Visit{ID: start, Depth: 0}, opts, visited, res)
	return res, true
}

func (s *Store) dfsLocked(ctx context.Context, cur Visit, opts traversalOpts, visited map[types.NodeID]bool, res *TraversalResult) {
	if visited[cur.ID] {
		return
	}
	if opts.maxNodes > 0 && len(res.Visits) >= opts.maxNodes {
		res.Truncated = true
		return
	}
	if ctx.Err() != nil {
		res.Truncated = true
		return
	}
	visited[cur.ID] = true
	res.Visits = append(res.Visits, cur)
	if cur.Depth > res.MaxDepth {
		res.MaxDepth = cur.Depth
	}
	if cur.Depth >= opts.maxDepth {
		return
	}
	for _, e := range s.neighborsLocked(cur.ID, opts.filter, opts.dir) {
		peer := e.TargetID
		if peer == cur.ID {
			peer = e.SourceID
		}
		if visited[peer] {
			continue
		}
		res.Edges = append(res.Edges, e)
		s.dfsLocked(ctx, Visit{ID: peer, Depth: cur.Depth + 1}, opts, visited, res)
	}
}

// ShortestPath returns the node sequence of an unweighted shortest path
// from src to dst over edges passing the filter, ties broken by
// first-visited order, or nil when no path exists within maxDepth.
func (s *Store) ShortestPath(src, dst types.NodeID, relTypes []types.RelType, maxDepth int) []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[src]; !ok {
		return nil
	}
	if _, ok := s.nodes[dst]; !ok {
		return nil
	}
	if src == dst {
		return []types.NodeID{src}
	}

	filter := typeFilter(relTypes)
	parent := map[types.NodeID]types.NodeID{src: src}
	queue := []Visit{{ID: src, Depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.Depth >= maxDepth {
			continue
		}
		for _, e := range s.neighborsLocked(cur.ID, filter, Out) {
			peer := e.TargetID
			if _, seen := parent[peer]; seen {
				continue
			}
			parent[peer] = cur.ID
			if peer == dst {
				return buildPath(parent, src, dst)
			}
			queue = append(queue, Visit{ID: peer, Depth: cur.Depth + 1})
		}
	}
	return nil
}

func buildPath(parent map[types.NodeID]types.NodeID, src, dst types.NodeID) []types.NodeID {
	var rev []types.NodeID
	for cur := dst; ; cur = parent[cur] {
		rev = append(rev, cur)
		if cur == src {
			break
		}
	}
	path := make([]types.NodeID, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = id
	}
	return path
}

// FarthestPath returns the path from src to the deepest node reachable over
// edges passing the filter, ties broken by first-visited order. Used for
// call chains with no explicit destination.
func (s *Store) FarthestPath(src types.NodeID, relTypes []types.RelType, maxDepth int) []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[src]; !ok {
		return nil
	}
	filter := typeFilter(relTypes)
	parent := map[types.NodeID]types.NodeID{src: src}
	queue := []Visit{{ID: src, Depth: 0}}
	farthest := src
	farthestDepth := 0

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.Depth >= maxDepth {
			continue
		}
		for _, e := range s.neighborsLocked(cur.ID, filter, Out) {
			peer := e.TargetID
			if _, seen := parent[peer]; seen {
				continue
			}
			parent[peer] = cur.ID
			if cur.Depth+1 > farthestDepth {
				farthest = peer
				farthestDepth = cur.Depth + 1
			}
			queue = append(queue, Visit{ID: peer, Depth: cur.Depth + 1})
		}
	}
	return buildPath(parent, src, farthest)
}

// Subgraph expands BFS from start until either bound, then returns the
// induced subgraph: the visited nodes and every stored edge with both
// endpoints in the visited set.
func (s *Store) Subgraph(ctx context.Context, start types.NodeID, maxDepth, maxNodes int, relTypes []types.RelType) (*TraversalResult, bool) {
	res, ok := s.BFS(ctx, start, maxDepth, maxNodes, relTypes, Both)
	if !ok {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	member := make(map[types.NodeID]bool, len(res.Visits))
	for _, v := range res.Visits {
		member[v.ID] = true
	}
	filter := typeFilter(relTypes)

	var induced []types.Relationship
	for _, e := range s.edges {
		if filter != nil && !filter[e.Type] {
			continue
		}
		if member[e.SourceID] && member[e.TargetID] {
			induced = append(induced, *e)
		}
	}
	sort.Slice(induced, func(i, j int) bool { return induced[i].ID < induced[j].ID })
	res.Edges = induced
	return res, true
}

// EdgeBetween returns the stored edge (src, dst, type) when present.
func (s *Store) EdgeBetween(src, dst types.NodeID, t types.RelType) (types.Relationship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if peers := s.out[src][t]; peers != nil {
		if e, ok := peers[dst]; ok {
			return *e, true
		}
	}
	return types.Relationship{}, false
}
