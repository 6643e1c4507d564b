package graph

import (
	"sort"
	"strings"

	"github.com/standardbeagle/codegraph/internal/types"
)

// Stats is the project-level summary the store computes.
type Stats struct {
	TotalNodes         int            `json:"total_nodes"`
	TotalRelationships int            `json:"total_relationships"`
	NodesByKind        map[string]int `json:"node_types"`
	EdgesByType        map[string]int `json:"relationship_types"`
	NodesByLanguage    map[string]int `json:"languages"`
	CircularImports    int            `json:"circular_imports"`
	DroppedEdges       int64          `json:"dropped_edges"`
	TopDegree          []RankedNode   `json:"top_degree"`
	TopComplexity      []RankedNode   `json:"top_complexity"`
}

// RankedNode is one entry of a top-N list.
type RankedNode struct {
	ID         types.NodeID `json:"id"`
	Name       string       `json:"name"`
	Kind       string       `json:"kind"`
	Degree     int          `json:"degree,omitempty"`
	Complexity int          `json:"complexity"`
}

const topN = 10

// ComputeStats walks the whole graph once. Callers cache the result; the
// engine recomputes only at batch-commit boundaries.
func (s *Store) ComputeStats() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalNodes:         len(s.nodes),
		TotalRelationships: len(s.edges),
		NodesByKind:        make(map[string]int),
		EdgesByType:        make(map[string]int),
		NodesByLanguage:    make(map[string]int),
		DroppedEdges:       s.droppedEdges,
	}

	var ranked []RankedNode
	for id, n := range s.nodes {
		stats.NodesByKind[string(n.Kind)]++
		if n.Language != "" {
			stats.NodesByLanguage[n.Language]++
		}
		degree := 0
		for _, peers := range s.out[id] {
			degree += len(peers)
		}
		for _, peers := range s.in[id] {
			degree += len(peers)
		}
		ranked = append(ranked, RankedNode{
			ID: id, Name: n.Name, Kind: string(n.Kind),
			Degree: degree, Complexity: n.Complexity,
		})
	}
	for _, e := range s.edges {
		stats.EdgesByType[string(e.Type)]++
	}

	byDegree := append([]RankedNode(nil), ranked...)
	sort.Slice(byDegree, func(i, j int) bool {
		if byDegree[i].Degree != byDegree[j].Degree {
			return byDegree[i].Degree > byDegree[j].Degree
		}
		return byDegree[i].ID < byDegree[j].ID
	})
	if len(byDegree) > topN {
		byDegree = byDegree[:topN]
	}
	stats.TopDegree = byDegree

	var funcs []RankedNode
	for _, r := range ranked {
		if callableKinds[types.NodeKind(r.Kind)] {
			funcs = append(funcs, r)
		}
	}
	sort.Slice(funcs, func(i, j int) bool {
		if funcs[i].Complexity != funcs[j].Complexity {
			return funcs[i].Complexity > funcs[j].Complexity
		}
		return funcs[i].ID < funcs[j].ID
	})
	if len(funcs) > topN {
		funcs = funcs[:topN]
	}
	stats.TopComplexity = funcs

	stats.CircularImports = s.circularImportCountLocked()
	return stats
}

// circularImportCountLocked counts non-trivial strongly connected
// components in the file-level import projection using Tarjan's algorithm.
// The projection links file A to file B when A imports a module whose name
// resolves to B's basename.
func (s *Store) circularImportCountLocked() int {
	// moduleName -> file node ids.
	byModule := make(map[string][]types.NodeID)
	for path, fileID := range s.fileByPath {
		base := path
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}
		if i := strings.LastIndexByte(base, '.'); i > 0 {
			base = base[:i]
		}
		byModule[base] = append(byModule[base], fileID)
	}

	adj := make(map[types.NodeID][]types.NodeID)
	for _, fileID := range s.fileByPath {
		for importID := range s.out[fileID][types.RelImports] {
			imp, ok := s.nodes[importID]
			if !ok {
				continue
			}
			name := imp.Name
			for _, sep := range []string{"/", ".", "::"} {
				if i := strings.LastIndex(name, sep); i >= 0 {
					name = name[i+len(sep):]
				}
			}
			for _, target := range byModule[name] {
				if target != fileID {
					adj[fileID] = append(adj[fileID], target)
				}
			}
		}
	}

	t := &tarjan{
		adj:     adj,
		index:   make(map[types.NodeID]int),
		lowlink: make(map[types.NodeID]int),
		onStack: make(map[types.NodeID]bool),
	}
	for _, fileID := range s.fileByPath {
		if _, seen := t.index[fileID]; !seen {
			t.strongconnect(fileID)
		}
	}
	return t.cycles
}

type tarjan struct {
	adj     map[types.NodeID][]types.NodeID
	index   map[types.NodeID]int
	lowlink map[types.NodeID]int
	onStack map[types.NodeID]bool
	stack   []types.NodeID
	counter int
	cycles  int
}

func (t *tarjan) strongconnect(v types.NodeID) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, seen := t.index[w]; !seen {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		size := 0
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			size++
			if w == v {
				break
			}
		}
		if size > 1 {
			t.cycles++
		}
	}
}
