package graph

import (
	"sort"

	"github.com/standardbeagle/codegraph/internal/types"
)

// Categories groups callable nodes by their position in the call graph.
// Categories may overlap: an isolated function is both an entry point and a
// leaf. Each list is sorted by (name, id) so pagination over an unchanged
// graph is stable.
type Categories struct {
	EntryPoints []types.Node `json:"entry_points"`
	Hubs        []types.Node `json:"hubs"`
	Leaves      []types.Node `json:"leaves"`
	Regular     []types.Node `json:"regular"`
}

// callableKinds are the kinds categorization considers.
var callableKinds = map[types.NodeKind]bool{
	types.KindFunction: true,
	types.KindMethod:   true,
}

// Categorize computes entry points (no incoming CALLS, excluding known
// standard-library names), hubs (total degree at or above the 75th
// percentile within the node's kind), leaves (no outgoing CALLS) and the
// remainder.
func (s *Store) Categorize() *Categories {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Degree percentiles are computed per kind over every node.
	degreesByKind := make(map[types.NodeKind][]int)
	degreeOf := make(map[types.NodeID]int, len(s.nodes))
	for id, n := range s.nodes {
		d := 0
		for _, peers := range s.out[id] {
			d += len(peers)
		}
		for _, peers := range s.in[id] {
			d += len(peers)
		}
		degreeOf[id] = d
		degreesByKind[n.Kind] = append(degreesByKind[n.Kind], d)
	}
	threshold := make(map[types.NodeKind]int, len(degreesByKind))
	for kind, degrees := range degreesByKind {
		threshold[kind] = percentile75(degrees)
	}

	cats := &Categories{}
	for id, n := range s.nodes {
		if !callableKinds[n.Kind] {
			continue
		}
		callsIn := len(s.in[id][types.RelCalls])
		callsOut := len(s.out[id][types.RelCalls])

		isEntry := callsIn == 0 && !s.stdlib(n.Language, n.Name)
		isLeaf := callsOut == 0
		isHub := degreeOf[id] >= threshold[n.Kind] && degreeOf[id] > 0

		if isEntry {
			cats.EntryPoints = append(cats.EntryPoints, *n)
		}
		if isHub {
			cats.Hubs = append(cats.Hubs, *n)
		}
		if isLeaf {
			cats.Leaves = append(cats.Leaves, *n)
		}
		if !isEntry && !isHub && !isLeaf {
			cats.Regular = append(cats.Regular, *n)
		}
	}

	for _, list := range [][]types.Node{cats.EntryPoints, cats.Hubs, cats.Leaves, cats.Regular} {
		sortNodes(list)
	}
	return cats
}

func sortNodes(list []types.Node) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}

// percentile75 returns the value at the 75th percentile (nearest-rank) of
// the sample.
func percentile75(sample []int) int {
	if len(sample) == 0 {
		return 0
	}
	sorted := append([]int(nil), sample...)
	sort.Ints(sorted)
	rank := (75*len(sorted) + 99) / 100 // ceil(0.75 * n)
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
