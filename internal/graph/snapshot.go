package graph

import (
	"sort"

	"github.com/standardbeagle/codegraph/internal/types"
)

// Snapshot captures the whole graph as per-file fragments, suitable for the
// fragment codec. Restoring a snapshot into an empty store reproduces the
// same node and edge id sets.
func (s *Store) Snapshot() []types.FileFragment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.fileByPath))
	for p := range s.fileByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	frags := make([]types.FileFragment, 0, len(paths))
	for _, path := range paths {
		fileID := s.fileByPath[path]
		frag := types.FileFragment{
			Path:        path,
			ContentHash: s.fileHash[path],
			SeamCalls:   s.seamCalls[path],
			Providers:   s.seamProvider[path],
		}
		ids := []types.NodeID{fileID}
		for id := range s.owned[fileID] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		member := make(map[types.NodeID]bool, len(ids))
		for _, id := range ids {
			n := s.nodes[id]
			// Synthetic seam endpoints are rebuilt on restore.
			if n.Metadata != nil && n.Metadata["seam_endpoint"] == true {
				continue
			}
			member[id] = true
			frag.Language = firstNonEmpty(frag.Language, n.Language)
			frag.Nodes = append(frag.Nodes, *n)
		}
		// Edges whose source lives in this file, SEAM excluded (relinked).
		var edges []types.Relationship
		for _, id := range ids {
			if !member[id] {
				continue
			}
			for t, peers := range s.out[id] {
				if t == types.RelSeam {
					continue
				}
				for _, e := range peers {
					edges = append(edges, *e)
				}
			}
		}
		sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
		frag.Edges = edges
		frags = append(frags, frag)
	}
	return frags
}

// Restore replaces the graph content with the given fragments. Cross-file
// edges are committed in a second pass so insertion order cannot drop them.
func (s *Store) Restore(frags []types.FileFragment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := NewStore(s.stdlib)
	s.nodes = fresh.nodes
	s.edges = fresh.edges
	s.out = fresh.out
	s.in = fresh.in
	s.fileByPath = fresh.fileByPath
	s.owned = fresh.owned
	s.fileHash = fresh.fileHash
	s.fileSig = fresh.fileSig
	s.symbols = fresh.symbols
	s.seamCalls = fresh.seamCalls
	s.seamProvider = fresh.seamProvider

	for i := range frags {
		frag := &frags[i]
		// The FILE node must be resident before ownership is recorded.
		for j := range frag.Nodes {
			if frag.Nodes[j].Kind == types.KindFile {
				s.addNodeLocked(&frag.Nodes[j], frag.Path)
			}
		}
		for j := range frag.Nodes {
			if frag.Nodes[j].Kind != types.KindFile {
				s.addNodeLocked(&frag.Nodes[j], frag.Path)
			}
		}
		s.fileHash[frag.Path] = frag.ContentHash
		s.fileSig[frag.Path] = fragmentSignature(frag)
		if len(frag.SeamCalls) > 0 {
			s.seamCalls[frag.Path] = frag.SeamCalls
		}
		if len(frag.Providers) > 0 {
			s.seamProvider[frag.Path] = frag.Providers
		}
	}
	for i := range frags {
		for j := range frags[i].Edges {
			s.addEdgeLocked(&frags[i].Edges[j])
		}
	}
	s.relinkSeamsLocked()
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
