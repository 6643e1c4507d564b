// Package graph is the typed directed multigraph at the center of the
// system: code entities as vertices, structural and behavioral relations as
// edges, with adjacency indexes, a per-language symbol table, file-level
// ownership, and the traversal and categorization queries built on top.
//
// Concurrency: one RWMutex guards the whole store. Readers take shared
// leases; the analysis engine is the single writer and takes the exclusive
// lease per fragment commit, so a reader sees either the old fragment in
// full or the new one in full, never a mix for a given file.
package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/codegraph/internal/debug"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Direction selects edge orientation for neighbor and traversal queries.
type Direction int

const (
	Out Direction = iota
	In
	Both
)

// StdlibFunc is the policy callback deciding whether a name is a known
// standard-library import for a language; entry-point categorization
// excludes such nodes.
type StdlibFunc func(language, name string) bool

// Store is the in-process graph store.
type Store struct {
	mu sync.RWMutex

	nodes map[types.NodeID]*types.Node
	edges map[types.EdgeID]*types.Relationship

	// Adjacency: node -> edge type -> peer -> edge.
	out map[types.NodeID]map[types.RelType]map[types.NodeID]*types.Relationship
	in  map[types.NodeID]map[types.RelType]map[types.NodeID]*types.Relationship

	// File ownership: every non-FILE node is owned by exactly one FILE node.
	fileByPath map[string]types.NodeID
	owned      map[types.NodeID]map[types.NodeID]struct{}
	fileHash   map[string]string
	fileSig    map[string]string

	// Per-language symbol table: language -> simple name -> node ids.
	symbols map[string]map[string]map[types.NodeID]struct{}

	// Seam facts per file, relinked into SEAM edges after every commit.
	seamCalls    map[string][]types.SeamCall
	seamProvider map[string][]types.SeamProvider

	stdlib StdlibFunc

	droppedEdges int64
}

// NewStore creates an empty store. stdlib may be nil (nothing excluded).
func NewStore(stdlib StdlibFunc) *Store {
	if stdlib == nil {
		stdlib = func(string, string) bool { return false }
	}
	return &Store{
		nodes:        make(map[types.NodeID]*types.Node),
		edges:        make(map[types.EdgeID]*types.Relationship),
		out:          make(map[types.NodeID]map[types.RelType]map[types.NodeID]*types.Relationship),
		in:           make(map[types.NodeID]map[types.RelType]map[types.NodeID]*types.Relationship),
		fileByPath:   make(map[string]types.NodeID),
		owned:        make(map[types.NodeID]map[types.NodeID]struct{}),
		fileHash:     make(map[string]string),
		fileSig:      make(map[string]string),
		symbols:      make(map[string]map[string]map[types.NodeID]struct{}),
		seamCalls:    make(map[string][]types.SeamCall),
		seamProvider: make(map[string][]types.SeamProvider),
		stdlib:       stdlib,
	}
}

// fragmentSignature fingerprints a fragment's observable content: the
// content hash plus every node and edge id and the seam facts. Identical
// signatures make ReplaceFileFragment a no-op.
func fragmentSignature(frag *types.FileFragment) string {
	h := xxhash.New()
	h.WriteString(frag.ContentHash)
	ids := make([]string, 0, len(frag.Nodes)+len(frag.Edges))
	for i := range frag.Nodes {
		ids = append(ids, string(frag.Nodes[i].ID))
	}
	for i := range frag.Edges {
		ids = append(ids, string(frag.Edges[i].ID))
	}
	sort.Strings(ids)
	for _, id := range ids {
		h.WriteString(id)
		h.Write([]byte{0})
	}
	for _, c := range frag.SeamCalls {
		fmt.Fprintf(h, "c:%s:%s:%s:%d", c.CallerID, c.TargetLang, c.Endpoint, c.Line)
	}
	for _, p := range frag.Providers {
		fmt.Fprintf(h, "p:%s:%s:%s", p.NodeID, p.TargetLang, p.Endpoint)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// symbolKinds are the node kinds resolvable by simple name.
var symbolKinds = map[types.NodeKind]bool{
	types.KindFunction: true, types.KindMethod: true, types.KindClass: true,
	types.KindInterface: true, types.KindEnum: true, types.KindTypeAlias: true,
	types.KindVariable: true, types.KindNamespace: true, types.KindModule: true,
}

// ReplaceFileFragment atomically replaces everything owned by a file with
// the fragment's content. Replaying an identical fragment is a no-op.
// Edges whose endpoint is not resident are dropped with a debug record.
func (s *Store) ReplaceFileFragment(frag *types.FileFragment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig := fragmentSignature(frag)
	if prev, ok := s.fileSig[frag.Path]; ok && prev == sig {
		return
	}

	s.removeFileLocked(frag.Path)

	// The FILE node must be resident before ownership is recorded.
	for i := range frag.Nodes {
		if frag.Nodes[i].Kind == types.KindFile {
			s.addNodeLocked(&frag.Nodes[i], frag.Path)
		}
	}
	for i := range frag.Nodes {
		if frag.Nodes[i].Kind != types.KindFile {
			s.addNodeLocked(&frag.Nodes[i], frag.Path)
		}
	}
	for i := range frag.Edges {
		s.addEdgeLocked(&frag.Edges[i])
	}

	s.fileHash[frag.Path] = frag.ContentHash
	s.fileSig[frag.Path] = sig
	if len(frag.SeamCalls) > 0 {
		s.seamCalls[frag.Path] = frag.SeamCalls
	}
	if len(frag.Providers) > 0 {
		s.seamProvider[frag.Path] = frag.Providers
	}

	s.relinkSeamsLocked()
}

// RemoveFile removes a file's FILE node, everything it owns, and every edge
// incident to any of those nodes.
func (s *Store) RemoveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeFileLocked(path)
	s.relinkSeamsLocked()
}

// ClearAll drops the whole graph.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[types.NodeID]*types.Node)
	s.edges = make(map[types.EdgeID]*types.Relationship)
	s.out = make(map[types.NodeID]map[types.RelType]map[types.NodeID]*types.Relationship)
	s.in = make(map[types.NodeID]map[types.RelType]map[types.NodeID]*types.Relationship)
	s.fileByPath = make(map[string]types.NodeID)
	s.owned = make(map[types.NodeID]map[types.NodeID]struct{})
	s.fileHash = make(map[string]string)
	s.fileSig = make(map[string]string)
	s.symbols = make(map[string]map[string]map[types.NodeID]struct{})
	s.seamCalls = make(map[string][]types.SeamCall)
	s.seamProvider = make(map[string][]types.SeamProvider)
	s.droppedEdges = 0
}

func (s *Store) removeFileLocked(path string) {
	fileID, ok := s.fileByPath[path]
	if !ok {
		delete(s.seamCalls, path)
		delete(s.seamProvider, path)
		delete(s.fileHash, path)
		return
	}
	for id := range s.owned[fileID] {
		s.removeNodeLocked(id)
	}
	s.removeNodeLocked(fileID)
	delete(s.owned, fileID)
	delete(s.fileByPath, path)
	delete(s.fileHash, path)
	delete(s.fileSig, path)
	delete(s.seamCalls, path)
	delete(s.seamProvider, path)
}

func (s *Store) addNodeLocked(n *types.Node, ownerPath string) {
	if _, exists := s.nodes[n.ID]; exists {
		return
	}
	node := *n // the store owns its copy
	s.nodes[n.ID] = &node

	if n.Kind == types.KindFile {
		s.fileByPath[ownerPath] = n.ID
		if s.owned[n.ID] == nil {
			s.owned[n.ID] = make(map[types.NodeID]struct{})
		}
	} else {
		fileID := s.fileByPath[ownerPath]
		if s.owned[fileID] == nil {
			s.owned[fileID] = make(map[types.NodeID]struct{})
		}
		s.owned[fileID][n.ID] = struct{}{}
	}

	if symbolKinds[n.Kind] && n.Language != "" {
		byName := s.symbols[n.Language]
		if byName == nil {
			byName = make(map[string]map[types.NodeID]struct{})
			s.symbols[n.Language] = byName
		}
		ids := byName[n.Name]
		if ids == nil {
			ids = make(map[types.NodeID]struct{})
			byName[n.Name] = ids
		}
		ids[n.ID] = struct{}{}
	}
}

func (s *Store) removeNodeLocked(id types.NodeID) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	// Drop every incident edge.
	for _, peers := range s.out[id] {
		for _, e := range peers {
			s.removeEdgeLocked(e)
		}
	}
	for _, peers := range s.in[id] {
		for _, e := range peers {
			s.removeEdgeLocked(e)
		}
	}
	delete(s.out, id)
	delete(s.in, id)

	if symbolKinds[n.Kind] && n.Language != "" {
		if byName := s.symbols[n.Language]; byName != nil {
			if ids := byName[n.Name]; ids != nil {
				delete(ids, id)
				if len(ids) == 0 {
					delete(byName, n.Name)
				}
			}
			if len(byName) == 0 {
				delete(s.symbols, n.Language)
			}
		}
	}
	delete(s.nodes, id)
}

// addEdgeLocked commits an edge if both endpoints are resident; otherwise
// the edge is dropped and recorded at debug level (not fatal).
func (s *Store) addEdgeLocked(e *types.Relationship) bool {
	if _, ok := s.nodes[e.SourceID]; !ok {
		s.droppedEdges++
		debug.LogGraph("dropped edge %s: missing source\n", e.ID)
		return false
	}
	if _, ok := s.nodes[e.TargetID]; !ok {
		s.droppedEdges++
		debug.LogGraph("dropped edge %s: missing target\n", e.ID)
		return false
	}
	if _, exists := s.edges[e.ID]; exists {
		return false
	}
	edge := *e
	s.edges[e.ID] = &edge

	outByType := s.out[e.SourceID]
	if outByType == nil {
		outByType = make(map[types.RelType]map[types.NodeID]*types.Relationship)
		s.out[e.SourceID] = outByType
	}
	if outByType[e.Type] == nil {
		outByType[e.Type] = make(map[types.NodeID]*types.Relationship)
	}
	outByType[e.Type][e.TargetID] = &edge

	inByType := s.in[e.TargetID]
	if inByType == nil {
		inByType = make(map[types.RelType]map[types.NodeID]*types.Relationship)
		s.in[e.TargetID] = inByType
	}
	if inByType[e.Type] == nil {
		inByType[e.Type] = make(map[types.NodeID]*types.Relationship)
	}
	inByType[e.Type][e.SourceID] = &edge
	return true
}

func (s *Store) removeEdgeLocked(e *types.Relationship) {
	if byType := s.out[e.SourceID]; byType != nil {
		if peers := byType[e.Type]; peers != nil {
			delete(peers, e.TargetID)
			if len(peers) == 0 {
				delete(byType, e.Type)
			}
		}
	}
	if byType := s.in[e.TargetID]; byType != nil {
		if peers := byType[e.Type]; peers != nil {
			delete(peers, e.SourceID)
			if len(peers) == 0 {
				delete(byType, e.Type)
			}
		}
	}
	delete(s.edges, e.ID)
}

// GetNode returns a copy of the node, O(1).
func (s *Store) GetNode(id types.NodeID) (types.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return types.Node{}, false
	}
	return *n, true
}

// HasFile reports whether a path has a committed fragment.
func (s *Store) HasFile(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.fileByPath[path]
	return ok
}

// FilePaths returns every committed path.
func (s *Store) FilePaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.fileByPath))
	for p := range s.fileByPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NodeCount and EdgeCount report totals.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// DroppedEdges reports how many edges were refused for missing endpoints.
func (s *Store) DroppedEdges() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.droppedEdges
}

// Neighbors returns the edges incident to a node, optionally filtered by
// type, in the given direction.
func (s *Store) Neighbors(id types.NodeID, relTypes []types.RelType, dir Direction) []types.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighborsLocked(id, typeFilter(relTypes), dir)
}

func typeFilter(relTypes []types.RelType) map[types.RelType]bool {
	if len(relTypes) == 0 {
		return nil
	}
	m := make(map[types.RelType]bool, len(relTypes))
	for _, t := range relTypes {
		m[t] = true
	}
	return m
}

func (s *Store) neighborsLocked(id types.NodeID, filter map[types.RelType]bool, dir Direction) []types.Relationship {
	var result []types.Relationship
	collect := func(adj map[types.NodeID]map[types.RelType]map[types.NodeID]*types.Relationship) {
		for t, peers := range adj[id] {
			if filter != nil && !filter[t] {
				continue
			}
			for _, e := range peers {
				result = append(result, *e)
			}
		}
	}
	if dir == Out || dir == Both {
		collect(s.out)
	}
	if dir == In || dir == Both {
		collect(s.in)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// LookupSymbol resolves (language, simple name) to node ids, sorted.
func (s *Store) LookupSymbol(language, name string) []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.symbols[language][name])
}

// LookupSymbolAnyLanguage resolves a simple name across every language.
func (s *Store) LookupSymbolAnyLanguage(name string) []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.NodeID
	for _, byName := range s.symbols {
		for id := range byName[name] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedIDs(ids map[types.NodeID]struct{}) []types.NodeID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]types.NodeID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SymbolNames returns every distinct symbol name, for fuzzy suggestions.
func (s *Store) SymbolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	for _, byName := range s.symbols {
		for name := range byName {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// symbolSnapshot is a read-only copy of the symbol table handed to the
// parser; the store stays the only writer of the live table.
type symbolSnapshot struct {
	entries map[string][]types.NodeID
}

func (ss *symbolSnapshot) Lookup(language, name string) []types.NodeID {
	return ss.entries[language+"\x00"+name]
}

// SymbolSnapshot copies the current symbol table for one parse batch.
func (s *Store) SymbolSnapshot() *symbolSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &symbolSnapshot{entries: make(map[string][]types.NodeID)}
	for language, byName := range s.symbols {
		for name, ids := range byName {
			snap.entries[language+"\x00"+name] = sortedIDs(ids)
		}
	}
	return snap
}

// SearchNodes returns nodes whose name contains the query substring
// (case-insensitive), optionally filtered by language and kind, in the
// deterministic order (language, kind, name, id).
func (s *Store) SearchNodes(query, language string, kind types.NodeKind) []types.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	var out []types.Node
	for _, n := range s.nodes {
		if language != "" && n.Language != language {
			continue
		}
		if kind != "" && n.Kind != kind {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Name), q) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out
}
