package engine

import (
	"context"
	"sort"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/codegraph/internal/graph"
	"github.com/standardbeagle/codegraph/internal/query"
	"github.com/standardbeagle/codegraph/internal/types"
)

func ms(started time.Time) float64 {
	return float64(time.Since(started).Microseconds()) / 1000.0
}

// Stats answers the project statistics query, served from the cached
// derived analysis when fresh.
func (e *Engine) Stats(ctx context.Context) *query.StatsResponse {
	started := time.Now()
	stats := e.statsFor(ctx)

	top := make([]query.TopFunction, 0, len(stats.TopComplexity))
	for _, r := range stats.TopComplexity {
		top = append(top, query.TopFunction{
			ID: string(r.ID), Name: r.Name, Complexity: r.Complexity,
		})
	}
	return &query.StatsResponse{
		TotalNodes:         stats.TotalNodes,
		TotalRelationships: stats.TotalRelationships,
		Languages:          stats.NodesByLanguage,
		NodeTypes:          stats.NodesByKind,
		TopFunctions:       top,
		CircularImports:    stats.CircularImports,
		ExecutionTimeMS:    ms(started),
	}
}

// GetNode looks one node up by id, O(1).
func (e *Engine) GetNode(_ context.Context, id string) (query.Node, error) {
	n, ok := e.store.GetNode(types.NodeID(id))
	if !ok {
		return query.Node{}, query.NotFoundf("node %q", id)
	}
	return query.NodeFrom(n), nil
}

// Search answers the substring node search with deterministic ordering and
// pagination.
func (e *Engine) Search(_ context.Context, req query.SearchRequest) (*query.SearchResponse, error) {
	started := time.Now()
	if err := req.Page.Validate(query.MaxSearchLimit); err != nil {
		return nil, err
	}
	var kind types.NodeKind
	if req.Kind != "" {
		parsed, err := types.ParseNodeKind(req.Kind)
		if err != nil {
			return nil, query.InvalidArgf("kind: %v", err)
		}
		kind = parsed
	}

	all := e.store.SearchNodes(req.Query, req.Language, kind)
	window, total, hasMore := query.Slice(all, req.Page)
	return &query.SearchResponse{
		Results:         query.NodesFrom(window),
		Total:           total,
		Limit:           req.Page.Limit,
		Offset:          req.Page.Offset,
		HasMore:         hasMore,
		ExecutionTimeMS: ms(started),
	}, nil
}

// Category answers the paged category listing. Pagination over an
// unchanged graph is stable because the category order is deterministic.
func (e *Engine) Category(_ context.Context, category string, page query.Page) (*query.CategoryResponse, error) {
	started := time.Now()
	if err := page.Validate(query.MaxCategoryLimit); err != nil {
		return nil, err
	}

	cats := e.store.Categorize()
	var nodes []types.Node
	switch category {
	case query.CategoryEntryPoints:
		nodes = cats.EntryPoints
	case query.CategoryHubs:
		nodes = cats.Hubs
	case query.CategoryLeaves:
		nodes = cats.Leaves
	default:
		return nil, query.InvalidArgf("unknown category %q", category)
	}

	window, total, _ := query.Slice(nodes, page)
	return &query.CategoryResponse{
		Category:        category,
		Total:           total,
		Offset:          page.Offset,
		Limit:           page.Limit,
		Nodes:           query.NodesFrom(window),
		ExecutionTimeMS: ms(started),
	}, nil
}

// symbolTargets resolves a simple name across languages.
func (e *Engine) symbolTargets(symbol string) []types.NodeID {
	return e.store.LookupSymbolAnyLanguage(symbol)
}

// suggestions ranks near-miss symbol names when a lookup came back empty.
func (e *Engine) suggestions(symbol string) []string {
	names := e.store.SymbolNames()
	if len(names) == 0 {
		return nil
	}
	res, err := edlib.FuzzySearchSetThreshold(symbol, names, 5, 0.6, edlib.Levenshtein)
	if err != nil {
		return nil
	}
	out := res[:0]
	for _, s := range res {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// incidentNodes collects the far ends of edges incident to the targets.
func (e *Engine) incidentNodes(targets []types.NodeID, relTypes []types.RelType, dir graph.Direction) []types.Node {
	seen := map[types.NodeID]bool{}
	var out []types.Node
	for _, target := range targets {
		for _, edge := range e.store.Neighbors(target, relTypes, dir) {
			peer := edge.SourceID
			if dir == graph.Out {
				peer = edge.TargetID
			}
			if seen[peer] {
				continue
			}
			seen[peer] = true
			if n, ok := e.store.GetNode(peer); ok {
				out = append(out, n)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *Engine) symbolQuery(req query.SymbolRequest, relTypes []types.RelType, dir graph.Direction) (*query.SymbolResponse, error) {
	started := time.Now()
	if req.Symbol == "" {
		return nil, query.InvalidArgf("symbol is required")
	}
	if err := req.Page.Validate(query.MaxSearchLimit); err != nil {
		return nil, err
	}

	resp := &query.SymbolResponse{
		Symbol: req.Symbol,
		Limit:  req.Page.Limit,
		Offset: req.Page.Offset,
	}
	targets := e.symbolTargets(req.Symbol)
	if len(targets) == 0 {
		resp.Suggestions = e.suggestions(req.Symbol)
		resp.ExecutionTimeMS = ms(started)
		return resp, nil
	}

	nodes := e.incidentNodes(targets, relTypes, dir)
	window, total, hasMore := query.Slice(nodes, req.Page)
	resp.Total = total
	resp.HasMore = hasMore
	resp.Nodes = query.NodesFrom(window)
	resp.ExecutionTimeMS = ms(started)
	return resp, nil
}

// Callers returns nodes with an outgoing CALLS edge to any node matching
// the symbol.
func (e *Engine) Callers(_ context.Context, req query.SymbolRequest) (*query.SymbolResponse, error) {
	return e.symbolQuery(req, []types.RelType{types.RelCalls}, graph.In)
}

// Callees returns nodes any match of the symbol calls.
func (e *Engine) Callees(_ context.Context, req query.SymbolRequest) (*query.SymbolResponse, error) {
	return e.symbolQuery(req, []types.RelType{types.RelCalls}, graph.Out)
}

// References returns the union of CALLS and REFERENCES incident to the
// matched targets.
func (e *Engine) References(_ context.Context, req query.SymbolRequest) (*query.SymbolResponse, error) {
	return e.symbolQuery(req,
		[]types.RelType{types.RelCalls, types.RelReferences}, graph.In)
}

// Definitions returns the declaration nodes matching a symbol name.
func (e *Engine) Definitions(_ context.Context, symbol string) ([]query.Node, error) {
	if symbol == "" {
		return nil, query.InvalidArgf("symbol is required")
	}
	targets := e.symbolTargets(symbol)
	var out []types.Node
	for _, id := range targets {
		if n, ok := e.store.GetNode(id); ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return query.NodesFrom(out), nil
}

// traversalTypes resolves a request's edge-type filter.
func traversalTypes(names []string, includeSeams bool) ([]types.RelType, error) {
	var out []types.RelType
	if len(names) == 0 {
		out = types.AllRelTypes()
		if !includeSeams {
			filtered := out[:0]
			for _, t := range out {
				if t != types.RelSeam {
					filtered = append(filtered, t)
				}
			}
			out = filtered
		}
		return out, nil
	}
	for _, name := range names {
		t, err := types.ParseRelType(name)
		if err != nil {
			return nil, query.InvalidArgf("edge_types: %v", err)
		}
		out = append(out, t)
	}
	if includeSeams {
		present := false
		for _, t := range out {
			if t == types.RelSeam {
				present = true
			}
		}
		if !present {
			out = append(out, types.RelSeam)
		}
	}
	return out, nil
}

// clampTraversal applies the configured ceilings.
func (e *Engine) clampTraversal(maxDepth, maxNodes int) (int, int, error) {
	if maxDepth < 0 || maxNodes < 0 {
		return 0, 0, query.InvalidArgf("bounds must be >= 0")
	}
	if maxDepth == 0 || maxDepth > e.cfg.MaxDepthPerTraversal {
		maxDepth = e.cfg.MaxDepthPerTraversal
	}
	if maxNodes == 0 || maxNodes > e.cfg.MaxNodesPerTraversal {
		maxNodes = e.cfg.MaxNodesPerTraversal
	}
	return maxDepth, maxNodes, nil
}

// Traverse answers bounded BFS/DFS expansion. On deadline the partial
// result returns with Truncated set.
func (e *Engine) Traverse(ctx context.Context, req query.TraverseRequest) (*query.TraverseResponse, error) {
	started := time.Now()
	maxDepth, maxNodes, err := e.clampTraversal(req.MaxDepth, req.MaxNodes)
	if err != nil {
		return nil, err
	}
	relTypes, err := traversalTypes(req.EdgeTypes, req.IncludeSeams)
	if err != nil {
		return nil, err
	}

	var res *graph.TraversalResult
	var ok bool
	switch req.QueryType {
	case "bfs", "":
		res, ok = e.store.BFS(ctx, types.NodeID(req.StartNode), maxDepth, maxNodes, relTypes, graph.Out)
	case "dfs":
		res, ok = e.store.DFS(ctx, types.NodeID(req.StartNode), maxDepth, maxNodes, relTypes, graph.Out)
	default:
		return nil, query.InvalidArgf("query_type must be bfs or dfs, got %q", req.QueryType)
	}
	if !ok {
		return nil, query.NotFoundf("start node %q", req.StartNode)
	}

	return e.traversalResponse(res, started), nil
}

func (e *Engine) traversalResponse(res *graph.TraversalResult, started time.Time) *query.TraverseResponse {
	nodes := make([]types.Node, 0, len(res.Visits))
	for _, v := range res.Visits {
		if n, ok := e.store.GetNode(v.ID); ok {
			nodes = append(nodes, n)
		}
	}
	seams := 0
	for _, edge := range res.Edges {
		if edge.Type == types.RelSeam {
			seams++
		}
	}
	return &query.TraverseResponse{
		Nodes:         query.NodesFrom(nodes),
		Relationships: query.EdgesFrom(res.Edges),
		Stats: query.TraverseStats{
			TotalNodes:         len(nodes),
			TotalRelationships: len(res.Edges),
			TraversalDepth:     res.MaxDepth,
			SeamCount:          seams,
		},
		Truncated:       res.Truncated,
		ExecutionTimeMS: ms(started),
	}
}

// Subgraph answers the induced-subgraph query.
func (e *Engine) Subgraph(ctx context.Context, req query.SubgraphRequest) (*query.SubgraphResponse, error) {
	started := time.Now()
	maxDepth, maxNodes, err := e.clampTraversal(req.MaxDepth, req.MaxNodes)
	if err != nil {
		return nil, err
	}
	res, ok := e.store.Subgraph(ctx, types.NodeID(req.StartNode), maxDepth, maxNodes, nil)
	if !ok {
		return nil, query.NotFoundf("start node %q", req.StartNode)
	}

	nodes := make([]types.Node, 0, len(res.Visits))
	for _, v := range res.Visits {
		if n, ok := e.store.GetNode(v.ID); ok {
			nodes = append(nodes, n)
		}
	}
	return &query.SubgraphResponse{
		Nodes:              query.NodesFrom(nodes),
		Relationships:      query.EdgesFrom(res.Edges),
		TotalNodes:         len(nodes),
		TotalRelationships: len(res.Edges),
		Truncated:          res.Truncated,
		ExecutionTimeMS:    ms(started),
	}, nil
}

// CallChain answers the shortest call path from src, over CALLS plus SEAM
// when seams are followed, with seam transition indexes.
func (e *Engine) CallChain(_ context.Context, req query.CallChainRequest) (*query.CallChainResponse, error) {
	started := time.Now()
	src := types.NodeID(req.SrcID)
	if _, ok := e.store.GetNode(src); !ok {
		return nil, query.NotFoundf("node %q", req.SrcID)
	}
	maxDepth, _, err := e.clampTraversal(req.MaxDepth, 0)
	if err != nil {
		return nil, err
	}

	relTypes := []types.RelType{types.RelCalls}
	if req.FollowSeams {
		relTypes = append(relTypes, types.RelSeam)
	}

	var path []types.NodeID
	if req.DstID != "" {
		dst := types.NodeID(req.DstID)
		if _, ok := e.store.GetNode(dst); !ok {
			return nil, query.NotFoundf("node %q", req.DstID)
		}
		path = e.store.ShortestPath(src, dst, relTypes, maxDepth)
		if path == nil {
			return nil, query.NotFoundf("no path from %q to %q", req.SrcID, req.DstID)
		}
	} else {
		path = e.store.FarthestPath(src, relTypes, maxDepth)
	}

	chain := make([]types.Node, 0, len(path))
	for _, id := range path {
		if n, ok := e.store.GetNode(id); ok {
			chain = append(chain, n)
		}
	}

	var seams []query.SeamTransition
	for i := 0; i+1 < len(path); i++ {
		if edge, ok := e.store.EdgeBetween(path[i], path[i+1], types.RelSeam); ok {
			tr := query.SeamTransition{FromIndex: i, ToIndex: i + 1}
			tr.Languages[0] = chain[i].Language
			tr.Languages[1] = chain[i+1].Language
			switch langs := edge.Metadata["languages"].(type) {
			case []string:
				if len(langs) == 2 {
					tr.Languages[0], tr.Languages[1] = langs[0], langs[1]
				}
			case []any:
				// JSON metadata round-trips string slices as []any.
				if len(langs) == 2 {
					if a, ok := langs[0].(string); ok {
						tr.Languages[0] = a
					}
					if b, ok := langs[1].(string); ok {
						tr.Languages[1] = b
					}
				}
			}
			seams = append(seams, tr)
		}
	}

	return &query.CallChainResponse{
		Chain: query.NodesFrom(chain),
		Seams: seams,
		Stats: query.CallChainStats{
			Depth:     len(path) - 1,
			SeamCount: len(seams),
		},
		ExecutionTimeMS: ms(started),
	}, nil
}

// ComplexityAnalysis lists callable nodes at or above a complexity
// threshold, most complex first.
func (e *Engine) ComplexityAnalysis(_ context.Context, threshold int) []query.Node {
	if threshold < 1 {
		threshold = 1
	}
	var out []types.Node
	for _, kind := range []types.NodeKind{types.KindFunction, types.KindMethod} {
		for _, n := range e.store.SearchNodes("", "", kind) {
			if n.Complexity >= threshold {
				out = append(out, n)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Complexity != out[j].Complexity {
			return out[i].Complexity > out[j].Complexity
		}
		return out[i].ID < out[j].ID
	})
	return query.NodesFrom(out)
}

// Health reports collaborator liveness.
func (e *Engine) Health(ctx context.Context) *query.HealthResponse {
	resp := &query.HealthResponse{Status: "ok"}
	resp.Cache.Connected = e.cache.Connected(ctx)
	resp.Watcher.Running = e.WatcherRunning()
	resp.TotalNodes = e.store.NodeCount()
	resp.TotalRelationships = e.store.EdgeCount()
	if last := e.LastAnalysis(); !last.IsZero() {
		resp.LastAnalysis = last.UTC().Format(time.RFC3339)
	}
	resp.WatcherEvents, resp.WatcherBatches = e.WatcherStats()
	return resp
}
