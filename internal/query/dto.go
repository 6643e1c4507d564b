package query

import (
	"github.com/standardbeagle/codegraph/internal/types"
)

// Node is the wire shape of a graph vertex. Language is null for
// language-agnostic nodes.
type Node struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	NodeType   string         `json:"node_type"`
	Language   *string        `json:"language"`
	Complexity int            `json:"complexity"`
	Location   Location       `json:"location"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Location is the wire shape of a source span.
type Location struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Edge is the wire shape of a relationship.
type Edge struct {
	ID               string         `json:"id"`
	SourceID         string         `json:"source_id"`
	TargetID         string         `json:"target_id"`
	RelationshipType string         `json:"relationship_type"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// NodeFrom converts the internal node model to its wire shape.
func NodeFrom(n types.Node) Node {
	var language *string
	if n.Language != "" {
		l := n.Language
		language = &l
	}
	return Node{
		ID:         string(n.ID),
		Name:       n.Name,
		NodeType:   string(n.Kind),
		Language:   language,
		Complexity: n.Complexity,
		Location: Location{
			FilePath:  n.Location.FilePath,
			StartLine: n.Location.StartLine,
			EndLine:   n.Location.EndLine,
		},
		Metadata: n.Metadata,
	}
}

// NodesFrom converts a slice.
func NodesFrom(nodes []types.Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = NodeFrom(n)
	}
	return out
}

// EdgeFrom converts the internal edge model to its wire shape.
func EdgeFrom(e types.Relationship) Edge {
	return Edge{
		ID:               string(e.ID),
		SourceID:         string(e.SourceID),
		TargetID:         string(e.TargetID),
		RelationshipType: string(e.Type),
		Metadata:         e.Metadata,
	}
}

// EdgesFrom converts a slice.
func EdgesFrom(edges []types.Relationship) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = EdgeFrom(e)
	}
	return out
}

// TopFunction is one entry of the stats top-complexity list.
type TopFunction struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Complexity int    `json:"complexity"`
}

// StatsResponse is the project statistics payload.
type StatsResponse struct {
	TotalNodes         int            `json:"total_nodes"`
	TotalRelationships int            `json:"total_relationships"`
	Languages          map[string]int `json:"languages"`
	NodeTypes          map[string]int `json:"node_types"`
	TopFunctions       []TopFunction  `json:"top_functions"`
	CircularImports    int            `json:"circular_imports"`
	ExecutionTimeMS    float64        `json:"execution_time_ms"`
}

// SearchRequest filters nodes by name substring.
type SearchRequest struct {
	Query    string
	Language string
	Kind     string
	Page     Page
}

// SearchResponse is a paged node list.
type SearchResponse struct {
	Results         []Node  `json:"results"`
	Total           int     `json:"total"`
	Limit           int     `json:"limit"`
	Offset          int     `json:"offset"`
	HasMore         bool    `json:"has_more"`
	ExecutionTimeMS float64 `json:"execution_time_ms"`
}

// Category names accepted by the category query.
const (
	CategoryEntryPoints = "entry_points"
	CategoryHubs        = "hubs"
	CategoryLeaves      = "leaves"
)

// CategoryResponse is a paged category listing with an honest total.
type CategoryResponse struct {
	Category        string  `json:"category"`
	Total           int     `json:"total"`
	Offset          int     `json:"offset"`
	Limit           int     `json:"limit"`
	Nodes           []Node  `json:"nodes"`
	ExecutionTimeMS float64 `json:"execution_time_ms"`
}

// SymbolRequest targets a symbol by simple name.
type SymbolRequest struct {
	Symbol string
	Page   Page
}

// SymbolResponse answers callers/callees/references queries. Suggestions
// carries near-miss symbol names when the symbol resolves to nothing.
type SymbolResponse struct {
	Symbol          string   `json:"symbol"`
	Total           int      `json:"-"`
	Limit           int      `json:"limit"`
	Offset          int      `json:"offset"`
	HasMore         bool     `json:"has_more"`
	Nodes           []Node   `json:"-"`
	Suggestions     []string `json:"suggestions,omitempty"`
	ExecutionTimeMS float64  `json:"execution_time_ms"`
}

// TraverseRequest expands the graph from a start node.
type TraverseRequest struct {
	StartNode    string
	QueryType    string // "bfs" or "dfs"
	MaxDepth     int
	MaxNodes     int
	EdgeTypes    []string
	IncludeSeams bool
}

// TraverseStats summarizes a traversal.
type TraverseStats struct {
	TotalNodes         int `json:"total_nodes"`
	TotalRelationships int `json:"total_relationships"`
	TraversalDepth     int `json:"traversal_depth"`
	SeamCount          int `json:"seam_count"`
}

// TraverseResponse is the bounded traversal payload.
type TraverseResponse struct {
	Nodes           []Node        `json:"nodes"`
	Relationships   []Edge        `json:"relationships"`
	Stats           TraverseStats `json:"stats"`
	Truncated       bool          `json:"truncated,omitempty"`
	ExecutionTimeMS float64       `json:"execution_time_ms"`
}

// SubgraphRequest extracts the induced subgraph around a start node.
type SubgraphRequest struct {
	StartNode string
	MaxDepth  int
	MaxNodes  int
}

// SubgraphResponse is the induced subgraph payload.
type SubgraphResponse struct {
	Nodes              []Node  `json:"nodes"`
	Relationships      []Edge  `json:"relationships"`
	TotalNodes         int     `json:"total_nodes"`
	TotalRelationships int     `json:"total_relationships"`
	Truncated          bool    `json:"truncated,omitempty"`
	ExecutionTimeMS    float64 `json:"execution_time_ms"`
}

// CallChainRequest asks for the shortest call path from src to dst,
// optionally crossing SEAM edges. With no dst, the chain runs to the deepest
// node reachable from src.
type CallChainRequest struct {
	SrcID       string
	DstID       string
	FollowSeams bool
	MaxDepth    int
}

// SeamTransition marks a language change inside a call chain.
type SeamTransition struct {
	FromIndex int       `json:"from_index"`
	ToIndex   int       `json:"to_index"`
	Languages [2]string `json:"languages"`
}

// CallChainStats summarizes a chain.
type CallChainStats struct {
	Depth     int `json:"depth"`
	SeamCount int `json:"seam_count"`
}

// CallChainResponse is the ordered chain payload.
type CallChainResponse struct {
	Chain           []Node           `json:"chain"`
	Seams           []SeamTransition `json:"seams"`
	Stats           CallChainStats   `json:"stats"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
}

// HealthResponse reports liveness of the collaborators.
type HealthResponse struct {
	Status string `json:"status"`
	Cache  struct {
		Connected bool `json:"connected"`
	} `json:"cache"`
	Watcher struct {
		Running bool `json:"running"`
	} `json:"watcher"`
	TotalNodes         int    `json:"total_nodes"`
	TotalRelationships int    `json:"total_relationships"`
	LastAnalysis       string `json:"last_analysis,omitempty"`
	WatcherEvents      int64  `json:"watcher_events,omitempty"`
	WatcherBatches     int64  `json:"watcher_batches,omitempty"`
}
