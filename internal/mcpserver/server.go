// Package mcpserver exposes the query API as Model Context Protocol tools
// over stdio. Each tool answers with a text block containing the same JSON
// the HTTP surface would return, prefixed with a short summary line.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/codegraph/internal/debug"
	"github.com/standardbeagle/codegraph/internal/engine"
	"github.com/standardbeagle/codegraph/internal/query"
)

// Server is the MCP tool server.
type Server struct {
	engine *engine.Engine
	server *mcp.Server
}

// NewServer builds the server and registers the tool set.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{engine: eng}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph-mcp-server",
		Version: "0.1.0",
	}, nil)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context ends. Debug output to stdio
// is suppressed for protocol compliance.
func (s *Server) Run(ctx context.Context) error {
	debug.SetMCPMode(true)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// textResult renders a summary line plus indented JSON, the response shape
// every tool shares.
func textResult(summary string, payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary + "\n" + string(raw)},
		},
	}, nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: err.Error()},
		},
	}, nil
}

// symbolParams is the shared input of the symbol-oriented tools.
type symbolParams struct {
	Symbol string `json:"symbol"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func symbolSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"symbol": {Type: "string", Description: "Symbol name to look up"},
			"limit":  {Type: "integer", Description: "Maximum results"},
			"offset": {Type: "integer", Description: "Pagination offset"},
		},
		Required: []string{"symbol"},
	}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "analyze_codebase",
		Description: "Run a full analysis of the project: discover files, parse them into the code graph, and report the resulting statistics.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleAnalyzeCodebase)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_definition",
		Description: "Find the declaration nodes matching a symbol name across every language in the graph.",
		InputSchema: symbolSchema(),
	}, s.handleFindDefinition)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_references",
		Description: "Find nodes that call or reference the given symbol.",
		InputSchema: symbolSchema(),
	}, s.handleFindReferences)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_callers",
		Description: "Find nodes with an outgoing call to the given symbol.",
		InputSchema: symbolSchema(),
	}, s.handleFindCallers)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_callees",
		Description: "Find nodes the given symbol calls.",
		InputSchema: symbolSchema(),
	}, s.handleFindCallees)

	s.server.AddTool(&mcp.Tool{
		Name:        "complexity_analysis",
		Description: "List functions and methods whose cyclomatic complexity meets a threshold, most complex first.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"threshold": {Type: "integer", Description: "Minimum complexity (default 10)"},
			},
		},
	}, s.handleComplexityAnalysis)

	s.server.AddTool(&mcp.Tool{
		Name:        "dependency_analysis",
		Description: "Summarize import structure: per-language node counts, import totals and circular-dependency count.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleDependencyAnalysis)

	s.server.AddTool(&mcp.Tool{
		Name:        "project_statistics",
		Description: "Report graph-wide statistics: node and relationship totals, language histogram, top-complexity functions.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleProjectStatistics)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_usage_guide",
		Description: "Explain the available tools and how to combine them.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleUsageGuide)
}

func (s *Server) handleAnalyzeCodebase(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.engine.AnalyzeFull(ctx); err != nil {
		return errorResult(fmt.Errorf("analysis failed: %w", err))
	}
	stats := s.engine.Stats(ctx)
	summary := fmt.Sprintf("Analysis complete: %d nodes, %d relationships across %d languages.",
		stats.TotalNodes, stats.TotalRelationships, len(stats.Languages))
	return textResult(summary, stats)
}

func (s *Server) symbolArgs(req *mcp.CallToolRequest) (symbolParams, error) {
	var params symbolParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return params, fmt.Errorf("invalid parameters: %w", err)
	}
	if params.Symbol == "" {
		return params, fmt.Errorf("symbol is required")
	}
	return params, nil
}

func (s *Server) handleFindDefinition(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := s.symbolArgs(req)
	if err != nil {
		return errorResult(err)
	}
	defs, err := s.engine.Definitions(ctx, params.Symbol)
	if err != nil {
		return errorResult(err)
	}
	summary := fmt.Sprintf("%d definition(s) of %q.", len(defs), params.Symbol)
	return textResult(summary, map[string]any{"symbol": params.Symbol, "definitions": defs})
}

func (s *Server) symbolQueryTool(ctx context.Context, req *mcp.CallToolRequest, role string,
	run func(context.Context, query.SymbolRequest) (*query.SymbolResponse, error)) (*mcp.CallToolResult, error) {
	params, err := s.symbolArgs(req)
	if err != nil {
		return errorResult(err)
	}
	resp, err := run(ctx, query.SymbolRequest{
		Symbol: params.Symbol,
		Page:   query.NewPage(params.Limit, params.Offset, params.Limit > 0),
	})
	if err != nil {
		return errorResult(err)
	}
	summary := fmt.Sprintf("%d %s of %q.", resp.Total, role, params.Symbol)
	if resp.Total == 0 && len(resp.Suggestions) > 0 {
		summary += fmt.Sprintf(" Did you mean: %v?", resp.Suggestions)
	}
	return textResult(summary, map[string]any{
		"symbol":            resp.Symbol,
		"total":             resp.Total,
		"limit":             resp.Limit,
		"offset":            resp.Offset,
		"has_more":          resp.HasMore,
		role:                resp.Nodes,
		"suggestions":       resp.Suggestions,
		"execution_time_ms": resp.ExecutionTimeMS,
	})
}

func (s *Server) handleFindReferences(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.symbolQueryTool(ctx, req, "references", s.engine.References)
}

func (s *Server) handleFindCallers(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.symbolQueryTool(ctx, req, "callers", s.engine.Callers)
}

func (s *Server) handleFindCallees(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.symbolQueryTool(ctx, req, "callees", s.engine.Callees)
}

func (s *Server) handleComplexityAnalysis(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Threshold int `json:"threshold"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult(fmt.Errorf("invalid parameters: %w", err))
		}
	}
	if params.Threshold <= 0 {
		params.Threshold = 10
	}
	nodes := s.engine.ComplexityAnalysis(ctx, params.Threshold)
	summary := fmt.Sprintf("%d function(s) with complexity >= %d.", len(nodes), params.Threshold)
	return textResult(summary, map[string]any{
		"threshold": params.Threshold,
		"functions": nodes,
	})
}

func (s *Server) handleDependencyAnalysis(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.engine.Stats(ctx)
	summary := fmt.Sprintf("%d import relationships, %d circular dependency group(s).",
		stats.NodeTypes["IMPORT"], stats.CircularImports)
	return textResult(summary, map[string]any{
		"imports":           stats.NodeTypes["IMPORT"],
		"circular_imports":  stats.CircularImports,
		"languages":         stats.Languages,
		"execution_time_ms": stats.ExecutionTimeMS,
	})
}

func (s *Server) handleProjectStatistics(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.engine.Stats(ctx)
	summary := fmt.Sprintf("%d nodes and %d relationships.", stats.TotalNodes, stats.TotalRelationships)
	return textResult(summary, stats)
}

const usageGuide = `codegraph MCP tools:

1. analyze_codebase        - run this first; builds the code graph
2. project_statistics      - totals, language histogram, top complexity
3. find_definition         - where a symbol is declared
4. find_callers            - who calls a symbol
5. find_callees            - what a symbol calls
6. find_references         - calls plus other references to a symbol
7. complexity_analysis     - functions above a complexity threshold
8. dependency_analysis     - import structure and circular dependencies

Typical flow: analyze_codebase, then navigate with find_* tools. Symbol
lookups are name-based across all languages; empty results include
"did you mean" suggestions.`

func (s *Server) handleUsageGuide(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: usageGuide}},
	}, nil
}
