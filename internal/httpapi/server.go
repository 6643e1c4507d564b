// Package httpapi serves the HTTP/JSON query surface. It is a thin adapter:
// requests decode into query DTOs, the engine answers, errors map to status
// codes per the error taxonomy.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/standardbeagle/codegraph/internal/debug"
	"github.com/standardbeagle/codegraph/internal/engine"
	"github.com/standardbeagle/codegraph/internal/query"
)

// Server is the HTTP query server.
type Server struct {
	engine *engine.Engine
	http   *http.Server
}

// NewServer builds the server and its routes.
func NewServer(eng *engine.Engine, addr string) *Server {
	s := &Server{engine: eng}
	mux := http.NewServeMux()
	s.registerHandlers(mux)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph/stats", s.handleStats)
	mux.HandleFunc("GET /api/graph/nodes/search", s.handleSearch)
	mux.HandleFunc("GET /api/graph/nodes/{id...}", s.handleGetNode)
	mux.HandleFunc("GET /api/graph/categories/{category}", s.handleCategory)
	mux.HandleFunc("GET /api/graph/query/callers", s.handleCallers)
	mux.HandleFunc("GET /api/graph/query/callees", s.handleCallees)
	mux.HandleFunc("GET /api/graph/query/references", s.handleReferences)
	mux.HandleFunc("POST /api/graph/traverse", s.handleTraverse)
	mux.HandleFunc("POST /api/graph/subgraph", s.handleSubgraph)
	mux.HandleFunc("GET /api/graph/call-chain/{start...}", s.handleCallChain)
	mux.HandleFunc("POST /api/graph/admin/reanalyze", s.handleReanalyze)
	mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start begins serving in the background.
func (s *Server) Start() error {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			debug.LogHTTP("server error: %v\n", err)
		}
	}()
	debug.LogHTTP("query API listening on %s\n", s.http.Addr)
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps taxonomy errors onto status codes. Unexpected errors are
// opaque 500s with full detail in the debug log only.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, query.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		debug.LogHTTP("internal error: %v\n", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// requestContext applies an optional deadline_ms query parameter.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if v := r.URL.Query().Get("deadline_ms"); v != "" {
		if msec, err := strconv.Atoi(v); err == nil && msec > 0 {
			return context.WithTimeout(r.Context(), time.Duration(msec)*time.Millisecond)
		}
	}
	return r.Context(), func() {}
}

func pageFrom(r *http.Request) query.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return query.NewPage(limit, offset, q.Has("limit"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	writeJSON(w, http.StatusOK, s.engine.Stats(ctx))
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.engine.GetNode(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := s.engine.Search(r.Context(), query.SearchRequest{
		Query:    q.Get("q"),
		Language: q.Get("language"),
		Kind:     q.Get("kind"),
		Page:     pageFrom(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Category(r.Context(), r.PathValue("category"), pageFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeSymbolResponse renders callers/callees/references with the
// role-specific field names of the contract.
func (s *Server) writeSymbolResponse(w http.ResponseWriter, resp *query.SymbolResponse, totalField, listField string) {
	payload := map[string]any{
		"symbol":            resp.Symbol,
		totalField:          resp.Total,
		"limit":             resp.Limit,
		"offset":            resp.Offset,
		"has_more":          resp.HasMore,
		listField:           emptyIfNil(resp.Nodes),
		"execution_time_ms": resp.ExecutionTimeMS,
	}
	if len(resp.Suggestions) > 0 {
		payload["suggestions"] = resp.Suggestions
	}
	writeJSON(w, http.StatusOK, payload)
}

func emptyIfNil(nodes []query.Node) []query.Node {
	if nodes == nil {
		return []query.Node{}
	}
	return nodes
}

func (s *Server) symbolRequest(r *http.Request) query.SymbolRequest {
	return query.SymbolRequest{
		Symbol: r.URL.Query().Get("symbol"),
		Page:   pageFrom(r),
	}
}

func (s *Server) handleCallers(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Callers(r.Context(), s.symbolRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeSymbolResponse(w, resp, "total_callers", "callers")
}

func (s *Server) handleCallees(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Callees(r.Context(), s.symbolRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeSymbolResponse(w, resp, "total_callees", "callees")
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.References(r.Context(), s.symbolRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeSymbolResponse(w, resp, "total_references", "references")
}

type traverseBody struct {
	StartNode    string   `json:"start_node"`
	QueryType    string   `json:"query_type"`
	MaxDepth     int      `json:"max_depth"`
	MaxNodes     int      `json:"max_nodes"`
	EdgeTypes    []string `json:"edge_types"`
	IncludeSeams bool     `json:"include_seams"`
	DeadlineMS   int      `json:"deadline_ms"`
}

func (s *Server) handleTraverse(w http.ResponseWriter, r *http.Request) {
	var body traverseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, query.InvalidArgf("body: %v", err))
		return
	}
	ctx := r.Context()
	if body.DeadlineMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(body.DeadlineMS)*time.Millisecond)
		defer cancel()
	}
	resp, err := s.engine.Traverse(ctx, query.TraverseRequest{
		StartNode:    body.StartNode,
		QueryType:    body.QueryType,
		MaxDepth:     body.MaxDepth,
		MaxNodes:     body.MaxNodes,
		EdgeTypes:    body.EdgeTypes,
		IncludeSeams: body.IncludeSeams,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type subgraphBody struct {
	StartNode string `json:"start_node"`
	MaxDepth  int    `json:"max_depth"`
	MaxNodes  int    `json:"max_nodes"`
}

func (s *Server) handleSubgraph(w http.ResponseWriter, r *http.Request) {
	var body subgraphBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, query.InvalidArgf("body: %v", err))
		return
	}
	resp, err := s.engine.Subgraph(r.Context(), query.SubgraphRequest{
		StartNode: body.StartNode,
		MaxDepth:  body.MaxDepth,
		MaxNodes:  body.MaxNodes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCallChain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	follow, _ := strconv.ParseBool(q.Get("follow_seams"))
	maxDepth, _ := strconv.Atoi(q.Get("max_depth"))
	resp, err := s.engine.CallChain(r.Context(), query.CallChainRequest{
		SrcID:       r.PathValue("start"),
		DstID:       q.Get("dst"),
		FollowSeams: follow,
		MaxDepth:    maxDepth,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReanalyze triggers a full re-analysis in the background.
func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := s.engine.AnalyzeFull(context.Background()); err != nil {
			debug.LogHTTP("reanalyze failed: %v\n", err)
		}
	}()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Health(r.Context()))
}
