package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/ast"
	"github.com/standardbeagle/codegraph/internal/cache"
	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/engine"
	"github.com/standardbeagle/codegraph/internal/graph"
	"github.com/standardbeagle/codegraph/internal/lang"
	"github.com/standardbeagle/codegraph/internal/parser"
	"github.com/standardbeagle/codegraph/internal/seam"
	"github.com/standardbeagle/codegraph/internal/types"
)

const sampleProject = `import os
def foo(): os.system("ls")
def bar(x):
    if x: return foo()
    return 0
`

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.py"), []byte(sampleProject), 0644))

	cfg := config.Default(root)
	cfg.WatcherEnabled = false

	registry := lang.NewRegistry()
	p := parser.New(registry, ast.NewAdapter(), seam.NewDetector())
	c := cache.New(cache.NewMemoryKV(), time.Hour, cfg.PatternSetVersion)
	require.NoError(t, c.LoadGeneration(context.Background()))
	store := graph.NewStore(nil)

	eng, err := engine.New(cfg, registry, store, c, p)
	require.NoError(t, err)
	require.NoError(t, eng.AnalyzeFull(context.Background()))
	t.Cleanup(func() {
		eng.Close()
		c.Close()
	})

	srv := httptest.NewServer(NewServer(eng, ":0").Handler())
	t.Cleanup(srv.Close)
	return srv, eng
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body, out any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var stats map[string]any
	code := getJSON(t, srv, "/api/graph/stats", &stats)
	assert.Equal(t, http.StatusOK, code)
	assert.Greater(t, stats["total_nodes"].(float64), float64(0))
	assert.Contains(t, stats, "languages")
	assert.Contains(t, stats, "execution_time_ms")
}

func TestGetNodeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	id := string(types.MakeNodeID(types.KindFunction, "src/a.py", "foo", 2))
	var node map[string]any
	code := getJSON(t, srv, "/api/graph/nodes/"+url.PathEscape(id), &node)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "foo", node["name"])
	assert.Equal(t, "FUNCTION", node["node_type"])
}

func TestGetNodeNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]any
	code := getJSON(t, srv, "/api/graph/nodes/FUNCTION:nope.py:x:1", &body)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSearchEndpointPagination(t *testing.T) {
	srv, _ := newTestServer(t)

	var resp struct {
		Results []map[string]any `json:"results"`
		Total   int              `json:"total"`
		Limit   int              `json:"limit"`
		HasMore bool             `json:"has_more"`
	}
	code := getJSON(t, srv, "/api/graph/nodes/search?q=o&limit=1", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, resp.Limit)
	assert.Len(t, resp.Results, 1)
	assert.Greater(t, resp.Total, 1)
	assert.True(t, resp.HasMore)
}

func TestCategoryEndpointStablePagination(t *testing.T) {
	srv, _ := newTestServer(t)

	var page1, page2 struct {
		Total int              `json:"total"`
		Nodes []map[string]any `json:"nodes"`
	}
	code := getJSON(t, srv, "/api/graph/categories/entry_points?limit=1&offset=0", &page1)
	assert.Equal(t, http.StatusOK, code)
	code = getJSON(t, srv, "/api/graph/categories/entry_points?limit=1&offset=1", &page2)
	assert.Equal(t, http.StatusOK, code)

	assert.Equal(t, page1.Total, page2.Total)
	if len(page1.Nodes) > 0 && len(page2.Nodes) > 0 {
		assert.NotEqual(t, page1.Nodes[0]["id"], page2.Nodes[0]["id"])
	}
}

func TestCategoryEndpointUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]any
	code := getJSON(t, srv, "/api/graph/categories/villains", &body)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCallersEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var resp struct {
		Symbol       string           `json:"symbol"`
		TotalCallers int              `json:"total_callers"`
		Callers      []map[string]any `json:"callers"`
	}
	code := getJSON(t, srv, "/api/graph/query/callers?symbol=foo", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "foo", resp.Symbol)
	require.Equal(t, 1, resp.TotalCallers)
	assert.Equal(t, "bar", resp.Callers[0]["name"])
}

func TestTraverseEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	fileID := string(types.MakeNodeID(types.KindFile, "src/a.py", "a.py", 1))
	var resp struct {
		Nodes []map[string]any `json:"nodes"`
		Stats map[string]any   `json:"stats"`
	}
	code := postJSON(t, srv, "/api/graph/traverse", map[string]any{
		"start_node": fileID,
		"query_type": "bfs",
		"max_depth":  3,
	}, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Greater(t, len(resp.Nodes), 1)
}

func TestTraverseMissingStartIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	var resp map[string]any
	code := postJSON(t, srv, "/api/graph/traverse", map[string]any{
		"start_node": "FUNCTION:missing.py:x:1",
		"query_type": "bfs",
	}, &resp)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSubgraphEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	fileID := string(types.MakeNodeID(types.KindFile, "src/a.py", "a.py", 1))
	var resp struct {
		TotalNodes int `json:"total_nodes"`
	}
	code := postJSON(t, srv, "/api/graph/subgraph", map[string]any{
		"start_node": fileID,
		"max_depth":  2,
		"max_nodes":  50,
	}, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Greater(t, resp.TotalNodes, 1)
}

func TestCallChainEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	barID := string(types.MakeNodeID(types.KindFunction, "src/a.py", "bar", 3))
	var resp struct {
		Chain []map[string]any `json:"chain"`
		Stats map[string]any   `json:"stats"`
	}
	code := getJSON(t, srv, "/api/graph/call-chain/"+url.PathEscape(barID)+"?follow_seams=true", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.GreaterOrEqual(t, len(resp.Chain), 2)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var health struct {
		Status string `json:"status"`
		Cache  struct {
			Connected bool `json:"connected"`
		} `json:"cache"`
		Watcher struct {
			Running bool `json:"running"`
		} `json:"watcher"`
	}
	code := getJSON(t, srv, "/health", &health)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Cache.Connected)
	assert.False(t, health.Watcher.Running)
}

func TestReanalyzeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var resp map[string]string
	code := postJSON(t, srv, "/api/graph/admin/reanalyze", map[string]any{}, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp["status"])
}
