package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
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
)

const sampleProject = `import os
def foo(): os.system("ls")
def bar(x):
    if x: return foo()
    return 0
`

func newTestMCPServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.py"), []byte(sampleProject), 0644))

	cfg := config.Default(root)
	cfg.WatcherEnabled = false

	registry := lang.NewRegistry()
	p := parser.New(registry, ast.NewAdapter(), seam.NewDetector())
	c := cache.New(nil, time.Hour, cfg.PatternSetVersion)
	require.NoError(t, c.LoadGeneration(context.Background()))

	eng, err := engine.New(cfg, registry, graph.NewStore(nil), c, p)
	require.NoError(t, err)
	require.NoError(t, eng.AnalyzeFull(context.Background()))
	t.Cleanup(func() {
		eng.Close()
		c.Close()
	})
	return NewServer(eng)
}

func callReq(args string) *mcp.CallToolRequest {
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Arguments: json.RawMessage(args),
	}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestFindCallersTool(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleFindCallers(context.Background(), callReq(`{"symbol":"foo"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, `1 callers of "foo"`)
	assert.Contains(t, text, "bar")
}

func TestFindDefinitionTool(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleFindDefinition(context.Background(), callReq(`{"symbol":"bar"}`))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "FUNCTION:src/a.py:bar:3")
}

func TestSymbolRequiredError(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleFindCallers(context.Background(), callReq(`{}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestComplexityAnalysisTool(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleComplexityAnalysis(context.Background(), callReq(`{"threshold":2}`))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "bar")
	assert.NotContains(t, strings.Split(text, "\n")[0], "foo")
}

func TestProjectStatisticsTool(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleProjectStatistics(context.Background(), callReq(`{}`))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "total_nodes")

	// The payload after the summary line is valid JSON.
	idx := strings.IndexByte(text, '\n')
	require.Greater(t, idx, 0)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text[idx+1:]), &payload))
	assert.Greater(t, payload["total_nodes"].(float64), float64(0))
}

func TestUsageGuideTool(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleUsageGuide(context.Background(), callReq(`{}`))
	require.NoError(t, err)
	text := resultText(t, res)
	for _, tool := range []string{"analyze_codebase", "find_definition",
		"find_references", "find_callers", "find_callees",
		"complexity_analysis", "dependency_analysis", "project_statistics"} {
		assert.Contains(t, text, tool)
	}
}
