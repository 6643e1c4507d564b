package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/types"
)

func typesNode(language, kind string) types.Node {
	return types.Node{
		ID:       types.MakeNodeID(types.NodeKind(kind), "src/a.py", "x", 1),
		Name:     "x",
		Kind:     types.NodeKind(kind),
		Language: language,
		Location: types.Location{FilePath: "src/a.py", StartLine: 1, EndLine: 2},
	}
}

func TestNodeWireShape(t *testing.T) {
	n := NodeFrom(typesNode("python", "FUNCTION"))
	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "FUNCTION:src/a.py:x:1", decoded["id"])
	assert.Equal(t, "FUNCTION", decoded["node_type"])
	assert.Equal(t, "python", decoded["language"])
	loc := decoded["location"].(map[string]any)
	assert.Equal(t, "src/a.py", loc["file_path"])
	assert.Equal(t, float64(1), loc["start_line"])
	assert.Equal(t, float64(2), loc["end_line"])
}

func TestNodeWireShapeNullLanguage(t *testing.T) {
	n := NodeFrom(typesNode("", "FILE"))
	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	v, present := decoded["language"]
	assert.True(t, present, "language field must be emitted")
	assert.Nil(t, v, "language must be JSON null for agnostic nodes")
}

func TestEdgeWireShape(t *testing.T) {
	src := types.MakeNodeID(types.KindFunction, "a.py", "f", 1)
	dst := types.MakeNodeID(types.KindFunction, "a.py", "g", 2)
	e := EdgeFrom(types.Relationship{
		ID:       types.MakeEdgeID(types.RelCalls, src, dst),
		Type:     types.RelCalls,
		SourceID: src,
		TargetID: dst,
	})
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "CALLS", decoded["relationship_type"])
	assert.Equal(t, string(src), decoded["source_id"])
	assert.Equal(t, string(dst), decoded["target_id"])
}
