package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeNodeIDDeterministic(t *testing.T) {
	a := MakeNodeID(KindFunction, "src/a.py", "foo", 2)
	b := MakeNodeID(KindFunction, "src/a.py", "foo", 2)
	assert.Equal(t, a, b)
	assert.Equal(t, NodeID("FUNCTION:src/a.py:foo:2"), a)

	c := MakeNodeID(KindFunction, "src/a.py", "foo", 3)
	assert.NotEqual(t, a, c)
}

func TestMakeEdgeID(t *testing.T) {
	src := MakeNodeID(KindFunction, "a.py", "bar", 3)
	dst := MakeNodeID(KindFunction, "a.py", "foo", 2)
	id := MakeEdgeID(RelCalls, src, dst)
	assert.Equal(t, EdgeID("CALLS:FUNCTION:a.py:bar:3→FUNCTION:a.py:foo:2"), id)
}

func TestParseNodeKindClosedSet(t *testing.T) {
	for _, kind := range []NodeKind{KindFile, KindModule, KindClass, KindFunction,
		KindMethod, KindImport, KindVariable, KindInterface, KindEnum,
		KindTypeAlias, KindNamespace} {
		parsed, err := ParseNodeKind(string(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseNodeKind("WIDGET")
	assert.Error(t, err)
	_, err = ParseNodeKind("function") // case-sensitive canonical form
	assert.Error(t, err)
}

func TestParseRelTypeClosedSet(t *testing.T) {
	for _, rt := range AllRelTypes() {
		parsed, err := ParseRelType(string(rt))
		require.NoError(t, err)
		assert.Equal(t, rt, parsed)
	}
	_, err := ParseRelType("KNOWS")
	assert.Error(t, err)
}

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"src/a.py", "src/a.py", false},
		{"./src/a.py", "src/a.py", false},
		{`src\a.py`, "src/a.py", false},
		{"src/../a.py", "a.py", false},
		{"../escape.py", "", true},
		{"/abs/path.py", "", true},
		{".", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := CanonicalPath(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestFileNodeID(t *testing.T) {
	frag := &FileFragment{Path: "src/a.py"}
	assert.Equal(t, NodeID("FILE:src/a.py:a.py:1"), frag.FileNodeID())
}
