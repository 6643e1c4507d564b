package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codegraph/internal/lang"
)

func TestParsePython(t *testing.T) {
	a := NewAdapter()
	src := []byte("def foo():\n    return 1\n")

	tree, err := a.Parse(lang.Python, src)
	require.NoError(t, err)
	defer tree.Close()

	funcs := tree.Root().FindAll("function_definition")
	require.Len(t, funcs, 1)

	name := funcs[0].ChildByField("name")
	require.True(t, name.Valid())
	assert.Equal(t, "foo", name.Text())

	span := funcs[0].Span()
	assert.Equal(t, 1, span.StartLine)
	assert.Equal(t, 1, span.StartCol)
}

func TestParseUnsupported(t *testing.T) {
	a := NewAdapter()
	_, err := a.Parse(lang.Haskell, []byte("main = putStrLn \"hi\""))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestCAndCppShareGrammar(t *testing.T) {
	a := NewAdapter()
	assert.True(t, a.Supported(lang.C))
	assert.True(t, a.Supported(lang.Cpp))

	tree, err := a.Parse(lang.C, []byte("int main() { return 0; }\n"))
	require.NoError(t, err)
	defer tree.Close()
	assert.Len(t, tree.Root().FindAll("function_definition"), 1)
}

func TestFindAllOfMultipleKinds(t *testing.T) {
	a := NewAdapter()
	src := []byte("def f():\n    pass\n\nclass C:\n    pass\n")
	tree, err := a.Parse(lang.Python, src)
	require.NoError(t, err)
	defer tree.Close()

	matches := tree.Root().FindAllOf("function_definition", "class_definition")
	assert.Len(t, matches, 2)
}

func TestWalkSkipsSubtree(t *testing.T) {
	a := NewAdapter()
	tree, err := a.Parse(lang.Python, []byte("def f():\n    return 1\n"))
	require.NoError(t, err)
	defer tree.Close()

	var visited int
	tree.Root().Walk(func(n Node) bool {
		visited++
		return n.Kind() != "function_definition" // stop below the function
	})
	assert.Greater(t, visited, 0)
	assert.Less(t, visited, 5)
}
