package ignore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitignoreBasicPatterns(t *testing.T) {
	m := NewGitignoreMatcher()
	m.AddPattern("*.log")
	m.AddPattern("build/")
	m.AddPattern("/secrets.txt")
	m.AddPattern("temp*")

	assert.True(t, m.Match("app.log", false))
	assert.True(t, m.Match("deep/nested/app.log", false))
	assert.True(t, m.Match("build", true))
	assert.True(t, m.Match("build/out.js", false))
	assert.True(t, m.Match("secrets.txt", false))
	assert.False(t, m.Match("sub/secrets.txt", false)) // absolute pattern
	assert.True(t, m.Match("tempfile", false))
	assert.False(t, m.Match("src/app.py", false))
}

func TestGitignoreNegation(t *testing.T) {
	m := NewGitignoreMatcher()
	m.AddPattern("*.log")
	m.AddPattern("!keep.log")

	assert.True(t, m.Match("other.log", false))
	assert.False(t, m.Match("keep.log", false))
}

func TestGitignoreNestedDirectoryPattern(t *testing.T) {
	m := NewGitignoreMatcher()
	m.AddPattern("node_modules/")

	assert.True(t, m.Match("node_modules", true))
	assert.True(t, m.Match("pkg/node_modules", true))
	assert.True(t, m.Match("pkg/node_modules/lib/index.js", false))
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	}
}

func TestScopeWalkPrunesIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":               "generated/\n*.tmp.py\n",
		"src/a.py":                 "def a(): pass\n",
		"src/b.py":                 "def b(): pass\n",
		"src/c.tmp.py":             "ignored\n",
		"generated/gen.py":         "ignored\n",
		"node_modules/m/index.js":  "ignored hard-skip\n",
		".git/objects/aa":          "vcs metadata\n",
		"vendor/dep/dep.go":        "ignored hard-skip\n",
		"docs/readme.txt":          "not supported\n",
		"deep/ok/module.py":        "def m(): pass\n",
		"build/out.py":             "hard-skip dir\n",
		"__pycache__/a.cpython.py": "hard-skip dir\n",
	})

	scope, err := NewScope(root, ".gitignore")
	require.NoError(t, err)

	supported := func(rel string) bool {
		ext := filepath.Ext(rel)
		return ext == ".py" || ext == ".js" || ext == ".go"
	}
	files, err := scope.Walk(supported)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"src/a.py", "src/b.py", "deep/ok/module.py"}, files)
}

func TestScopeReloadPicksUpIgnoreChange(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore": "",
		"src/a.py":   "def a(): pass\n",
		"src/b.py":   "def b(): pass\n",
	})

	scope, err := NewScope(root, ".gitignore")
	require.NoError(t, err)
	assert.False(t, scope.IsIgnored("src/b.py", false))

	// Rewrite the ignore file with a new mtime.
	path := filepath.Join(root, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("src/b.py\n"), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	require.NoError(t, scope.Reload())
	assert.True(t, scope.IsIgnored("src/b.py", false))
	assert.False(t, scope.IsIgnored("src/a.py", false))
}

func TestScopeHardSkips(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{".gitignore": ""})
	scope, err := NewScope(root, ".gitignore")
	require.NoError(t, err)

	assert.True(t, scope.IsIgnored("node_modules", true))
	assert.True(t, scope.IsIgnored("a/b/.git", true))
	assert.True(t, scope.IsIgnored(".hidden", true))
	assert.True(t, scope.IsIgnored("app.min.js", false))
	assert.True(t, scope.IsIgnored("x/y/z.pyc", false))
	assert.False(t, scope.IsIgnored("src", true))
	assert.False(t, scope.IsIgnored("src/main.py", false))
}
