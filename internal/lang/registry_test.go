package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/codegraph/internal/types"
)

func TestDetectByExtension(t *testing.T) {
	r := NewRegistry()
	tests := map[string]Language{
		"src/app.py":      Python,
		"web/index.ts":    TypeScript,
		"web/comp.tsx":    TypeScript,
		"main.go":         Go,
		"lib.rs":          Rust,
		"Server.java":     Java,
		"Program.cs":      CSharp,
		"engine.cpp":      Cpp,
		"kernel.c":        C,
		"index.php":       PHP,
		"build.zig":       Zig,
		"Rakefile.rb":     Ruby,
		"App.kt":          Kotlin,
		"query.sql":       SQL,
		"script.sh":       Shell,
		"deep/nested.ex":  Elixir,
		"analysis.R":      R,
		"viewmodel.dart":  Dart,
		"module/types.hs": Haskell,
	}
	for path, want := range tests {
		assert.Equal(t, want, r.Detect(path, nil), "path %s", path)
	}
}

func TestDetectShebangPrecedence(t *testing.T) {
	r := NewRegistry()

	// No extension: shebang decides.
	assert.Equal(t, Python, r.Detect("bin/tool", []byte("#!/usr/bin/env python3\nprint('hi')\n")))
	assert.Equal(t, Shell, r.Detect("bin/run", []byte("#!/bin/bash\necho hi\n")))
	assert.Equal(t, Ruby, r.Detect("bin/gen", []byte("#!/usr/bin/ruby2.7\nputs :hi\n")))

	// Extension wins over shebang.
	assert.Equal(t, Go, r.Detect("tool.go", []byte("#!/usr/bin/env python3\n")))
}

func TestDetectContentSignature(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, PHP, r.Detect("template", []byte("<?php echo 'x'; ?>")))
	assert.Equal(t, SQL, r.Detect("migration", []byte("SELECT * FROM users;\n")))
	assert.Equal(t, Language(""), r.Detect("data.bin", []byte{0x00, 0x01, 0x02}))
}

func TestDetectDeterministic(t *testing.T) {
	r := NewRegistry()
	content := []byte("#!/usr/bin/env node\nconsole.log(1)\n")
	first := r.Detect("bin/cli", content)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Detect("bin/cli", content))
	}
}

func TestPatternsForGrammarLanguages(t *testing.T) {
	r := NewRegistry()
	for _, l := range []Language{Python, JavaScript, TypeScript, Go, Rust, Java, CSharp, Cpp, C, PHP, Zig} {
		assert.True(t, r.HasGrammar(l), "language %s", l)
		ps := r.Patterns(l)
		assert.NotEmpty(t, ps.Declarations, "declarations for %s", l)
		assert.NotEmpty(t, ps.Calls, "calls for %s", l)
	}

	// Python specifics used by the extraction tests.
	py := r.Patterns(Python)
	assert.Equal(t, types.KindFunction, py.Declarations["function_definition"])
	assert.Contains(t, py.Imports, "import_statement")
}

func TestNoGrammarLanguagesHaveFallbacks(t *testing.T) {
	r := NewRegistry()
	for _, l := range []Language{Ruby, Kotlin, Swift, Scala, Lua, Perl, R,
		Dart, Haskell, Elixir, Erlang, Shell, PowerShell, SQL, ObjC} {
		assert.False(t, r.HasGrammar(l), "language %s", l)
		assert.NotEmpty(t, r.FallbackRules(l), "fallback rules for %s", l)
	}
}

func TestFallbackRuleExtraction(t *testing.T) {
	r := NewRegistry()
	rules := r.FallbackRules(Ruby)
	var matched bool
	for _, rule := range rules {
		if m := rule.Re.FindStringSubmatch("  def process_order!"); m != nil {
			assert.Equal(t, "process_order!", m[1])
			matched = true
		}
	}
	assert.True(t, matched)
}

func TestIsSupported(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsSupported("a/b/c.py"))
	assert.True(t, r.IsSupported("x.RS"))
	assert.False(t, r.IsSupported("README.md"))
	assert.False(t, r.IsSupported("binary"))
}

func TestStdlibNames(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsStdlibName(Python, "os"))
	assert.True(t, r.IsStdlibName(Go, "net/http"))
	assert.False(t, r.IsStdlibName(Python, "flask"))
	assert.False(t, r.IsStdlibName(Haskell, "anything"))
}

func TestLanguageCountAtLeast25(t *testing.T) {
	r := NewRegistry()
	assert.GreaterOrEqual(t, len(r.Languages()), 25)
}
