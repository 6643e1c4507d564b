package lang

import (
	"regexp"

	"github.com/standardbeagle/codegraph/internal/types"
)

// FallbackRule extracts one declaration kind by line regex for languages
// without a wired grammar. The first capture group is the declared name.
type FallbackRule struct {
	Kind types.NodeKind
	Re   *regexp.Regexp
}

// fallbackRules covers the registry languages that have no tree-sitter
// grammar wired. Extraction is line-oriented and intentionally shallow:
// declared names and their lines, nothing structural.
var fallbackRules = map[Language][]FallbackRule{
	Ruby: {
		{types.KindClass, regexp.MustCompile(`^\s*class\s+([A-Z]\w*)`)},
		{types.KindModule, regexp.MustCompile(`^\s*module\s+([A-Z]\w*)`)},
		{types.KindMethod, regexp.MustCompile(`^\s*def\s+(?:self\.)?([\w?!]+)`)},
	},
	Kotlin: {
		{types.KindClass, regexp.MustCompile(`^\s*(?:data\s+|sealed\s+|open\s+|abstract\s+)*class\s+(\w+)`)},
		{types.KindInterface, regexp.MustCompile(`^\s*interface\s+(\w+)`)},
		{types.KindFunction, regexp.MustCompile(`^\s*(?:suspend\s+|inline\s+|private\s+|public\s+|internal\s+)*fun\s+(?:<[^>]+>\s+)?(\w+)\s*\(`)},
	},
	Swift: {
		{types.KindClass, regexp.MustCompile(`^\s*(?:final\s+|public\s+|open\s+)*class\s+(\w+)`)},
		{types.KindClass, regexp.MustCompile(`^\s*(?:public\s+)?struct\s+(\w+)`)},
		{types.KindInterface, regexp.MustCompile(`^\s*(?:public\s+)?protocol\s+(\w+)`)},
		{types.KindEnum, regexp.MustCompile(`^\s*(?:public\s+)?enum\s+(\w+)`)},
		{types.KindFunction, regexp.MustCompile(`^\s*(?:public\s+|private\s+|static\s+|override\s+)*func\s+(\w+)\s*[(<]`)},
	},
	Scala: {
		{types.KindClass, regexp.MustCompile(`^\s*(?:case\s+|abstract\s+|final\s+)*class\s+(\w+)`)},
		{types.KindClass, regexp.MustCompile(`^\s*(?:case\s+)?object\s+(\w+)`)},
		{types.KindInterface, regexp.MustCompile(`^\s*(?:sealed\s+)?trait\s+(\w+)`)},
		{types.KindFunction, regexp.MustCompile(`^\s*(?:override\s+|private\s+|protected\s+|final\s+)*def\s+(\w+)`)},
	},
	Lua: {
		{types.KindFunction, regexp.MustCompile(`^\s*(?:local\s+)?function\s+([\w.:]+)\s*\(`)},
	},
	Perl: {
		{types.KindFunction, regexp.MustCompile(`^\s*sub\s+(\w+)`)},
		{types.KindNamespace, regexp.MustCompile(`^\s*package\s+([\w:]+)`)},
	},
	R: {
		{types.KindFunction, regexp.MustCompile(`^\s*([\w.]+)\s*(?:<-|=)\s*function\s*\(`)},
	},
	Dart: {
		{types.KindClass, regexp.MustCompile(`^\s*(?:abstract\s+)?class\s+(\w+)`)},
		{types.KindEnum, regexp.MustCompile(`^\s*enum\s+(\w+)`)},
		{types.KindFunction, regexp.MustCompile(`^\s*(?:static\s+)?(?:\w+(?:<[^>]+>)?\??\s+)?(\w+)\s*\([^;]*\)\s*(?:async\s*)?\{`)},
	},
	Haskell: {
		{types.KindFunction, regexp.MustCompile(`^([a-z]\w*)\s*::`)},
		{types.KindTypeAlias, regexp.MustCompile(`^type\s+(\w+)`)},
		{types.KindClass, regexp.MustCompile(`^data\s+(\w+)`)},
	},
	Elixir: {
		{types.KindModule, regexp.MustCompile(`^\s*defmodule\s+([\w.]+)`)},
		{types.KindFunction, regexp.MustCompile(`^\s*defp?\s+([\w?!]+)`)},
	},
	Erlang: {
		{types.KindFunction, regexp.MustCompile(`^([a-z]\w*)\s*\(.*\)\s*->`)},
		{types.KindModule, regexp.MustCompile(`^-module\((\w+)\)`)},
	},
	Shell: {
		{types.KindFunction, regexp.MustCompile(`^\s*(?:function\s+)?([\w-]+)\s*\(\)\s*\{?`)},
	},
	PowerShell: {
		{types.KindFunction, regexp.MustCompile(`^\s*function\s+([\w-]+)`)},
	},
	SQL: {
		{types.KindFunction, regexp.MustCompile(`(?i)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?(?:FUNCTION|PROCEDURE)\s+([\w.]+)`)},
		{types.KindClass, regexp.MustCompile(`(?i)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([\w.]+)`)},
	},
	ObjC: {
		{types.KindClass, regexp.MustCompile(`^\s*@interface\s+(\w+)`)},
		{types.KindMethod, regexp.MustCompile(`^\s*[-+]\s*\([^)]*\)\s*(\w+)`)},
	},
}

// FallbackRules returns the regex extraction rules for a language without a
// grammar, or nil when none are registered.
func (r *Registry) FallbackRules(l Language) []FallbackRule {
	return fallbackRules[l]
}
