package lang

import "github.com/standardbeagle/codegraph/internal/types"

// PatternSet names the AST node kinds the parser extracts for one language.
// Values are tree-sitter kind strings consumed through the AST adapter; a
// missing table entry makes that extractor a no-op for the language.
type PatternSet struct {
	// Declarations maps an AST kind to the graph node kind it produces.
	Declarations map[string]types.NodeKind
	// NameFields lists the field names tried, in order, to find a
	// declaration's identifier child.
	NameFields []string
	// Imports lists AST kinds that produce IMPORT nodes.
	Imports []string
	// Calls lists AST kinds treated as call sites.
	Calls []string
	// Branches lists AST kinds counted by the cyclomatic complexity walker.
	Branches []string
	// LogicalOperators lists operator tokens inside binary expressions that
	// count as branches (&&, ||, and, or).
	LogicalOperators []string
	// Strings lists AST kinds of string literals, used by the seam detector
	// to read endpoint arguments.
	Strings []string
	// MethodContainers lists AST kinds whose directly nested functions are
	// methods rather than free functions.
	MethodContainers []string
}

// grammarPatterns holds the pattern tables for languages backed by a
// tree-sitter grammar. Kind strings follow each grammar's node-types.
var grammarPatterns = map[Language]PatternSet{
	Python: {
		Declarations: map[string]types.NodeKind{
			"function_definition": types.KindFunction,
			"class_definition":    types.KindClass,
		},
		NameFields: []string{"name"},
		Imports:    []string{"import_statement", "import_from_statement"},
		Calls:      []string{"call"},
		Branches: []string{"if_statement", "elif_clause", "for_statement",
			"while_statement", "except_clause", "conditional_expression",
			"case_clause"},
		LogicalOperators: []string{"and", "or"},
		Strings:          []string{"string"},
		MethodContainers: []string{"class_definition"},
	},
	JavaScript: {
		Declarations: map[string]types.NodeKind{
			"function_declaration":           types.KindFunction,
			"generator_function_declaration": types.KindFunction,
			"method_definition":              types.KindMethod,
			"class_declaration":              types.KindClass,
		},
		NameFields: []string{"name"},
		Imports:    []string{"import_statement"},
		Calls:      []string{"call_expression"},
		Branches: []string{"if_statement", "for_statement", "for_in_statement",
			"while_statement", "do_statement", "switch_case", "catch_clause",
			"ternary_expression"},
		LogicalOperators: []string{"&&", "||"},
		Strings:          []string{"string", "template_string"},
		MethodContainers: []string{"class_declaration", "class_body"},
	},
	TypeScript: {
		Declarations: map[string]types.NodeKind{
			"function_declaration":           types.KindFunction,
			"generator_function_declaration": types.KindFunction,
			"method_definition":              types.KindMethod,
			"class_declaration":              types.KindClass,
			"interface_declaration":          types.KindInterface,
			"type_alias_declaration":         types.KindTypeAlias,
			"enum_declaration":               types.KindEnum,
		},
		NameFields: []string{"name"},
		Imports:    []string{"import_statement"},
		Calls:      []string{"call_expression"},
		Branches: []string{"if_statement", "for_statement", "for_in_statement",
			"while_statement", "do_statement", "switch_case", "catch_clause",
			"ternary_expression"},
		LogicalOperators: []string{"&&", "||"},
		Strings:          []string{"string", "template_string"},
		MethodContainers: []string{"class_declaration", "class_body"},
	},
	Go: {
		Declarations: map[string]types.NodeKind{
			"function_declaration": types.KindFunction,
			"method_declaration":   types.KindMethod,
			"type_spec":            types.KindTypeAlias,
		},
		NameFields: []string{"name"},
		Imports:    []string{"import_spec"},
		Calls:      []string{"call_expression"},
		Branches: []string{"if_statement", "for_statement", "expression_case",
			"type_case", "communication_case"},
		LogicalOperators: []string{"&&", "||"},
		Strings:          []string{"interpreted_string_literal", "raw_string_literal"},
	},
	Rust: {
		Declarations: map[string]types.NodeKind{
			"function_item": types.KindFunction,
			"struct_item":   types.KindClass,
			"enum_item":     types.KindEnum,
			"trait_item":    types.KindInterface,
			"type_item":     types.KindTypeAlias,
			"mod_item":      types.KindNamespace,
		},
		NameFields: []string{"name"},
		Imports:    []string{"use_declaration"},
		Calls:      []string{"call_expression", "macro_invocation"},
		Branches: []string{"if_expression", "match_arm", "while_expression",
			"for_expression", "loop_expression"},
		LogicalOperators: []string{"&&", "||"},
		Strings:          []string{"string_literal", "raw_string_literal"},
		MethodContainers: []string{"impl_item", "trait_item"},
	},
	Java: {
		Declarations: map[string]types.NodeKind{
			"method_declaration":      types.KindMethod,
			"constructor_declaration": types.KindMethod,
			"class_declaration":       types.KindClass,
			"record_declaration":      types.KindClass,
			"interface_declaration":   types.KindInterface,
			"enum_declaration":        types.KindEnum,
		},
		NameFields: []string{"name"},
		Imports:    []string{"import_declaration"},
		Calls:      []string{"method_invocation", "object_creation_expression"},
		Branches: []string{"if_statement", "for_statement",
			"enhanced_for_statement", "while_statement", "do_statement",
			"switch_block_statement_group", "catch_clause",
			"ternary_expression"},
		LogicalOperators: []string{"&&", "||"},
		Strings:          []string{"string_literal"},
	},
	CSharp: {
		Declarations: map[string]types.NodeKind{
			"method_declaration":      types.KindMethod,
			"constructor_declaration": types.KindMethod,
			"class_declaration":       types.KindClass,
			"record_declaration":      types.KindClass,
			"struct_declaration":      types.KindClass,
			"interface_declaration":   types.KindInterface,
			"enum_declaration":        types.KindEnum,
			"namespace_declaration":   types.KindNamespace,
		},
		NameFields: []string{"name"},
		Imports:    []string{"using_directive"},
		Calls:      []string{"invocation_expression", "object_creation_expression"},
		Branches: []string{"if_statement", "for_statement", "foreach_statement",
			"while_statement", "do_statement", "switch_section",
			"catch_clause", "conditional_expression"},
		LogicalOperators: []string{"&&", "||"},
		Strings:          []string{"string_literal", "verbatim_string_literal"},
	},
	Cpp: {
		Declarations: map[string]types.NodeKind{
			"function_definition":  types.KindFunction,
			"class_specifier":      types.KindClass,
			"struct_specifier":     types.KindClass,
			"enum_specifier":       types.KindEnum,
			"namespace_definition": types.KindNamespace,
		},
		NameFields: []string{"name", "declarator"},
		Imports:    []string{"preproc_include", "using_declaration"},
		Calls:      []string{"call_expression"},
		Branches: []string{"if_statement", "for_statement", "while_statement",
			"do_statement", "case_statement", "catch_clause",
			"conditional_expression"},
		LogicalOperators: []string{"&&", "||"},
		Strings:          []string{"string_literal"},
		MethodContainers: []string{"class_specifier", "struct_specifier"},
	},
	PHP: {
		Declarations: map[string]types.NodeKind{
			"function_definition":   types.KindFunction,
			"method_declaration":    types.KindMethod,
			"class_declaration":     types.KindClass,
			"interface_declaration": types.KindInterface,
			"trait_declaration":     types.KindClass,
			"enum_declaration":      types.KindEnum,
			"namespace_definition":  types.KindNamespace,
		},
		NameFields: []string{"name"},
		Imports:    []string{"namespace_use_declaration"},
		Calls:      []string{"function_call_expression", "member_call_expression"},
		Branches: []string{"if_statement", "for_statement", "foreach_statement",
			"while_statement", "do_statement", "case_statement",
			"catch_clause", "conditional_expression"},
		LogicalOperators: []string{"&&", "||", "and", "or"},
		Strings:          []string{"string", "encapsed_string"},
	},
	Zig: {
		Declarations: map[string]types.NodeKind{
			"function_declaration": types.KindFunction,
		},
		NameFields:       []string{"name"},
		Calls:            []string{"call_expression"},
		Branches:         []string{"if_statement", "while_statement", "for_statement", "switch_case"},
		LogicalOperators: []string{"and", "or"},
		Strings:          []string{"string"},
	},
}

// C shares the C++ grammar, as in every pack repo that parses both.
func init() {
	grammarPatterns[C] = grammarPatterns[Cpp]
}

// Patterns returns the pattern set for a language. The zero PatternSet (all
// extractors no-ops) is returned for languages without a grammar; those go
// through the regex fallback rules instead.
func (r *Registry) Patterns(l Language) PatternSet {
	return grammarPatterns[l]
}

// HasGrammar reports whether the language parses through a wired tree-sitter
// grammar. Languages without one still get FILE nodes and regex fallback
// declarations.
func (r *Registry) HasGrammar(l Language) bool {
	_, ok := grammarPatterns[l]
	return ok
}
