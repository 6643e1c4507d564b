// Package ast is the uniform adapter over the tree-sitter backend. Nothing
// above this package imports tree-sitter types; replacing the backend is a
// change contained here.
package ast

import (
	"errors"
	"fmt"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/codegraph/internal/lang"
)

// ErrUnsupportedLanguage is returned when no grammar is wired for the
// requested language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrParse is returned when the backend produces no tree. Callers treat it
// as an empty tree, not a fatal condition.
var ErrParse = errors.New("parse error")

// Adapter parses source text into Trees. Languages are resolved once at
// construction; Parse is safe for concurrent use because each call owns a
// fresh backend parser over a shared immutable language object.
type Adapter struct {
	languages map[lang.Language]*tree_sitter.Language
}

// NewAdapter wires every grammar the module ships.
func NewAdapter() *Adapter {
	a := &Adapter{languages: make(map[lang.Language]*tree_sitter.Language)}

	a.languages[lang.Python] = tree_sitter.NewLanguage(tree_sitter_python.Language())
	a.languages[lang.JavaScript] = tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	a.languages[lang.TypeScript] = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	a.languages[lang.Go] = tree_sitter.NewLanguage(tree_sitter_go.Language())
	a.languages[lang.Rust] = tree_sitter.NewLanguage(tree_sitter_rust.Language())
	a.languages[lang.Java] = tree_sitter.NewLanguage(tree_sitter_java.Language())
	a.languages[lang.CSharp] = tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	cpp := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	a.languages[lang.Cpp] = cpp
	a.languages[lang.C] = cpp
	a.languages[lang.PHP] = tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	a.languages[lang.Zig] = tree_sitter.NewLanguage(tree_sitter_zig.Language())

	return a
}

// Supported reports whether a grammar is wired for the language.
func (a *Adapter) Supported(l lang.Language) bool {
	_, ok := a.languages[l]
	return ok
}

// Parse parses source text for the given language. The returned Tree must be
// Closed by the caller to release backend memory.
func (a *Adapter) Parse(l lang.Language, src []byte) (*Tree, error) {
	tsLang, ok := a.languages[l]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, l)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("%w: set language %s: %v", ErrParse, l, err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, l)
	}
	return &Tree{ts: tree, src: src}, nil
}

// Tree is a parsed syntax tree bound to its source text.
type Tree struct {
	ts  *tree_sitter.Tree
	src []byte
}

// Root returns the root node.
func (t *Tree) Root() Node {
	return Node{inner: t.ts.RootNode(), src: t.src}
}

// Close releases the backend tree.
func (t *Tree) Close() {
	if t.ts != nil {
		t.ts.Close()
		t.ts = nil
	}
}

// Span is a 1-based, end-exclusive source range.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Node is one syntax node. The zero Node is invalid.
type Node struct {
	inner *tree_sitter.Node
	src   []byte
}

// Valid reports whether the node exists.
func (n Node) Valid() bool { return n.inner != nil }

// Kind returns the backend kind string.
func (n Node) Kind() string { return n.inner.Kind() }

// IsNamed reports whether the node is a named grammar node (as opposed to
// punctuation and other anonymous tokens).
func (n Node) IsNamed() bool { return n.inner.IsNamed() }

// Text returns the source text the node spans.
func (n Node) Text() string {
	return string(n.src[n.inner.StartByte():n.inner.EndByte()])
}

// Span returns the node's 1-based source range.
func (n Node) Span() Span {
	start := n.inner.StartPosition()
	end := n.inner.EndPosition()
	return Span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}

// ChildByField returns the child bound to a grammar field, or an invalid
// Node when absent.
func (n Node) ChildByField(name string) Node {
	child := n.inner.ChildByFieldName(name)
	return Node{inner: child, src: n.src}
}

// ChildCount returns the number of children, anonymous tokens included.
func (n Node) ChildCount() uint { return n.inner.ChildCount() }

// Child returns the i-th child.
func (n Node) Child(i uint) Node {
	return Node{inner: n.inner.Child(i), src: n.src}
}

// Parent returns the parent node, or an invalid Node at the root.
func (n Node) Parent() Node {
	return Node{inner: n.inner.Parent(), src: n.src}
}

// Walk visits the subtree in pre-order. Returning false from fn skips the
// node's children.
func (n Node) Walk(fn func(Node) bool) {
	if !n.Valid() {
		return
	}
	if !fn(n) {
		return
	}
	for i := uint(0); i < n.inner.ChildCount(); i++ {
		Node{inner: n.inner.Child(i), src: n.src}.Walk(fn)
	}
}

// FindAll returns every descendant (the node itself included) whose kind
// matches. This is the adapter's uniform pattern query: per-language pattern
// sets are plain kind strings.
func (n Node) FindAll(kind string) []Node {
	var out []Node
	n.Walk(func(c Node) bool {
		if c.Kind() == kind {
			out = append(out, c)
		}
		return true
	})
	return out
}

// FindAllOf returns descendants matching any of the given kinds, in
// document order.
func (n Node) FindAllOf(kinds ...string) []Node {
	want := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Node
	n.Walk(func(c Node) bool {
		if want[c.Kind()] {
			out = append(out, c)
		}
		return true
	})
	return out
}
