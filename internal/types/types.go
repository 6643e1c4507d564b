// Package types defines the data model shared by every layer of codegraph:
// graph nodes and relationships, source locations, and the per-file fragment
// that is the unit of parsing, caching and graph replacement.
package types

import (
	"fmt"
	"path"
	"strings"
)

// NodeKind classifies a graph vertex. Kinds are persisted as their string
// form; decoding goes through ParseNodeKind which rejects unknown values.
type NodeKind string

const (
	KindFile      NodeKind = "FILE"
	KindModule    NodeKind = "MODULE"
	KindClass     NodeKind = "CLASS"
	KindFunction  NodeKind = "FUNCTION"
	KindMethod    NodeKind = "METHOD"
	KindImport    NodeKind = "IMPORT"
	KindVariable  NodeKind = "VARIABLE"
	KindInterface NodeKind = "INTERFACE"
	KindEnum      NodeKind = "ENUM"
	KindTypeAlias NodeKind = "TYPE_ALIAS"
	KindNamespace NodeKind = "NAMESPACE"
)

var nodeKinds = map[NodeKind]bool{
	KindFile: true, KindModule: true, KindClass: true, KindFunction: true,
	KindMethod: true, KindImport: true, KindVariable: true, KindInterface: true,
	KindEnum: true, KindTypeAlias: true, KindNamespace: true,
}

// ParseNodeKind decodes the string form of a NodeKind. Unknown values are an
// error so that corrupt cache entries never leak invented kinds into the graph.
func ParseNodeKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if !nodeKinds[k] {
		return "", fmt.Errorf("unknown node kind %q", s)
	}
	return k, nil
}

func (k NodeKind) String() string { return string(k) }

// RelType classifies a graph edge.
type RelType string

const (
	RelContains   RelType = "CONTAINS"
	RelCalls      RelType = "CALLS"
	RelImports    RelType = "IMPORTS"
	RelInherits   RelType = "INHERITS"
	RelImplements RelType = "IMPLEMENTS"
	RelReferences RelType = "REFERENCES"
	RelSeam       RelType = "SEAM"
)

var relTypes = map[RelType]bool{
	RelContains: true, RelCalls: true, RelImports: true, RelInherits: true,
	RelImplements: true, RelReferences: true, RelSeam: true,
}

// ParseRelType decodes the string form of a RelType, rejecting unknown values.
func ParseRelType(s string) (RelType, error) {
	t := RelType(s)
	if !relTypes[t] {
		return "", fmt.Errorf("unknown relationship type %q", s)
	}
	return t, nil
}

func (t RelType) String() string { return string(t) }

// AllRelTypes returns the closed set of edge types in declaration order.
func AllRelTypes() []RelType {
	return []RelType{RelContains, RelCalls, RelImports, RelInherits,
		RelImplements, RelReferences, RelSeam}
}

// NodeID is the deterministic identity of a node:
// <kind>:<relative_path>:<name>:<start_line>. Re-parsing identical content
// reproduces identical ids regardless of order or host.
//
// A same-line rename of a nested declaration can collide under this scheme;
// a future version may fold in a byte offset, which requires a cache
// generation bump.
type NodeID string

// EdgeID is the deterministic identity of an edge:
// <type>:<source_id>→<target_id>.
type EdgeID string

// MakeNodeID builds the canonical node id.
func MakeNodeID(kind NodeKind, relPath, name string, startLine int) NodeID {
	return NodeID(fmt.Sprintf("%s:%s:%s:%d", kind, relPath, name, startLine))
}

// MakeEdgeID builds the canonical edge id.
func MakeEdgeID(t RelType, source, target NodeID) EdgeID {
	return EdgeID(fmt.Sprintf("%s:%s→%s", t, source, target))
}

// Location is a source span. Lines and columns are 1-based and inclusive at
// start; end is exclusive at the character level. FilePath is POSIX-relative
// to the project root.
type Location struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col,omitempty"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col,omitempty"`
}

// Node is a graph vertex. Immutable after insertion.
type Node struct {
	ID         NodeID         `json:"id"`
	Name       string         `json:"name"`
	Kind       NodeKind       `json:"node_type"`
	Language   string         `json:"language,omitempty"` // "" means language-agnostic
	Location   Location       `json:"location"`
	Complexity int            `json:"complexity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Relationship is a directed, typed, attributed edge. At most one edge per
// (source, target, type) triple exists in the graph.
type Relationship struct {
	ID       EdgeID         `json:"id"`
	Type     RelType        `json:"relationship_type"`
	SourceID NodeID         `json:"source_id"`
	TargetID NodeID         `json:"target_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SeamCall records a call site whose target lives in another language,
// identified by a literal endpoint string. Produced by the seam detector and
// resolved against providers at commit time.
type SeamCall struct {
	CallerID   NodeID `json:"caller_id"`
	TargetLang string `json:"target_lang"` // logical target: SQL, HTTP, SHELL, FFI
	Endpoint   string `json:"endpoint"`    // "" when not statically determinable
	Confidence string `json:"confidence"`  // "high" or "low"
	Line       int    `json:"line"`
}

// SeamProvider records a declaration that serves a string-identified endpoint
// (an HTTP route handler, a named SQL object) and can be the target of seam
// calls from other languages.
type SeamProvider struct {
	NodeID     NodeID `json:"node_id"`
	TargetLang string `json:"target_lang"`
	Endpoint   string `json:"endpoint"`
}

// FileFragment is the unit of parsing and of idempotent graph replacement:
// everything extracted from one file, plus the seam facts the store needs to
// link across files.
type FileFragment struct {
	Path        string         `json:"path"`
	ContentHash string         `json:"content_hash"`
	Language    string         `json:"language,omitempty"`
	Nodes       []Node         `json:"nodes"`
	Edges       []Relationship `json:"edges"`
	SeamCalls   []SeamCall     `json:"seam_calls,omitempty"`
	Providers   []SeamProvider `json:"providers,omitempty"`
}

// FileNodeID returns the id of the fragment's FILE node.
func (f *FileFragment) FileNodeID() NodeID {
	return MakeNodeID(KindFile, f.Path, path.Base(f.Path), 1)
}

// CanonicalPath normalizes a path to POSIX form relative to the project
// root: forward slashes, no leading "./", no ".." components.
func CanonicalPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	if p == "." || p == "" {
		return "", fmt.Errorf("empty path after canonicalization")
	}
	if path.IsAbs(p) {
		return "", fmt.Errorf("path %q is not relative", p)
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("path %q escapes the project root", p)
	}
	return p, nil
}
