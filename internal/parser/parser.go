// Package parser turns one source file into a FileFragment: a FILE node,
// declaration nodes, import nodes, and the CONTAINS/IMPORTS/CALLS/INHERITS/
// IMPLEMENTS/REFERENCES/seam facts extracted from the syntax tree. The
// parser never mutates the graph; it only produces fragments for the store
// to commit.
package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/standardbeagle/codegraph/internal/ast"
	"github.com/standardbeagle/codegraph/internal/debug"
	"github.com/standardbeagle/codegraph/internal/lang"
	"github.com/standardbeagle/codegraph/internal/seam"
	"github.com/standardbeagle/codegraph/internal/types"
)

// SymbolSnapshot is the read-only view of the store's per-language symbol
// table the parser resolves call names against. The store owns the table;
// the parser only ever reads a snapshot taken at batch start.
type SymbolSnapshot interface {
	Lookup(language, simpleName string) []types.NodeID
}

// emptySnapshot resolves nothing; used when no graph exists yet.
type emptySnapshot struct{}

func (emptySnapshot) Lookup(string, string) []types.NodeID { return nil }

// EmptySymbols is a SymbolSnapshot with no entries.
var EmptySymbols SymbolSnapshot = emptySnapshot{}

// Parser extracts fragments. It is stateless apart from its collaborators
// and safe for concurrent use.
type Parser struct {
	registry *lang.Registry
	adapter  *ast.Adapter
	seams    *seam.Detector
}

// New builds a Parser from its capability set. All three collaborators are
// required.
func New(registry *lang.Registry, adapter *ast.Adapter, seams *seam.Detector) *Parser {
	return &Parser{registry: registry, adapter: adapter, seams: seams}
}

// ContentHash returns the fixed content identity hash (SHA-256, hex).
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ParseFile extracts the fragment for one file. relPath must be POSIX and
// root-relative. Per-extractor failures degrade: the partial fragment is
// still returned and the failure is recorded at debug level. A parse-level
// failure yields the FILE-only fragment.
func (p *Parser) ParseFile(relPath string, content []byte, symbols SymbolSnapshot) (*types.FileFragment, error) {
	relPath, err := types.CanonicalPath(relPath)
	if err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = EmptySymbols
	}

	language := p.registry.Detect(relPath, content)
	frag := &types.FileFragment{
		Path:        relPath,
		ContentHash: ContentHash(content),
		Language:    string(language),
	}

	fileNode := p.fileNode(relPath, string(language), content)
	frag.Nodes = append(frag.Nodes, fileNode)

	if language == "" {
		return frag, nil
	}
	if !p.adapter.Supported(language) {
		p.extractFallback(frag, fileNode, language, content)
		return frag, nil
	}

	tree, err := p.adapter.Parse(language, content)
	if err != nil {
		debug.LogParse("parse failed for %s: %v\n", relPath, err)
		return frag, nil
	}
	defer tree.Close()

	ex := &extraction{
		parser:   p,
		frag:     frag,
		fileNode: fileNode,
		language: language,
		patterns: p.registry.Patterns(language),
		root:     tree.Root(),
		symbols:  symbols,
		seen:     map[types.NodeID]bool{fileNode.ID: true},
		edges:    make(map[types.EdgeID]bool),
	}

	ex.run("declarations", ex.extractDeclarations)
	ex.run("imports", ex.extractImports)
	ex.run("heritage", ex.extractHeritage)
	ex.run("calls", ex.extractCalls)
	ex.run("references", ex.extractReferences)
	ex.run("seams", ex.extractSeams)

	return frag, nil
}

// fileNode builds the FILE node spanning the whole file.
func (p *Parser) fileNode(relPath, language string, content []byte) types.Node {
	base := relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		base = relPath[i+1:]
	}
	lines := bytes.Count(content, []byte("\n")) + 1
	return types.Node{
		ID:       types.MakeNodeID(types.KindFile, relPath, base, 1),
		Name:     base,
		Kind:     types.KindFile,
		Language: language,
		Location: types.Location{
			FilePath:  relPath,
			StartLine: 1,
			StartCol:  1,
			EndLine:   lines,
			EndCol:    1,
		},
	}
}

// extraction carries the state of one file's extraction pass.
type extraction struct {
	parser   *Parser
	frag     *types.FileFragment
	fileNode types.Node
	language lang.Language
	patterns lang.PatternSet
	root     ast.Node
	symbols  SymbolSnapshot

	// decls holds extracted declaration nodes paired with their AST spans so
	// later passes can find the enclosing declaration of a call site.
	decls []declared

	seen  map[types.NodeID]bool
	edges map[types.EdgeID]bool
}

type declared struct {
	node types.Node
	span ast.Span
}

// run isolates one extractor: a panic inside it is recorded and the pass
// continues with the partial fragment.
func (ex *extraction) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			debug.LogParse("extractor %s panicked on %s: %v\n", name, ex.frag.Path, r)
		}
	}()
	fn()
}

// addNode appends a node unless its id is already present.
func (ex *extraction) addNode(n types.Node) bool {
	if ex.seen[n.ID] {
		return false
	}
	ex.seen[n.ID] = true
	ex.frag.Nodes = append(ex.frag.Nodes, n)
	return true
}

// addEdge appends an edge unless the (source, target, type) triple exists.
func (ex *extraction) addEdge(t types.RelType, source, target types.NodeID, md map[string]any) {
	id := types.MakeEdgeID(t, source, target)
	if ex.edges[id] {
		return
	}
	ex.edges[id] = true
	ex.frag.Edges = append(ex.frag.Edges, types.Relationship{
		ID:       id,
		Type:     t,
		SourceID: source,
		TargetID: target,
		Metadata: md,
	})
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// declarationName finds a declaration's identifier: the name fields first,
// then the first identifier token in the node text as the documented
// fallback.
func (ex *extraction) declarationName(n ast.Node) string {
	for _, field := range ex.patterns.NameFields {
		child := n.ChildByField(field)
		if !child.Valid() {
			continue
		}
		// C-style declarators nest: function_declarator -> identifier.
		if nested := child.ChildByField("declarator"); nested.Valid() {
			child = nested
		}
		text := child.Text()
		if m := identRe.FindString(text); m != "" {
			return m
		}
	}
	// Fallback: first identifier in the declaration's first line.
	text := n.Text()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return identRe.FindString(text)
}

// extractDeclarations emits one node per declaration pattern match plus its
// CONTAINS edge from the FILE node.
func (ex *extraction) extractDeclarations() {
	kinds := make([]string, 0, len(ex.patterns.Declarations))
	for k := range ex.patterns.Declarations {
		kinds = append(kinds, k)
	}
	containers := make(map[string]bool, len(ex.patterns.MethodContainers))
	for _, c := range ex.patterns.MethodContainers {
		containers[c] = true
	}

	for _, astKind := range kinds {
		nodeKind := ex.patterns.Declarations[astKind]
		for _, match := range ex.root.FindAll(astKind) {
			name := ex.declarationName(match)
			if name == "" {
				continue
			}
			kind := nodeKind
			span := match.Span()

			// A function nested in a method container is a method.
			if kind == types.KindFunction && ex.insideContainer(match, containers) {
				kind = types.KindMethod
			}
			kind = ex.refineKind(kind, match)

			node := types.Node{
				ID:       types.MakeNodeID(kind, ex.frag.Path, name, span.StartLine),
				Name:     name,
				Kind:     kind,
				Language: string(ex.language),
				Location: types.Location{
					FilePath:  ex.frag.Path,
					StartLine: span.StartLine,
					StartCol:  span.StartCol,
					EndLine:   span.EndLine,
					EndCol:    span.EndCol,
				},
				Metadata: map[string]any{"ast_kind": astKind},
			}
			if kind == types.KindFunction || kind == types.KindMethod {
				node.Complexity = ex.cyclomaticComplexity(match)
			}
			if !ex.addNode(node) {
				continue
			}
			ex.decls = append(ex.decls, declared{node: node, span: span})
			ex.addEdge(types.RelContains, ex.fileNode.ID, node.ID, nil)
		}
	}
}

// refineKind sharpens generic declaration kinds where the grammar carries
// more detail, e.g. Go type_spec into interface/struct.
func (ex *extraction) refineKind(kind types.NodeKind, n ast.Node) types.NodeKind {
	if ex.language == lang.Go && kind == types.KindTypeAlias {
		if t := n.ChildByField("type"); t.Valid() {
			switch t.Kind() {
			case "interface_type":
				return types.KindInterface
			case "struct_type":
				return types.KindClass
			}
		}
	}
	return kind
}

// insideContainer reports whether any ancestor of n has a container kind.
func (ex *extraction) insideContainer(n ast.Node, containers map[string]bool) bool {
	if len(containers) == 0 {
		return false
	}
	for parent := n.Parent(); parent.Valid(); parent = parent.Parent() {
		if containers[parent.Kind()] {
			return true
		}
	}
	return false
}

// enclosingDecl finds the innermost extracted FUNCTION or METHOD whose span
// contains the given line.
func (ex *extraction) enclosingDecl(line int) *types.Node {
	var best *types.Node
	bestSize := 1 << 30
	for i := range ex.decls {
		d := &ex.decls[i]
		if d.node.Kind != types.KindFunction && d.node.Kind != types.KindMethod {
			continue
		}
		if line < d.span.StartLine || line > d.span.EndLine {
			continue
		}
		size := d.span.EndLine - d.span.StartLine
		if size < bestSize {
			bestSize = size
			best = &d.node
		}
	}
	return best
}

// simpleName reduces a qualified callee expression to its final identifier.
func simpleName(callee string) string {
	callee = strings.TrimSpace(callee)
	for _, sep := range []string{"::", ".", "->"} {
		if i := strings.LastIndex(callee, sep); i >= 0 {
			callee = callee[i+len(sep):]
		}
	}
	return identRe.FindString(callee)
}

// calleeText returns the callee expression of a call node.
func calleeText(call ast.Node) string {
	for _, field := range []string{"function", "name", "constructor", "type"} {
		if c := call.ChildByField(field); c.Valid() {
			return c.Text()
		}
	}
	text := call.Text()
	if i := strings.IndexByte(text, '('); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}

// extractCalls resolves call sites against the symbol snapshot. A unique
// match yields one CALLS edge; multiple candidates each get an edge marked
// ambiguous; an unresolved name is dropped with a debug record only.
func (ex *extraction) extractCalls() {
	if len(ex.patterns.Calls) == 0 {
		return
	}
	for _, call := range ex.root.FindAllOf(ex.patterns.Calls...) {
		span := call.Span()
		caller := ex.enclosingDecl(span.StartLine)
		if caller == nil {
			continue
		}
		name := simpleName(calleeText(call))
		if name == "" {
			continue
		}

		targets := ex.resolveName(name)
		if len(targets) == 0 {
			debug.LogParse("unresolved call %q at %s:%d\n", name, ex.frag.Path, span.StartLine)
			continue
		}
		for _, target := range targets {
			if target == caller.ID {
				continue
			}
			md := map[string]any{"call_line": span.StartLine}
			if len(targets) > 1 {
				md["ambiguous"] = true
			}
			ex.addEdge(types.RelCalls, caller.ID, target, md)
		}
	}
}

// resolveName looks a simple name up in this file's declarations first, then
// in the cross-file symbol snapshot.
func (ex *extraction) resolveName(name string) []types.NodeID {
	var local []types.NodeID
	for i := range ex.decls {
		d := &ex.decls[i]
		if d.node.Name == name &&
			(d.node.Kind == types.KindFunction || d.node.Kind == types.KindMethod) {
			local = append(local, d.node.ID)
		}
	}
	if len(local) > 0 {
		return local
	}
	return ex.symbols.Lookup(string(ex.language), name)
}

// extractHeritage emits INHERITS and IMPLEMENTS edges from class heritage
// clauses, resolved by name.
func (ex *extraction) extractHeritage() {
	inheritsKinds := []string{"superclasses", "superclass", "extends_clause",
		"class_heritage", "base_list", "argument_list"}
	implementsKinds := []string{"implements_clause", "super_interfaces"}

	for i := range ex.decls {
		d := &ex.decls[i]
		if d.node.Kind != types.KindClass && d.node.Kind != types.KindInterface {
			continue
		}
		astNodes := ex.nodesAtSpan(d.span)
		for _, decl := range astNodes {
			ex.heritageEdges(d.node.ID, decl, inheritsKinds, types.RelInherits)
			ex.heritageEdges(d.node.ID, decl, implementsKinds, types.RelImplements)
		}
	}
}

// nodesAtSpan finds the declaration AST nodes starting at a span. Spans are
// unique per declaration in practice; the slice guards same-line siblings.
func (ex *extraction) nodesAtSpan(span ast.Span) []ast.Node {
	var out []ast.Node
	ex.root.Walk(func(n ast.Node) bool {
		s := n.Span()
		if s.StartLine > span.EndLine {
			return false
		}
		if s == span {
			out = append(out, n)
		}
		return true
	})
	return out
}

func (ex *extraction) heritageEdges(source types.NodeID, decl ast.Node, clauseKinds []string, rel types.RelType) {
	for _, kind := range clauseKinds {
		var clause ast.Node
		if kind == "argument_list" {
			// Python superclasses live in the class's argument list field.
			if ex.language != lang.Python {
				continue
			}
			clause = decl.ChildByField("superclasses")
		} else {
			for i := uint(0); i < decl.ChildCount(); i++ {
				if c := decl.Child(i); c.Valid() && c.Kind() == kind {
					clause = c
					break
				}
			}
		}
		if !clause.Valid() {
			continue
		}
		for _, m := range identRe.FindAllString(clause.Text(), -1) {
			if m == "extends" || m == "implements" {
				continue
			}
			for _, target := range ex.symbols.Lookup(string(ex.language), m) {
				if target != source {
					ex.addEdge(rel, source, target, nil)
				}
			}
		}
	}
}

// extractReferences emits REFERENCES edges for identifier uses of known
// type-like symbols inside declarations. Resolution is name-based, like
// calls, and deliberately shallow.
func (ex *extraction) extractReferences() {
	if len(ex.decls) == 0 {
		return
	}
	counted := map[string]bool{}
	ex.root.Walk(func(n ast.Node) bool {
		kind := n.Kind()
		if kind != "identifier" && kind != "type_identifier" {
			return true
		}
		name := n.Text()
		if counted[name] {
			return true
		}
		span := n.Span()
		user := ex.enclosingDecl(span.StartLine)
		if user == nil {
			return true
		}
		for _, target := range ex.symbols.Lookup(string(ex.language), name) {
			if target == user.ID {
				continue
			}
			if !isTypeLike(target) {
				continue
			}
			counted[name] = true
			ex.addEdge(types.RelReferences, user.ID, target,
				map[string]any{"ref_line": span.StartLine})
		}
		return true
	})
}

// isTypeLike reports whether a node id denotes a class-like declaration,
// read straight from the id's kind prefix.
func isTypeLike(id types.NodeID) bool {
	s := string(id)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return false
	}
	switch types.NodeKind(s[:i]) {
	case types.KindClass, types.KindInterface, types.KindEnum, types.KindTypeAlias:
		return true
	}
	return false
}

// importName extracts the imported module or symbol name from an import
// statement.
func (ex *extraction) importName(n ast.Node) string {
	for _, field := range []string{"path", "source", "name", "module_name"} {
		if c := n.ChildByField(field); c.Valid() {
			return seam.NormalizeEndpoint(c.Text())
		}
	}
	text := strings.TrimSpace(n.Text())
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	for _, prefix := range []string{"import ", "from ", "use ", "using ", "#include ", "require "} {
		if strings.HasPrefix(text, prefix) {
			rest := strings.TrimPrefix(text, prefix)
			if f := strings.FieldsFunc(rest, func(r rune) bool {
				return r == ' ' || r == ';' || r == '(' || r == '<' || r == '"'
			}); len(f) > 0 {
				return strings.Trim(f[0], `"'<>`)
			}
		}
	}
	return seam.NormalizeEndpoint(text)
}

// extractImports emits an IMPORT node per import statement and the IMPORTS
// edge from the FILE node, plus the CONTAINS ownership edge.
func (ex *extraction) extractImports() {
	if len(ex.patterns.Imports) == 0 {
		return
	}
	for _, imp := range ex.root.FindAllOf(ex.patterns.Imports...) {
		name := ex.importName(imp)
		if name == "" {
			continue
		}
		span := imp.Span()
		node := types.Node{
			ID:       types.MakeNodeID(types.KindImport, ex.frag.Path, name, span.StartLine),
			Name:     name,
			Kind:     types.KindImport,
			Language: string(ex.language),
			Location: types.Location{
				FilePath:  ex.frag.Path,
				StartLine: span.StartLine,
				StartCol:  span.StartCol,
				EndLine:   span.EndLine,
				EndCol:    span.EndCol,
			},
			Metadata: map[string]any{
				"stdlib": ex.parser.registry.IsStdlibName(ex.language, name),
			},
		}
		if !ex.addNode(node) {
			continue
		}
		ex.addEdge(types.RelContains, ex.fileNode.ID, node.ID, nil)
		ex.addEdge(types.RelImports, ex.fileNode.ID, node.ID,
			map[string]any{"symbol": name})
	}
}

// extractSeams feeds call sites and decorators to the seam detector and
// records the resulting seam calls and providers on the fragment. The store
// links them into SEAM edges at commit time.
func (ex *extraction) extractSeams() {
	// Call-side seams.
	for _, call := range ex.root.FindAllOf(ex.patterns.Calls...) {
		span := call.Span()
		caller := ex.enclosingDecl(span.StartLine)
		if caller == nil {
			continue
		}
		callee := calleeText(call)
		target, ok := ex.parser.seams.MatchCall(ex.language, callee)
		if !ok {
			continue
		}
		endpoint, found := ex.firstStringArg(call)
		confidence := "high"
		if !found {
			confidence = "low"
		}
		ex.frag.SeamCalls = append(ex.frag.SeamCalls, types.SeamCall{
			CallerID:   caller.ID,
			TargetLang: target,
			Endpoint:   endpoint,
			Confidence: confidence,
			Line:       span.StartLine,
		})
	}

	// Provider-side seams: decorators and route registrations.
	providerKinds := append([]string{"decorator"}, ex.patterns.Calls...)
	for _, n := range ex.root.FindAllOf(providerKinds...) {
		text := n.Text()
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		target, ok := ex.parser.seams.MatchProvider(ex.language, text)
		if !ok {
			continue
		}
		endpoint, found := ex.firstStringArg(n)
		if !found || endpoint == "" {
			continue
		}
		span := n.Span()
		provider := ex.providerDecl(n, span)
		if provider == nil {
			continue
		}
		ex.frag.Providers = append(ex.frag.Providers, types.SeamProvider{
			NodeID:     provider.ID,
			TargetLang: target,
			Endpoint:   endpoint,
		})
	}
}

// providerDecl finds the declaration served by a route registration: the
// decorated declaration for decorators, otherwise the declaration right
// after the registration line, otherwise the enclosing one.
func (ex *extraction) providerDecl(n ast.Node, span ast.Span) *types.Node {
	if n.Kind() == "decorator" {
		var best *types.Node
		for i := range ex.decls {
			d := &ex.decls[i]
			if d.span.StartLine > span.StartLine &&
				(best == nil || d.span.StartLine < best.Location.StartLine) &&
				(d.node.Kind == types.KindFunction || d.node.Kind == types.KindMethod ||
					d.node.Kind == types.KindClass) {
				best = &d.node
			}
		}
		if best != nil {
			return best
		}
	}
	if enc := ex.enclosingDecl(span.StartLine); enc != nil {
		return enc
	}
	return nil
}

// firstStringArg returns the first string literal beneath a call's argument
// list, normalized.
func (ex *extraction) firstStringArg(call ast.Node) (string, bool) {
	stringKinds := make(map[string]bool, len(ex.patterns.Strings))
	for _, k := range ex.patterns.Strings {
		stringKinds[k] = true
	}
	args := call.ChildByField("arguments")
	if !args.Valid() {
		args = call
	}
	var out string
	found := false
	args.Walk(func(n ast.Node) bool {
		if found {
			return false
		}
		if stringKinds[n.Kind()] {
			out = seam.NormalizeEndpoint(n.Text())
			found = true
			return false
		}
		return true
	})
	return out, found
}
