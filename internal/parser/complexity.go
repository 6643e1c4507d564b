package parser

import (
	"strings"

	"github.com/standardbeagle/codegraph/internal/ast"
)

// binaryKinds are AST kinds whose operator child may be a logical operator
// counted as a branch.
var binaryKinds = map[string]bool{
	"binary_expression": true,
	"boolean_operator":  true,
	"binary_operator":   true,
}

// cyclomaticComplexity computes 1 + the number of branch points within a
// declaration subtree. Branch kinds come from the language's pattern set;
// logical operators inside binary expressions count as well.
func (ex *extraction) cyclomaticComplexity(decl ast.Node) int {
	branches := make(map[string]bool, len(ex.patterns.Branches))
	for _, b := range ex.patterns.Branches {
		branches[b] = true
	}
	logical := make(map[string]bool, len(ex.patterns.LogicalOperators))
	for _, op := range ex.patterns.LogicalOperators {
		logical[op] = true
	}

	complexity := 1
	decl.Walk(func(n ast.Node) bool {
		kind := n.Kind()
		if branches[kind] {
			complexity++
			return true
		}
		if binaryKinds[kind] && len(logical) > 0 {
			if op := n.ChildByField("operator"); op.Valid() {
				if logical[strings.TrimSpace(op.Text())] {
					complexity++
				}
			}
		}
		return true
	})
	return complexity
}
