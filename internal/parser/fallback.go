package parser

import (
	"strings"

	"github.com/standardbeagle/codegraph/internal/lang"
	"github.com/standardbeagle/codegraph/internal/types"
)

// extractFallback handles languages without a wired grammar: line-regex
// extraction of declared names, so those files still contribute named nodes
// and CONTAINS edges. Extracted nodes are marked metadata.extractor=regex.
func (p *Parser) extractFallback(frag *types.FileFragment, fileNode types.Node, language lang.Language, content []byte) {
	rules := p.registry.FallbackRules(language)
	if len(rules) == 0 {
		return
	}

	seen := map[types.NodeID]bool{fileNode.ID: true}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		for _, rule := range rules {
			m := rule.Re.FindStringSubmatch(line)
			if m == nil || len(m) < 2 || m[1] == "" {
				continue
			}
			name := m[1]
			lineNo := i + 1
			node := types.Node{
				ID:       types.MakeNodeID(rule.Kind, frag.Path, name, lineNo),
				Name:     name,
				Kind:     rule.Kind,
				Language: string(language),
				Location: types.Location{
					FilePath:  frag.Path,
					StartLine: lineNo,
					StartCol:  1,
					EndLine:   lineNo + 1,
					EndCol:    1,
				},
				Metadata: map[string]any{"extractor": "regex"},
			}
			if seen[node.ID] {
				continue
			}
			seen[node.ID] = true
			frag.Nodes = append(frag.Nodes, node)
			frag.Edges = append(frag.Edges, types.Relationship{
				ID:       types.MakeEdgeID(types.RelContains, fileNode.ID, node.ID),
				Type:     types.RelContains,
				SourceID: fileNode.ID,
				TargetID: node.ID,
			})
			break
		}
	}
}
