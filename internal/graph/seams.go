package graph

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/codegraph/internal/types"
)

// relinkSeamsLocked rebuilds every SEAM edge from the recorded seam facts.
// Called after each commit or removal, so cross-file links stay correct when
// either side of a seam changes: a seam call resolves to a provider node
// when one serves the same (target language, endpoint), and to a synthetic
// endpoint node owned by the caller's file otherwise.
func (s *Store) relinkSeamsLocked() {
	// Drop previous SEAM edges and synthetic endpoint nodes.
	for _, e := range s.edges {
		if e.Type == types.RelSeam {
			s.removeEdgeLocked(e)
		}
	}
	for id, n := range s.nodes {
		if n.Metadata != nil && n.Metadata["seam_endpoint"] == true {
			fileID := s.fileByPath[n.Location.FilePath]
			delete(s.owned[fileID], id)
			s.removeNodeLocked(id)
		}
	}

	// Index providers by (target language, endpoint).
	providers := make(map[string][]types.SeamProvider)
	for _, list := range s.seamProvider {
		for _, p := range list {
			if _, ok := s.nodes[p.NodeID]; !ok {
				continue
			}
			key := p.TargetLang + "\x00" + p.Endpoint
			providers[key] = append(providers[key], p)
		}
	}

	for path, calls := range s.seamCalls {
		for _, call := range calls {
			caller, ok := s.nodes[call.CallerID]
			if !ok {
				continue
			}
			md := map[string]any{
				"confidence": call.Confidence,
				"call_line":  call.Line,
			}
			if call.Endpoint != "" {
				md["endpoint"] = call.Endpoint
			} else {
				md["endpoint"] = nil
			}

			if matched := providers[call.TargetLang+"\x00"+call.Endpoint]; call.Endpoint != "" && len(matched) > 0 {
				for _, p := range matched {
					target := s.nodes[p.NodeID]
					edgeMD := copyMetadata(md)
					edgeMD["languages"] = []string{caller.Language, target.Language}
					s.addEdgeLocked(&types.Relationship{
						ID:       types.MakeEdgeID(types.RelSeam, call.CallerID, p.NodeID),
						Type:     types.RelSeam,
						SourceID: call.CallerID,
						TargetID: p.NodeID,
						Metadata: edgeMD,
					})
				}
				continue
			}

			// No provider: materialize a logical endpoint node in the target
			// language, owned by the caller's file.
			name := call.Endpoint
			if name == "" {
				name = call.TargetLang
			}
			endpointID := types.MakeNodeID(types.KindModule, path,
				fmt.Sprintf("%s:%s", call.TargetLang, name), call.Line)
			endpoint := types.Node{
				ID:       endpointID,
				Name:     name,
				Kind:     types.KindModule,
				Language: strings.ToLower(call.TargetLang),
				Location: types.Location{
					FilePath:  path,
					StartLine: call.Line,
					StartCol:  1,
					EndLine:   call.Line + 1,
					EndCol:    1,
				},
				Metadata: map[string]any{
					"seam_endpoint": true,
					"target_lang":   call.TargetLang,
				},
			}
			s.addNodeLocked(&endpoint, path)
			if fileID, ok := s.fileByPath[path]; ok {
				s.addEdgeLocked(&types.Relationship{
					ID:       types.MakeEdgeID(types.RelContains, fileID, endpointID),
					Type:     types.RelContains,
					SourceID: fileID,
					TargetID: endpointID,
				})
			}

			edgeMD := copyMetadata(md)
			edgeMD["languages"] = []string{caller.Language, strings.ToLower(call.TargetLang)}
			s.addEdgeLocked(&types.Relationship{
				ID:       types.MakeEdgeID(types.RelSeam, call.CallerID, endpointID),
				Type:     types.RelSeam,
				SourceID: call.CallerID,
				TargetID: endpointID,
				Metadata: edgeMD,
			})
		}
	}
}

func copyMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	return out
}
