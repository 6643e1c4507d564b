// Package cache is the two-tier cache: a bounded in-process TTL tier (L1)
// over an external KV tier (L2, Redis). Values cross the wire in a compact
// length-prefixed binary format with enum fields encoded as their string
// names; decoding is closed-set and treats unknown values as a corrupt
// entry, never inventing kinds.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/standardbeagle/codegraph/internal/types"
)

// codec magic prefixes. A version bump here invalidates old entries by
// decode failure, which readers treat as a miss.
var (
	nodesMagic = []byte("CGN1")
	edgesMagic = []byte("CGE1")
)

type writer struct {
	buf bytes.Buffer
}

func (w *writer) uvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

func (w *writer) str(s string) {
	w.uvarint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) bytes(b []byte) {
	w.uvarint(uint64(len(b)))
	w.buf.Write(b)
}

type reader struct {
	buf *bytes.Reader
}

func (r *reader) uvarint() (uint64, error) {
	return binary.ReadUvarint(r.buf)
}

func (r *reader) str() (string, error) {
	b, err := r.bytesField()
	return string(b), err
}

func (r *reader) bytesField() ([]byte, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.buf.Len()) {
		return nil, fmt.Errorf("codec: field length %d exceeds remaining %d", n, r.buf.Len())
	}
	b := make([]byte, n)
	if _, err := r.buf.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodeNodes serializes node records: length-prefixed fields, kind as its
// string name, metadata as an embedded JSON blob.
func EncodeNodes(nodes []types.Node) ([]byte, error) {
	w := &writer{}
	w.buf.Write(nodesMagic)
	w.uvarint(uint64(len(nodes)))
	for i := range nodes {
		n := &nodes[i]
		w.str(string(n.ID))
		w.str(n.Name)
		w.str(string(n.Kind))
		w.str(n.Language)
		w.str(n.Location.FilePath)
		w.uvarint(uint64(n.Location.StartLine))
		w.uvarint(uint64(n.Location.StartCol))
		w.uvarint(uint64(n.Location.EndLine))
		w.uvarint(uint64(n.Location.EndCol))
		w.uvarint(uint64(n.Complexity))
		md, err := marshalMetadata(n.Metadata)
		if err != nil {
			return nil, err
		}
		w.bytes(md)
	}
	return w.buf.Bytes(), nil
}

// DecodeNodes is the inverse of EncodeNodes. Unknown node kinds are an
// error so a corrupt or foreign entry reads as absent.
func DecodeNodes(data []byte) ([]types.Node, error) {
	if !bytes.HasPrefix(data, nodesMagic) {
		return nil, fmt.Errorf("codec: bad nodes magic")
	}
	r := &reader{buf: bytes.NewReader(data[len(nodesMagic):])}
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	nodes := make([]types.Node, 0, count)
	for i := uint64(0); i < count; i++ {
		var n types.Node
		id, err := r.str()
		if err != nil {
			return nil, err
		}
		n.ID = types.NodeID(id)
		if n.Name, err = r.str(); err != nil {
			return nil, err
		}
		kindStr, err := r.str()
		if err != nil {
			return nil, err
		}
		if n.Kind, err = types.ParseNodeKind(kindStr); err != nil {
			return nil, err
		}
		if n.Language, err = r.str(); err != nil {
			return nil, err
		}
		if n.Location.FilePath, err = r.str(); err != nil {
			return nil, err
		}
		ints := [5]uint64{}
		for j := range ints {
			if ints[j], err = r.uvarint(); err != nil {
				return nil, err
			}
		}
		n.Location.StartLine = int(ints[0])
		n.Location.StartCol = int(ints[1])
		n.Location.EndLine = int(ints[2])
		n.Location.EndCol = int(ints[3])
		n.Complexity = int(ints[4])
		md, err := r.bytesField()
		if err != nil {
			return nil, err
		}
		if n.Metadata, err = unmarshalMetadata(md); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// EncodeEdges serializes edge records with the type as its string name.
func EncodeEdges(edges []types.Relationship) ([]byte, error) {
	w := &writer{}
	w.buf.Write(edgesMagic)
	w.uvarint(uint64(len(edges)))
	for i := range edges {
		e := &edges[i]
		w.str(string(e.ID))
		w.str(string(e.Type))
		w.str(string(e.SourceID))
		w.str(string(e.TargetID))
		md, err := marshalMetadata(e.Metadata)
		if err != nil {
			return nil, err
		}
		w.bytes(md)
	}
	return w.buf.Bytes(), nil
}

// DecodeEdges is the inverse of EncodeEdges; unknown relationship types are
// an error.
func DecodeEdges(data []byte) ([]types.Relationship, error) {
	if !bytes.HasPrefix(data, edgesMagic) {
		return nil, fmt.Errorf("codec: bad edges magic")
	}
	r := &reader{buf: bytes.NewReader(data[len(edgesMagic):])}
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	edges := make([]types.Relationship, 0, count)
	for i := uint64(0); i < count; i++ {
		var e types.Relationship
		id, err := r.str()
		if err != nil {
			return nil, err
		}
		e.ID = types.EdgeID(id)
		typeStr, err := r.str()
		if err != nil {
			return nil, err
		}
		if e.Type, err = types.ParseRelType(typeStr); err != nil {
			return nil, err
		}
		src, err := r.str()
		if err != nil {
			return nil, err
		}
		e.SourceID = types.NodeID(src)
		dst, err := r.str()
		if err != nil {
			return nil, err
		}
		e.TargetID = types.NodeID(dst)
		md, err := r.bytesField()
		if err != nil {
			return nil, err
		}
		if e.Metadata, err = unmarshalMetadata(md); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func marshalMetadata(md map[string]any) ([]byte, error) {
	if len(md) == 0 {
		return nil, nil
	}
	return json.Marshal(md)
}

func unmarshalMetadata(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var md map[string]any
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("codec: metadata: %w", err)
	}
	return md, nil
}

// FileMeta is the per-file cache stamp: entries are usable only when the
// content hash, pattern-set version and generation all match the current
// world. Seam facts ride along because they are part of the fragment but
// live outside the node/edge records.
type FileMeta struct {
	ContentHash       string               `json:"content_hash"`
	Mtime             int64                `json:"mtime"`
	PatternSetVersion int                  `json:"pattern_set_version"`
	Generation        int64                `json:"generation"`
	Language          string               `json:"language,omitempty"`
	SeamCalls         []types.SeamCall     `json:"seam_calls,omitempty"`
	Providers         []types.SeamProvider `json:"providers,omitempty"`
}

// EncodeMeta serializes a FileMeta.
func EncodeMeta(m *FileMeta) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMeta deserializes a FileMeta.
func DecodeMeta(data []byte) (*FileMeta, error) {
	var m FileMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("codec: meta: %w", err)
	}
	return &m, nil
}
