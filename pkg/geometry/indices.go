package geometry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/meshbridge/pkg/scene"
)

// Index normalization errors. Both are diagnostics: the caller skips the
// submesh's geometry and carries on.
var (
	ErrUnsupportedIndexWidth = errors.New("unsupported index width")
	ErrUnsupportedTopology   = errors.New("unsupported topology")
)

// PrimitiveKind is the drawable primitive produced for a submesh.
type PrimitiveKind int

const (
	PrimitiveUnsupported PrimitiveKind = iota
	PrimitiveTriangles
	PrimitiveQuads
)

// String returns the primitive kind name.
func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveTriangles:
		return "triangles"
	case PrimitiveQuads:
		return "trianglesAndQuads"
	default:
		return "unsupported"
	}
}

// Primitive is a renderer-ready primitive list.
// For PrimitiveQuads the triangle list is empty and every four consecutive
// quad indices form one quad.
type Primitive struct {
	Kind      PrimitiveKind
	Triangles []uint32
	Quads     []uint32
}

// IndexCount returns the total number of indices in the primitive.
func (p Primitive) IndexCount() int {
	return len(p.Triangles) + len(p.Quads)
}

// WidenIndices reads count indices of the given width and widens them to
// uint32, preserving order. When the buffer holds fewer than count complete
// indices only the complete ones are returned.
func WidenIndices(raw []byte, width scene.IndexWidth, count int) ([]uint32, error) {
	size := width.Bytes()
	if width != scene.IndexUint16 && width != scene.IndexUint32 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedIndexWidth, width)
	}
	if count <= 0 {
		return nil, nil
	}
	if avail := len(raw) / size; count > avail {
		count = avail
	}

	out := make([]uint32, count)
	switch width {
	case scene.IndexUint16:
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	case scene.IndexUint32:
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
	}
	return out, nil
}

// NormalizeIndices widens the raw index buffer and maps the topology to a
// primitive. Triangles map 1:1; quads are kept as quads. Any other topology
// returns ErrUnsupportedTopology along with the widened indices.
func NormalizeIndices(raw []byte, width scene.IndexWidth, count int, topology scene.Topology) ([]uint32, Primitive, error) {
	widened, err := WidenIndices(raw, width, count)
	if err != nil {
		return nil, Primitive{}, err
	}

	switch topology {
	case scene.TopologyTriangles:
		return widened, Primitive{Kind: PrimitiveTriangles, Triangles: widened}, nil
	case scene.TopologyQuads:
		return widened, Primitive{Kind: PrimitiveQuads, Triangles: []uint32{}, Quads: widened}, nil
	default:
		return widened, Primitive{}, fmt.Errorf("%w: %s", ErrUnsupportedTopology, topology)
	}
}

// OutOfRange counts indices that do not address one of vertexCount vertices
// and returns the first offending value.
func OutOfRange(indices []uint32, vertexCount int) (n int, first uint32) {
	for _, idx := range indices {
		if int64(idx) >= int64(vertexCount) {
			if n == 0 {
				first = idx
			}
			n++
		}
	}
	return n, first
}

// PackIndices16 encodes indices as little-endian uint16 values.
func PackIndices16(indices []uint16) []byte {
	buf := make([]byte, len(indices)*2)
	for i, v := range indices {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}

// PackIndices32 encodes indices as little-endian uint32 values.
func PackIndices32(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, v := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
