package scene

import "fmt"

// Standard vertex attribute semantics.
const (
	AttributePosition  = "position"
	AttributeNormal    = "normal"
	AttributeTexCoord  = "textureCoordinate"
	AttributeTangent   = "tangent"
	AttributeColor     = "color"
	AttributeJointIdx  = "jointIndices"
	AttributeJointWgts = "jointWeights"
)

// VertexFormat describes how one attribute is encoded in its buffer.
type VertexFormat int

const (
	FormatUnspecified VertexFormat = iota // Layout decided by the reader
	FormatFloat
	FormatFloat2
	FormatFloat3
	FormatFloat4
	FormatHalf2
	FormatHalf3
	FormatHalf4
	FormatUShort2Normalized
)

// FloatComponents returns the number of 32-bit float components, or 0 when
// the format is not made of 32-bit floats.
func (f VertexFormat) FloatComponents() int {
	switch f {
	case FormatFloat:
		return 1
	case FormatFloat2:
		return 2
	case FormatFloat3:
		return 3
	case FormatFloat4:
		return 4
	default:
		return 0
	}
}

// String returns the format name.
func (f VertexFormat) String() string {
	switch f {
	case FormatUnspecified:
		return "Unspecified"
	case FormatFloat:
		return "Float"
	case FormatFloat2:
		return "Float2"
	case FormatFloat3:
		return "Float3"
	case FormatFloat4:
		return "Float4"
	case FormatHalf2:
		return "Half2"
	case FormatHalf3:
		return "Half3"
	case FormatHalf4:
		return "Half4"
	case FormatUShort2Normalized:
		return "UShort2Normalized"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// VertexBuffer is one vertex buffer layout: raw bytes plus the distance
// between consecutive vertex records.
type VertexBuffer struct {
	Data   []byte
	Stride int
}

// Attribute locates one semantic inside the mesh's vertex buffers.
type Attribute struct {
	Name        string
	BufferIndex int
	Offset      int
	Format      VertexFormat
}

// IndexWidth is the declared size of one index in bits.
type IndexWidth int

const (
	IndexInvalid IndexWidth = 0
	IndexUint8   IndexWidth = 8
	IndexUint16  IndexWidth = 16
	IndexUint32  IndexWidth = 32
)

// Bytes returns the element size in bytes.
func (w IndexWidth) Bytes() int {
	return int(w) / 8
}

// String returns the index type name.
func (w IndexWidth) String() string {
	switch w {
	case IndexUint8:
		return "uint8"
	case IndexUint16:
		return "uint16"
	case IndexUint32:
		return "uint32"
	default:
		return fmt.Sprintf("invalid(%d)", int(w))
	}
}

// Topology tells how indices group into primitives.
type Topology int

const (
	TopologyUnknown Topology = iota
	TopologyTriangles
	TopologyQuads
	TopologyTriangleStrips
	TopologyLines
	TopologyPoints
	TopologyVariable
)

// String returns the topology name.
func (t Topology) String() string {
	switch t {
	case TopologyTriangles:
		return "triangles"
	case TopologyQuads:
		return "quads"
	case TopologyTriangleStrips:
		return "triangleStrips"
	case TopologyLines:
		return "lines"
	case TopologyPoints:
		return "points"
	case TopologyVariable:
		return "variableTopology"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Submesh is an index buffer drawn with a single material.
type Submesh struct {
	Name       string
	Indices    []byte
	IndexWidth IndexWidth
	IndexCount int
	Topology   Topology
	Material   MaterialID
}

// Mesh owns vertex data shared by its submeshes.
type Mesh struct {
	Name       string
	Buffers    []VertexBuffer
	Attributes []Attribute
	Submeshes  []Submesh
	Nodes      []Object
}

// Children returns objects parented under the mesh.
func (m *Mesh) Children() []Object {
	return m.Nodes
}
