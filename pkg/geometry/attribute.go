package geometry

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbridge/pkg/scene"
)

// AttributeRef locates a resolved attribute.
type AttributeRef struct {
	BufferIndex int
	Offset      int
	Format      scene.VertexFormat
}

// ResolveAttribute returns the first attribute named semantic whose buffer
// index is valid for a mesh with bufferCount buffers.
// The scan stops at the first name match: a later attribute with the same
// name is never considered.
func ResolveAttribute(attrs []scene.Attribute, bufferCount int, semantic string) (AttributeRef, bool) {
	for _, a := range attrs {
		if a.Name != semantic {
			continue
		}
		if a.BufferIndex < 0 || a.BufferIndex >= bufferCount {
			return AttributeRef{}, false
		}
		return AttributeRef{BufferIndex: a.BufferIndex, Offset: a.Offset, Format: a.Format}, true
	}
	return AttributeRef{}, false
}

// stream returns the buffer and layout backing semantic, checking that the
// declared format holds at least components floats.
func stream(m *scene.Mesh, semantic string, components int) (scene.VertexBuffer, AttributeRef, bool) {
	ref, ok := ResolveAttribute(m.Attributes, len(m.Buffers), semantic)
	if !ok {
		return scene.VertexBuffer{}, AttributeRef{}, false
	}
	if ref.Format != scene.FormatUnspecified && ref.Format.FloatComponents() < components {
		return scene.VertexBuffer{}, AttributeRef{}, false
	}
	return m.Buffers[ref.BufferIndex], ref, true
}

// Positions unpacks the mesh's position attribute. Absent or malformed
// positions yield nil.
func Positions(m *scene.Mesh) []mgl32.Vec3 {
	return vec3Attribute(m, scene.AttributePosition)
}

// Normals unpacks the mesh's normal attribute.
func Normals(m *scene.Mesh) []mgl32.Vec3 {
	return vec3Attribute(m, scene.AttributeNormal)
}

// TexCoords unpacks the mesh's first texture coordinate attribute.
func TexCoords(m *scene.Mesh) []mgl32.Vec2 {
	buf, ref, ok := stream(m, scene.AttributeTexCoord, 2)
	if !ok {
		return nil
	}
	return UnpackVec2(buf.Data, buf.Stride, ref.Offset)
}

func vec3Attribute(m *scene.Mesh, semantic string) []mgl32.Vec3 {
	buf, ref, ok := stream(m, semantic, 3)
	if !ok {
		return nil
	}
	return UnpackVec3(buf.Data, buf.Stride, ref.Offset)
}
