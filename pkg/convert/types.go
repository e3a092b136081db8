// Package convert turns a scene asset into renderer-ready drawables and
// shading descriptors.
package convert

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbridge/pkg/geometry"
	"github.com/Faultbox/meshbridge/pkg/material"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

// Drawable is the geometry of one submesh. Positions, TexCoords and Normals
// are shared with every other drawable of the same mesh and must be treated
// as read-only.
type Drawable struct {
	MeshName    string
	SubmeshName string
	Positions   []mgl32.Vec3
	TexCoords   []mgl32.Vec2
	Normals     []mgl32.Vec3
	Indices     []uint32
	Topology    scene.Topology
	Primitive   geometry.Primitive
	Bounds      geometry.Bounds
}

// HasTexCoords reports whether per-vertex texture coordinates are present.
func (d *Drawable) HasTexCoords() bool {
	return len(d.TexCoords) > 0
}

// HasNormals reports whether per-vertex normals are present.
func (d *Drawable) HasNormals() bool {
	return len(d.Normals) > 0
}

// Part pairs a drawable with the shading descriptor of its material.
// Shading is nil when the submesh has no material.
type Part struct {
	Drawable *Drawable
	Shading  *material.ShadingDescriptor
	Material scene.MaterialID
}

// DiagnosticKind classifies a non-fatal conversion problem.
type DiagnosticKind int

const (
	DiagMissingPositions DiagnosticKind = iota
	DiagUnsupportedIndexWidth
	DiagUnsupportedTopology
	DiagIndexOutOfRange
	DiagDroppedTexCoords
	DiagDroppedNormals
	DiagMissingMaterial
)

// String returns the diagnostic kind name.
func (k DiagnosticKind) String() string {
	switch k {
	case DiagMissingPositions:
		return "missing-positions"
	case DiagUnsupportedIndexWidth:
		return "unsupported-index-width"
	case DiagUnsupportedTopology:
		return "unsupported-topology"
	case DiagIndexOutOfRange:
		return "index-out-of-range"
	case DiagDroppedTexCoords:
		return "dropped-texcoords"
	case DiagDroppedNormals:
		return "dropped-normals"
	case DiagMissingMaterial:
		return "missing-material"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Diagnostic records a degraded part of the output.
// Submesh is -1 when the problem concerns the whole mesh.
type Diagnostic struct {
	Kind    DiagnosticKind
	Mesh    string
	MeshIdx int
	Submesh int
	Message string
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	if d.Submesh < 0 {
		return fmt.Sprintf("%s: mesh %q: %s", d.Kind, d.Mesh, d.Message)
	}
	return fmt.Sprintf("%s: mesh %q submesh %d: %s", d.Kind, d.Mesh, d.Submesh, d.Message)
}

// Result is the output of a conversion.
type Result struct {
	Parts       []Part
	Diagnostics []Diagnostic
}

// Drawables returns every drawable in output order.
func (r *Result) Drawables() []*Drawable {
	out := make([]*Drawable, len(r.Parts))
	for i, p := range r.Parts {
		out[i] = p.Drawable
	}
	return out
}

// Materials returns the non-nil shading descriptors in output order.
func (r *Result) Materials() []*material.ShadingDescriptor {
	var out []*material.ShadingDescriptor
	for _, p := range r.Parts {
		if p.Shading != nil {
			out = append(out, p.Shading)
		}
	}
	return out
}

// Bounds returns the combined bounding box of every drawable.
func (r *Result) Bounds() geometry.Bounds {
	var points []mgl32.Vec3
	for _, p := range r.Parts {
		if len(p.Drawable.Positions) > 0 {
			points = append(points, p.Drawable.Bounds.Min, p.Drawable.Bounds.Max)
		}
	}
	return geometry.ComputeBounds(points)
}

// HasDiagnostic reports whether a diagnostic of kind k was recorded.
func (r *Result) HasDiagnostic(k DiagnosticKind) bool {
	for _, d := range r.Diagnostics {
		if d.Kind == k {
			return true
		}
	}
	return false
}
