package convert

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbridge/pkg/geometry"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

// VertexData holds the per-vertex arrays unpacked once per mesh.
type VertexData struct {
	Positions []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Normals   []mgl32.Vec3
	Bounds    geometry.Bounds
}

// ExtractVertexData unpacks positions, texture coordinates and normals of m.
func ExtractVertexData(m *scene.Mesh) VertexData {
	positions := geometry.Positions(m)
	return VertexData{
		Positions: positions,
		TexCoords: geometry.TexCoords(m),
		Normals:   geometry.Normals(m),
		Bounds:    geometry.ComputeBounds(positions),
	}
}

// AssembleSubmesh builds the drawable for submesh idx of m from already
// extracted vertex data. It returns nil when the submesh contributes no
// geometry; diagnostics explain why and also report dropped arrays.
func AssembleSubmesh(m *scene.Mesh, meshIdx, idx int, vd VertexData, validate bool) (*Drawable, []Diagnostic) {
	sub := &m.Submeshes[idx]
	diag := func(kind DiagnosticKind, format string, args ...any) Diagnostic {
		return Diagnostic{Kind: kind, Mesh: m.Name, MeshIdx: meshIdx, Submesh: idx, Message: fmt.Sprintf(format, args...)}
	}

	if len(vd.Positions) == 0 {
		return nil, nil
	}

	var diags []Diagnostic
	indices, prim, err := geometry.NormalizeIndices(sub.Indices, sub.IndexWidth, sub.IndexCount, sub.Topology)
	switch {
	case errors.Is(err, geometry.ErrUnsupportedIndexWidth):
		return nil, []Diagnostic{diag(DiagUnsupportedIndexWidth, "index width %s not supported", sub.IndexWidth)}
	case errors.Is(err, geometry.ErrUnsupportedTopology):
		return nil, []Diagnostic{diag(DiagUnsupportedTopology, "topology %s not handled", sub.Topology)}
	case err != nil:
		return nil, []Diagnostic{diag(DiagUnsupportedTopology, "%v", err)}
	}

	if validate {
		if n, first := geometry.OutOfRange(indices, len(vd.Positions)); n > 0 {
			diags = append(diags, diag(DiagIndexOutOfRange,
				"%d indices >= vertex count %d (first %d)", n, len(vd.Positions), first))
		}
	}

	d := &Drawable{
		MeshName:    m.Name,
		SubmeshName: sub.Name,
		Positions:   vd.Positions,
		Indices:     indices,
		Topology:    sub.Topology,
		Primitive:   prim,
		Bounds:      vd.Bounds,
	}

	if len(vd.TexCoords) == len(vd.Positions) {
		d.TexCoords = vd.TexCoords
	} else if len(vd.TexCoords) > 0 {
		diags = append(diags, diag(DiagDroppedTexCoords,
			"%d texture coordinates for %d positions", len(vd.TexCoords), len(vd.Positions)))
	}

	if len(vd.Normals) == len(vd.Positions) {
		d.Normals = vd.Normals
	} else if len(vd.Normals) > 0 {
		diags = append(diags, diag(DiagDroppedNormals,
			"%d normals for %d positions", len(vd.Normals), len(vd.Positions)))
	}

	return d, diags
}

// AssembleMesh builds one drawable per supported submesh of m. A mesh
// without positions contributes nothing.
func AssembleMesh(m *scene.Mesh, meshIdx int, validate bool) ([]*Drawable, []Diagnostic) {
	vd := ExtractVertexData(m)
	if len(vd.Positions) == 0 {
		return nil, []Diagnostic{{
			Kind: DiagMissingPositions, Mesh: m.Name, MeshIdx: meshIdx, Submesh: -1,
			Message: "no resolvable position attribute",
		}}
	}

	var (
		out   []*Drawable
		diags []Diagnostic
	)
	for i := range m.Submeshes {
		d, ds := AssembleSubmesh(m, meshIdx, i, vd, validate)
		diags = append(diags, ds...)
		if d != nil {
			out = append(out, d)
		}
	}
	return out, diags
}
