package formats

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbridge/pkg/convert"
	"github.com/Faultbox/meshbridge/pkg/geometry"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

var quadPositions = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}

// makeGLTF builds a glTF document with one embedded buffer holding
// positions, texture coordinates, uint16 indices and a PNG image.
func makeGLTF(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(geometry.PackVec3(quadPositions, 12, 0))
	buf.Write(geometry.PackVec2([]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, 8, 0))
	buf.Write(geometry.PackIndices16([]uint16{0, 1, 2, 0, 2, 3}))

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}
	pngOffset := buf.Len()
	buf.Write(pngBuf.Bytes())

	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	return []byte(fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "root", "children": [1, 2]},
    {"name": "left", "mesh": 0},
    {"name": "right", "mesh": 0}
  ],
  "meshes": [{
    "name": "quad",
    "primitives": [
      {"attributes": {"POSITION": 0, "TEXCOORD_0": 1}, "indices": 2, "material": 0},
      {"attributes": {"POSITION": 0, "TEXCOORD_0": 1}, "indices": 2, "mode": 5},
      {"attributes": {"POSITION": 0}, "material": 1}
    ]
  }],
  "materials": [
    {
      "name": "painted",
      "pbrMetallicRoughness": {
        "baseColorFactor": [1, 0, 0, 1],
        "baseColorTexture": {"index": 0},
        "metallicFactor": 0.25,
        "roughnessFactor": 0.5
      },
      "normalTexture": {"index": 0}
    },
    {
      "name": "embedded",
      "pbrMetallicRoughness": {"baseColorTexture": {"index": 1}}
    }
  ],
  "textures": [{"source": 0}, {"source": 1}],
  "images": [
    {"uri": "tex/wall%%20a.png"},
    {"name": "dot", "bufferView": 3, "mimeType": "image/png"}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5126, "count": 4, "type": "VEC2"},
    {"bufferView": 2, "componentType": 5123, "count": 6, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 48},
    {"buffer": 0, "byteOffset": 48, "byteLength": 32},
    {"buffer": 0, "byteOffset": 80, "byteLength": 12},
    {"buffer": 0, "byteOffset": %d, "byteLength": %d}
  ],
  "buffers": [{"byteLength": %d, "uri": %q}]
}`, pngOffset, pngBuf.Len(), buf.Len(), uri))
}

func TestParseGLTFData(t *testing.T) {
	asset, err := ParseGLTFData(makeGLTF(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meshes := scene.Meshes(asset)
	// Two attribute sets; the mesh is shared by both nodes but listed once.
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	textured, plain := meshes[0], meshes[1]
	if textured.Name != "quad" || plain.Name != "quad.1" {
		t.Errorf("unexpected mesh names %q, %q", textured.Name, plain.Name)
	}

	positions := geometry.Positions(textured)
	if len(positions) != 4 || positions[2] != quadPositions[2] {
		t.Errorf("unexpected positions %v", positions)
	}
	if n := len(geometry.TexCoords(textured)); n != 4 {
		t.Errorf("expected 4 texture coordinates, got %d", n)
	}

	if len(textured.Submeshes) != 2 {
		t.Fatalf("expected 2 submeshes, got %d", len(textured.Submeshes))
	}
	tri, strip := textured.Submeshes[0], textured.Submeshes[1]
	if tri.Topology != scene.TopologyTriangles || tri.IndexWidth != scene.IndexUint16 || tri.IndexCount != 6 {
		t.Errorf("unexpected triangle submesh %s/%s/%d", tri.Topology, tri.IndexWidth, tri.IndexCount)
	}
	if tri.Material != scene.MaterialID(1) {
		t.Errorf("expected material 1, got %d", tri.Material)
	}
	if strip.Topology != scene.TopologyTriangleStrips || strip.Material != scene.NoMaterial {
		t.Errorf("unexpected strip submesh %s material %d", strip.Topology, strip.Material)
	}

	// Non-indexed primitive gets sequential indices.
	seq := plain.Submeshes[0]
	indices, err := geometry.WidenIndices(seq.Indices, seq.IndexWidth, seq.IndexCount)
	if err != nil || len(indices) != 4 || indices[3] != 3 {
		t.Errorf("expected sequential indices, got %v (%v)", indices, err)
	}
}

func TestParseGLTFData_Materials(t *testing.T) {
	asset, err := ParseGLTFData(makeGLTF(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(asset.Materials) != 2 {
		t.Fatalf("expected 2 materials, got %d", len(asset.Materials))
	}

	painted := asset.Material(1)
	base, _ := painted.Property(scene.SemanticBaseColor)
	if url, _ := base.FileURL(); url != "tex/wall a.png" {
		t.Errorf("expected unescaped uri, got %q", url)
	}
	if v, _ := base.Float4(); v != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("expected base color factor, got %v", v)
	}

	tests := []struct {
		sem  scene.Semantic
		want float32
	}{
		{scene.SemanticRoughness, 0.5},
		{scene.SemanticMetallic, 0.25},
	}
	for _, tt := range tests {
		p, ok := painted.Property(tt.sem)
		if !ok {
			t.Errorf("%s: missing", tt.sem)
			continue
		}
		if v, _ := p.Float(); v != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.sem, tt.want, v)
		}
		if url, _ := p.FileURL(); url != "" {
			t.Errorf("%s: expected no texture, got %q", tt.sem, url)
		}
	}
	if _, ok := painted.Property(scene.SemanticTangentSpaceNormal); !ok {
		t.Error("expected normal texture")
	}

	embedded := asset.Material(2)
	p, ok := embedded.Property(scene.SemanticBaseColor)
	if !ok {
		t.Fatal("expected embedded base color")
	}
	img, ok := p.Image()
	if !ok {
		t.Fatal("expected decoded embedded image")
	}
	if img.Bounds().Dx() != 2 {
		t.Errorf("expected 2px image, got %v", img.Bounds())
	}
	if r, ok := embedded.Property(scene.SemanticRoughness); !ok || r.Value[0] != 1 {
		t.Errorf("expected default roughness 1, got %v", r.Value)
	}
}

func TestParseGLTFData_Convert(t *testing.T) {
	asset, err := ParseGLTFData(makeGLTF(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := convert.New(nil, convert.DefaultOptions()).Convert(context.Background(), asset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Triangle list and non-indexed list; the strip is skipped.
	if len(res.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(res.Parts))
	}
	if !res.HasDiagnostic(convert.DiagUnsupportedTopology) {
		t.Error("expected unsupported-topology diagnostic for the strip")
	}
	if !res.Parts[0].Drawable.HasTexCoords() {
		t.Error("expected texture coordinates on the first part")
	}
}

func TestParseGLTF_Errors(t *testing.T) {
	if _, err := ParseGLTF(nil); !errors.Is(err, ErrNilGLTFDocument) {
		t.Errorf("expected ErrNilGLTFDocument, got %v", err)
	}
	if _, err := ParseGLTFData([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
}
