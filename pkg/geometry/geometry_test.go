package geometry

import (
	"encoding/binary"
	"errors"
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbridge/pkg/scene"
)

func TestUnpack_ElementCount(t *testing.T) {
	tests := []struct {
		name       string
		bufLen     int
		stride     int
		offset     int
		components int
		want       int
	}{
		{"exact fit", 96, 12, 0, 3, 8},
		{"trailing partial record", 100, 12, 0, 3, 8},
		{"interleaved uv", 64, 32, 24, 2, 2},
		{"offset at end of record", 64, 16, 4, 3, 4},
		{"zero stride", 64, 0, 0, 3, 0},
		{"attribute overflows record", 64, 12, 4, 3, 0},
		{"negative offset", 64, 12, -4, 3, 0},
		{"empty buffer", 0, 12, 0, 3, 0},
		{"offset wraps past max int", 64, 12, gomath.MaxInt - 4, 3, 0},
		{"components wrap past max int", 64, 12, 0, gomath.MaxInt/2 + 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unpack(make([]byte, tt.bufLen), tt.stride, tt.offset, tt.components)
			if len(got) != tt.want*tt.components {
				t.Errorf("expected %d tuples, got %d floats", tt.want, len(got))
			}
		})
	}
}

func TestUnpackVec3_Roundtrip(t *testing.T) {
	positions := []mgl32.Vec3{
		{-0.3, -0.4, -0.1},
		{0.3, -0.4, -0.1},
		{0.3, 0.4, -0.1},
		{-0.3, 0.4, 0.1},
		{1e6, -1e-6, 0},
	}

	layouts := []struct{ stride, offset int }{
		{12, 0},
		{32, 0},
		{32, 12},
		{20, 8},
	}

	for _, l := range layouts {
		buf := PackVec3(positions, l.stride, l.offset)
		got := UnpackVec3(buf, l.stride, l.offset)
		if len(got) != len(positions) {
			t.Fatalf("stride %d offset %d: expected %d positions, got %d", l.stride, l.offset, len(positions), len(got))
		}
		for i := range positions {
			if got[i] != positions[i] {
				t.Errorf("stride %d offset %d: position %d = %v, want %v", l.stride, l.offset, i, got[i], positions[i])
			}
		}
	}
}

func TestUnpackVec2_Interleaved(t *testing.T) {
	uvs := []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}}
	buf := PackVec2(uvs, 32, 24)

	got := UnpackVec2(buf, 32, 24)
	if len(got) != 3 {
		t.Fatalf("expected 3 uvs, got %d", len(got))
	}
	for i := range uvs {
		if got[i] != uvs[i] {
			t.Errorf("uv %d = %v, want %v", i, got[i], uvs[i])
		}
	}

	if UnpackVec2(buf, 32, 28) != nil {
		t.Error("expected nil when uv overflows the record")
	}
}

func TestUnpack_Flat(t *testing.T) {
	buf := make([]byte, 16)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], gomath.Float32bits(float32(i)))
	}
	got := Unpack(buf, 8, 4, 1)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("unexpected values: %v", got)
	}
}

func TestResolveAttribute(t *testing.T) {
	attrs := []scene.Attribute{
		{Name: scene.AttributeNormal, BufferIndex: 0, Offset: 12},
		{Name: scene.AttributePosition, BufferIndex: 0, Offset: 0},
		{Name: scene.AttributePosition, BufferIndex: 1, Offset: 4},
		{Name: scene.AttributeTexCoord, BufferIndex: 5, Offset: 0},
	}

	ref, ok := ResolveAttribute(attrs, 2, scene.AttributePosition)
	if !ok {
		t.Fatal("expected position to resolve")
	}
	if ref.BufferIndex != 0 || ref.Offset != 0 {
		t.Errorf("expected first declared position, got %+v", ref)
	}

	if _, ok := ResolveAttribute(attrs, 2, scene.AttributeTexCoord); ok {
		t.Error("expected out-of-range buffer index to be NotFound")
	}
	if _, ok := ResolveAttribute(attrs, 2, scene.AttributeTangent); ok {
		t.Error("expected missing semantic to be NotFound")
	}
}

func TestPositions_FormatGate(t *testing.T) {
	buf := PackVec3([]mgl32.Vec3{{1, 2, 3}}, 12, 0)
	mesh := &scene.Mesh{
		Buffers:    []scene.VertexBuffer{{Data: buf, Stride: 12}},
		Attributes: []scene.Attribute{{Name: scene.AttributePosition, Format: scene.FormatFloat2}},
	}
	if got := Positions(mesh); got != nil {
		t.Errorf("expected nil for a 2-component position format, got %v", got)
	}

	mesh.Attributes[0].Format = scene.FormatFloat3
	if got := Positions(mesh); len(got) != 1 || got[0] != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("unexpected positions: %v", got)
	}
}

func TestPositions_HugeOffset(t *testing.T) {
	m := &scene.Mesh{
		Buffers:    []scene.VertexBuffer{{Data: make([]byte, 96), Stride: 12}},
		Attributes: []scene.Attribute{{Name: scene.AttributePosition, Offset: gomath.MaxInt - 8, Format: scene.FormatFloat3}},
	}
	if got := Positions(m); len(got) != 0 {
		t.Errorf("expected no positions, got %d", len(got))
	}
	if got := UnpackVec3(make([]byte, 64), 12, gomath.MaxInt-4); got != nil {
		t.Errorf("expected nil, got %d tuples", len(got))
	}
}

func TestPositions_InvalidBufferIndex(t *testing.T) {
	mesh := &scene.Mesh{
		Buffers:    []scene.VertexBuffer{{Data: make([]byte, 24), Stride: 12}},
		Attributes: []scene.Attribute{{Name: scene.AttributePosition, BufferIndex: 3}},
	}
	if got := Positions(mesh); got != nil {
		t.Errorf("expected nil positions, got %v", got)
	}
}

func TestWidenIndices_16Equals32(t *testing.T) {
	values := []uint16{0, 1, 2, 65535, 7, 300, 2, 1}
	wide := make([]uint32, len(values))
	for i, v := range values {
		wide[i] = uint32(v)
	}

	from16, p16, err := NormalizeIndices(PackIndices16(values), scene.IndexUint16, len(values), scene.TopologyTriangles)
	if err != nil {
		t.Fatalf("16-bit: %v", err)
	}
	from32, p32, err := NormalizeIndices(PackIndices32(wide), scene.IndexUint32, len(wide), scene.TopologyTriangles)
	if err != nil {
		t.Fatalf("32-bit: %v", err)
	}

	if len(from16) != len(from32) {
		t.Fatalf("length mismatch: %d vs %d", len(from16), len(from32))
	}
	for i := range from16 {
		if from16[i] != from32[i] {
			t.Errorf("index %d: %d vs %d", i, from16[i], from32[i])
		}
		if from16[i] != wide[i] {
			t.Errorf("index %d: expected %d, got %d", i, wide[i], from16[i])
		}
	}
	if p16.Kind != p32.Kind || len(p16.Triangles) != len(p32.Triangles) {
		t.Errorf("primitive mismatch: %+v vs %+v", p16, p32)
	}
}

func TestWidenIndices_TruncatedBuffer(t *testing.T) {
	raw := PackIndices16([]uint16{1, 2, 3})
	got, err := WidenIndices(raw[:5], scene.IndexUint16, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 complete indices, got %d", len(got))
	}
}

func TestWidenIndices_UnsupportedWidth(t *testing.T) {
	for _, w := range []scene.IndexWidth{scene.IndexInvalid, scene.IndexUint8, scene.IndexWidth(24)} {
		if _, err := WidenIndices([]byte{0, 1, 2, 3}, w, 2); !errors.Is(err, ErrUnsupportedIndexWidth) {
			t.Errorf("width %d: expected ErrUnsupportedIndexWidth, got %v", w, err)
		}
	}
}

func TestNormalizeIndices_Topology(t *testing.T) {
	raw := PackIndices32([]uint32{0, 1, 2, 3})

	tests := []struct {
		topology scene.Topology
		kind     PrimitiveKind
		wantErr  bool
	}{
		{scene.TopologyTriangles, PrimitiveTriangles, false},
		{scene.TopologyQuads, PrimitiveQuads, false},
		{scene.TopologyTriangleStrips, PrimitiveUnsupported, true},
		{scene.TopologyLines, PrimitiveUnsupported, true},
		{scene.TopologyPoints, PrimitiveUnsupported, true},
		{scene.TopologyVariable, PrimitiveUnsupported, true},
		{scene.TopologyUnknown, PrimitiveUnsupported, true},
		{scene.Topology(99), PrimitiveUnsupported, true},
	}

	for _, tt := range tests {
		t.Run(tt.topology.String(), func(t *testing.T) {
			_, prim, err := NormalizeIndices(raw, scene.IndexUint32, 4, tt.topology)
			if (err != nil) != tt.wantErr {
				t.Fatalf("got error=%v, wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedTopology) {
				t.Errorf("expected ErrUnsupportedTopology, got %v", err)
			}
			if prim.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, prim.Kind)
			}
		})
	}
}

func TestNormalizeIndices_QuadsNotTriangulated(t *testing.T) {
	raw := PackIndices16([]uint16{0, 1, 2, 3, 4, 5, 6, 7})
	_, prim, err := NormalizeIndices(raw, scene.IndexUint16, 8, scene.TopologyQuads)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prim.Triangles) != 0 {
		t.Errorf("expected empty triangle list, got %d", len(prim.Triangles))
	}
	if len(prim.Quads) != 8 {
		t.Errorf("expected 8 quad indices, got %d", len(prim.Quads))
	}
}

func TestOutOfRange(t *testing.T) {
	n, first := OutOfRange([]uint32{0, 1, 9, 2, 12}, 8)
	if n != 2 {
		t.Errorf("expected 2 out-of-range indices, got %d", n)
	}
	if first != 9 {
		t.Errorf("expected first offender 9, got %d", first)
	}
	if n, _ := OutOfRange([]uint32{0, 7}, 8); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestComputeBounds(t *testing.T) {
	b := ComputeBounds([]mgl32.Vec3{{-0.3, 0.4, 0.1}, {0.3, -0.4, -0.1}})
	if b.Min != (mgl32.Vec3{-0.3, -0.4, -0.1}) {
		t.Errorf("unexpected min: %v", b.Min)
	}
	if b.Max != (mgl32.Vec3{0.3, 0.4, 0.1}) {
		t.Errorf("unexpected max: %v", b.Max)
	}
	if (ComputeBounds(nil) != Bounds{}) {
		t.Error("expected zero bounds for no points")
	}
}
