package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbridge/pkg/encoding"
	"github.com/Faultbox/meshbridge/pkg/geometry"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

// OBJ format errors.
var (
	ErrMalformedOBJ  = errors.New("malformed OBJ data")
	ErrOBJIndexRange = errors.New("OBJ index out of range")
)

// OBJ vertex layout: one interleaved buffer per mesh.
const (
	objStride       = 32
	objNormalOffset = 12
	objUVOffset     = 24
)

// OBJ is a parsed Wavefront OBJ file.
type OBJ struct {
	Asset *scene.Asset

	MaterialLibs     []string // mtllib references in file order
	MissingMaterials []string // usemtl names no library defines

	PositionCount int
	TexCoordCount int
	NormalCount   int
	FaceCount     int
	SkippedFaces  int // faces with fewer than three corners
}

// MaterialSource returns the contents of a referenced material library.
type MaterialSource func(name string) ([]byte, error)

// objCorner indexes position, texture coordinate and normal (-1 when absent).
type objCorner [3]int

type objGroup struct {
	name     string
	material string
	faces    [][]objCorner
	lines    [][]objCorner
	points   []objCorner
}

type objObject struct {
	name   string
	groups []*objGroup
}

type objParser struct {
	text      encoding.Text
	positions []mgl32.Vec3
	texCoords []mgl32.Vec2
	normals   []mgl32.Vec3
	objects   []*objObject
	group     string
	material  string
	result    *OBJ
}

// ParseOBJ parses a Wavefront OBJ file into an asset. Each "o" statement
// starts a mesh; each group or material change within it starts a submesh.
// Faces that are all quads stay quads, other polygons are fan-triangulated.
// Material libraries are read through libs, which may be nil.
func ParseOBJ(data []byte, text encoding.Text, libs MaterialSource) (*OBJ, error) {
	p := &objParser{text: text, result: &OBJ{}}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, args := splitStatement(scanner.Text())
		if key == "" {
			continue
		}
		if err := p.statement(key, args); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	lib := &MaterialLibrary{}
	if libs != nil {
		for _, name := range p.result.MaterialLibs {
			data, err := libs(name)
			if err != nil {
				continue
			}
			parsed, err := ParseMTL(data, text)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			lib.Merge(parsed)
		}
	}

	p.result.PositionCount = len(p.positions)
	p.result.TexCoordCount = len(p.texCoords)
	p.result.NormalCount = len(p.normals)
	p.result.Asset = p.build(lib)
	return p.result, nil
}

// ParseOBJFile parses an OBJ file, reading material libraries next to it.
// Missing libraries are skipped.
func ParseOBJFile(path string, text encoding.Text) (*OBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	dir := filepath.Dir(path)
	obj, err := ParseOBJ(data, text, func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	})
	if err != nil {
		return nil, err
	}
	if obj.Asset.Name == "" {
		obj.Asset.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return obj, nil
}

func (p *objParser) statement(key string, args []string) error {
	switch key {
	case "v":
		v, err := parseVec(args, 3)
		if err != nil {
			return err
		}
		p.positions = append(p.positions, mgl32.Vec3{v[0], v[1], v[2]})
	case "vt":
		v, err := parseVec(args, 1)
		if err != nil {
			return err
		}
		p.texCoords = append(p.texCoords, mgl32.Vec2{v[0], v[1]})
	case "vn":
		v, err := parseVec(args, 3)
		if err != nil {
			return err
		}
		p.normals = append(p.normals, mgl32.Vec3{v[0], v[1], v[2]})
	case "f":
		corners, err := p.corners(args)
		if err != nil {
			return err
		}
		p.result.FaceCount++
		if len(corners) < 3 {
			p.result.SkippedFaces++
			return nil
		}
		g := p.current()
		g.faces = append(g.faces, corners)
	case "l":
		corners, err := p.corners(args)
		if err != nil {
			return err
		}
		if len(corners) >= 2 {
			g := p.current()
			g.lines = append(g.lines, corners)
		}
	case "p":
		corners, err := p.corners(args)
		if err != nil {
			return err
		}
		g := p.current()
		g.points = append(g.points, corners...)
	case "o":
		p.objects = append(p.objects, &objObject{name: p.text.DecodeString(strings.Join(args, " "))})
	case "g":
		p.group = p.text.DecodeString(strings.Join(args, " "))
	case "usemtl":
		p.material = p.text.DecodeString(strings.Join(args, " "))
	case "mtllib":
		if len(args) > 0 {
			p.result.MaterialLibs = append(p.result.MaterialLibs, strings.Join(args, " "))
		}
	}
	return nil
}

// current returns the group receiving elements, starting a new one when
// the group name or material changed.
func (p *objParser) current() *objGroup {
	if len(p.objects) == 0 {
		p.objects = append(p.objects, &objObject{})
	}
	obj := p.objects[len(p.objects)-1]
	if n := len(obj.groups); n > 0 {
		g := obj.groups[n-1]
		if g.name == p.group && g.material == p.material {
			return g
		}
	}
	g := &objGroup{name: p.group, material: p.material}
	obj.groups = append(obj.groups, g)
	return g
}

// corners parses "v", "v/vt", "v//vn" and "v/vt/vn" references, resolving
// negative indices relative to the current end of each list.
func (p *objParser) corners(args []string) ([]objCorner, error) {
	out := make([]objCorner, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, "/")
		if len(parts) > 3 {
			return nil, fmt.Errorf("%w: vertex reference %q", ErrMalformedOBJ, arg)
		}
		c := objCorner{-1, -1, -1}
		counts := [3]int{len(p.positions), len(p.texCoords), len(p.normals)}
		for i, s := range parts {
			if s == "" {
				if i == 0 {
					return nil, fmt.Errorf("%w: vertex reference %q", ErrMalformedOBJ, arg)
				}
				continue
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%w: vertex reference %q", ErrMalformedOBJ, arg)
			}
			idx, ok := resolveOBJIndex(n, counts[i])
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrOBJIndexRange, arg)
			}
			c[i] = idx
		}
		out = append(out, c)
	}
	return out, nil
}

func resolveOBJIndex(n, count int) (int, bool) {
	switch {
	case n > 0 && n <= count:
		return n - 1, true
	case n < 0 && -n <= count:
		return count + n, true
	default:
		return 0, false
	}
}

// build turns parsed objects into scene meshes under one root node.
func (p *objParser) build(lib *MaterialLibrary) *scene.Asset {
	asset := &scene.Asset{}
	ids := make(map[string]scene.MaterialID)
	missing := make(map[string]bool)

	materialID := func(name string) scene.MaterialID {
		if name == "" {
			return scene.NoMaterial
		}
		if id, ok := ids[name]; ok {
			return id
		}
		m, ok := lib.Lookup(name)
		if !ok {
			if !missing[name] {
				missing[name] = true
				p.result.MissingMaterials = append(p.result.MissingMaterials, name)
			}
			return scene.NoMaterial
		}
		id := asset.AddMaterial(m)
		ids[name] = id
		return id
	}

	for i, obj := range p.objects {
		if len(obj.groups) == 0 {
			continue
		}
		name := obj.name
		if name == "" {
			name = fmt.Sprintf("object%d", i)
		}
		asset.Roots = append(asset.Roots, p.buildMesh(name, obj.groups, materialID))
	}
	return asset
}

type objMeshBuilder struct {
	p        *objParser
	lookup   map[objCorner]uint32
	vertices []objCorner
	hasUV    bool
	hasNorm  bool
}

func (b *objMeshBuilder) index(c objCorner) uint32 {
	if i, ok := b.lookup[c]; ok {
		return i
	}
	i := uint32(len(b.vertices))
	b.lookup[c] = i
	b.vertices = append(b.vertices, c)
	if c[1] >= 0 {
		b.hasUV = true
	}
	if c[2] >= 0 {
		b.hasNorm = true
	}
	return i
}

type objSubmesh struct {
	name     string
	indices  []uint32
	topology scene.Topology
	material scene.MaterialID
}

func (p *objParser) buildMesh(name string, groups []*objGroup, materialID func(string) scene.MaterialID) *scene.Mesh {
	b := &objMeshBuilder{p: p, lookup: make(map[objCorner]uint32)}
	var subs []objSubmesh

	for _, g := range groups {
		mat := materialID(g.material)
		if len(g.faces) > 0 {
			subs = append(subs, b.faceSubmesh(g, mat))
		}
		if len(g.lines) > 0 {
			var idx []uint32
			for _, line := range g.lines {
				for i := 0; i+1 < len(line); i++ {
					idx = append(idx, b.index(line[i]), b.index(line[i+1]))
				}
			}
			subs = append(subs, objSubmesh{name: g.name, indices: idx, topology: scene.TopologyLines, material: mat})
		}
		if len(g.points) > 0 {
			var idx []uint32
			for _, c := range g.points {
				idx = append(idx, b.index(c))
			}
			subs = append(subs, objSubmesh{name: g.name, indices: idx, topology: scene.TopologyPoints, material: mat})
		}
	}

	mesh := &scene.Mesh{Name: name}
	mesh.Buffers = []scene.VertexBuffer{{Data: b.interleave(), Stride: objStride}}
	mesh.Attributes = []scene.Attribute{{Name: scene.AttributePosition, Format: scene.FormatFloat3}}
	if b.hasNorm {
		mesh.Attributes = append(mesh.Attributes, scene.Attribute{Name: scene.AttributeNormal, Offset: objNormalOffset, Format: scene.FormatFloat3})
	}
	if b.hasUV {
		mesh.Attributes = append(mesh.Attributes, scene.Attribute{Name: scene.AttributeTexCoord, Offset: objUVOffset, Format: scene.FormatFloat2})
	}

	width := scene.IndexUint16
	if len(b.vertices) > 0xFFFF {
		width = scene.IndexUint32
	}
	for _, s := range subs {
		sub := scene.Submesh{
			Name:       s.name,
			IndexWidth: width,
			IndexCount: len(s.indices),
			Topology:   s.topology,
			Material:   s.material,
		}
		if width == scene.IndexUint16 {
			small := make([]uint16, len(s.indices))
			for i, v := range s.indices {
				small[i] = uint16(v)
			}
			sub.Indices = geometry.PackIndices16(small)
		} else {
			sub.Indices = geometry.PackIndices32(s.indices)
		}
		mesh.Submeshes = append(mesh.Submeshes, sub)
	}
	return mesh
}

func (b *objMeshBuilder) faceSubmesh(g *objGroup, mat scene.MaterialID) objSubmesh {
	quads := true
	for _, f := range g.faces {
		if len(f) != 4 {
			quads = false
			break
		}
	}

	s := objSubmesh{name: g.name, material: mat, topology: scene.TopologyTriangles}
	if quads {
		s.topology = scene.TopologyQuads
		for _, f := range g.faces {
			for _, c := range f {
				s.indices = append(s.indices, b.index(c))
			}
		}
		return s
	}

	for _, f := range g.faces {
		first := b.index(f[0])
		for i := 1; i+1 < len(f); i++ {
			s.indices = append(s.indices, first, b.index(f[i]), b.index(f[i+1]))
		}
	}
	return s
}

// interleave writes position, normal and texture coordinate per vertex.
// Missing components are zero.
func (b *objMeshBuilder) interleave() []byte {
	buf := make([]byte, len(b.vertices)*objStride)
	put := func(at int, v float32) {
		binary.LittleEndian.PutUint32(buf[at:], math.Float32bits(v))
	}
	for i, c := range b.vertices {
		base := i * objStride
		pos := b.p.positions[c[0]]
		for k := 0; k < 3; k++ {
			put(base+k*4, pos[k])
		}
		if c[2] >= 0 {
			n := b.p.normals[c[2]]
			for k := 0; k < 3; k++ {
				put(base+objNormalOffset+k*4, n[k])
			}
		}
		if c[1] >= 0 {
			uv := b.p.texCoords[c[1]]
			put(base+objUVOffset, uv[0])
			put(base+objUVOffset+4, uv[1])
		}
	}
	return buf
}

// parseVec reads at least min floats (up to 3); missing trailing components are zero.
func parseVec(args []string, min int) ([3]float32, error) {
	var v [3]float32
	if len(args) < min {
		return v, fmt.Errorf("%w: expected %d components, got %d", ErrMalformedOBJ, min, len(args))
	}
	for i := 0; i < 3 && i < len(args); i++ {
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return v, fmt.Errorf("%w: %v", ErrMalformedOBJ, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}
