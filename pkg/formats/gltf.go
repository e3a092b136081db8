package formats

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/meshbridge/internal/texture"
	"github.com/Faultbox/meshbridge/pkg/geometry"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

// glTF loading errors.
var (
	ErrNilGLTFDocument = errors.New("nil glTF document")
	ErrGLTFAccessor    = errors.New("invalid glTF accessor")
)

// glTF metallic and roughness factors default to 1.
const gltfDefaultFactor = 1.0

type gltfLoader struct {
	doc    *gltf.Document
	asset  *scene.Asset
	meshes map[int][]*scene.Mesh
	nodes  map[int]*scene.Node
	images map[int]*scene.Texture
}

// ParseGLTF converts a decoded glTF document into an asset. The node tree of
// the default scene becomes the asset's roots; primitives of a mesh that share
// the same vertex attributes become submeshes of one scene mesh.
func ParseGLTF(doc *gltf.Document) (*scene.Asset, error) {
	if doc == nil {
		return nil, ErrNilGLTFDocument
	}
	l := &gltfLoader{
		doc:    doc,
		asset:  &scene.Asset{},
		meshes: make(map[int][]*scene.Mesh),
		nodes:  make(map[int]*scene.Node),
		images: make(map[int]*scene.Texture),
	}

	for i, m := range doc.Materials {
		l.asset.AddMaterial(l.material(i, m))
	}

	roots, err := l.roots()
	if err != nil {
		return nil, err
	}
	l.asset.Roots = roots
	return l.asset, nil
}

// ParseGLTFData decodes a .gltf document with embedded buffers, or a .glb.
func ParseGLTFData(data []byte) (*scene.Asset, error) {
	doc := gltf.NewDocument()
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF: %w", err)
	}
	return ParseGLTF(doc)
}

// ParseGLTFFile opens a .gltf or .glb file, including external buffers.
func ParseGLTFFile(path string) (*scene.Asset, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF: %w", err)
	}
	asset, err := ParseGLTF(doc)
	if err != nil {
		return nil, err
	}
	asset.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return asset, nil
}

func (l *gltfLoader) roots() ([]scene.Object, error) {
	var out []scene.Object
	if sc := l.defaultScene(); sc != nil && len(sc.Nodes) > 0 {
		for _, i := range sc.Nodes {
			n, err := l.node(int(i))
			if err != nil {
				return nil, err
			}
			if n != nil {
				out = append(out, n)
			}
		}
		return out, nil
	}

	// No populated scene: every mesh is a root.
	for i := range l.doc.Meshes {
		ms, err := l.mesh(i)
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			out = append(out, m)
		}
	}
	return out, nil
}

func (l *gltfLoader) defaultScene() *gltf.Scene {
	if len(l.doc.Scenes) == 0 {
		return nil
	}
	if l.doc.Scene != nil && int(*l.doc.Scene) < len(l.doc.Scenes) {
		return l.doc.Scenes[int(*l.doc.Scene)]
	}
	return l.doc.Scenes[0]
}

// node converts glTF node i and its subtree. Nodes referenced from several
// parents map to one shared scene node.
func (l *gltfLoader) node(i int) (*scene.Node, error) {
	if i < 0 || i >= len(l.doc.Nodes) {
		return nil, nil
	}
	if n, ok := l.nodes[i]; ok {
		return n, nil
	}
	src := l.doc.Nodes[i]
	n := &scene.Node{Name: src.Name}
	l.nodes[i] = n

	if src.Mesh != nil {
		ms, err := l.mesh(int(*src.Mesh))
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			n.Nodes = append(n.Nodes, m)
		}
	}
	for _, c := range src.Children {
		child, err := l.node(int(c))
		if err != nil {
			return nil, err
		}
		if child != nil {
			n.Nodes = append(n.Nodes, child)
		}
	}
	return n, nil
}

// mesh converts glTF mesh i, grouping primitives by attribute set.
func (l *gltfLoader) mesh(i int) ([]*scene.Mesh, error) {
	if ms, ok := l.meshes[i]; ok {
		return ms, nil
	}
	if i < 0 || i >= len(l.doc.Meshes) {
		return nil, nil
	}
	src := l.doc.Meshes[i]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("mesh%d", i)
	}

	var (
		out   []*scene.Mesh
		byKey = make(map[string]*scene.Mesh)
	)
	for p, prim := range src.Primitives {
		key := attributeKey(prim)
		m, ok := byKey[key]
		if !ok {
			meshName := name
			if len(out) > 0 {
				meshName = fmt.Sprintf("%s.%d", name, len(out))
			}
			var err error
			m, err = l.vertexStreams(meshName, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", name, p, err)
			}
			byKey[key] = m
			out = append(out, m)
		}

		sub, err := l.submesh(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", name, p, err)
		}
		sub.Name = fmt.Sprintf("%s#%d", name, p)
		m.Submeshes = append(m.Submeshes, sub)
	}
	l.meshes[i] = out
	return out, nil
}

func attributeKey(prim *gltf.Primitive) string {
	keys := make([]string, 0, len(prim.Attributes))
	for name, idx := range prim.Attributes {
		keys = append(keys, fmt.Sprintf("%s=%d", name, idx))
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

// vertexStreams reads position, normal and texture coordinate accessors into
// one tightly packed buffer each.
func (l *gltfLoader) vertexStreams(name string, prim *gltf.Primitive) (*scene.Mesh, error) {
	m := &scene.Mesh{Name: name}

	if idx, ok := prim.Attributes[gltf.POSITION]; ok {
		acc, err := l.accessor(int(idx))
		if err != nil {
			return nil, err
		}
		pos, err := modeler.ReadPosition(l.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("reading positions: %w", err)
		}
		addVec3(m, scene.AttributePosition, pos)
	}
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		acc, err := l.accessor(int(idx))
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(l.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
		addVec3(m, scene.AttributeNormal, normals)
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		acc, err := l.accessor(int(idx))
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(l.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("reading texture coordinates: %w", err)
		}
		vs := make([]mgl32.Vec2, len(uvs))
		for i, uv := range uvs {
			vs[i] = mgl32.Vec2(uv)
		}
		m.Attributes = append(m.Attributes, scene.Attribute{Name: scene.AttributeTexCoord, BufferIndex: len(m.Buffers), Format: scene.FormatFloat2})
		m.Buffers = append(m.Buffers, scene.VertexBuffer{Data: geometry.PackVec2(vs, 8, 0), Stride: 8})
	}
	return m, nil
}

func addVec3(m *scene.Mesh, name string, data [][3]float32) {
	vs := make([]mgl32.Vec3, len(data))
	for i, v := range data {
		vs[i] = mgl32.Vec3(v)
	}
	m.Attributes = append(m.Attributes, scene.Attribute{Name: name, BufferIndex: len(m.Buffers), Format: scene.FormatFloat3})
	m.Buffers = append(m.Buffers, scene.VertexBuffer{Data: geometry.PackVec3(vs, 12, 0), Stride: 12})
}

func (l *gltfLoader) accessor(i int) (*gltf.Accessor, error) {
	if i < 0 || i >= len(l.doc.Accessors) {
		return nil, fmt.Errorf("%w: index %d", ErrGLTFAccessor, i)
	}
	return l.doc.Accessors[i], nil
}

// submesh reads the index list of prim. 8-bit indices are widened to 16 bits;
// non-indexed primitives get sequential indices over their vertices.
func (l *gltfLoader) submesh(prim *gltf.Primitive) (scene.Submesh, error) {
	sub := scene.Submesh{Topology: gltfTopology(prim.Mode)}
	if prim.Material != nil {
		sub.Material = scene.MaterialID(int(*prim.Material) + 1)
	}

	var (
		indices []uint32
		wide    bool
	)
	if prim.Indices != nil {
		acc, err := l.accessor(int(*prim.Indices))
		if err != nil {
			return sub, err
		}
		indices, err = modeler.ReadIndices(l.doc, acc, nil)
		if err != nil {
			return sub, fmt.Errorf("reading indices: %w", err)
		}
		wide = acc.ComponentType == gltf.ComponentUint
	} else if idx, ok := prim.Attributes[gltf.POSITION]; ok {
		acc, err := l.accessor(int(idx))
		if err != nil {
			return sub, err
		}
		indices = make([]uint32, acc.Count)
		for i := range indices {
			indices[i] = uint32(i)
		}
		wide = len(indices) > 0xFFFF
	}

	sub.IndexCount = len(indices)
	if wide {
		sub.IndexWidth = scene.IndexUint32
		sub.Indices = geometry.PackIndices32(indices)
	} else {
		sub.IndexWidth = scene.IndexUint16
		small := make([]uint16, len(indices))
		for i, v := range indices {
			small[i] = uint16(v)
		}
		sub.Indices = geometry.PackIndices16(small)
	}
	return sub, nil
}

func gltfTopology(mode gltf.PrimitiveMode) scene.Topology {
	switch mode {
	case gltf.PrimitiveTriangles:
		return scene.TopologyTriangles
	case gltf.PrimitiveTriangleStrip:
		return scene.TopologyTriangleStrips
	case gltf.PrimitiveLines:
		return scene.TopologyLines
	case gltf.PrimitivePoints:
		return scene.TopologyPoints
	default:
		return scene.TopologyUnknown
	}
}

// material maps a metallic-roughness material onto semantic properties.
// Texture properties carry the glTF factor as their constant.
func (l *gltfLoader) material(i int, src *gltf.Material) *scene.Material {
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("material%d", i)
	}
	m := scene.NewMaterial(name)

	tint := mgl32.Vec4{1, 1, 1, 1}
	metallic, roughness := float32(gltfDefaultFactor), float32(gltfDefaultFactor)
	var baseTex, mrTex *gltf.TextureInfo

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		bc := pbr.BaseColorFactorOrDefault()
		tint = mgl32.Vec4{float32(bc[0]), float32(bc[1]), float32(bc[2]), float32(bc[3])}
		metallic = float32(pbr.MetallicFactorOrDefault())
		roughness = float32(pbr.RoughnessFactorOrDefault())
		baseTex = pbr.BaseColorTexture
		mrTex = pbr.MetallicRoughnessTexture
	}

	m.Set(scene.SemanticBaseColor, l.withTexture(baseTex, scene.ColorProperty(tint[0], tint[1], tint[2], tint[3])))
	m.Set(scene.SemanticRoughness, l.withTexture(mrTex, scene.FloatProperty(roughness)))
	m.Set(scene.SemanticMetallic, l.withTexture(mrTex, scene.FloatProperty(metallic)))

	if nt := src.NormalTexture; nt != nil && nt.Index != nil {
		if p, ok := l.textureProperty(int(*nt.Index)); ok {
			m.Set(scene.SemanticTangentSpaceNormal, p)
		}
	}
	if ot := src.OcclusionTexture; ot != nil && ot.Index != nil {
		if p, ok := l.textureProperty(int(*ot.Index)); ok {
			m.Set(scene.SemanticAmbientOcclusion, p)
		}
	}
	if et := src.EmissiveTexture; et != nil {
		if p, ok := l.textureProperty(int(et.Index)); ok {
			m.Set(scene.SemanticEmission, p)
		}
	}
	return m
}

// withTexture attaches the texture of info to the constant property c.
func (l *gltfLoader) withTexture(info *gltf.TextureInfo, c scene.Property) scene.Property {
	if info == nil {
		return c
	}
	p, ok := l.textureProperty(int(info.Index))
	if !ok {
		return c
	}
	return p.WithValue(c.Value)
}

// textureProperty resolves texture i to a file reference, or to a decoded
// image for embedded data.
func (l *gltfLoader) textureProperty(i int) (scene.Property, bool) {
	if i < 0 || i >= len(l.doc.Textures) {
		return scene.Property{}, false
	}
	tex := l.doc.Textures[i]
	if tex.Source == nil {
		return scene.Property{}, false
	}
	imgIdx := int(*tex.Source)
	if imgIdx < 0 || imgIdx >= len(l.doc.Images) {
		return scene.Property{}, false
	}
	img := l.doc.Images[imgIdx]

	if img.URI != "" && !img.IsEmbeddedResource() {
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			uri = img.URI
		}
		return scene.FileProperty(uri), true
	}

	t, ok := l.images[imgIdx]
	if !ok {
		decoded, err := l.decodeImage(img)
		if err != nil {
			return scene.Property{}, false
		}
		t = &scene.Texture{Name: img.Name, Image: decoded}
		l.images[imgIdx] = t
	}
	return scene.SamplerProperty(&scene.TextureSampler{Texture: t}), true
}

func (l *gltfLoader) decodeImage(img *gltf.Image) (image.Image, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case img.BufferView != nil:
		bv := int(*img.BufferView)
		if bv < 0 || bv >= len(l.doc.BufferViews) {
			return nil, fmt.Errorf("image %q: buffer view %d out of range", img.Name, bv)
		}
		data, err = modeler.ReadBufferView(l.doc, l.doc.BufferViews[bv])
	default:
		data, err = img.MarshalData()
	}
	if err != nil {
		return nil, err
	}
	decoded, _, err := texture.Decode(data, mimeExt(img.MimeType))
	return decoded, err
}

func mimeExt(mime string) string {
	if i := strings.LastIndexByte(mime, '/'); i >= 0 {
		return mime[i+1:]
	}
	return ""
}
