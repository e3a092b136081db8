package scene

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Semantic names a material channel.
type Semantic string

// Material channel semantics.
const (
	SemanticBaseColor          Semantic = "baseColor"
	SemanticTangentSpaceNormal Semantic = "tangentSpaceNormal"
	SemanticObjectSpaceNormal  Semantic = "objectSpaceNormal"
	SemanticRoughness          Semantic = "roughness"
	SemanticMetallic           Semantic = "metallic"
	SemanticSpecular           Semantic = "specular"
	SemanticSpecularExponent   Semantic = "specularExponent"
	SemanticSpecularTint       Semantic = "specularTint"
	SemanticEmission           Semantic = "emission"
	SemanticOpacity            Semantic = "opacity"
	SemanticAmbientOcclusion   Semantic = "ambientOcclusion"
	SemanticBump               Semantic = "bump"
	SemanticDisplacement       Semantic = "displacement"
	SemanticClearcoat          Semantic = "clearcoat"
	SemanticSheen              Semantic = "sheen"
	SemanticSubsurface         Semantic = "subsurface"
	SemanticAnisotropic        Semantic = "anisotropic"
	SemanticUserDefined        Semantic = "userDefined"
)

// AllSemantics lists every known semantic.
var AllSemantics = []Semantic{
	SemanticAmbientOcclusion,
	SemanticAnisotropic,
	SemanticBaseColor,
	SemanticBump,
	SemanticClearcoat,
	SemanticDisplacement,
	SemanticEmission,
	SemanticMetallic,
	SemanticObjectSpaceNormal,
	SemanticOpacity,
	SemanticRoughness,
	SemanticSheen,
	SemanticSpecular,
	SemanticSpecularExponent,
	SemanticSpecularTint,
	SemanticSubsurface,
	SemanticTangentSpaceNormal,
	SemanticUserDefined,
}

// Texture is an image already decoded by the asset loader.
type Texture struct {
	Name  string
	Image image.Image
}

// TextureSampler points at an encoded image file and, when the loader
// managed to decode it, the in-memory texture.
type TextureSampler struct {
	URL     string
	Texture *Texture
}

// Property is the value of one material channel. Any combination of the
// file reference, sampler and constant may be present.
type Property struct {
	URL      string
	Sampler  *TextureSampler
	Value    mgl32.Vec4
	HasValue bool
}

// FloatProperty returns a scalar constant property.
// The scalar is replicated into RGB with alpha 1.
func FloatProperty(v float32) Property {
	return Property{Value: mgl32.Vec4{v, v, v, 1}, HasValue: true}
}

// ColorProperty returns a 4-component constant property.
func ColorProperty(r, g, b, a float32) Property {
	return Property{Value: mgl32.Vec4{r, g, b, a}, HasValue: true}
}

// FileProperty returns a property that references an image file.
func FileProperty(url string) Property {
	return Property{URL: url}
}

// SamplerProperty returns a property backed by a texture sampler.
func SamplerProperty(s *TextureSampler) Property {
	return Property{Sampler: s}
}

// WithValue returns a copy of p that also carries the constant v.
func (p Property) WithValue(v mgl32.Vec4) Property {
	p.Value = v
	p.HasValue = true
	return p
}

// FileURL returns the directly referenced file, falling back to the sampler's URL.
func (p Property) FileURL() (string, bool) {
	if p.URL != "" {
		return p.URL, true
	}
	if p.Sampler != nil && p.Sampler.URL != "" {
		return p.Sampler.URL, true
	}
	return "", false
}

// Image returns the decoded image reachable through the sampler chain.
func (p Property) Image() (image.Image, bool) {
	if p.Sampler == nil || p.Sampler.Texture == nil || p.Sampler.Texture.Image == nil {
		return nil, false
	}
	return p.Sampler.Texture.Image, true
}

// Float4 returns the constant vector.
func (p Property) Float4() (mgl32.Vec4, bool) {
	return p.Value, p.HasValue
}

// Float returns the constant scalar packed in the first component.
func (p Property) Float() (float32, bool) {
	return p.Value[0], p.HasValue
}

// IsEmpty reports whether the property carries nothing at all.
func (p Property) IsEmpty() bool {
	_, hasURL := p.FileURL()
	_, hasImage := p.Image()
	return !hasURL && !hasImage && !p.HasValue
}

// Material maps semantics to properties.
type Material struct {
	Name       string
	Properties map[Semantic]Property
}

// NewMaterial creates an empty material.
func NewMaterial(name string) *Material {
	return &Material{Name: name, Properties: make(map[Semantic]Property)}
}

// Set stores p under sem.
func (m *Material) Set(sem Semantic, p Property) {
	if m.Properties == nil {
		m.Properties = make(map[Semantic]Property)
	}
	m.Properties[sem] = p
}

// Property looks up a channel. Empty properties count as absent.
func (m *Material) Property(sem Semantic) (Property, bool) {
	if m == nil {
		return Property{}, false
	}
	p, ok := m.Properties[sem]
	if !ok || p.IsEmpty() {
		return Property{}, false
	}
	return p, true
}

// FileSemantics returns the semantics whose property references a file, in AllSemantics order.
func (m *Material) FileSemantics() []Semantic {
	var out []Semantic
	for _, sem := range AllSemantics {
		if p, ok := m.Property(sem); ok {
			if _, hasURL := p.FileURL(); hasURL {
				out = append(out, sem)
			}
		}
	}
	return out
}
