// Package material resolves scene materials into physically based shading
// descriptors.
package material

import (
	"context"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbridge/pkg/scene"
)

// TextureSemantic tells the resource loader how texels are interpreted.
type TextureSemantic int

const (
	SemanticColor  TextureSemantic = iota // sRGB color data
	SemanticNormal                        // Tangent-space normal map
	SemanticRaw                           // Linear scalar data (roughness, metallic)
)

// String returns the semantic name.
func (s TextureSemantic) String() string {
	switch s {
	case SemanticColor:
		return "color"
	case SemanticNormal:
		return "normal"
	case SemanticRaw:
		return "raw"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// TextureHandle is an opaque texture reference produced by a ResourceLoader.
type TextureHandle interface {
	// Source identifies where the texture came from (file URL or image name).
	Source() string
	Semantic() TextureSemantic
}

// ResourceLoader turns texture references into renderer textures.
// Implementations must be safe for concurrent use.
type ResourceLoader interface {
	LoadTextureFile(ctx context.Context, url string, semantic TextureSemantic) (TextureHandle, error)
	LoadTextureImage(ctx context.Context, img image.Image, semantic TextureSemantic) (TextureHandle, error)
}

// Channel identifies one of the resolved shading channels.
type Channel int

const (
	ChannelBaseColor Channel = iota
	ChannelNormal
	ChannelRoughness
	ChannelMetallic
)

// Channels lists every shading channel in resolution order.
var Channels = []Channel{ChannelBaseColor, ChannelNormal, ChannelRoughness, ChannelMetallic}

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelBaseColor:
		return "baseColor"
	case ChannelNormal:
		return "normal"
	case ChannelRoughness:
		return "roughness"
	case ChannelMetallic:
		return "metallic"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// BaseColor is either texture-backed or a constant tint.
type BaseColor struct {
	Texture TextureHandle
	Tint    mgl32.Vec4
}

// IsTexture reports whether the base color is texture-backed.
func (b *BaseColor) IsTexture() bool {
	return b != nil && b.Texture != nil
}

// Normal is always texture-backed.
type Normal struct {
	Texture TextureHandle
}

// Scalar is either texture-backed or a constant value.
// Origin names the material channel that supplied it.
type Scalar struct {
	Texture TextureHandle
	Value   float32
	Origin  scene.Semantic
}

// IsTexture reports whether the scalar is texture-backed.
func (s *Scalar) IsTexture() bool {
	return s != nil && s.Texture != nil
}

// ShadingDescriptor holds the resolved channels for one material.
// A nil channel is absent and the renderer keeps its default.
type ShadingDescriptor struct {
	Material  string
	BaseColor *BaseColor
	Normal    *Normal
	Roughness *Scalar
	Metallic  *Scalar
}

// Empty reports whether no channel resolved.
func (d *ShadingDescriptor) Empty() bool {
	return d.BaseColor == nil && d.Normal == nil && d.Roughness == nil && d.Metallic == nil
}

// RoughnessPolicy selects the precedence between roughness and specular exponent sources.
type RoughnessPolicy int

const (
	// TextureFirst: roughness texture > specular exponent texture >
	// specular exponent scalar > roughness scalar.
	TextureFirst RoughnessPolicy = iota
	// ScalarFirst: specular exponent scalar > roughness texture >
	// roughness scalar. Specular exponent textures are ignored.
	ScalarFirst
)

// String returns the policy name used in configuration files.
func (p RoughnessPolicy) String() string {
	switch p {
	case TextureFirst:
		return "texture_first"
	case ScalarFirst:
		return "scalar_first"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// ParseRoughnessPolicy parses a configuration value. Empty means TextureFirst.
func ParseRoughnessPolicy(s string) (RoughnessPolicy, error) {
	switch s {
	case "", "texture_first":
		return TextureFirst, nil
	case "scalar_first":
		return ScalarFirst, nil
	default:
		return TextureFirst, fmt.Errorf("unknown roughness policy %q", s)
	}
}
