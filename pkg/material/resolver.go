package material

import (
	"context"
	"errors"
	"image"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/meshbridge/pkg/scene"
)

// ErrNoTexture means neither a file reference nor a decoded image produced a texture.
var ErrNoTexture = errors.New("no texture source")

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// WithTextureTimeout bounds every single texture load. Zero disables the bound.
func WithTextureTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithRoughnessPolicy selects the roughness source precedence.
func WithRoughnessPolicy(p RoughnessPolicy) Option {
	return func(r *Resolver) {
		r.policy = p
	}
}

// Resolver applies the per-channel fallback policy to scene materials.
// It holds no mutable state and may be shared between goroutines.
type Resolver struct {
	loader  ResourceLoader
	log     *zap.Logger
	timeout time.Duration
	policy  RoughnessPolicy
}

// NewResolver creates a resolver. A nil loader disables textures: every
// channel degrades to its constant tier.
func NewResolver(loader ResourceLoader, opts ...Option) *Resolver {
	r := &Resolver{
		loader: loader,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the configured roughness policy.
func (r *Resolver) Policy() RoughnessPolicy {
	return r.policy
}

// Texture loads a texture for prop: the file reference first, then the
// decoded image from the sampler chain. Failures of both tiers are combined
// into the returned error.
func (r *Resolver) Texture(ctx context.Context, prop scene.Property, semantic TextureSemantic) (TextureHandle, error) {
	if r.loader == nil {
		return nil, ErrNoTexture
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs error
	if url, ok := prop.FileURL(); ok {
		tex, err := r.loadFile(ctx, url, semantic)
		if err == nil && tex != nil {
			return tex, nil
		}
		if err == nil {
			err = ErrNoTexture
		}
		errs = multierr.Append(errs, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	if img, ok := prop.Image(); ok {
		tex, err := r.loadImage(ctx, img, semantic)
		if err == nil && tex != nil {
			return tex, nil
		}
		if err == nil {
			err = ErrNoTexture
		}
		errs = multierr.Append(errs, err)
	}

	if errs == nil {
		return nil, ErrNoTexture
	}
	return nil, errs
}

func (r *Resolver) loadFile(ctx context.Context, url string, semantic TextureSemantic) (TextureHandle, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.loader.LoadTextureFile(ctx, url, semantic)
}

func (r *Resolver) loadImage(ctx context.Context, img image.Image, semantic TextureSemantic) (TextureHandle, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.loader.LoadTextureImage(ctx, img, semantic)
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// channelTexture looks up sem on m and tries to load it as a texture.
func (r *Resolver) channelTexture(ctx context.Context, m *scene.Material, sem scene.Semantic, semantic TextureSemantic) TextureHandle {
	prop, ok := m.Property(sem)
	if !ok {
		return nil
	}
	_, hasURL := prop.FileURL()
	_, hasImage := prop.Image()
	if !hasURL && !hasImage {
		return nil
	}

	tex, err := r.Texture(ctx, prop, semantic)
	if err != nil {
		r.log.Debug("texture unavailable, falling back",
			zap.String("material", m.Name),
			zap.String("channel", string(sem)),
			zap.Error(err))
		return nil
	}
	return tex
}

func scalar(m *scene.Material, sem scene.Semantic) (float32, bool) {
	prop, ok := m.Property(sem)
	if !ok {
		return 0, false
	}
	return prop.Float()
}

// BaseColor resolves the base color: texture, then constant tint, else nil.
func (r *Resolver) BaseColor(ctx context.Context, m *scene.Material) *BaseColor {
	if tex := r.channelTexture(ctx, m, scene.SemanticBaseColor, SemanticColor); tex != nil {
		return &BaseColor{Texture: tex}
	}
	if prop, ok := m.Property(scene.SemanticBaseColor); ok {
		if v, ok := prop.Float4(); ok {
			return &BaseColor{Tint: v}
		}
	}
	return nil
}

// Normal resolves the tangent-space normal map. There is no constant fallback.
func (r *Resolver) Normal(ctx context.Context, m *scene.Material) *Normal {
	if tex := r.channelTexture(ctx, m, scene.SemanticTangentSpaceNormal, SemanticNormal); tex != nil {
		return &Normal{Texture: tex}
	}
	return nil
}

// Roughness resolves roughness from the roughness and specular exponent
// channels using the configured policy. Specular exponents are converted
// with SpecularToRoughness.
func (r *Resolver) Roughness(ctx context.Context, m *scene.Material) *Scalar {
	roughTex := func() *Scalar {
		if tex := r.channelTexture(ctx, m, scene.SemanticRoughness, SemanticRaw); tex != nil {
			return &Scalar{Texture: tex, Origin: scene.SemanticRoughness}
		}
		return nil
	}
	specTex := func() *Scalar {
		if tex := r.channelTexture(ctx, m, scene.SemanticSpecularExponent, SemanticRaw); tex != nil {
			return &Scalar{Texture: tex, Origin: scene.SemanticSpecularExponent}
		}
		return nil
	}
	specValue := func() *Scalar {
		if e, ok := scalar(m, scene.SemanticSpecularExponent); ok {
			return &Scalar{Value: SpecularToRoughness(e), Origin: scene.SemanticSpecularExponent}
		}
		return nil
	}
	roughValue := func() *Scalar {
		if v, ok := scalar(m, scene.SemanticRoughness); ok {
			return &Scalar{Value: v, Origin: scene.SemanticRoughness}
		}
		return nil
	}

	order := []func() *Scalar{roughTex, specTex, specValue, roughValue}
	if r.policy == ScalarFirst {
		order = []func() *Scalar{specValue, roughTex, roughValue}
	}
	for _, tier := range order {
		if s := tier(); s != nil {
			return s
		}
	}
	return nil
}

// Metallic resolves metallic: texture, then constant, else nil.
func (r *Resolver) Metallic(ctx context.Context, m *scene.Material) *Scalar {
	if tex := r.channelTexture(ctx, m, scene.SemanticMetallic, SemanticRaw); tex != nil {
		return &Scalar{Texture: tex, Origin: scene.SemanticMetallic}
	}
	if v, ok := scalar(m, scene.SemanticMetallic); ok {
		return &Scalar{Value: v, Origin: scene.SemanticMetallic}
	}
	return nil
}

// ResolveChannel resolves one channel of m into dst. Only the field that
// belongs to ch is written.
func (r *Resolver) ResolveChannel(ctx context.Context, m *scene.Material, ch Channel, dst *ShadingDescriptor) {
	switch ch {
	case ChannelBaseColor:
		dst.BaseColor = r.BaseColor(ctx, m)
	case ChannelNormal:
		dst.Normal = r.Normal(ctx, m)
	case ChannelRoughness:
		dst.Roughness = r.Roughness(ctx, m)
	case ChannelMetallic:
		dst.Metallic = r.Metallic(ctx, m)
	}
}

// Resolve builds the shading descriptor for m, resolving the four channels
// concurrently. If ctx is cancelled before every channel finished, Resolve
// returns the context error and no descriptor.
func (r *Resolver) Resolve(ctx context.Context, m *scene.Material) (*ShadingDescriptor, error) {
	if m == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	draft := &ShadingDescriptor{Material: m.Name}
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range Channels {
		g.Go(func() error {
			r.ResolveChannel(gctx, m, ch, draft)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return draft, nil
}
