package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/meshbridge/internal/texture"
	"github.com/Faultbox/meshbridge/pkg/material"
)

// ErrNilImage is returned when an in-memory texture has no pixels.
var ErrNilImage = errors.New("nil image")

// Texture is a decoded texture handed to the renderer.
type Texture struct {
	source   string
	semantic material.TextureSemantic
	image    *image.NRGBA
}

// Source returns the file URL or image name the texture was loaded from.
func (t *Texture) Source() string { return t.source }

// Semantic returns how the texels are interpreted.
func (t *Texture) Semantic() material.TextureSemantic { return t.semantic }

// Image returns the decoded pixels.
func (t *Texture) Image() *image.NRGBA { return t.image }

// textureKey identifies a file texture by url or an embedded texture by
// image identity.
type textureKey struct {
	url      string
	img      image.Image
	semantic material.TextureSemantic
}

// TextureLoader decodes texture files found through a Manager. It implements
// material.ResourceLoader and is safe for concurrent use.
type TextureLoader struct {
	files    *Manager
	log      *zap.Logger
	colorKey bool

	mu       sync.RWMutex
	textures map[textureKey]*Texture // nil when caching is disabled
}

// LoaderOption configures a TextureLoader.
type LoaderOption func(*TextureLoader)

// WithLogger sets the logger used for load failures.
func WithLogger(log *zap.Logger) LoaderOption {
	return func(l *TextureLoader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithColorKey makes magenta texels transparent in color textures.
func WithColorKey(enabled bool) LoaderOption {
	return func(l *TextureLoader) { l.colorKey = enabled }
}

// WithTextureCache keeps decoded textures for reuse across materials.
func WithTextureCache(enabled bool) LoaderOption {
	return func(l *TextureLoader) {
		if enabled {
			l.textures = make(map[textureKey]*Texture)
		} else {
			l.textures = nil
		}
	}
}

// NewTextureLoader creates a loader reading from files.
func NewTextureLoader(files *Manager, opts ...LoaderOption) *TextureLoader {
	l := &TextureLoader{
		files:    files,
		log:      zap.NewNop(),
		textures: make(map[textureKey]*Texture),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadTextureFile reads and decodes url. The read runs in the background so
// a cancelled or expired ctx returns immediately.
func (l *TextureLoader) LoadTextureFile(ctx context.Context, url string, semantic material.TextureSemantic) (material.TextureHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := textureKey{url: url, semantic: semantic}
	if tex, ok := l.cached(key); ok {
		return tex, nil
	}

	type result struct {
		tex *Texture
		err error
	}
	done := make(chan result, 1)
	go func() {
		tex, err := l.decodeFile(url, semantic)
		done <- result{tex, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			l.log.Debug("texture load failed", zap.String("url", url), zap.Error(r.err))
			return nil, r.err
		}
		return l.store(key, r.tex), nil
	}
}

// LoadTextureImage wraps an already decoded image.
func (l *TextureLoader) LoadTextureImage(ctx context.Context, img image.Image, semantic material.TextureSemantic) (material.TextureHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, ErrNilImage
	}
	// Only pointer images are safe map keys.
	cacheable := reflect.ValueOf(img).Kind() == reflect.Pointer
	key := textureKey{img: img, semantic: semantic}
	if cacheable {
		if tex, ok := l.cached(key); ok {
			return tex, nil
		}
	}
	tex := &Texture{
		source:   "embedded",
		semantic: semantic,
		image:    texture.ToNRGBA(img, l.colorKey && semantic == material.SemanticColor),
	}
	if cacheable {
		return l.store(key, tex), nil
	}
	return tex, nil
}

// Loaded returns the cached textures.
func (l *TextureLoader) Loaded() []*Texture {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Texture, 0, len(l.textures))
	for _, t := range l.textures {
		out = append(out, t)
	}
	return out
}

func (l *TextureLoader) cached(key textureKey) (*Texture, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.textures == nil {
		return nil, false
	}
	tex, ok := l.textures[key]
	return tex, ok
}

// store caches tex unless another goroutine stored the same key first, in
// which case the earlier texture wins.
func (l *TextureLoader) store(key textureKey, tex *Texture) *Texture {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.textures == nil {
		return tex
	}
	if existing, ok := l.textures[key]; ok {
		return existing
	}
	l.textures[key] = tex
	return tex
}

func (l *TextureLoader) decodeFile(url string, semantic material.TextureSemantic) (*Texture, error) {
	data, err := l.read(url)
	if err != nil {
		return nil, err
	}
	img, _, err := texture.Decode(data, path.Ext(url))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	return &Texture{
		source:   url,
		semantic: semantic,
		image:    texture.ToNRGBA(img, l.colorKey && semantic == material.SemanticColor),
	}, nil
}

// read resolves url through the sources, then as an absolute file path,
// then by base name for textures authored with foreign absolute paths.
func (l *TextureLoader) read(url string) ([]byte, error) {
	data, err := l.files.Load(url)
	if err == nil {
		return data, nil
	}
	if filepath.IsAbs(url) {
		if data, ferr := os.ReadFile(url); ferr == nil {
			return data, nil
		}
	}
	base := path.Base(strings.ReplaceAll(url, "\\", "/"))
	if base != url && base != "." && base != "/" {
		if data, berr := l.files.Load(base); berr == nil {
			return data, nil
		}
	}
	return nil, err
}
