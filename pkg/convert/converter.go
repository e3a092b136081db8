package convert

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/meshbridge/pkg/material"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

// ErrNilAsset is returned when Convert is called without an asset.
var ErrNilAsset = errors.New("nil asset")

// Options configures a Converter.
type Options struct {
	// Workers bounds concurrent mesh and submesh jobs. Zero means runtime.NumCPU().
	Workers int
	// MemoizeMaterials resolves a material shared by several submeshes once per conversion.
	MemoizeMaterials bool
	// ValidateIndices reports indices that address missing vertices.
	ValidateIndices bool
	// Logger receives diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		Workers:          runtime.NumCPU(),
		MemoizeMaterials: true,
		ValidateIndices:  true,
	}
}

// Converter turns assets into drawables and shading descriptors.
type Converter struct {
	resolver *material.Resolver
	opts     Options
	log      *zap.Logger
}

// New creates a converter that resolves materials with resolver.
// A nil resolver converts geometry only and leaves shading empty.
func New(resolver *material.Resolver, opts Options) *Converter {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{resolver: resolver, opts: opts, log: log}
}

// job is one submesh to assemble.
type job struct {
	mesh int
	sub  int
}

// Convert converts every mesh reachable from asset. Output order follows the
// depth-first mesh order and submesh declaration order. Unsupported or
// malformed input only degrades the affected submesh; the returned error is
// non-nil only for a nil asset or a cancelled context, in which case no
// partial result is returned.
func (c *Converter) Convert(ctx context.Context, asset *scene.Asset) (*Result, error) {
	if asset == nil {
		return nil, ErrNilAsset
	}
	meshes := scene.Meshes(asset)

	// Vertex data per mesh.
	vertexData := make([]VertexData, len(meshes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, m := range meshes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vertexData[i] = ExtractVertexData(m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var meshDiags []Diagnostic
	var jobs []job
	for i, m := range meshes {
		if len(vertexData[i].Positions) == 0 {
			meshDiags = append(meshDiags, Diagnostic{
				Kind: DiagMissingPositions, Mesh: m.Name, MeshIdx: i, Submesh: -1,
				Message: "no resolvable position attribute",
			})
			continue
		}
		for s := range m.Submeshes {
			jobs = append(jobs, job{mesh: i, sub: s})
		}
	}

	// Submesh geometry and shading.
	parts := make([]*Part, len(jobs))
	jobDiags := make([][]Diagnostic, len(jobs))
	cache := newShadingCache()

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for slot, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m := meshes[j.mesh]
			d, diags := AssembleSubmesh(m, j.mesh, j.sub, vertexData[j.mesh], c.opts.ValidateIndices)
			if d == nil {
				jobDiags[slot] = diags
				return nil
			}

			part := &Part{Drawable: d, Material: m.Submeshes[j.sub].Material}
			if part.Material != scene.NoMaterial {
				mat := asset.Material(part.Material)
				if mat == nil {
					diags = append(diags, Diagnostic{
						Kind: DiagMissingMaterial, Mesh: m.Name, MeshIdx: j.mesh, Submesh: j.sub,
						Message: "material " + strconv.Itoa(int(part.Material)) + " not in asset",
					})
				} else if c.resolver != nil {
					sd, err := c.shading(gctx, cache, part.Material, mat)
					if err != nil {
						return err
					}
					part.Shading = sd
				}
			}

			jobDiags[slot] = diags
			parts[slot] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Diagnostics: meshDiags}
	for slot, p := range parts {
		res.Diagnostics = append(res.Diagnostics, jobDiags[slot]...)
		if p != nil {
			res.Parts = append(res.Parts, *p)
		}
	}
	c.logDiagnostics(res.Diagnostics)
	c.log.Debug("conversion finished",
		zap.Int("meshes", len(meshes)),
		zap.Int("parts", len(res.Parts)),
		zap.Int("diagnostics", len(res.Diagnostics)))

	return res, nil
}

func (c *Converter) shading(ctx context.Context, cache *shadingCache, id scene.MaterialID, mat *scene.Material) (*material.ShadingDescriptor, error) {
	if !c.opts.MemoizeMaterials {
		return c.resolver.Resolve(ctx, mat)
	}
	return cache.get(id, func() (*material.ShadingDescriptor, error) {
		return c.resolver.Resolve(ctx, mat)
	})
}

func (c *Converter) logDiagnostics(diags []Diagnostic) {
	for _, d := range diags {
		fields := []zap.Field{
			zap.String("kind", d.Kind.String()),
			zap.String("mesh", d.Mesh),
			zap.Int("submesh", d.Submesh),
		}
		switch d.Kind {
		case DiagDroppedTexCoords, DiagDroppedNormals:
			c.log.Debug(d.Message, fields...)
		default:
			c.log.Warn(d.Message, fields...)
		}
	}
}

// shadingCache memoizes descriptors by material identity for one conversion.
// Concurrent requests for the same material share a single resolution.
type shadingCache struct {
	mu    sync.Mutex
	done  map[scene.MaterialID]*material.ShadingDescriptor
	group singleflight.Group
}

func newShadingCache() *shadingCache {
	return &shadingCache{done: make(map[scene.MaterialID]*material.ShadingDescriptor)}
}

func (c *shadingCache) get(id scene.MaterialID, resolve func() (*material.ShadingDescriptor, error)) (*material.ShadingDescriptor, error) {
	c.mu.Lock()
	if sd, ok := c.done[id]; ok {
		c.mu.Unlock()
		return sd, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(strconv.FormatUint(uint64(id), 10), func() (any, error) {
		sd, err := resolve()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.done[id] = sd
		c.mu.Unlock()
		return sd, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*material.ShadingDescriptor), nil
}
