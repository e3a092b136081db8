package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/meshbridge/internal/assets"
	"github.com/Faultbox/meshbridge/internal/config"
	"github.com/Faultbox/meshbridge/internal/logger"
	"github.com/Faultbox/meshbridge/pkg/convert"
	"github.com/Faultbox/meshbridge/pkg/formats"
	"github.com/Faultbox/meshbridge/pkg/material"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

// source is a parsed input file.
type source struct {
	path  string
	asset *scene.Asset
	obj   *formats.OBJ // nil for glTF input
}

// loadSource parses path according to its extension.
func loadSource(path string, cfg *config.Config) (*source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		text, err := cfg.Encoding()
		if err != nil {
			return nil, err
		}
		obj, err := formats.ParseOBJFile(path, text)
		if err != nil {
			return nil, err
		}
		for _, name := range obj.MissingMaterials {
			logger.Warn("material not defined by any library", zap.String("material", name))
		}
		return &source{path: path, asset: obj.Asset, obj: obj}, nil
	case ".gltf", ".glb":
		asset, err := formats.ParseGLTFFile(path)
		if err != nil {
			return nil, err
		}
		return &source{path: path, asset: asset}, nil
	default:
		return nil, fmt.Errorf("unsupported input %q (want .obj, .gltf or .glb)", filepath.Ext(path))
	}
}

// pipeline wires texture lookup, material resolution and conversion.
type pipeline struct {
	cfg       *config.Config
	cache     *assets.Cache
	files     *assets.Manager
	loader    *assets.TextureLoader
	resolver  *material.Resolver
	converter *convert.Converter
}

// newPipeline searches the input directory first, then the configured
// search paths, then the configured archives.
func newPipeline(cfg *config.Config, inputPath string) (*pipeline, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	p := &pipeline{cfg: cfg}
	if cfg.Textures.CacheEnabled {
		p.cache = assets.NewCache()
	}
	p.files = assets.NewManager(p.cache)

	// Sources added later take priority.
	for i := len(cfg.Textures.Archives) - 1; i >= 0; i-- {
		n, err := p.files.AddArchive(cfg.Textures.Archives[i])
		if err != nil {
			p.files.Close()
			return nil, err
		}
		logger.Debug("texture archive", zap.String("path", cfg.Textures.Archives[i]), zap.Int("files", n))
	}
	for i := len(cfg.Textures.SearchPaths) - 1; i >= 0; i-- {
		if err := p.files.AddDir(cfg.Textures.SearchPaths[i]); err != nil {
			p.files.Close()
			return nil, err
		}
	}
	if err := p.files.AddDir(filepath.Dir(inputPath)); err != nil {
		p.files.Close()
		return nil, err
	}
	logger.Debug("texture sources", zap.Strings("sources", p.files.Sources()))

	p.loader = assets.NewTextureLoader(p.files,
		assets.WithLogger(logger.Named("textures")),
		assets.WithColorKey(cfg.Textures.ColorKey),
		assets.WithTextureCache(cfg.Textures.CacheEnabled),
	)
	p.resolver = material.NewResolver(p.loader,
		material.WithLogger(logger.Named("material")),
		material.WithTextureTimeout(cfg.Conversion.TextureTimeout),
		material.WithRoughnessPolicy(policy),
	)
	logger.Debug("material resolver", zap.Stringer("roughness_policy", p.resolver.Policy()),
		zap.Duration("texture_timeout", cfg.Conversion.TextureTimeout))
	p.converter = convert.New(p.resolver, convert.Options{
		Workers:          cfg.Conversion.Workers,
		MemoizeMaterials: cfg.Conversion.MemoizeMaterials,
		ValidateIndices:  cfg.Conversion.ValidateIndices,
		Logger:           logger.Named("convert"),
	})
	return p, nil
}

// convert runs the conversion, cancelling on SIGINT or SIGTERM.
func (p *pipeline) convert(asset *scene.Asset) (*convert.Result, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := p.converter.Convert(ctx, asset)
	if err != nil {
		return nil, err
	}
	logger.Debug("textures decoded", zap.Int("count", len(p.loader.Loaded())))
	if p.cache != nil {
		hits, misses := p.cache.Stats()
		logger.Debug("texture cache", zap.Int("hits", hits), zap.Int("misses", misses))
	}
	return res, nil
}

func (p *pipeline) Close() error {
	return p.files.Close()
}

// setup loads the config for a subcommand and initializes logging.
func setup(flags *config.Flags) *config.Config {
	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatalf("Error: initializing logger: %v", err)
	}
	return cfg
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	logger.Sync()
	os.Exit(1)
}
