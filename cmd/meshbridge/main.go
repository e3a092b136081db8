// meshbridge converts OBJ and glTF assets into renderer-ready meshes and materials.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshbridge/internal/assets"
	"github.com/Faultbox/meshbridge/internal/config"
	"github.com/Faultbox/meshbridge/internal/logger"
	"github.com/Faultbox/meshbridge/internal/texture"
	"github.com/Faultbox/meshbridge/pkg/convert"
	"github.com/Faultbox/meshbridge/pkg/material"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "inspect", "info":
		cmdInspect(args)
	case "convert", "c":
		cmdConvert(args)
	case "textures", "tex":
		cmdTextures(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshbridge - asset to renderer mesh/material converter

Usage:
  meshbridge <command> [options]

Commands:
  inspect <file>              Show meshes, submeshes and materials of a source file
  convert <file>              Convert and print drawables, shading and diagnostics
  textures <file> <output>    Convert and export resolved textures as WebP
  config [-o file]            Print or save the effective configuration

Shared options:
  -config <file>              Config file (default ./meshbridge.yaml)
  -workers N                  Concurrent conversion workers
  -texture-timeout 5s         Per-texture load timeout
  -roughness-policy P         texture_first or scalar_first
  -textures dir1,dir2         Extra texture search directories
  -encoding euc-kr            Text encoding of OBJ/MTL names
  -no-cache                   Disable texture caching
  -debug                      Enable debug logging

Examples:
  meshbridge inspect crate.obj
  meshbridge convert -workers 4 scene.gltf
  meshbridge convert -n 10 -textures ./maps crate.obj
  meshbridge textures -max-size 512 scene.glb ./out`)
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshbridge inspect <file>")
		os.Exit(1)
	}

	cfg := setup(flags)
	defer logger.Sync()

	src, err := loadSource(fs.Arg(0), cfg)
	if err != nil {
		fatalf("Error: %v", err)
	}

	fmt.Printf("File:      %s\n", src.path)
	if src.obj != nil {
		o := src.obj
		fmt.Printf("Vertices:  %d positions, %d uvs, %d normals\n", o.PositionCount, o.TexCoordCount, o.NormalCount)
		fmt.Printf("Faces:     %d (%d skipped)\n", o.FaceCount, o.SkippedFaces)
		if len(o.MaterialLibs) > 0 {
			fmt.Printf("Libraries: %s\n", strings.Join(o.MaterialLibs, ", "))
		}
		if len(o.MissingMaterials) > 0 {
			fmt.Printf("Missing:   %s\n", strings.Join(o.MissingMaterials, ", "))
		}
	}

	meshes := scene.Meshes(src.asset)
	fmt.Printf("Meshes:    %d\n", len(meshes))
	fmt.Printf("Materials: %d\n", len(src.asset.Materials))
	fmt.Println()

	for i, m := range meshes {
		fmt.Printf("[%d] %s: %d buffers, %d attributes\n", i, m.Name, len(m.Buffers), len(m.Attributes))
		for _, a := range m.Attributes {
			fmt.Printf("      attr %-10s %-8s buffer %d offset %d\n", a.Name, a.Format, a.BufferIndex, a.Offset)
		}
		for j, s := range m.Submeshes {
			fmt.Printf("      sub %d %-16s %-12s %-7s %6d indices  material %s\n",
				j, s.Name, s.Topology, s.IndexWidth, s.IndexCount, materialName(src.asset, s.Material))
		}
	}

	if len(src.asset.Materials) > 0 {
		fmt.Println()
		fmt.Println("Materials:")
		for _, mat := range src.asset.Materials {
			fmt.Printf("  %s\n", mat.Name)
			sems := make([]string, 0, len(mat.Properties))
			for sem := range mat.Properties {
				sems = append(sems, string(sem))
			}
			sort.Strings(sems)
			for _, sem := range sems {
				fmt.Printf("    %-20s %s\n", sem, describeProperty(mat.Properties[scene.Semantic(sem)]))
			}
			if files := textureFiles(mat); files != "" {
				fmt.Printf("    texture files: %s\n", files)
			}
		}
	}
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	limit := fs.Int("n", 5, "Triangles printed per drawable (0 = none)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshbridge convert [options] <file>")
		os.Exit(1)
	}

	cfg := setup(flags)
	defer logger.Sync()

	res := run(cfg, fs.Arg(0))
	printResult(os.Stdout, res, *limit)
}

func cmdTextures(args []string) {
	fs := flag.NewFlagSet("textures", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	maxSize := fs.Int("max-size", -1, "Scale textures down to fit N pixels (-1 = config value, 0 = keep)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshbridge textures [options] <file> <output>")
		os.Exit(1)
	}

	cfg := setup(flags)
	defer logger.Sync()
	if *maxSize >= 0 {
		cfg.Textures.MaxSize = *maxSize
	}

	res := run(cfg, fs.Arg(0))
	outDir := fs.Arg(1)

	exported := exportTextures(os.Stdout, res.Materials(), outDir, cfg.Textures.MaxSize)
	fmt.Printf("\nExported %d textures to %s\n", len(exported), outDir)
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	out := fs.String("o", "", "Write the config to this file instead of stdout")
	user := fs.Bool("save", false, "Write the config to the user config directory")
	fs.Parse(args)

	cfg := setup(flags)
	defer logger.Sync()

	switch {
	case *user:
		if err := cfg.Save(); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("Saved %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	case *out != "":
		if err := cfg.SaveTo(*out); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("Saved %s\n", *out)
	default:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fatalf("Error: %v", err)
		}
		os.Stdout.Write(data)
	}
}

// run parses and converts path, exiting on failure.
func run(cfg *config.Config, path string) *convert.Result {
	src, err := loadSource(path, cfg)
	if err != nil {
		fatalf("Error: %v", err)
	}
	p, err := newPipeline(cfg, path)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer p.Close()

	res, err := p.convert(src.asset)
	if err != nil {
		fatalf("Error: conversion of %s: %v", path, err)
	}
	return res
}

func printResult(w io.Writer, res *convert.Result, limit int) {
	fmt.Fprintf(w, "Parts:       %d\n", len(res.Parts))
	fmt.Fprintf(w, "Diagnostics: %d\n", len(res.Diagnostics))
	b := res.Bounds()
	fmt.Fprintf(w, "Bounds:      min %v max %v\n", b.Min, b.Max)
	fmt.Fprintf(w, "             center %v size %v\n", b.Center(), b.Size())
	fmt.Fprintln(w)

	for i, part := range res.Parts {
		d := part.Drawable
		fmt.Fprintf(w, "[%d] %s/%s\n", i, d.MeshName, d.SubmeshName)
		fmt.Fprintf(w, "    %d vertices, uvs %v, normals %v\n", len(d.Positions), d.HasTexCoords(), d.HasNormals())
		fmt.Fprintf(w, "    %s, %d indices\n", d.Primitive.Kind, d.Primitive.IndexCount())
		tris := d.Primitive.Triangles
		for t := 0; t < limit && (t+1)*3 <= len(tris); t++ {
			fmt.Fprintf(w, "      tri %d: %d %d %d\n", t, tris[t*3], tris[t*3+1], tris[t*3+2])
		}
		if part.Shading != nil {
			printShading(w, part.Shading)
		}
	}

	if len(res.Diagnostics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Diagnostics:")
		for _, diag := range res.Diagnostics {
			fmt.Fprintf(w, "  %s\n", diag)
		}
	}
}

func printShading(w io.Writer, sd *material.ShadingDescriptor) {
	fmt.Fprintf(w, "    material %q\n", sd.Material)
	if sd.Empty() {
		fmt.Fprintln(w, "      no channels resolved")
		return
	}
	if sd.BaseColor != nil {
		if sd.BaseColor.IsTexture() {
			fmt.Fprintf(w, "      baseColor  texture %s\n", sd.BaseColor.Texture.Source())
		} else {
			fmt.Fprintf(w, "      baseColor  %v\n", sd.BaseColor.Tint)
		}
	}
	if sd.Normal != nil {
		fmt.Fprintf(w, "      normal     texture %s\n", sd.Normal.Texture.Source())
	}
	for _, ch := range []struct {
		name string
		s    *material.Scalar
	}{{"roughness", sd.Roughness}, {"metallic", sd.Metallic}} {
		switch {
		case ch.s == nil:
		case ch.s.IsTexture():
			fmt.Fprintf(w, "      %-10s texture %s (%s)\n", ch.name, ch.s.Texture.Source(), ch.s.Origin)
		default:
			fmt.Fprintf(w, "      %-10s %.4f (%s)\n", ch.name, ch.s.Value, ch.s.Origin)
		}
	}
}

// channelTexture is a decoded texture and the channel that uses it.
type channelTexture struct {
	channel material.Channel
	tex     *assets.Texture
}

// shadingTextures returns the decoded textures referenced by sd in channel order.
func shadingTextures(sd *material.ShadingDescriptor) []channelTexture {
	var out []channelTexture
	add := func(ch material.Channel, h material.TextureHandle) {
		if tex, ok := h.(*assets.Texture); ok && tex != nil {
			out = append(out, channelTexture{channel: ch, tex: tex})
		}
	}
	if sd.BaseColor.IsTexture() {
		add(material.ChannelBaseColor, sd.BaseColor.Texture)
	}
	if sd.Normal != nil {
		add(material.ChannelNormal, sd.Normal.Texture)
	}
	if sd.Roughness.IsTexture() {
		add(material.ChannelRoughness, sd.Roughness.Texture)
	}
	if sd.Metallic.IsTexture() {
		add(material.ChannelMetallic, sd.Metallic.Texture)
	}
	return out
}

// exportTextures writes every distinct texture used by descriptors to outDir
// as WebP and returns the written paths. File textures are named after the
// file, embedded ones after the material and channel.
func exportTextures(w io.Writer, descriptors []*material.ShadingDescriptor, outDir string, maxSize int) []string {
	seen := make(map[*assets.Texture]bool)
	var written []string
	for _, sd := range descriptors {
		for _, ct := range shadingTextures(sd) {
			tex := ct.tex
			if seen[tex] {
				continue
			}
			seen[tex] = true

			name := fmt.Sprintf("%s_%s.webp", sanitize(sd.Material), ct.channel)
			if tex.Source() != "embedded" {
				base := filepath.Base(tex.Source())
				name = sanitize(strings.TrimSuffix(base, filepath.Ext(base))) + "_" + tex.Semantic().String() + ".webp"
			}
			outPath := filepath.Join(outDir, name)
			if err := texture.ExportWebP(outPath, tex.Image(), maxSize); err != nil {
				logger.Error("export failed", zap.String("texture", tex.Source()), zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "  %s -> %s\n", tex.Source(), outPath)
			written = append(written, outPath)
		}
	}
	return written
}

func materialName(asset *scene.Asset, id scene.MaterialID) string {
	if id == scene.NoMaterial {
		return "-"
	}
	if m := asset.Material(id); m != nil {
		return fmt.Sprintf("%q", m.Name)
	}
	return fmt.Sprintf("#%d (missing)", id)
}

// textureFiles lists the file-backed channels of mat as "semantic=url".
func textureFiles(mat *scene.Material) string {
	var out []string
	for _, sem := range mat.FileSemantics() {
		p, _ := mat.Property(sem)
		url, _ := p.FileURL()
		out = append(out, string(sem)+"="+url)
	}
	return strings.Join(out, ", ")
}

func describeProperty(p scene.Property) string {
	var parts []string
	if url, ok := p.FileURL(); ok {
		parts = append(parts, "file "+url)
	}
	if _, ok := p.Image(); ok {
		parts = append(parts, "embedded image")
	}
	if v, ok := p.Float4(); ok {
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return strings.Join(parts, ", ")
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "material"
	}
	return name
}
