package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbridge/pkg/encoding"
	"github.com/Faultbox/meshbridge/pkg/scene"
)

// MTL format errors.
var (
	ErrMalformedMTL  = errors.New("malformed MTL data")
	ErrMTLNoMaterial = errors.New("MTL statement before newmtl")
)

// MaterialLibrary is a parsed Wavefront MTL file.
type MaterialLibrary struct {
	Materials []*scene.Material
	byName    map[string]int
}

// Lookup returns the material with the given name.
func (l *MaterialLibrary) Lookup(name string) (*scene.Material, bool) {
	if l == nil {
		return nil, false
	}
	i, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return l.Materials[i], true
}

// Merge appends materials of other not already defined in l.
func (l *MaterialLibrary) Merge(other *MaterialLibrary) {
	if other == nil {
		return
	}
	if l.byName == nil {
		l.byName = make(map[string]int)
	}
	for _, m := range other.Materials {
		if _, ok := l.byName[m.Name]; ok {
			continue
		}
		l.byName[m.Name] = len(l.Materials)
		l.Materials = append(l.Materials, m)
	}
}

// mtlDraft accumulates statements that combine into one property.
type mtlDraft struct {
	mat      *scene.Material
	diffuse  mgl32.Vec4
	hasColor bool
	colorMap string
}

func newMTLDraft(name string) *mtlDraft {
	return &mtlDraft{mat: scene.NewMaterial(name), diffuse: mgl32.Vec4{1, 1, 1, 1}}
}

func (d *mtlDraft) finish() *scene.Material {
	switch {
	case d.colorMap != "":
		d.mat.Set(scene.SemanticBaseColor, scene.FileProperty(d.colorMap).WithValue(d.diffuse))
	case d.hasColor:
		d.mat.Set(scene.SemanticBaseColor, scene.ColorProperty(d.diffuse[0], d.diffuse[1], d.diffuse[2], d.diffuse[3]))
	}
	return d.mat
}

// ParseMTL parses a Wavefront material library. Names and texture paths are
// decoded with text. Unknown statements are ignored.
func ParseMTL(data []byte, text encoding.Text) (*MaterialLibrary, error) {
	lib := &MaterialLibrary{byName: make(map[string]int)}
	var cur *mtlDraft

	flush := func() {
		if cur == nil {
			return
		}
		m := cur.finish()
		if _, dup := lib.byName[m.Name]; !dup {
			lib.byName[m.Name] = len(lib.Materials)
			lib.Materials = append(lib.Materials, m)
		}
		cur = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, args := splitStatement(scanner.Text())
		if key == "" {
			continue
		}

		if key == "newmtl" {
			flush()
			cur = newMTLDraft(text.DecodeString(strings.Join(args, " ")))
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: line %d: %s", ErrMTLNoMaterial, lineNo, key)
		}

		if err := cur.apply(strings.ToLower(key), args, text); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedMTL, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading MTL: %w", err)
	}
	flush()

	return lib, nil
}

func (d *mtlDraft) apply(key string, args []string, text encoding.Text) error {
	switch key {
	case "kd":
		c, err := parseColor(args)
		if err != nil {
			return err
		}
		d.diffuse[0], d.diffuse[1], d.diffuse[2] = c[0], c[1], c[2]
		d.hasColor = true
	case "d":
		v, err := parseFloat(args)
		if err != nil {
			return err
		}
		d.diffuse[3] = v
		d.hasColor = true
	case "tr":
		v, err := parseFloat(args)
		if err != nil {
			return err
		}
		d.diffuse[3] = 1 - v
		d.hasColor = true
	case "map_kd":
		d.colorMap = mapPath(args, text)
	case "ns":
		return d.setFloat(scene.SemanticSpecularExponent, args)
	case "pr":
		return d.setFloat(scene.SemanticRoughness, args)
	case "pm":
		return d.setFloat(scene.SemanticMetallic, args)
	case "ks":
		return d.setColor(scene.SemanticSpecular, args)
	case "ke":
		return d.setColor(scene.SemanticEmission, args)
	case "map_ns":
		d.setFile(scene.SemanticSpecularExponent, args, text)
	case "map_pr":
		d.setFile(scene.SemanticRoughness, args, text)
	case "map_pm":
		d.setFile(scene.SemanticMetallic, args, text)
	case "map_ks":
		d.setFile(scene.SemanticSpecular, args, text)
	case "map_ke":
		d.setFile(scene.SemanticEmission, args, text)
	case "map_d":
		d.setFile(scene.SemanticOpacity, args, text)
	case "norm", "map_bump", "bump":
		d.setFile(scene.SemanticTangentSpaceNormal, args, text)
	case "disp":
		d.setFile(scene.SemanticDisplacement, args, text)
	}
	return nil
}

// setFloat stores a scalar, keeping a texture already set for sem.
func (d *mtlDraft) setFloat(sem scene.Semantic, args []string) error {
	v, err := parseFloat(args)
	if err != nil {
		return err
	}
	p := scene.FloatProperty(v)
	if prev, ok := d.mat.Property(sem); ok {
		if url, hasFile := prev.FileURL(); hasFile {
			p = scene.FileProperty(url).WithValue(p.Value)
		}
	}
	d.mat.Set(sem, p)
	return nil
}

func (d *mtlDraft) setColor(sem scene.Semantic, args []string) error {
	c, err := parseColor(args)
	if err != nil {
		return err
	}
	d.mat.Set(sem, scene.ColorProperty(c[0], c[1], c[2], 1))
	return nil
}

// setFile stores a texture path, keeping a scalar already set for sem.
func (d *mtlDraft) setFile(sem scene.Semantic, args []string, text encoding.Text) {
	path := mapPath(args, text)
	if path == "" {
		return
	}
	p := scene.FileProperty(path)
	if prev, ok := d.mat.Property(sem); ok && prev.HasValue {
		p = p.WithValue(prev.Value)
	}
	d.mat.Set(sem, p)
}

// mapOptionArgs is the maximum number of arguments each texture map option takes.
var mapOptionArgs = map[string]int{
	"-blendu": 1, "-blendv": 1, "-bm": 1, "-boost": 1, "-cc": 1, "-clamp": 1,
	"-imfchan": 1, "-texres": 1, "-type": 1, "-mm": 2, "-o": 3, "-s": 3, "-t": 3,
}

// mapPath strips texture map options and returns the file path with
// forward slashes.
func mapPath(args []string, text encoding.Text) string {
	i := 0
	for i < len(args) {
		n, ok := mapOptionArgs[strings.ToLower(args[i])]
		if !ok {
			break
		}
		i++
		for ; n > 0 && i < len(args); n-- {
			if _, err := strconv.ParseFloat(args[i], 32); err != nil && !isOnOff(args[i]) {
				break
			}
			i++
		}
	}
	if i >= len(args) {
		return ""
	}
	path := strings.Join(args[i:], " ")
	return strings.ReplaceAll(text.DecodeString(path), "\\", "/")
}

func isOnOff(s string) bool {
	return s == "on" || s == "off"
}

func parseFloat(args []string) (float32, error) {
	if len(args) < 1 {
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// parseColor reads "r g b", or a single value used for all three.
func parseColor(args []string) (mgl32.Vec3, error) {
	if len(args) == 0 {
		return mgl32.Vec3{}, errors.New("missing color")
	}
	var c mgl32.Vec3
	for i := 0; i < 3; i++ {
		s := args[0]
		if i < len(args) {
			s = args[i]
		}
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return mgl32.Vec3{}, err
		}
		c[i] = float32(v)
	}
	return c, nil
}

// splitStatement splits a line into keyword and arguments, dropping comments.
func splitStatement(line string) (string, []string) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
