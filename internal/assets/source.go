package assets

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Faultbox/meshbridge/pkg/encoding"
)

// DirSource reads files below a directory.
type DirSource struct {
	root string
}

// OpenDir creates a directory source.
func OpenDir(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening dir %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening dir %s: not a directory", root)
	}
	return &DirSource{root: root}, nil
}

func (d *DirSource) Name() string { return d.root }

// Read reads a slash-separated path relative to the root. Paths escaping
// the root are rejected.
func (d *DirSource) Read(name string) ([]byte, error) {
	clean, ok := cleanPath(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return os.ReadFile(filepath.Join(d.root, filepath.FromSlash(clean)))
}

func (d *DirSource) Close() error { return nil }

// ZipSource reads files from a zip archive. Lookups ignore case and
// accept backslash separators.
type ZipSource struct {
	name  string
	rc    *zip.ReadCloser
	index map[string]*zip.File
}

// OpenZip opens a zip archive and indexes its entries.
func OpenZip(name string) (*ZipSource, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	z := &ZipSource{name: name, rc: rc, index: make(map[string]*zip.File, len(rc.File))}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		z.index[encoding.NormalizePath(f.Name)] = f
	}
	return z, nil
}

func (z *ZipSource) Name() string { return z.name }

// Read decompresses one entry.
func (z *ZipSource) Read(name string) ([]byte, error) {
	clean, ok := cleanPath(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	f, ok := z.index[encoding.NormalizePath(clean)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// FileCount returns the number of indexed entries.
func (z *ZipSource) FileCount() int {
	return len(z.index)
}

func (z *ZipSource) Close() error { return z.rc.Close() }

// cleanPath normalizes a relative slash path and reports whether it stays
// inside its root.
func cleanPath(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) {
		return "", false
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}
