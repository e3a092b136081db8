package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

// makeTGA builds an uncompressed 24-bit top-left origin TGA.
func makeTGA(w, h int, bgr []byte) []byte {
	header := make([]byte, 18)
	header[2] = 2
	header[12] = byte(w)
	header[13] = byte(w >> 8)
	header[14] = byte(h)
	header[15] = byte(h >> 8)
	header[16] = 24
	header[17] = 0x20
	return append(header, bgr...)
}

func TestFormatFromExt(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
	}{
		{".png", FormatPNG},
		{"JPG", FormatJPEG},
		{".jpeg", FormatJPEG},
		{".Tga", FormatTGA},
		{".bmp", FormatBMP},
		{"webp", FormatWebP},
		{".dds", FormatUnknown},
	}
	for _, tt := range tests {
		if got := FormatFromExt(tt.ext); got != tt.want {
			t.Errorf("FormatFromExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"png", encodePNG(t, checker(2, 2)), FormatPNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, FormatJPEG},
		{"gif", []byte("GIF89a...."), FormatGIF},
		{"bmp", []byte("BM\x00\x00"), FormatBMP},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8L"), FormatWebP},
		{"tga has no signature", makeTGA(1, 1, []byte{0, 0, 0}), FormatUnknown},
		{"short", []byte{0x89}, FormatUnknown},
	}
	for _, tt := range tests {
		if got := Detect(tt.data); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecode_SignatureOverridesExtension(t *testing.T) {
	data := encodePNG(t, checker(4, 3))
	img, format, err := Decode(data, ".tga")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatPNG {
		t.Errorf("expected png, got %q", format)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestDecode_TGA(t *testing.T) {
	// Pixel 0 blue, pixel 1 red, stored BGR.
	data := makeTGA(2, 1, []byte{255, 0, 0, 0, 0, 255})
	img, format, err := Decode(data, ".tga")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatTGA {
		t.Errorf("expected tga, got %q", format)
	}
	r, _, b, _ := img.At(0, 0).RGBA()
	if b>>8 != 255 || r != 0 {
		t.Errorf("expected blue first pixel, got r=%d b=%d", r>>8, b>>8)
	}
	r, _, _, _ = img.At(1, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("expected red second pixel, got r=%d", r>>8)
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, _, err := Decode(nil, ".png"); !errors.Is(err, ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
	if _, _, err := Decode([]byte("garbage"), ".xyz"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wall.png")
	if err := os.WriteFile(path, encodePNG(t, checker(8, 8)), 0644); err != nil {
		t.Fatal(err)
	}
	img, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("expected width 8, got %d", img.Bounds().Dx())
	}

	if _, err := DecodeFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestToNRGBA_ColorKey(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 255, G: 0, B: 255, A: 255})
	src.SetRGBA(1, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	out := ToNRGBA(src, true)
	if c := out.NRGBAAt(0, 0); c != (color.NRGBA{}) {
		t.Errorf("expected magenta keyed to transparent, got %v", c)
	}
	if c := out.NRGBAAt(1, 0); c != (color.NRGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("expected pixel unchanged, got %v", c)
	}

	plain := ToNRGBA(src, false)
	if c := plain.NRGBAAt(0, 0); c.A != 255 {
		t.Errorf("expected magenta kept without key, got %v", c)
	}
}

func TestIsColorKey(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    bool
	}{
		{255, 0, 255, true},
		{252, 8, 251, true},
		{255, 20, 255, false},
		{200, 0, 255, false},
	}
	for _, tt := range tests {
		if got := IsColorKey(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("IsColorKey(%d,%d,%d) = %v, want %v", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"within bounds", 64, 32, 128, 64, 32},
		{"wide", 512, 256, 128, 128, 64},
		{"tall", 100, 400, 200, 50, 200},
		{"disabled", 512, 512, 0, 512, 512},
	}
	for _, tt := range tests {
		got := Fit(checker(tt.w, tt.h), tt.max).Bounds()
		if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
			t.Errorf("%s: got %dx%d, want %dx%d", tt.name, got.Dx(), got.Dy(), tt.wantW, tt.wantH)
		}
	}
}

func TestExportWebP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "wall.webp")
	if err := ExportWebP(path, checker(32, 16), 16); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("decoding exported file: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("expected 16x8, got %v", img.Bounds())
	}
}
