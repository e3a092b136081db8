package encoding

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "utf-8", false},
		{"UTF-8", "utf-8", false},
		{"euc-kr", "euc-kr", false},
		{"CP949", "euc-kr", false},
		{"sjis", "shift-jis", false},
		{"latin1", "iso-8859-1", false},
		{"klingon", "", true},
	}

	for _, tt := range tests {
		got, err := Lookup(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownEncoding) {
				t.Errorf("Lookup(%q): expected ErrUnknownEncoding, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Lookup(%q): unexpected error %v", tt.name, err)
			continue
		}
		if got.Name() != tt.want {
			t.Errorf("Lookup(%q) = %s, want %s", tt.name, got.Name(), tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	euckr, _ := Lookup("euc-kr")
	sjis, _ := Lookup("shift-jis")
	latin, _ := Lookup("latin1")

	tests := []struct {
		name string
		text Text
		in   []byte
		want string
	}{
		{"ascii passthrough", euckr, []byte("wall_01"), "wall_01"},
		{"euc-kr hangul", euckr, []byte{0xC7, 0xD1}, "한"},
		{"shift-jis katakana", sjis, []byte{0x83, 0x41}, "ア"},
		{"latin1 accent", latin, []byte{'c', 'a', 'f', 0xE9}, "café"},
		{"utf-8 unchanged", UTF8, []byte("étage"), "étage"},
	}

	for _, tt := range tests {
		if got := tt.text.Decode(tt.in); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecodeStringKorean(t *testing.T) {
	euckr, _ := Lookup("euc-kr")
	if got := euckr.DecodeString(string([]byte{0xC7, 0xD1})); got != "한" {
		t.Errorf("expected 한, got %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`Textures\Wall.PNG`, "textures/wall.png"},
		{"./maps/a.tga", "maps/a.tga"},
		{"plain.png", "plain.png"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
