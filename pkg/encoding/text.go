// Package encoding converts legacy-encoded names found in asset files to UTF-8.
package encoding

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned by Lookup for an unrecognized name.
var ErrUnknownEncoding = errors.New("unknown text encoding")

// Text decodes bytes of one source encoding into UTF-8.
type Text struct {
	name string
	enc  xenc.Encoding
}

// UTF8 passes text through unchanged.
var UTF8 = Text{name: "utf-8", enc: unicode.UTF8}

var known = map[string]Text{
	"utf-8":        UTF8,
	"utf8":         UTF8,
	"euc-kr":       {name: "euc-kr", enc: korean.EUCKR},
	"cp949":        {name: "euc-kr", enc: korean.EUCKR},
	"shift-jis":    {name: "shift-jis", enc: japanese.ShiftJIS},
	"sjis":         {name: "shift-jis", enc: japanese.ShiftJIS},
	"windows-1252": {name: "windows-1252", enc: charmap.Windows1252},
	"latin1":       {name: "iso-8859-1", enc: charmap.ISO8859_1},
	"iso-8859-1":   {name: "iso-8859-1", enc: charmap.ISO8859_1},
}

// Lookup returns the decoder for a named encoding. Names are case-insensitive;
// an empty name selects UTF-8.
func Lookup(name string) (Text, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return UTF8, nil
	}
	t, ok := known[key]
	if !ok {
		return Text{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return t, nil
}

// Name returns the canonical encoding name.
func (t Text) Name() string {
	if t.name == "" {
		return UTF8.name
	}
	return t.name
}

// Decode converts data to a UTF-8 string.
// ASCII input is returned as-is, and input that fails to decode is
// returned unchanged.
func (t Text) Decode(data []byte) string {
	if t.enc == nil || t.enc == unicode.UTF8 || isASCII(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(t.enc.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// DecodeString converts an encoded string to UTF-8.
func (t Text) DecodeString(s string) string {
	return t.Decode([]byte(s))
}

// NormalizePath normalizes an asset-relative path for case-insensitive lookup.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	return strings.ToLower(path)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
