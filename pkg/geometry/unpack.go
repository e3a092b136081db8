// Package geometry extracts typed vertex and index data from raw scene buffers.
package geometry

import (
	"encoding/binary"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

const floatSize = 4

// ElementCount returns how many whole records of the given stride fit in a
// buffer of n bytes.
func ElementCount(n, stride int) int {
	if stride <= 0 || n <= 0 {
		return 0
	}
	return n / stride
}

// validLayout reports whether components floats starting at offset fit inside one record.
func validLayout(stride, offset, components int) bool {
	if stride <= 0 || offset < 0 || components <= 0 || components > stride/floatSize {
		return false
	}
	return offset <= stride-components*floatSize
}

// Unpack reads components little-endian float32 values from every record of
// buf and returns them flattened. Records start every stride bytes and the
// first value of each record is at offset.
// Returns nil when the layout does not fit inside a record.
func Unpack(buf []byte, stride, offset, components int) []float32 {
	if !validLayout(stride, offset, components) {
		return nil
	}
	count := ElementCount(len(buf), stride)
	if count == 0 {
		return nil
	}

	out := make([]float32, count*components)
	for i := 0; i < count; i++ {
		base := i*stride + offset
		for c := 0; c < components; c++ {
			out[i*components+c] = readFloat(buf, base+c*floatSize)
		}
	}
	return out
}

// UnpackVec2 reads one 2-float tuple per record.
func UnpackVec2(buf []byte, stride, offset int) []mgl32.Vec2 {
	if !validLayout(stride, offset, 2) {
		return nil
	}
	count := ElementCount(len(buf), stride)
	if count == 0 {
		return nil
	}

	out := make([]mgl32.Vec2, count)
	for i := range out {
		base := i*stride + offset
		out[i] = mgl32.Vec2{
			readFloat(buf, base),
			readFloat(buf, base+floatSize),
		}
	}
	return out
}

// UnpackVec3 reads one 3-float tuple per record.
func UnpackVec3(buf []byte, stride, offset int) []mgl32.Vec3 {
	if !validLayout(stride, offset, 3) {
		return nil
	}
	count := ElementCount(len(buf), stride)
	if count == 0 {
		return nil
	}

	out := make([]mgl32.Vec3, count)
	for i := range out {
		base := i*stride + offset
		out[i] = mgl32.Vec3{
			readFloat(buf, base),
			readFloat(buf, base+floatSize),
			readFloat(buf, base+2*floatSize),
		}
	}
	return out
}

func readFloat(buf []byte, at int) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(buf[at:]))
}

// PackVec3 writes positions into a buffer with the given stride and offset.
// Bytes outside the attribute are left zero.
func PackVec3(vs []mgl32.Vec3, stride, offset int) []byte {
	if !validLayout(stride, offset, 3) {
		return nil
	}
	buf := make([]byte, len(vs)*stride)
	for i, v := range vs {
		base := i*stride + offset
		for c := 0; c < 3; c++ {
			binary.LittleEndian.PutUint32(buf[base+c*floatSize:], gomath.Float32bits(v[c]))
		}
	}
	return buf
}

// PackVec2 writes 2-float tuples into a buffer with the given stride and offset.
func PackVec2(vs []mgl32.Vec2, stride, offset int) []byte {
	if !validLayout(stride, offset, 2) {
		return nil
	}
	buf := make([]byte, len(vs)*stride)
	for i, v := range vs {
		base := i*stride + offset
		binary.LittleEndian.PutUint32(buf[base:], gomath.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[base+floatSize:], gomath.Float32bits(v[1]))
	}
	return buf
}
