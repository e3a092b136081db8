package material

import gomath "math"

// SpecularToRoughness converts a Phong specular exponent to a physically
// based roughness: r = sqrt(2 / (e + 2)). Negative exponents are treated as 0.
func SpecularToRoughness(exponent float32) float32 {
	e := float64(exponent)
	if e < 0 || gomath.IsNaN(e) {
		e = 0
	}
	return float32(gomath.Sqrt(2.0 / (e + 2.0)))
}
