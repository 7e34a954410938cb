package reembed

import "math"

// NormalizeVector scales v to unit length and returns a new slice.
// A zero vector comes back as zeros; an empty one is returned as is.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	magnitude := Magnitude(v)
	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// Magnitude returns the Euclidean length of v, accumulated in float64.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// IsNormalized reports whether v has unit length within tolerance.
func IsNormalized(v []float32, tolerance float64) bool {
	return math.Abs(Magnitude(v)-1) <= tolerance
}
