package lattice

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// VecFromSlice converts a length-Dim slice into a Vec.
func VecFromSlice(xs []float64) (Vec, error) {
	var v Vec
	if len(xs) != Dim {
		return v, fmt.Errorf("expected %d components, got %d", Dim, len(xs))
	}
	copy(v[:], xs)
	return v, nil
}

// Dot returns a·b.
func Dot(a, b Vec) float64 {
	return floats.Dot(a[:], b[:])
}

// Norm returns the Euclidean norm of v.
func Norm(v Vec) float64 {
	return floats.Norm(v[:], 2)
}

// Sub returns a - b.
func Sub(a, b Vec) Vec {
	var out Vec
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// IsFinite reports whether every component is neither NaN nor ±Inf.
func (v Vec) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
