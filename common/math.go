package common

import (
	"math"

	"github.com/jakecoffman/cp"
)

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func IsFiniteVector(v cp.Vector) bool {
	return IsFinite(v.X) && IsFinite(v.Y)
}

// CrossSV returns s × v for a scalar angular term s.
func CrossSV(s float64, v cp.Vector) cp.Vector {
	return cp.Vector{X: -s * v.Y, Y: s * v.X}
}

// CrossVS returns v × s.
func CrossVS(v cp.Vector, s float64) cp.Vector {
	return cp.Vector{X: s * v.Y, Y: -s * v.X}
}

func MinVector(a, b cp.Vector) cp.Vector {
	return cp.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
}

func MaxVector(a, b cp.Vector) cp.Vector {
	return cp.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
}

func AbsVector(v cp.Vector) cp.Vector {
	return cp.Vector{X: math.Abs(v.X), Y: math.Abs(v.Y)}
}

// SafeNormalize returns v scaled to unit length, or fallback when v is too short to normalize.
func SafeNormalize(v, fallback cp.Vector) cp.Vector {
	l := v.Length()
	if l < 1e-12 {
		return fallback
	}
	return v.Mult(1 / l)
}
