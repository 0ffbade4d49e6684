package collision

import "math"

type MaterialFlags uint8

const (
	MaterialIsTrigger MaterialFlags = 1 << iota
)

// CombinePolicy chooses how two material coefficients merge. When two policies
// differ the one with the higher ordinal wins.
type CombinePolicy uint8

const (
	CombineMinimum CombinePolicy = iota
	CombineMaximum
	CombineGeometricMean
	CombineArithmeticMean
)

func (p CombinePolicy) String() string {
	switch p {
	case CombineMinimum:
		return "minimum"
	case CombineMaximum:
		return "maximum"
	case CombineGeometricMean:
		return "geometric_mean"
	case CombineArithmeticMean:
		return "arithmetic_mean"
	default:
		return "unknown"
	}
}

// Material carries the surface response of a collider.
type Material struct {
	Flags              MaterialFlags
	Friction           float64
	Restitution        float64
	FrictionCombine    CombinePolicy
	RestitutionCombine CombinePolicy
}

func DefaultMaterial() Material {
	return Material{
		Friction:           0.5,
		FrictionCombine:    CombineGeometricMean,
		RestitutionCombine: CombineMaximum,
	}
}

func (m Material) IsTrigger() bool {
	return m.Flags&MaterialIsTrigger != 0
}

// CombinedFriction merges the friction of two materials.
func CombinedFriction(a, b Material) float64 {
	return combine(a.Friction, b.Friction, winningPolicy(a.FrictionCombine, b.FrictionCombine))
}

// CombinedRestitution merges the restitution of two materials.
func CombinedRestitution(a, b Material) float64 {
	return combine(a.Restitution, b.Restitution, winningPolicy(a.RestitutionCombine, b.RestitutionCombine))
}

func winningPolicy(a, b CombinePolicy) CombinePolicy {
	if a > b {
		return a
	}
	return b
}

func combine(a, b float64, policy CombinePolicy) float64 {
	switch policy {
	case CombineMinimum:
		return math.Min(a, b)
	case CombineMaximum:
		return math.Max(a, b)
	case CombineArithmeticMean:
		return (a + b) * 0.5
	default:
		return math.Sqrt(a * b)
	}
}
