package common

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Rotation is a 2x2 rotation matrix stored as its two columns.
type Rotation struct {
	C0, C1 cp.Vector
}

var RotationIdentity = Rotation{C0: cp.Vector{X: 1}, C1: cp.Vector{Y: 1}}

func NewRotation(angle float64) Rotation {
	s, c := math.Sincos(angle)
	return Rotation{C0: cp.Vector{X: c, Y: s}, C1: cp.Vector{X: -s, Y: c}}
}

func (r Rotation) Angle() float64 {
	return math.Atan2(r.C0.Y, r.C0.X)
}

// Mul rotates v.
func (r Rotation) Mul(v cp.Vector) cp.Vector {
	return cp.Vector{X: r.C0.X*v.X + r.C1.X*v.Y, Y: r.C0.Y*v.X + r.C1.Y*v.Y}
}

// MulT rotates v by the inverse rotation.
func (r Rotation) MulT(v cp.Vector) cp.Vector {
	return cp.Vector{X: r.C0.Dot(v), Y: r.C1.Dot(v)}
}

func (r Rotation) Compose(o Rotation) Rotation {
	return Rotation{C0: r.Mul(o.C0), C1: r.Mul(o.C1)}
}

func (r Rotation) Transpose() Rotation {
	return Rotation{
		C0: cp.Vector{X: r.C0.X, Y: r.C1.X},
		C1: cp.Vector{X: r.C0.Y, Y: r.C1.Y},
	}
}

// Transform is a rigid 2D transform: rotate, then translate.
type Transform struct {
	Translation cp.Vector
	Rotation    Rotation
}

var TransformIdentity = Transform{Rotation: RotationIdentity}

func NewTransform(translation cp.Vector, angle float64) Transform {
	return Transform{Translation: translation, Rotation: NewRotation(angle)}
}

func (t Transform) Angle() float64 {
	return t.Rotation.Angle()
}

func (t Transform) TransformPoint(p cp.Vector) cp.Vector {
	return t.Rotation.Mul(p).Add(t.Translation)
}

func (t Transform) InverseTransformPoint(p cp.Vector) cp.Vector {
	return t.Rotation.MulT(p.Sub(t.Translation))
}

func (t Transform) TransformDirection(d cp.Vector) cp.Vector {
	return t.Rotation.Mul(d)
}

func (t Transform) InverseTransformDirection(d cp.Vector) cp.Vector {
	return t.Rotation.MulT(d)
}

// Mul returns t ∘ o, the transform applying o first.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Translation: t.TransformPoint(o.Translation),
		Rotation:    t.Rotation.Compose(o.Rotation),
	}
}

func (t Transform) Inverse() Transform {
	inv := t.Rotation.Transpose()
	return Transform{Translation: inv.Mul(t.Translation.Neg()), Rotation: inv}
}

// MulT returns inverse(t) ∘ o, expressing o in the space of t.
func (t Transform) MulT(o Transform) Transform {
	return t.Inverse().Mul(o)
}

func (t Transform) IsFinite() bool {
	return IsFiniteVector(t.Translation) && IsFiniteVector(t.Rotation.C0) && IsFiniteVector(t.Rotation.C1)
}
