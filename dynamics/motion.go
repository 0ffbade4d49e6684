package dynamics

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/common"
)

// MotionData is the per-body state the solver rarely touches.
type MotionData struct {
	// WorldPosition is the centre of mass in world space.
	WorldPosition     cp.Vector
	WorldAngle        float64
	LocalCenterOfMass cp.Vector
	LinearDamping     float64
	AngularDamping    float64
	GravityFactor     float64
}

// MotionVelocity is the per-body state the solver iterates over.
type MotionVelocity struct {
	LinearVelocity         cp.Vector
	AngularVelocity        float64
	InverseMass            float64
	InverseInertia         float64
	AngularExpansionFactor float64
}

// MotionExpansion bounds how far a body can travel in one step.
type MotionExpansion struct {
	Linear  cp.Vector
	Uniform float64
}

// NewMotion places a body with the given mass at worldFromBody.
func NewMotion(worldFromBody common.Transform, m Mass) (MotionData, MotionVelocity) {
	data := MotionData{
		WorldPosition:     worldFromBody.TransformPoint(m.CenterOfMass),
		WorldAngle:        worldFromBody.Angle(),
		LocalCenterOfMass: m.CenterOfMass,
		GravityFactor:     1,
	}
	if m.IsKinematic() {
		data.GravityFactor = 0
	}
	vel := MotionVelocity{
		InverseMass:            m.InverseMass,
		InverseInertia:         m.InverseInertia,
		AngularExpansionFactor: m.AngularExpansionFactor,
	}
	return data, vel
}

// WorldFromBody recovers the body transform from the centre of mass placement.
func (d MotionData) WorldFromBody() common.Transform {
	rot := common.NewRotation(d.WorldAngle)
	return common.Transform{
		Translation: d.WorldPosition.Sub(rot.Mul(d.LocalCenterOfMass)),
		Rotation:    rot,
	}
}

func (v MotionVelocity) HasInfiniteMass() bool {
	return v.InverseMass == 0
}

// VelocityAt is the velocity of a point offset r from the centre of mass.
func (v MotionVelocity) VelocityAt(r cp.Vector) cp.Vector {
	return v.LinearVelocity.Add(common.CrossSV(v.AngularVelocity, r))
}

func (v *MotionVelocity) ApplyLinearImpulse(impulse cp.Vector) {
	v.LinearVelocity = v.LinearVelocity.Add(impulse.Mult(v.InverseMass))
}

func (v *MotionVelocity) ApplyAngularImpulse(impulse float64) {
	v.AngularVelocity += impulse * v.InverseInertia
}

// ApplyImpulse applies impulse at a world point, given the world centre of mass.
func (v *MotionVelocity) ApplyImpulse(impulse, point, centerOfMass cp.Vector) {
	v.ApplyLinearImpulse(impulse)
	v.ApplyAngularImpulse(point.Sub(centerOfMass).Cross(impulse))
}

func (v MotionVelocity) CalculateExpansion(dt float64) MotionExpansion {
	return MotionExpansion{
		Linear:  v.LinearVelocity.Mult(dt),
		Uniform: math.Min(math.Abs(v.AngularVelocity)*dt, math.Pi/2) * v.AngularExpansionFactor,
	}
}

// MaxDistance is the furthest any point of the body may move.
func (e MotionExpansion) MaxDistance() float64 {
	return e.Linear.Length() + e.Uniform
}

// ExpandAabb sweeps a along the linear motion and grows it by the rotational term.
func (e MotionExpansion) ExpandAabb(a collision.Aabb) collision.Aabb {
	swept := collision.Aabb{
		Min: a.Min.Add(common.MinVector(e.Linear, cp.Vector{})),
		Max: a.Max.Add(common.MaxVector(e.Linear, cp.Vector{})),
	}
	return swept.Expand(e.Uniform)
}
