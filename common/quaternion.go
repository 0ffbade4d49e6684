package common

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

// Quaternion is a 3D rotation as authored in scene data.
type Quaternion struct {
	X, Y, Z, W float64
}

var QuaternionIdentity = Quaternion{W: 1}

// PlanarAngle returns the rotation about the Z axis encoded by q.
func (q Quaternion) PlanarAngle() float64 {
	sinZ := 2 * (q.W*q.Z + q.X*q.Y)
	cosZ := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	return math.Atan2(sinZ, cosZ)
}

func (q Quaternion) Rotation() Rotation {
	return NewRotation(q.PlanarAngle())
}

// NewTransformFromQuaternion drops the Z component of position and keeps the planar part of q.
func NewTransformFromQuaternion(position cp.Vector, q Quaternion) Transform {
	return Transform{Translation: position, Rotation: q.Rotation()}
}

// QuaternionFromAngle returns the quaternion rotating by angle about Z.
func QuaternionFromAngle(angle float64) Quaternion {
	s, c := math.Sincos(angle / 2)
	return Quaternion{Z: s, W: c}
}

// Normalize returns q scaled to unit length. It fails for a zero or non-finite q.
func (q Quaternion) Normalize() (Quaternion, error) {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if !IsFinite(n) || n < 1e-9 {
		return Quaternion{}, fmt.Errorf("quaternion %v has no direction: %w", q, ErrInvalidArgument)
	}
	return Quaternion{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}, nil
}
