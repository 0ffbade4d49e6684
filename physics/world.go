package physics

import (
	"context"
	"fmt"

	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/common"
	"github.com/milk9111/physics2d/dynamics"
)

// World pairs the collision world with the motions of its dynamic bodies.
// Dynamic body i of CollisionWorld is moved by motion i of DynamicsWorld.
type World struct {
	CollisionWorld *collision.World
	DynamicsWorld  *dynamics.World
	Joints         []dynamics.DistanceJoint
	Settings       Settings
	TimeStep       float64

	expansions []dynamics.MotionExpansion
	aabbs      []collision.Aabb
}

var _ collision.Queryable = (*World)(nil)

func NewWorld(numStatic, numDynamic int, settings Settings) (*World, error) {
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	cw, err := collision.NewWorld(numStatic, numDynamic)
	if err != nil {
		return nil, fmt.Errorf("physics: new world: %w", err)
	}
	dw, err := dynamics.NewWorld(numDynamic)
	if err != nil {
		return nil, fmt.Errorf("physics: new world: %w", err)
	}
	return &World{
		CollisionWorld: cw,
		DynamicsWorld:  dw,
		Settings:       settings,
		TimeStep:       settings.TimeStep,
	}, nil
}

// Reset resizes the world and forgets every body and joint. Storage only grows.
func (w *World) Reset(numStatic, numDynamic int) error {
	if err := w.CollisionWorld.Reset(numStatic, numDynamic); err != nil {
		return fmt.Errorf("physics: reset: %w", err)
	}
	if err := w.DynamicsWorld.Reset(numDynamic); err != nil {
		return fmt.Errorf("physics: reset: %w", err)
	}
	w.Joints = w.Joints[:0]
	return nil
}

// Dispose releases every resource. Calling it twice is harmless.
func (w *World) Dispose() {
	if w == nil {
		return
	}
	w.CollisionWorld.Dispose()
	w.DynamicsWorld.Dispose()
	w.Joints = nil
	w.expansions = nil
	w.aabbs = nil
}

// Clone returns an independent copy. Colliders are shared and retained.
func (w *World) Clone() *World {
	return &World{
		CollisionWorld: w.CollisionWorld.Clone(),
		DynamicsWorld:  w.DynamicsWorld.Clone(),
		Joints:         append([]dynamics.DistanceJoint(nil), w.Joints...),
		Settings:       w.Settings,
		TimeStep:       w.TimeStep,
	}
}

func (w *World) NumBodies() int        { return w.CollisionWorld.NumBodies() }
func (w *World) NumStaticBodies() int  { return w.CollisionWorld.NumStaticBodies() }
func (w *World) NumDynamicBodies() int { return w.CollisionWorld.NumDynamicBodies() }
func (w *World) GroundBodyIndex() int  { return w.CollisionWorld.GroundBodyIndex() }
func (w *World) Bodies() []collision.Body {
	return w.CollisionWorld.Bodies()
}

// MotionIndex maps a body index to its motion, or -1 for static and ground bodies.
func (w *World) MotionIndex(bodyIndex int) int {
	s := w.NumStaticBodies()
	if bodyIndex >= s && bodyIndex < s+w.NumDynamicBodies() {
		return bodyIndex - s
	}
	return -1
}

func (w *World) SetStaticBody(i int, b collision.Body) error {
	if err := common.CheckIndex(i, w.NumStaticBodies()); err != nil {
		return fmt.Errorf("physics: set static body: %w", err)
	}
	return w.CollisionWorld.SetBody(i, b)
}

// SetDynamicBody stores dynamic body i and places its motion at the body transform
// with zero velocity.
func (w *World) SetDynamicBody(i int, b collision.Body, m dynamics.Mass) error {
	if err := common.CheckIndex(i, w.NumDynamicBodies()); err != nil {
		return fmt.Errorf("physics: set dynamic body: %w", err)
	}
	if err := w.CollisionWorld.SetBody(w.NumStaticBodies()+i, b); err != nil {
		return err
	}
	data, vel := dynamics.NewMotion(b.WorldFromBody, m)
	return w.DynamicsWorld.SetMotion(i, data, vel)
}

// Motion returns pointers into the motion arrays for in-place edits.
func (w *World) Motion(i int) (*dynamics.MotionData, *dynamics.MotionVelocity, error) {
	if err := common.CheckIndex(i, w.DynamicsWorld.NumMotions()); err != nil {
		return nil, nil, fmt.Errorf("physics: motion: %w", err)
	}
	return &w.DynamicsWorld.MotionDatas()[i], &w.DynamicsWorld.MotionVelocities()[i], nil
}

func (w *World) SetCollider(bodyIndex int, c *collision.Collider) error {
	return w.CollisionWorld.SetCollider(bodyIndex, c)
}

// AddJoint validates the body indices and stores j. The ground body is allowed.
func (w *World) AddJoint(j dynamics.DistanceJoint) error {
	n := w.NumBodies()
	if err := common.CheckIndex(j.BodyA, n); err != nil {
		return fmt.Errorf("physics: add joint: %w", err)
	}
	if err := common.CheckIndex(j.BodyB, n); err != nil {
		return fmt.Errorf("physics: add joint: %w", err)
	}
	if j.BodyA == j.BodyB || j.MinDistance < 0 || j.MaxDistance < j.MinDistance {
		return fmt.Errorf("physics: add joint %d-%d [%v,%v]: %w", j.BodyA, j.BodyB, j.MinDistance, j.MaxDistance, common.ErrInvalidArgument)
	}
	w.Joints = append(w.Joints, j)
	return nil
}

// BuildBroadphase rebuilds the trees, sweeping each dynamic body by one step of
// its current velocity.
func (w *World) BuildBroadphase(ctx context.Context) error {
	w.expansions = w.DynamicsWorld.CalculateExpansions(w.TimeStep, w.expansions)
	w.aabbs = w.aabbs[:0]
	for i, b := range w.CollisionWorld.DynamicBodies() {
		w.aabbs = append(w.aabbs, w.expansions[i].ExpandAabb(b.CalculateAabb()))
	}
	return w.CollisionWorld.BuildBroadphase(ctx, w.aabbs, w.Settings.AabbInflation, w.Settings.Threads())
}

// RefitBroadphase grows the stored bounds to the current body transforms without
// sweeping. Call it after moving bodies outside a step so world queries see them.
func (w *World) RefitBroadphase(ctx context.Context) error {
	return w.CollisionWorld.BuildBroadphase(ctx, nil, w.Settings.AabbInflation, w.Settings.Threads())
}

// Expansion is the step expansion of body i computed by the last BuildBroadphase.
// Static and ground bodies never expand.
func (w *World) Expansion(bodyIndex int) dynamics.MotionExpansion {
	m := w.MotionIndex(bodyIndex)
	if m < 0 || m >= len(w.expansions) {
		return dynamics.MotionExpansion{}
	}
	return w.expansions[m]
}

// ExportMotions writes every motion back to its body transform.
func (w *World) ExportMotions() {
	dynamic := w.CollisionWorld.DynamicBodies()
	for i, d := range w.DynamicsWorld.MotionDatas() {
		dynamic[i].WorldFromBody = d.WorldFromBody()
	}
}

func (w *World) CastRay(in collision.RaycastInput, c collision.Collector[collision.RaycastHit]) bool {
	return w.CollisionWorld.CastRay(in, c)
}

func (w *World) CastCollider(in collision.ColliderCastInput, c collision.Collector[collision.ColliderCastHit]) bool {
	return w.CollisionWorld.CastCollider(in, c)
}

func (w *World) OverlapPoint(in collision.OverlapPointInput, c collision.Collector[collision.OverlapPointHit]) bool {
	return w.CollisionWorld.OverlapPoint(in, c)
}

func (w *World) OverlapCollider(in collision.OverlapColliderInput, c collision.Collector[collision.OverlapColliderHit]) bool {
	return w.CollisionWorld.OverlapCollider(in, c)
}

func (w *World) CalculatePointDistance(in collision.PointDistanceInput, c collision.Collector[collision.DistanceHit]) bool {
	return w.CollisionWorld.CalculatePointDistance(in, c)
}

func (w *World) CalculateColliderDistance(in collision.ColliderDistanceInput, c collision.Collector[collision.DistanceHit]) bool {
	return w.CollisionWorld.CalculateColliderDistance(in, c)
}
