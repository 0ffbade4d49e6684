package collision

import (
	"context"
	"fmt"

	"github.com/milk9111/physics2d/common"
)

// World holds every body, static ones first, then dynamic ones, then a shapeless
// ground body at NumBodies()-1 that the broadphase never sees.
type World struct {
	bodies     []Body
	numStatic  int
	numDynamic int
	broadphase Broadphase
}

func NewWorld(numStatic, numDynamic int) (*World, error) {
	w := &World{}
	if err := w.Reset(numStatic, numDynamic); err != nil {
		return nil, err
	}
	return w, nil
}

// Reset resizes the world, dropping every body. Storage only grows.
func (w *World) Reset(numStatic, numDynamic int) error {
	if numStatic < 0 || numDynamic < 0 {
		return fmt.Errorf("collision: reset world %d static %d dynamic: %w", numStatic, numDynamic, common.ErrInvalidArgument)
	}
	w.releaseBodies()

	n := numStatic + numDynamic + 1
	if cap(w.bodies) < n {
		w.bodies = make([]Body, n)
	} else {
		w.bodies = w.bodies[:n]
		clear(w.bodies)
	}
	for i := range w.bodies {
		w.bodies[i].WorldFromBody = common.TransformIdentity
	}
	w.numStatic = numStatic
	w.numDynamic = numDynamic
	w.broadphase.reset(numStatic, numDynamic)
	return nil
}

func (w *World) releaseBodies() {
	for i := range w.bodies {
		w.bodies[i].Collider.Release()
		w.bodies[i].Collider = nil
	}
}

// Dispose releases storage and collider references. Calling it again does nothing.
func (w *World) Dispose() {
	if w == nil || w.bodies == nil {
		return
	}
	w.releaseBodies()
	w.bodies = nil
	w.numStatic = 0
	w.numDynamic = 0
	w.broadphase = Broadphase{}
}

// Clone copies the world. Colliders are shared and retained.
func (w *World) Clone() *World {
	c := &World{
		bodies:     append([]Body(nil), w.bodies...),
		numStatic:  w.numStatic,
		numDynamic: w.numDynamic,
		broadphase: w.broadphase.clone(),
	}
	for i := range c.bodies {
		c.bodies[i].Collider.Retain()
	}
	return c
}

// Capacity is the number of bodies the world can hold without reallocating.
func (w *World) Capacity() int { return cap(w.bodies) }

func (w *World) NumBodies() int        { return len(w.bodies) }
func (w *World) NumStaticBodies() int  { return w.numStatic }
func (w *World) NumDynamicBodies() int { return w.numDynamic }

func (w *World) GroundBodyIndex() int { return len(w.bodies) - 1 }

// Bodies returns the body slice. Callers may edit transforms in place but must use
// SetBody or SetCollider to change colliders.
func (w *World) Bodies() []Body { return w.bodies }

func (w *World) StaticBodies() []Body {
	return w.bodies[:w.numStatic]
}

func (w *World) DynamicBodies() []Body {
	return w.bodies[w.numStatic : w.numStatic+w.numDynamic]
}

func (w *World) Body(index int) (Body, error) {
	if err := common.CheckIndex(index, len(w.bodies)); err != nil {
		return Body{}, fmt.Errorf("collision: body: %w", err)
	}
	return w.bodies[index], nil
}

// SetBody stores b at index, retaining its collider and releasing the previous one.
// The ground body cannot be replaced.
func (w *World) SetBody(index int, b Body) error {
	if err := common.CheckIndex(index, w.numStatic+w.numDynamic); err != nil {
		return fmt.Errorf("collision: set body: %w", err)
	}
	b.Collider.Retain()
	w.bodies[index].Collider.Release()
	w.bodies[index] = b
	if index < w.numStatic {
		w.broadphase.MarkStaticChanged()
	}
	return nil
}

func (w *World) SetCollider(index int, c *Collider) error {
	if err := common.CheckIndex(index, w.numStatic+w.numDynamic); err != nil {
		return fmt.Errorf("collision: set collider: %w", err)
	}
	c.Retain()
	w.bodies[index].Collider.Release()
	w.bodies[index].Collider = c
	if index < w.numStatic {
		w.broadphase.MarkStaticChanged()
	}
	return nil
}

// SetTransform moves a static body. Dynamic bodies take their transform from the
// motion arrays on export, so they are moved through their motion data instead.
func (w *World) SetTransform(index int, xf common.Transform) error {
	if err := common.CheckIndex(index, w.numStatic+w.numDynamic); err != nil {
		return fmt.Errorf("collision: set transform: %w", err)
	}
	if index >= w.numStatic {
		return fmt.Errorf("collision: set transform: body %d is dynamic, move its motion: %w", index, common.ErrInvalidArgument)
	}
	w.bodies[index].WorldFromBody = xf
	w.broadphase.MarkStaticChanged()
	return nil
}

// MarkStaticChanged must be called after static bodies were edited in place.
func (w *World) MarkStaticChanged() {
	w.broadphase.MarkStaticChanged()
}

func (w *World) Broadphase() *Broadphase { return &w.broadphase }

// BuildBroadphase refreshes the trees; see Broadphase.Build.
func (w *World) BuildBroadphase(ctx context.Context, dynamicAabbs []Aabb, inflation float64, threads int) error {
	return w.broadphase.Build(ctx, w.bodies, w.numStatic, w.numDynamic, dynamicAabbs, inflation, threads)
}

func (w *World) FindOverlaps(ctx context.Context, threads int, out []IndexPair) ([]IndexPair, error) {
	return w.broadphase.FindOverlaps(ctx, w.bodies, threads, out)
}

func (w *World) CastRay(in RaycastInput, c Collector[RaycastHit]) bool {
	return w.broadphase.CastRay(w.bodies, in, c)
}

func (w *World) CastCollider(in ColliderCastInput, c Collector[ColliderCastHit]) bool {
	return w.broadphase.CastCollider(w.bodies, in, c)
}

func (w *World) OverlapPoint(in OverlapPointInput, c Collector[OverlapPointHit]) bool {
	return w.broadphase.OverlapPoint(w.bodies, in, c)
}

func (w *World) OverlapCollider(in OverlapColliderInput, c Collector[OverlapColliderHit]) bool {
	return w.broadphase.OverlapCollider(w.bodies, in, c)
}

func (w *World) CalculatePointDistance(in PointDistanceInput, c Collector[DistanceHit]) bool {
	return w.broadphase.CalculatePointDistance(w.bodies, in, c)
}

func (w *World) CalculateColliderDistance(in ColliderDistanceInput, c Collector[DistanceHit]) bool {
	return w.broadphase.CalculateColliderDistance(w.bodies, in, c)
}
