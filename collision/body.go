package collision

import (
	"math"

	"github.com/milk9111/physics2d/common"
	"github.com/milk9111/physics2d/ecs"
)

// Body places an optional collider in the world. A body without a collider is a bare
// point at its translation.
type Body struct {
	Collider      *Collider
	WorldFromBody common.Transform
	Entity        ecs.Entity
}

// IndexPair names two bodies by their index in the world.
type IndexPair struct {
	BodyIndexA, BodyIndexB int
}

var InvalidIndexPair = IndexPair{BodyIndexA: -1, BodyIndexB: -1}

func (p IndexPair) IsValid() bool {
	return p.BodyIndexA != -1 && p.BodyIndexB != -1
}

func (b *Body) CalculateAabb() Aabb {
	if b.Collider == nil {
		return AabbFromPoint(b.WorldFromBody.Translation)
	}
	return b.Collider.CalculateAabb(b.WorldFromBody)
}

func (b *Body) CastRay(in RaycastInput, c Collector[RaycastHit]) bool {
	return b.castRay(in, -1, c)
}

func (b *Body) CastCollider(in ColliderCastInput, c Collector[ColliderCastHit]) bool {
	return b.castCollider(in, -1, c)
}

func (b *Body) OverlapPoint(in OverlapPointInput, c Collector[OverlapPointHit]) bool {
	return b.overlapPoint(in, -1, c)
}

func (b *Body) OverlapCollider(in OverlapColliderInput, c Collector[OverlapColliderHit]) bool {
	return b.overlapCollider(in, -1, c)
}

func (b *Body) CalculatePointDistance(in PointDistanceInput, c Collector[DistanceHit]) bool {
	return b.pointDistance(in, -1, c)
}

func (b *Body) CalculateColliderDistance(in ColliderDistanceInput, c Collector[DistanceHit]) bool {
	return b.colliderDistance(in, -1, c)
}

func (b *Body) castRay(in RaycastInput, index int, c Collector[RaycastHit]) bool {
	if b.Collider == nil || !IsCollisionEnabled(in.Filter, b.Collider.filter) {
		return false
	}
	xf := b.WorldFromBody
	r, ok := raycastHull(b.Collider.localHull(), xf.InverseTransformPoint(in.Start), xf.InverseTransformPoint(in.End))
	if !ok || r.fraction > c.MaxFraction() {
		return false
	}
	return c.AddHit(RaycastHit{
		Fraction:       r.fraction,
		Position:       xf.TransformPoint(r.position),
		SurfaceNormal:  xf.TransformDirection(r.normal),
		RigidBodyIndex: index,
		Entity:         b.Entity,
	})
}

func (b *Body) castCollider(in ColliderCastInput, index int, c Collector[ColliderCastHit]) bool {
	if b.Collider == nil || in.Collider == nil || !IsCollisionEnabled(in.Collider.filter, b.Collider.filter) {
		return false
	}
	xf := b.WorldFromBody
	start := xf.MulT(common.Transform{Translation: in.Start, Rotation: in.Orientation})
	d := xf.InverseTransformDirection(in.End.Sub(in.Start))

	var buf hullBuffer
	r, ok := castHulls(in.Collider.hullIn(start, &buf), d, b.Collider.localHull())
	if !ok || r.fraction > c.MaxFraction() {
		return false
	}
	return c.AddHit(ColliderCastHit{
		Fraction:       r.fraction,
		Position:       xf.TransformPoint(r.position),
		SurfaceNormal:  xf.TransformDirection(r.normal),
		RigidBodyIndex: index,
		Entity:         b.Entity,
	})
}

func (b *Body) overlapPoint(in OverlapPointInput, index int, c Collector[OverlapPointHit]) bool {
	hit := OverlapPointHit{Position: in.Position, RigidBodyIndex: index, Entity: b.Entity}
	if b.Collider == nil {
		if in.Filter.IsEmpty() || in.Position != b.WorldFromBody.Translation {
			return false
		}
		return c.AddHit(hit)
	}
	if !IsCollisionEnabled(in.Filter, b.Collider.filter) {
		return false
	}
	var buf hullBuffer
	p := b.WorldFromBody.InverseTransformPoint(in.Position)
	if hullDistance(pointHull(p, &buf), b.Collider.localHull()).Distance > 0 {
		return false
	}
	return c.AddHit(hit)
}

func (b *Body) overlapCollider(in OverlapColliderInput, index int, c Collector[OverlapColliderHit]) bool {
	if b.Collider == nil || in.Collider == nil || !IsCollisionEnabled(in.Collider.filter, b.Collider.filter) {
		return false
	}
	if ColliderDistance(in.Collider, in.Transform, b.Collider, b.WorldFromBody).Distance > 0 {
		return false
	}
	return c.AddHit(OverlapColliderHit{RigidBodyIndex: index, Entity: b.Entity})
}

func (b *Body) pointDistance(in PointDistanceInput, index int, c Collector[DistanceHit]) bool {
	if b.Collider == nil || !IsCollisionEnabled(in.Filter, b.Collider.filter) {
		return false
	}
	xf := b.WorldFromBody
	var buf hullBuffer
	res := hullDistance(pointHull(xf.InverseTransformPoint(in.Position), &buf), b.Collider.localHull())
	if res.Distance > math.Min(in.MaxDistance, c.MaxFraction()) {
		return false
	}
	return c.AddHit(DistanceHit{
		Fraction:       res.Distance,
		Position:       xf.TransformPoint(res.PositionOnB),
		SurfaceNormal:  xf.TransformDirection(res.Normal.Neg()),
		RigidBodyIndex: index,
		Entity:         b.Entity,
	})
}

func (b *Body) colliderDistance(in ColliderDistanceInput, index int, c Collector[DistanceHit]) bool {
	if b.Collider == nil || in.Collider == nil || !IsCollisionEnabled(in.Collider.filter, b.Collider.filter) {
		return false
	}
	res := ColliderDistance(in.Collider, in.Transform, b.Collider, b.WorldFromBody)
	if res.Distance > math.Min(in.MaxDistance, c.MaxFraction()) {
		return false
	}
	return c.AddHit(DistanceHit{
		Fraction:       res.Distance,
		Position:       res.PositionOnB,
		SurfaceNormal:  res.Normal.Neg(),
		RigidBodyIndex: index,
		Entity:         b.Entity,
	})
}
