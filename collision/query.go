package collision

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
	"github.com/milk9111/physics2d/ecs"
)

// Hit is implemented by every query result. Fractions order hits along a cast, or hold
// the distance for distance queries.
type Hit interface {
	HitFraction() float64
}

type RaycastInput struct {
	Start, End cp.Vector
	Filter     Filter
}

// ColliderCastInput sweeps Collider with a fixed Orientation from Start to End.
type ColliderCastInput struct {
	Collider    *Collider
	Start, End  cp.Vector
	Orientation common.Rotation
}

type OverlapPointInput struct {
	Position cp.Vector
	Filter   Filter
}

type OverlapColliderInput struct {
	Collider  *Collider
	Transform common.Transform
}

type PointDistanceInput struct {
	Position    cp.Vector
	MaxDistance float64
	Filter      Filter
}

type ColliderDistanceInput struct {
	Collider    *Collider
	Transform   common.Transform
	MaxDistance float64
}

type RaycastHit struct {
	Fraction       float64
	Position       cp.Vector
	SurfaceNormal  cp.Vector
	RigidBodyIndex int
	Entity         ecs.Entity
}

func (h RaycastHit) HitFraction() float64 { return h.Fraction }

type ColliderCastHit struct {
	Fraction       float64
	Position       cp.Vector
	SurfaceNormal  cp.Vector
	RigidBodyIndex int
	Entity         ecs.Entity
}

func (h ColliderCastHit) HitFraction() float64 { return h.Fraction }

type OverlapPointHit struct {
	Fraction       float64
	Position       cp.Vector
	RigidBodyIndex int
	Entity         ecs.Entity
}

func (h OverlapPointHit) HitFraction() float64 { return h.Fraction }

type OverlapColliderHit struct {
	Fraction       float64
	RigidBodyIndex int
	Entity         ecs.Entity
}

func (h OverlapColliderHit) HitFraction() float64 { return h.Fraction }

// DistanceHit reports the closest points between the query and a body. Fraction is
// the surface distance.
type DistanceHit struct {
	Fraction       float64
	Position       cp.Vector
	SurfaceNormal  cp.Vector
	RigidBodyIndex int
	Entity         ecs.Entity
}

func (h DistanceHit) HitFraction() float64 { return h.Fraction }

func (h DistanceHit) Distance() float64 { return h.Fraction }

// Queryable is implemented by bodies and worlds. Each method feeds hits to c and
// reports whether any were accepted.
type Queryable interface {
	CastRay(in RaycastInput, c Collector[RaycastHit]) bool
	CastCollider(in ColliderCastInput, c Collector[ColliderCastHit]) bool
	OverlapPoint(in OverlapPointInput, c Collector[OverlapPointHit]) bool
	OverlapCollider(in OverlapColliderInput, c Collector[OverlapColliderHit]) bool
	CalculatePointDistance(in PointDistanceInput, c Collector[DistanceHit]) bool
	CalculateColliderDistance(in ColliderDistanceInput, c Collector[DistanceHit]) bool
}

func CastRayAny(q Queryable, in RaycastInput) bool {
	return q.CastRay(in, NewAnyHitCollector[RaycastHit](1))
}

func CastRayClosest(q Queryable, in RaycastInput) (RaycastHit, bool) {
	c := NewClosestHitCollector[RaycastHit](1)
	ok := q.CastRay(in, c)
	return c.ClosestHit(), ok
}

func CastRayAll(q Queryable, in RaycastInput, hits *[]RaycastHit) bool {
	return q.CastRay(in, NewAllHitsCollector(1, hits))
}

func CastColliderAny(q Queryable, in ColliderCastInput) bool {
	return q.CastCollider(in, NewAnyHitCollector[ColliderCastHit](1))
}

func CastColliderClosest(q Queryable, in ColliderCastInput) (ColliderCastHit, bool) {
	c := NewClosestHitCollector[ColliderCastHit](1)
	ok := q.CastCollider(in, c)
	return c.ClosestHit(), ok
}

func CastColliderAll(q Queryable, in ColliderCastInput, hits *[]ColliderCastHit) bool {
	return q.CastCollider(in, NewAllHitsCollector(1, hits))
}

func OverlapPointAny(q Queryable, in OverlapPointInput) bool {
	return q.OverlapPoint(in, NewAnyHitCollector[OverlapPointHit](1))
}

func OverlapPointClosest(q Queryable, in OverlapPointInput) (OverlapPointHit, bool) {
	c := NewClosestHitCollector[OverlapPointHit](1)
	ok := q.OverlapPoint(in, c)
	return c.ClosestHit(), ok
}

func OverlapPointAll(q Queryable, in OverlapPointInput, hits *[]OverlapPointHit) bool {
	return q.OverlapPoint(in, NewAllHitsCollector(1, hits))
}

func OverlapColliderAny(q Queryable, in OverlapColliderInput) bool {
	return q.OverlapCollider(in, NewAnyHitCollector[OverlapColliderHit](1))
}

func OverlapColliderClosest(q Queryable, in OverlapColliderInput) (OverlapColliderHit, bool) {
	c := NewClosestHitCollector[OverlapColliderHit](1)
	ok := q.OverlapCollider(in, c)
	return c.ClosestHit(), ok
}

func OverlapColliderAll(q Queryable, in OverlapColliderInput, hits *[]OverlapColliderHit) bool {
	return q.OverlapCollider(in, NewAllHitsCollector(1, hits))
}

func CalculatePointDistanceAny(q Queryable, in PointDistanceInput) bool {
	return q.CalculatePointDistance(in, NewAnyHitCollector[DistanceHit](in.MaxDistance))
}

func CalculatePointDistanceClosest(q Queryable, in PointDistanceInput) (DistanceHit, bool) {
	c := NewClosestHitCollector[DistanceHit](in.MaxDistance)
	ok := q.CalculatePointDistance(in, c)
	return c.ClosestHit(), ok
}

func CalculatePointDistanceAll(q Queryable, in PointDistanceInput, hits *[]DistanceHit) bool {
	return q.CalculatePointDistance(in, NewAllHitsCollector(in.MaxDistance, hits))
}

func CalculateColliderDistanceAny(q Queryable, in ColliderDistanceInput) bool {
	return q.CalculateColliderDistance(in, NewAnyHitCollector[DistanceHit](in.MaxDistance))
}

func CalculateColliderDistanceClosest(q Queryable, in ColliderDistanceInput) (DistanceHit, bool) {
	c := NewClosestHitCollector[DistanceHit](in.MaxDistance)
	ok := q.CalculateColliderDistance(in, c)
	return c.ClosestHit(), ok
}

func CalculateColliderDistanceAll(q Queryable, in ColliderDistanceInput, hits *[]DistanceHit) bool {
	return q.CalculateColliderDistance(in, NewAllHitsCollector(in.MaxDistance, hits))
}
