package collision

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
)

// hull is a convex core (point, segment or polygon) inflated by radius.
type hull struct {
	vertices []cp.Vector
	normals  []cp.Vector
	radius   float64
}

type hullBuffer struct {
	vertices [MaxPolygonVertices]cp.Vector
	normals  [MaxPolygonVertices]cp.Vector
}

func (c *Collider) localHull() hull {
	return hull{vertices: c.vertices, normals: c.normals, radius: c.radius}
}

// hullIn places the collider's hull with xf, writing into buf.
func (c *Collider) hullIn(xf common.Transform, buf *hullBuffer) hull {
	n := len(c.vertices)
	for i := 0; i < n; i++ {
		buf.vertices[i] = xf.TransformPoint(c.vertices[i])
	}
	for i := range c.normals {
		buf.normals[i] = xf.TransformDirection(c.normals[i])
	}
	return hull{vertices: buf.vertices[:n], normals: buf.normals[:len(c.normals)], radius: c.radius}
}

func pointHull(p cp.Vector, buf *hullBuffer) hull {
	buf.vertices[0] = p
	return hull{vertices: buf.vertices[:1]}
}

func (h hull) translated(offset cp.Vector, buf *hullBuffer) hull {
	for i, v := range h.vertices {
		buf.vertices[i] = v.Add(offset)
	}
	copy(buf.normals[:len(h.normals)], h.normals)
	return hull{vertices: buf.vertices[:len(h.vertices)], normals: buf.normals[:len(h.normals)], radius: h.radius}
}

func (h hull) support(d cp.Vector) int {
	best := 0
	bestDot := h.vertices[0].Dot(d)
	for i := 1; i < len(h.vertices); i++ {
		if dot := h.vertices[i].Dot(d); dot > bestDot {
			best, bestDot = i, dot
		}
	}
	return best
}

// face returns the edge i of the hull and its outward normal.
func (h hull) face(i int) (cp.Vector, cp.Vector, cp.Vector) {
	n := len(h.vertices)
	return h.vertices[i], h.vertices[(i+1)%n], h.normals[i]
}

// DistanceResult describes the closest features of two convex shapes.
type DistanceResult struct {
	// Distance between the surfaces; negative when they overlap.
	Distance    float64
	PositionOnA cp.Vector
	PositionOnB cp.Vector
	// Normal is a unit vector pointing from A towards B.
	Normal cp.Vector
}

const coreContactTolerance = 1e-7

// ColliderDistance computes the surface distance between two placed colliders.
func ColliderDistance(a *Collider, xfA common.Transform, b *Collider, xfB common.Transform) DistanceResult {
	var bufB hullBuffer
	ha := a.localHull()
	hb := b.hullIn(xfA.MulT(xfB), &bufB)
	res := hullDistance(ha, hb)
	res.PositionOnA = xfA.TransformPoint(res.PositionOnA)
	res.PositionOnB = xfA.TransformPoint(res.PositionOnB)
	res.Normal = xfA.TransformDirection(res.Normal)
	return res
}

func hullDistance(a, b hull) DistanceResult {
	pA, pB, coreDistance, overlap := gjkClosestPoints(a, b)
	if overlap || coreDistance <= coreContactTolerance {
		return satPenetration(a, b)
	}
	n := pB.Sub(pA).Mult(1 / coreDistance)
	return DistanceResult{
		Distance:    coreDistance - a.radius - b.radius,
		PositionOnA: pA.Add(n.Mult(a.radius)),
		PositionOnB: pB.Sub(n.Mult(b.radius)),
		Normal:      n,
	}
}

// satPenetration resolves overlapping cores by the axis of least penetration
// among the face normals of both hulls.
func satPenetration(a, b hull) DistanceResult {
	bestSep := math.Inf(-1)
	var bestAxis cp.Vector
	test := func(axis cp.Vector) {
		sep := b.vertices[b.support(axis.Neg())].Dot(axis) - a.vertices[a.support(axis)].Dot(axis)
		if sep > bestSep {
			bestSep, bestAxis = sep, axis
		}
	}
	for _, n := range a.normals {
		test(n)
	}
	for _, n := range b.normals {
		test(n.Neg())
	}
	if math.IsInf(bestSep, -1) {
		// both cores are points
		axis := common.SafeNormalize(b.vertices[0].Sub(a.vertices[0]), cp.Vector{Y: 1})
		test(axis)
	}

	deepest := b.vertices[b.support(bestAxis.Neg())]
	onA := deepest.Sub(bestAxis.Mult(bestSep))
	return DistanceResult{
		Distance:    bestSep - a.radius - b.radius,
		PositionOnA: onA.Add(bestAxis.Mult(a.radius)),
		PositionOnB: deepest.Sub(bestAxis.Mult(b.radius)),
		Normal:      bestAxis,
	}
}

type simplexVertex struct {
	wA, wB, w      cp.Vector
	a              float64
	indexA, indexB int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func makeSimplexVertex(a hull, ia int, b hull, ib int) simplexVertex {
	wA := a.vertices[ia]
	wB := b.vertices[ib]
	return simplexVertex{wA: wA, wB: wB, w: wB.Sub(wA), indexA: ia, indexB: ib}
}

// gjkClosestPoints returns the closest points of the two cores. overlap is set when
// the origin ended up enclosed by the simplex.
func gjkClosestPoints(a, b hull) (cp.Vector, cp.Vector, float64, bool) {
	var s simplex
	s.v[0] = makeSimplexVertex(a, 0, b, 0)
	s.v[0].a = 1
	s.count = 1

	var saveA, saveB [3]int
	for iter := 0; iter < common.MaxGJKIterations; iter++ {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}
		if s.count == 3 {
			break
		}

		d := s.searchDirection()
		if d.LengthSq() < 1e-24 {
			break
		}

		ia := a.support(d.Neg())
		ib := b.support(d)
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if saveA[i] == ia && saveB[i] == ib {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}
		s.v[s.count] = makeSimplexVertex(a, ia, b, ib)
		s.count++
	}

	pA, pB := s.witnessPoints()
	return pA, pB, pA.Distance(pB), s.count == 3
}

func (s *simplex) searchDirection() cp.Vector {
	switch s.count {
	case 1:
		return s.v[0].w.Neg()
	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		if e12.Cross(s.v[0].w.Neg()) > 0 {
			return common.CrossSV(1, e12)
		}
		return common.CrossVS(e12, 1)
	default:
		return cp.Vector{}
	}
}

func (s *simplex) witnessPoints() (cp.Vector, cp.Vector) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB
	case 2:
		pA := s.v[0].wA.Mult(s.v[0].a).Add(s.v[1].wA.Mult(s.v[1].a))
		pB := s.v[0].wB.Mult(s.v[0].a).Add(s.v[1].wB.Mult(s.v[1].a))
		return pA, pB
	default:
		pA := s.v[0].wA.Mult(s.v[0].a).Add(s.v[1].wA.Mult(s.v[1].a)).Add(s.v[2].wA.Mult(s.v[2].a))
		return pA, pA
	}
}

// solve2 reduces a segment simplex to the feature closest to the origin.
func (s *simplex) solve2() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	e12 := w2.Sub(w1)

	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}
	d12n1 := w2.Dot(e12)
	if d12n1 <= 0 {
		s.v[1].a = 1
		s.v[0] = s.v[1]
		s.count = 1
		return
	}
	inv := 1 / (d12n1 + d12n2)
	s.v[0].a = d12n1 * inv
	s.v[1].a = d12n2 * inv
	s.count = 2
}

// solve3 reduces a triangle simplex using barycentric regions.
func (s *simplex) solve3() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	w3 := s.v[2].w

	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	n123 := e12.Cross(e13)
	d123n1 := n123 * w2.Cross(w3)
	d123n2 := n123 * w3.Cross(w1)
	d123n3 := n123 * w1.Cross(w2)

	switch {
	case d12n2 <= 0 && d13n2 <= 0:
		s.v[0].a = 1
		s.count = 1
	case d12n1 > 0 && d12n2 > 0 && d123n3 <= 0:
		inv := 1 / (d12n1 + d12n2)
		s.v[0].a = d12n1 * inv
		s.v[1].a = d12n2 * inv
		s.count = 2
	case d13n1 > 0 && d13n2 > 0 && d123n2 <= 0:
		inv := 1 / (d13n1 + d13n2)
		s.v[0].a = d13n1 * inv
		s.v[2].a = d13n2 * inv
		s.v[1] = s.v[2]
		s.count = 2
	case d12n1 <= 0 && d23n2 <= 0:
		s.v[1].a = 1
		s.v[0] = s.v[1]
		s.count = 1
	case d13n1 <= 0 && d23n1 <= 0:
		s.v[2].a = 1
		s.v[0] = s.v[2]
		s.count = 1
	case d23n1 > 0 && d23n2 > 0 && d123n1 <= 0:
		inv := 1 / (d23n1 + d23n2)
		s.v[1].a = d23n1 * inv
		s.v[2].a = d23n2 * inv
		s.v[0] = s.v[2]
		s.count = 2
	default:
		inv := 1 / (d123n1 + d123n2 + d123n3)
		s.v[0].a = d123n1 * inv
		s.v[1].a = d123n2 * inv
		s.v[2].a = d123n3 * inv
		s.count = 3
	}
}
