package collision

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
)

const faceAlignment = 0.95

type ContactPoint struct {
	// Position lies on the surface of B.
	Position cp.Vector
	// Distance is the gap along the normal; negative when penetrating.
	Distance float64
}

// Manifold holds up to two contact points between a pair of colliders.
type Manifold struct {
	// Normal points from A towards B.
	Normal cp.Vector
	Points [2]ContactPoint
	Count  int
}

// GenerateManifold builds the contacts of a pair whose surfaces are closer than
// maxDistance. Count is zero otherwise.
func GenerateManifold(a *Collider, xfA common.Transform, b *Collider, xfB common.Transform, maxDistance float64) Manifold {
	var bufB hullBuffer
	ha := a.localHull()
	hb := b.hullIn(xfA.MulT(xfB), &bufB)

	res := hullDistance(ha, hb)
	if res.Distance > maxDistance {
		return Manifold{}
	}

	m := clipFaces(ha, hb, res.Normal, maxDistance)
	if m.Count == 0 {
		m = Manifold{Normal: res.Normal, Count: 1}
		m.Points[0] = ContactPoint{Position: res.PositionOnB, Distance: res.Distance}
	}

	m.Normal = xfA.TransformDirection(m.Normal)
	for i := 0; i < m.Count; i++ {
		m.Points[i].Position = xfA.TransformPoint(m.Points[i].Position)
	}
	return m
}

func bestFace(h hull, d cp.Vector) (int, float64) {
	best, bestDot := -1, math.Inf(-1)
	for i, n := range h.normals {
		if dot := n.Dot(d); dot > bestDot {
			best, bestDot = i, dot
		}
	}
	return best, bestDot
}

// clipFaces clips the incident face against the side planes of the reference face.
// It gives up when neither hull has a face aligned with n.
func clipFaces(a, b hull, n cp.Vector, maxDistance float64) Manifold {
	if len(a.normals) == 0 || len(b.normals) == 0 {
		return Manifold{}
	}
	faceA, alignA := bestFace(a, n)
	faceB, alignB := bestFace(b, n.Neg())

	ref, inc := a, b
	refFace, flip := faceA, false
	if alignB > alignA+1e-3 {
		ref, inc = b, a
		refFace, flip = faceB, true
	}
	if math.Max(alignA, alignB) < faceAlignment {
		return Manifold{}
	}

	v1, v2, refNormal := ref.face(refFace)
	incFace, _ := bestFace(inc, refNormal.Neg())
	p1, p2, _ := inc.face(incFace)

	tangent := v2.Sub(v1).Normalize()
	lo := tangent.Dot(v1)
	hi := tangent.Dot(v2)
	p1, p2, ok := clipSegment(p1, p2, tangent, lo, hi)
	if !ok {
		return Manifold{}
	}

	normal := refNormal
	if flip {
		normal = refNormal.Neg()
	}
	m := Manifold{Normal: normal}
	for _, p := range [2]cp.Vector{p1, p2} {
		sep := refNormal.Dot(p.Sub(v1)) - a.radius - b.radius
		if sep > maxDistance {
			continue
		}
		var onB cp.Vector
		if flip {
			// p is on A's core; step across the gap to B's surface
			onB = p.Add(normal.Mult(a.radius + sep))
		} else {
			onB = p.Sub(normal.Mult(b.radius))
		}
		m.Points[m.Count] = ContactPoint{Position: onB, Distance: sep}
		m.Count++
	}
	if m.Count == 2 && m.Points[0].Position.DistanceSq(m.Points[1].Position) < common.LinearSlop*common.LinearSlop {
		if m.Points[1].Distance < m.Points[0].Distance {
			m.Points[0] = m.Points[1]
		}
		m.Count = 1
	}
	return m
}

// clipSegment keeps the part of p1-p2 whose projection on t lies in [lo,hi].
func clipSegment(p1, p2, t cp.Vector, lo, hi float64) (cp.Vector, cp.Vector, bool) {
	d1, d2 := t.Dot(p1), t.Dot(p2)
	if d1 > d2 {
		p1, p2 = p2, p1
		d1, d2 = d2, d1
	}
	if d2 < lo || d1 > hi {
		return p1, p2, false
	}
	span := d2 - d1
	if span < 1e-12 {
		return p1, p2, true
	}
	if d1 < lo {
		p1 = p1.Lerp(p2, (lo-d1)/span)
	}
	if d2 > hi {
		p2 = p1.Lerp(p2, 1-(d2-hi)/(d2-t.Dot(p1)))
	}
	return p1, p2, true
}
