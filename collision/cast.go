package collision

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
)

const (
	maxCastIterations = 32
	rayTolerance      = 1e-4 * common.LinearSlop
)

type castResult struct {
	fraction float64
	position cp.Vector
	// normal is the surface normal of the struck shape.
	normal cp.Vector
}

// raycastHull intersects the segment start→end with h. A segment starting inside
// h does not hit.
func raycastHull(h hull, start, end cp.Vector) (castResult, bool) {
	switch {
	case len(h.vertices) == 1:
		return raycastCircle(h.vertices[0], h.radius, start, end)
	case len(h.vertices) >= 3 && h.radius == 0:
		return raycastPolygon(h, start, end)
	default:
		return raycastAdvance(h, start, end)
	}
}

func raycastCircle(center cp.Vector, radius float64, start, end cp.Vector) (castResult, bool) {
	d := end.Sub(start)
	f := start.Sub(center)

	a := d.Dot(d)
	b := 2 * f.Dot(d)
	c := f.Dot(f) - radius*radius
	if a == 0 || c <= 0 {
		return castResult{}, false
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return castResult{}, false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	if t < 0 || t > 1 {
		return castResult{}, false
	}
	p := start.Add(d.Mult(t))
	return castResult{fraction: t, position: p, normal: p.Sub(center).Normalize()}, true
}

func raycastPolygon(h hull, start, end cp.Vector) (castResult, bool) {
	d := end.Sub(start)
	lower, upper := 0.0, 1.0
	index := -1

	for i, n := range h.normals {
		numerator := n.Dot(h.vertices[i].Sub(start))
		denominator := n.Dot(d)
		if denominator == 0 {
			if numerator < 0 {
				return castResult{}, false
			}
			continue
		}
		if denominator < 0 && numerator < lower*denominator {
			lower = numerator / denominator
			index = i
		} else if denominator > 0 && numerator < upper*denominator {
			upper = numerator / denominator
		}
		if upper < lower {
			return castResult{}, false
		}
	}
	if index < 0 {
		return castResult{}, false
	}
	return castResult{fraction: lower, position: start.Add(d.Mult(lower)), normal: h.normals[index]}, true
}

// raycastAdvance marches a point along the segment by conservative advancement.
func raycastAdvance(h hull, start, end cp.Vector) (castResult, bool) {
	d := end.Sub(start)
	var buf hullBuffer
	t := 0.0
	for iter := 0; iter < maxCastIterations; iter++ {
		p := start.Add(d.Mult(t))
		res := hullDistance(pointHull(p, &buf), h)
		if res.Distance <= 0 && t == 0 {
			return castResult{}, false
		}
		if res.Distance < rayTolerance {
			return castResult{fraction: t, position: p, normal: res.Normal.Neg()}, true
		}
		closing := d.Dot(res.Normal)
		if closing <= 0 {
			return castResult{}, false
		}
		t += res.Distance / closing
		if t > 1 {
			return castResult{}, false
		}
	}
	return castResult{}, false
}

// castHulls sweeps a by the translation d against the fixed hull b. A cast starting
// within LinearSlop of b hits at fraction zero.
func castHulls(a hull, d cp.Vector, b hull) (castResult, bool) {
	var buf hullBuffer
	t := 0.0
	moved := a
	for iter := 0; iter < maxCastIterations; iter++ {
		res := hullDistance(moved, b)
		if res.Distance <= common.LinearSlop {
			return castResult{fraction: t, position: res.PositionOnB, normal: res.Normal.Neg()}, true
		}
		closing := d.Dot(res.Normal)
		if closing <= 1e-12 {
			return castResult{}, false
		}
		t += (res.Distance - 0.5*common.LinearSlop) / closing
		if t > 1 {
			return castResult{}, false
		}
		moved = a.translated(d.Mult(t), &buf)
	}
	return castResult{}, false
}
