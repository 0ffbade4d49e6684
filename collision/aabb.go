package collision

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
)

// Aabb is an axis-aligned bounding box.
type Aabb struct {
	Min, Max cp.Vector
}

// EmptyAabb is inverted so that any Include makes it valid.
var EmptyAabb = Aabb{
	Min: cp.Vector{X: math.Inf(1), Y: math.Inf(1)},
	Max: cp.Vector{X: math.Inf(-1), Y: math.Inf(-1)},
}

func AabbFromPoint(p cp.Vector) Aabb {
	return Aabb{Min: p, Max: p}
}

func AabbFromBB(bb cp.BB) Aabb {
	return Aabb{Min: cp.Vector{X: bb.L, Y: bb.B}, Max: cp.Vector{X: bb.R, Y: bb.T}}
}

// BB converts to Chipmunk's bounding box for its intersection helpers.
func (a Aabb) BB() cp.BB {
	return cp.BB{L: a.Min.X, B: a.Min.Y, R: a.Max.X, T: a.Max.Y}
}

func (a Aabb) IsValid() bool {
	return a.Min.X <= a.Max.X && a.Min.Y <= a.Max.Y
}

func (a Aabb) Center() cp.Vector {
	return a.Min.Add(a.Max).Mult(0.5)
}

func (a Aabb) Extents() cp.Vector {
	return a.Max.Sub(a.Min)
}

// Perimeter is the 2D surface area heuristic.
func (a Aabb) Perimeter() float64 {
	e := a.Extents()
	return 2 * (e.X + e.Y)
}

func (a Aabb) Include(p cp.Vector) Aabb {
	return Aabb{Min: common.MinVector(a.Min, p), Max: common.MaxVector(a.Max, p)}
}

func (a Aabb) Union(b Aabb) Aabb {
	return Aabb{Min: common.MinVector(a.Min, b.Min), Max: common.MaxVector(a.Max, b.Max)}
}

func (a Aabb) Expand(distance float64) Aabb {
	d := cp.Vector{X: distance, Y: distance}
	return Aabb{Min: a.Min.Sub(d), Max: a.Max.Add(d)}
}

func (a Aabb) Overlaps(b Aabb) bool {
	return a.BB().Intersects(b.BB())
}

func (a Aabb) Contains(p cp.Vector) bool {
	return a.BB().ContainsVect(p)
}

func (a Aabb) ContainsAabb(b Aabb) bool {
	return a.BB().Contains(b.BB())
}

// SegmentFraction returns the entry fraction of the segment start→end, or +Inf when it misses.
func (a Aabb) SegmentFraction(start, end cp.Vector) float64 {
	return a.BB().SegmentQuery(start, end)
}

// DistanceSqToPoint is zero when p is inside.
func (a Aabb) DistanceSqToPoint(p cp.Vector) float64 {
	dx := math.Max(0, math.Max(a.Min.X-p.X, p.X-a.Max.X))
	dy := math.Max(0, math.Max(a.Min.Y-p.Y, p.Y-a.Max.Y))
	return dx*dx + dy*dy
}

// DistanceSq is the squared gap between two boxes, zero when they overlap.
func (a Aabb) DistanceSq(b Aabb) float64 {
	dx := math.Max(0, math.Max(a.Min.X-b.Max.X, b.Min.X-a.Max.X))
	dy := math.Max(0, math.Max(a.Min.Y-b.Max.Y, b.Min.Y-a.Max.Y))
	return dx*dx + dy*dy
}

// TransformAabb bounds the box a after applying xf.
func TransformAabb(xf common.Transform, a Aabb) Aabb {
	center := xf.TransformPoint(a.Center())
	half := a.Extents().Mult(0.5)
	r := xf.Rotation
	ext := cp.Vector{
		X: math.Abs(r.C0.X)*half.X + math.Abs(r.C1.X)*half.Y,
		Y: math.Abs(r.C0.Y)*half.X + math.Abs(r.C1.Y)*half.Y,
	}
	return Aabb{Min: center.Sub(ext), Max: center.Add(ext)}
}
