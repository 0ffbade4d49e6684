package collision

import (
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
)

func near(a, b cp.Vector, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}

func TestColliderDistance(t *testing.T) {
	circle := CircleGeometry{Radius: 0.5}
	box := BoxGeometry{Size: cp.Vector{X: 2, Y: 2}}
	capsule := CapsuleGeometry{Vertex0: cp.Vector{X: -1}, Vertex1: cp.Vector{X: 1}, Radius: 0.25}

	cases := []struct {
		name       string
		a, b       Geometry
		xfB        common.Transform
		want       float64
		wantNormal cp.Vector
	}{
		{"circles_apart", circle, circle, common.NewTransform(cp.Vector{X: 3}, 0), 2, cp.Vector{X: 1}},
		{"circles_overlap", circle, circle, common.NewTransform(cp.Vector{Y: 0.6}, 0), -0.4, cp.Vector{Y: 1}},
		{"box_circle_face", box, circle, common.NewTransform(cp.Vector{X: 2}, 0), 0.5, cp.Vector{X: 1}},
		{"box_circle_corner", box, circle, common.NewTransform(cp.Vector{X: 2, Y: 2}, 0), math.Sqrt2 - 0.5,
			cp.Vector{X: math.Sqrt2 / 2, Y: math.Sqrt2 / 2}},
		{"boxes_overlap", box, box, common.NewTransform(cp.Vector{X: 1.5, Y: 0.2}, 0), -0.5, cp.Vector{X: 1}},
		{"capsule_above_box", box, capsule, common.NewTransform(cp.Vector{Y: 2}, 0), 0.75, cp.Vector{Y: 1}},
		{"rotated_box", circle, box, common.NewTransform(cp.Vector{X: 3}, math.Pi/4), 2.5 - math.Sqrt2, cp.Vector{X: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := mustCollider(t, c.a)
			b := mustCollider(t, c.b)
			res := ColliderDistance(a, common.TransformIdentity, b, c.xfB)
			if math.Abs(res.Distance-c.want) > 1e-6 {
				t.Fatalf("expected distance %v, got %v", c.want, res.Distance)
			}
			if !near(res.Normal, c.wantNormal, 1e-6) {
				t.Fatalf("expected normal %v, got %v", c.wantNormal, res.Normal)
			}
			gap := res.PositionOnB.Sub(res.PositionOnA).Dot(res.Normal)
			if math.Abs(gap-res.Distance) > 1e-6 {
				t.Fatalf("witness points %v %v do not span the distance", res.PositionOnA, res.PositionOnB)
			}
		})
	}
}

func TestRaycastShapes(t *testing.T) {
	cases := []struct {
		name       string
		g          Geometry
		start, end cp.Vector
		hit        bool
		fraction   float64
		normal     cp.Vector
	}{
		{"circle", CircleGeometry{Radius: 1}, cp.Vector{X: -4}, cp.Vector{X: 4}, true, 3.0 / 8, cp.Vector{X: -1}},
		{"circle_miss", CircleGeometry{Radius: 1}, cp.Vector{X: -4, Y: 2}, cp.Vector{X: 4, Y: 2}, false, 0, cp.Vector{}},
		{"circle_inside", CircleGeometry{Radius: 1}, cp.Vector{}, cp.Vector{X: 4}, false, 0, cp.Vector{}},
		{"box", BoxGeometry{Size: cp.Vector{X: 2, Y: 2}}, cp.Vector{Y: 5}, cp.Vector{Y: -5}, true, 0.4, cp.Vector{Y: 1}},
		{"box_short", BoxGeometry{Size: cp.Vector{X: 2, Y: 2}}, cp.Vector{Y: 5}, cp.Vector{Y: 2}, false, 0, cp.Vector{}},
		{"rounded_box", BoxGeometry{Size: cp.Vector{X: 2, Y: 2}, BevelRadius: 0.2}, cp.Vector{X: -5}, cp.Vector{X: 5}, true, 0.4, cp.Vector{X: -1}},
		{"capsule", CapsuleGeometry{Vertex0: cp.Vector{X: -1}, Vertex1: cp.Vector{X: 1}, Radius: 0.5}, cp.Vector{Y: 3}, cp.Vector{Y: -3}, true, 2.5 / 6, cp.Vector{Y: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body := Body{Collider: mustCollider(t, c.g), WorldFromBody: common.TransformIdentity}
			hit, ok := CastRayClosest(&body, RaycastInput{Start: c.start, End: c.end, Filter: DefaultFilter})
			if ok != c.hit {
				t.Fatalf("expected hit=%v, got %v", c.hit, ok)
			}
			if !ok {
				return
			}
			if math.Abs(hit.Fraction-c.fraction) > 1e-3 {
				t.Fatalf("expected fraction %v, got %v", c.fraction, hit.Fraction)
			}
			if !near(hit.SurfaceNormal, c.normal, 1e-3) {
				t.Fatalf("expected normal %v, got %v", c.normal, hit.SurfaceNormal)
			}
			if hit.RigidBodyIndex != -1 {
				t.Fatalf("body queries report index -1, got %d", hit.RigidBodyIndex)
			}
		})
	}
}

func TestColliderCast(t *testing.T) {
	ground := Body{
		Collider:      mustCollider(t, BoxGeometry{Size: cp.Vector{X: 10, Y: 1}}),
		WorldFromBody: common.TransformIdentity,
	}
	ball := mustCollider(t, CircleGeometry{Radius: 0.5})

	hit, ok := CastColliderClosest(&ground, ColliderCastInput{
		Collider:    ball,
		Start:       cp.Vector{Y: 5},
		End:         cp.Vector{Y: -5},
		Orientation: common.RotationIdentity,
	})
	if !ok {
		t.Fatalf("expected the ball to hit the ground")
	}
	// contact when the centre reaches y=1, 4 units into a 10 unit sweep
	if math.Abs(hit.Fraction-0.4) > common.LinearSlop/10*2 {
		t.Fatalf("expected fraction near 0.4, got %v", hit.Fraction)
	}
	if !near(hit.SurfaceNormal, cp.Vector{Y: 1}, 1e-6) {
		t.Fatalf("expected up normal, got %v", hit.SurfaceNormal)
	}

	overlapping, ok := CastColliderClosest(&ground, ColliderCastInput{
		Collider: ball, Start: cp.Vector{Y: 0.6}, End: cp.Vector{Y: 3}, Orientation: common.RotationIdentity,
	})
	if !ok || overlapping.Fraction != 0 {
		t.Fatalf("a cast starting in overlap hits at 0, got %v %v", overlapping.Fraction, ok)
	}

	if CastColliderAny(&ground, ColliderCastInput{
		Collider: ball, Start: cp.Vector{Y: 5}, End: cp.Vector{X: 3, Y: 5}, Orientation: common.RotationIdentity,
	}) {
		t.Fatalf("a sideways sweep above the ground must miss")
	}
}

func TestManifoldBoxOnBox(t *testing.T) {
	ground := mustCollider(t, BoxGeometry{Size: cp.Vector{X: 10, Y: 1}})
	crate := mustCollider(t, BoxGeometry{Size: cp.Vector{X: 1, Y: 1}})

	m := GenerateManifold(ground, common.TransformIdentity, crate, common.NewTransform(cp.Vector{Y: 0.99}, 0), common.CollisionTolerance)
	if m.Count != 2 {
		t.Fatalf("expected two contact points, got %d", m.Count)
	}
	if !near(m.Normal, cp.Vector{Y: 1}, 1e-9) {
		t.Fatalf("expected up normal, got %v", m.Normal)
	}
	for i := 0; i < m.Count; i++ {
		p := m.Points[i]
		if math.Abs(p.Distance+0.01) > 1e-9 {
			t.Fatalf("point %d: expected penetration 0.01, got %v", i, p.Distance)
		}
		if math.Abs(math.Abs(p.Position.X)-0.5) > 1e-9 || math.Abs(p.Position.Y-0.49) > 1e-9 {
			t.Fatalf("point %d: unexpected position %v", i, p.Position)
		}
	}

	far := GenerateManifold(ground, common.TransformIdentity, crate, common.NewTransform(cp.Vector{Y: 3}, 0), common.CollisionTolerance)
	if far.Count != 0 {
		t.Fatalf("separated boxes should have no contacts, got %d", far.Count)
	}
}

func TestManifoldCircleOnBox(t *testing.T) {
	ground := mustCollider(t, BoxGeometry{Size: cp.Vector{X: 10, Y: 1}})
	ball := mustCollider(t, CircleGeometry{Radius: 0.5})
	m := GenerateManifold(ground, common.TransformIdentity, ball, common.NewTransform(cp.Vector{X: 1, Y: 1.005}, 0), common.CollisionTolerance)
	if m.Count != 1 {
		t.Fatalf("expected one contact, got %d", m.Count)
	}
	if math.Abs(m.Points[0].Distance-0.005) > 1e-9 || !near(m.Points[0].Position, cp.Vector{X: 1, Y: 0.505}, 1e-9) {
		t.Fatalf("unexpected contact %+v", m.Points[0])
	}
}
