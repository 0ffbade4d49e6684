package dynamics

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/common"
)

func boxProperties(t *testing.T) collision.MassProperties {
	t.Helper()
	c, err := collision.NewBox(collision.BoxGeometry{Size: cp.Vector{X: 1, Y: 1}}, collision.DefaultFilter, collision.DefaultMaterial())
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	return c.MassProperties()
}

func TestMassRoundTrip(t *testing.T) {
	mp := boxProperties(t)
	for _, m := range []float64{1e-6, 0.5, 1, 3.25, 80, 1e6} {
		mass, err := CreateDynamic(mp, m)
		if err != nil {
			t.Fatalf("mass %v: %v", m, err)
		}
		if got := mass.GetMass(); math.Abs(got-m) > 1e-9*m {
			t.Fatalf("expected %v, got %v", m, got)
		}
	}
}

func TestInvalidMassRejected(t *testing.T) {
	mp := boxProperties(t)
	for _, m := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := CreateDynamic(mp, m); !errors.Is(err, common.ErrInvalidArgument) {
			t.Fatalf("mass %v: expected ErrInvalidArgument, got %v", m, err)
		}
	}

	bad := mp
	bad.LocalCenterOfMass = cp.Vector{X: math.NaN()}
	if _, err := CreateKinematic(bad); !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for non-finite centre, got %v", err)
	}
}

func TestKinematicMass(t *testing.T) {
	mp := boxProperties(t)
	k, err := CreateKinematic(mp)
	if err != nil {
		t.Fatalf("kinematic: %v", err)
	}
	if !math.IsInf(k.GetMass(), 1) || !k.IsKinematic() {
		t.Fatalf("kinematic body should be infinitely heavy")
	}
	if k.CenterOfMass != mp.LocalCenterOfMass {
		t.Fatalf("kinematic body keeps its centre of mass")
	}

	_, vel := NewMotion(common.TransformIdentity, k)
	vel.ApplyLinearImpulse(cp.Vector{X: 10})
	vel.ApplyAngularImpulse(5)
	if vel.LinearVelocity != (cp.Vector{}) || vel.AngularVelocity != 0 {
		t.Fatalf("impulses must not move a kinematic body")
	}
}

func TestApplyImpulseAtPoint(t *testing.T) {
	mass, _ := CreateDynamic(boxProperties(t), 2)
	_, vel := NewMotion(common.TransformIdentity, mass)
	vel.ApplyImpulse(cp.Vector{Y: 1}, cp.Vector{X: 1}, cp.Vector{})
	if !(vel.LinearVelocity == cp.Vector{Y: 0.5}) {
		t.Fatalf("expected linear velocity (0,0.5), got %v", vel.LinearVelocity)
	}
	if want := mass.InverseInertia; math.Abs(vel.AngularVelocity-want) > 1e-12 {
		t.Fatalf("expected angular velocity %v, got %v", want, vel.AngularVelocity)
	}
}

func TestMotionExpansion(t *testing.T) {
	v := MotionVelocity{LinearVelocity: cp.Vector{X: 6, Y: -3}, AngularVelocity: 2, AngularExpansionFactor: 0.5}
	e := v.CalculateExpansion(0.5)
	if e.Linear != (cp.Vector{X: 3, Y: -1.5}) || math.Abs(e.Uniform-0.5) > 1e-12 {
		t.Fatalf("unexpected expansion %+v", e)
	}
	a := e.ExpandAabb(collision.Aabb{Min: cp.Vector{}, Max: cp.Vector{X: 1, Y: 1}})
	want := collision.Aabb{Min: cp.Vector{X: -0.5, Y: -2}, Max: cp.Vector{X: 4.5, Y: 1.5}}
	if a != want {
		t.Fatalf("expected %+v, got %+v", want, a)
	}
}

func TestWorldFromBodyRoundTrip(t *testing.T) {
	mass := Mass{CenterOfMass: cp.Vector{X: 0.5, Y: 0.25}, InverseMass: 1, InverseInertia: 1}
	xf := common.NewTransform(cp.Vector{X: 3, Y: -1}, 0.8)
	data, _ := NewMotion(xf, mass)
	back := data.WorldFromBody()
	if math.Abs(back.Translation.X-3) > 1e-12 || math.Abs(back.Translation.Y+1) > 1e-12 || math.Abs(back.Angle()-0.8) > 1e-12 {
		t.Fatalf("expected %+v, got %+v", xf, back)
	}
}

func TestGravityIntegration(t *testing.T) {
	w, _ := NewWorld(2)
	mass, _ := CreateDynamic(boxProperties(t), 1)
	kin, _ := CreateKinematic(boxProperties(t))
	d0, v0 := NewMotion(common.TransformIdentity, mass)
	d1, v1 := NewMotion(common.TransformIdentity, kin)
	_ = w.SetMotion(0, d0, v0)
	_ = w.SetMotion(1, d1, v1)

	ctx := context.Background()
	gravity := cp.Vector{Y: common.Gravity}
	dt := common.DefaultTimeStep
	steps := 60
	for i := 0; i < steps; i++ {
		if err := w.ApplyGravityAndDamping(ctx, gravity, dt, 2); err != nil {
			t.Fatalf("gravity: %v", err)
		}
		if err := w.Integrate(ctx, dt, 2); err != nil {
			t.Fatalf("integrate: %v", err)
		}
	}
	// semi-implicit Euler: v_n = n·g·dt, x_n = g·dt²·n(n+1)/2
	wantV := common.Gravity * dt * float64(steps)
	wantY := common.Gravity * dt * dt * float64(steps*(steps+1)) / 2
	if got := w.MotionVelocities()[0].LinearVelocity.Y; math.Abs(got-wantV) > 1e-9 {
		t.Fatalf("expected velocity %v, got %v", wantV, got)
	}
	if got := w.MotionDatas()[0].WorldPosition.Y; math.Abs(got-wantY) > 1e-9 {
		t.Fatalf("expected position %v, got %v", wantY, got)
	}
	if w.MotionDatas()[1].WorldPosition != (cp.Vector{}) {
		t.Fatalf("kinematic body must ignore gravity")
	}
}

func TestDampingSlowsBodies(t *testing.T) {
	w, _ := NewWorld(1)
	_ = w.SetMotion(0, MotionData{LinearDamping: 1, AngularDamping: 1}, MotionVelocity{LinearVelocity: cp.Vector{X: 10}, AngularVelocity: 4, InverseMass: 1})
	if err := w.ApplyGravityAndDamping(context.Background(), cp.Vector{}, 0.1, 1); err != nil {
		t.Fatalf("damping: %v", err)
	}
	v := w.MotionVelocities()[0]
	if math.Abs(v.LinearVelocity.X-10/1.1) > 1e-12 || math.Abs(v.AngularVelocity-4/1.1) > 1e-12 {
		t.Fatalf("unexpected damped velocity %+v", v)
	}
}

func TestWorldResetGrowthOnly(t *testing.T) {
	w, _ := NewWorld(16)
	capacity := w.Capacity()
	_ = w.Reset(4)
	_ = w.Reset(16)
	if w.Capacity() != capacity || w.NumMotions() != 16 {
		t.Fatalf("reset reallocated: capacity %d -> %d", capacity, w.Capacity())
	}
	w.Dispose()
	w.Dispose()
	if w.NumMotions() != 0 {
		t.Fatalf("dispose should empty the world")
	}
}

func TestSolverStopsFallingBox(t *testing.T) {
	w, _ := NewWorld(1)
	mass, _ := CreateDynamic(boxProperties(t), 1)
	data, vel := NewMotion(common.NewTransform(cp.Vector{Y: 0.5}, 0), mass)
	vel.LinearVelocity = cp.Vector{Y: -2}
	_ = w.SetMotion(0, data, vel)

	contact := Contact{MotionA: -1, MotionB: 0}
	contact.Manifold.Normal = cp.Vector{Y: 1}
	contact.Manifold.Count = 2
	contact.Manifold.Points[0] = collision.ContactPoint{Position: cp.Vector{X: -0.5}, Distance: 0}
	contact.Manifold.Points[1] = collision.ContactPoint{Position: cp.Vector{X: 0.5}, Distance: 0}

	var s Solver
	s.Prepare(w, []Contact{contact}, nil, common.DefaultTimeStep)
	s.Solve(w, 10)
	got := w.MotionVelocities()[0]
	if math.Abs(got.LinearVelocity.Y) > 1e-6 || math.Abs(got.AngularVelocity) > 1e-6 {
		t.Fatalf("contact should cancel the approach, got %+v", got)
	}
	if s.NumContacts() != 1 || s.NormalImpulse(0) <= 0 {
		t.Fatalf("expected a positive normal impulse")
	}
}

func TestSolverDistanceJoint(t *testing.T) {
	w, _ := NewWorld(1)
	mass, _ := CreateDynamic(boxProperties(t), 1)
	data, vel := NewMotion(common.NewTransform(cp.Vector{X: 2}, 0), mass)
	vel.LinearVelocity = cp.Vector{X: 3}
	_ = w.SetMotion(0, data, vel)

	rope := JointRow{MotionA: -1, MotionB: 0, AnchorB: cp.Vector{X: 2}, MinDistance: 0, MaxDistance: 2}
	var s Solver
	s.Prepare(w, nil, []JointRow{rope}, common.DefaultTimeStep)
	s.Solve(w, 4)
	if v := w.MotionVelocities()[0].LinearVelocity.X; v > 1e-9 {
		t.Fatalf("a taut rope should stop outward motion, got %v", v)
	}

	slack := rope
	slack.MaxDistance = 5
	_ = w.SetMotion(0, data, vel)
	s.Prepare(w, nil, []JointRow{slack}, common.DefaultTimeStep)
	s.Solve(w, 4)
	if v := w.MotionVelocities()[0].LinearVelocity.X; v != 3 {
		t.Fatalf("a slack rope must not act, got %v", v)
	}
}

func TestRestitutionNeedsTouchingContact(t *testing.T) {
	cases := []struct {
		name  string
		gap   float64
		wantY float64
	}{
		// 6 m/s closes 0.1 this step, short of the gap
		{"speculative", 0.105, -6},
		{"touching", 0, 6},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, _ := NewWorld(1)
			mass, _ := CreateDynamic(boxProperties(t), 1)
			data, vel := NewMotion(common.NewTransform(cp.Vector{Y: 0.5 + c.gap}, 0), mass)
			vel.LinearVelocity = cp.Vector{Y: -6}
			_ = w.SetMotion(0, data, vel)

			contact := Contact{MotionA: -1, MotionB: 0, Restitution: 1}
			contact.Manifold.Normal = cp.Vector{Y: 1}
			contact.Manifold.Count = 2
			contact.Manifold.Points[0] = collision.ContactPoint{Position: cp.Vector{X: -0.5, Y: c.gap}, Distance: c.gap}
			contact.Manifold.Points[1] = collision.ContactPoint{Position: cp.Vector{X: 0.5, Y: c.gap}, Distance: c.gap}

			var s Solver
			s.Prepare(w, []Contact{contact}, nil, 0.1/6)
			s.Solve(w, 10)
			if got := w.MotionVelocities()[0].LinearVelocity.Y; math.Abs(got-c.wantY) > 1e-6 {
				t.Fatalf("expected vy %v, got %v", c.wantY, got)
			}
		})
	}
}
