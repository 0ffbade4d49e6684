package common

import (
	"errors"
	"math"
	"testing"

	"github.com/jakecoffman/cp"
)

const eps = 1e-9

func near(a, b cp.Vector) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps
}

func TestTransformRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		xf    Transform
		point cp.Vector
	}{
		{"identity", TransformIdentity, cp.Vector{X: 3, Y: -2}},
		{"translate", NewTransform(cp.Vector{X: 1, Y: 2}, 0), cp.Vector{X: -1, Y: 4}},
		{"rotate_quarter", NewTransform(cp.Vector{}, math.Pi/2), cp.Vector{X: 1, Y: 0}},
		{"rigid", NewTransform(cp.Vector{X: -5, Y: 0.5}, 1.234), cp.Vector{X: 0.25, Y: 7}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			world := c.xf.TransformPoint(c.point)
			back := c.xf.InverseTransformPoint(world)
			if !near(back, c.point) {
				t.Fatalf("expected %v, got %v", c.point, back)
			}
			viaInverse := c.xf.Inverse().TransformPoint(world)
			if !near(viaInverse, c.point) {
				t.Fatalf("inverse transform mismatch: %v vs %v", viaInverse, c.point)
			}
		})
	}
}

func TestRotationQuarterTurn(t *testing.T) {
	r := NewRotation(math.Pi / 2)
	got := r.Mul(cp.Vector{X: 1})
	if !near(got, cp.Vector{Y: 1}) {
		t.Fatalf("expected (0,1), got %v", got)
	}
	if math.Abs(r.Angle()-math.Pi/2) > eps {
		t.Fatalf("expected angle pi/2, got %v", r.Angle())
	}
}

func TestTransformCompose(t *testing.T) {
	a := NewTransform(cp.Vector{X: 1, Y: 1}, 0.3)
	b := NewTransform(cp.Vector{X: -2, Y: 0.5}, -1.1)
	p := cp.Vector{X: 0.7, Y: -0.4}

	composed := a.Mul(b).TransformPoint(p)
	stepwise := a.TransformPoint(b.TransformPoint(p))
	if !near(composed, stepwise) {
		t.Fatalf("expected %v, got %v", stepwise, composed)
	}
	rel := a.MulT(a.Mul(b))
	if !near(rel.Translation, b.Translation) || math.Abs(rel.Angle()-b.Angle()) > eps {
		t.Fatalf("MulT should undo Mul, got %+v", rel)
	}
}

func TestQuaternionPlanarAngle(t *testing.T) {
	for _, angle := range []float64{0, 0.5, -2, math.Pi / 3} {
		q := QuaternionFromAngle(angle)
		if got := q.PlanarAngle(); math.Abs(got-angle) > eps {
			t.Fatalf("angle %v: got %v", angle, got)
		}
	}
	xf := NewTransformFromQuaternion(cp.Vector{X: 2, Y: 3}, QuaternionIdentity)
	if !near(xf.TransformPoint(cp.Vector{}), cp.Vector{X: 2, Y: 3}) {
		t.Fatalf("identity quaternion should only translate")
	}
}

func TestQuaternionNormalize(t *testing.T) {
	tests := []struct {
		name    string
		q       Quaternion
		wantErr bool
	}{
		{name: "identity", q: QuaternionIdentity},
		{name: "scaled", q: Quaternion{Z: 2, W: 2}},
		{name: "zero", q: Quaternion{}, wantErr: true},
		{name: "nan", q: Quaternion{W: math.NaN()}, wantErr: true},
		{name: "inf", q: Quaternion{Z: math.Inf(1)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.q.Normalize()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if n := got.X*got.X + got.Y*got.Y + got.Z*got.Z + got.W*got.W; math.Abs(n-1) > eps {
				t.Fatalf("expected unit length, got %v", n)
			}
		})
	}
	q, _ := Quaternion{Z: 2, W: 2}.Normalize()
	if math.Abs(q.PlanarAngle()-math.Pi/2) > eps {
		t.Fatalf("expected a quarter turn, got %v", q.PlanarAngle())
	}
}

func TestCrossHelpers(t *testing.T) {
	v := cp.Vector{X: 2, Y: 3}
	if got := CrossSV(1, v); !near(got, v.Perp()) {
		t.Fatalf("CrossSV(1, v) should equal perp, got %v", got)
	}
	if got := CrossVS(v, 1); !near(got, v.ReversePerp()) {
		t.Fatalf("CrossVS(v, 1) should equal reverse perp, got %v", got)
	}
}

func TestCheckIndex(t *testing.T) {
	if err := CheckIndex(2, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !SafetyChecks {
		t.Skip("safety checks compiled out")
	}
	for _, idx := range []int{-1, 3, 10} {
		if err := CheckIndex(idx, 3); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
}
