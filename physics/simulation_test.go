package physics

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/common"
	"github.com/milk9111/physics2d/dynamics"
)

func mustBox(t *testing.T, size cp.Vector) *collision.Collider {
	t.Helper()
	c, err := collision.NewBox(collision.BoxGeometry{Size: size}, collision.DefaultFilter, collision.DefaultMaterial())
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	return c
}

func mustCircle(t *testing.T, radius float64) *collision.Collider {
	t.Helper()
	c, err := collision.NewCircle(collision.CircleGeometry{Radius: radius}, collision.DefaultFilter, collision.DefaultMaterial())
	if err != nil {
		t.Fatalf("circle: %v", err)
	}
	return c
}

func addDynamic(t *testing.T, w *World, i int, c *collision.Collider, pos cp.Vector, mass float64) {
	t.Helper()
	m, err := dynamics.CreateDynamic(c.MassProperties(), mass)
	if err != nil {
		t.Fatalf("mass: %v", err)
	}
	body := collision.Body{Collider: c, WorldFromBody: common.NewTransform(pos, 0)}
	if err := w.SetDynamicBody(i, body, m); err != nil {
		t.Fatalf("set dynamic body: %v", err)
	}
}

// boxOnGround is a unit box resting on a wide static slab whose top is y=0.
func boxOnGround(t *testing.T, height float64) *World {
	t.Helper()
	w, err := NewWorld(1, 1, DefaultSettings())
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	ground := collision.Body{Collider: mustBox(t, cp.Vector{X: 20, Y: 1}), WorldFromBody: common.NewTransform(cp.Vector{Y: -0.5}, 0)}
	if err := w.SetStaticBody(0, ground); err != nil {
		t.Fatalf("set static body: %v", err)
	}
	addDynamic(t, w, 0, mustBox(t, cp.Vector{X: 1, Y: 1}), cp.Vector{Y: height}, 1)
	return w
}

func TestGravityThroughSimulation(t *testing.T) {
	w, err := NewWorld(0, 1, DefaultSettings())
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	addDynamic(t, w, 0, mustCircle(t, 0.5), cp.Vector{}, 2)

	sim := NewSimulation()
	steps := 30
	for i := 0; i < steps; i++ {
		if err := sim.Step(context.Background(), w); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if sim.Stage() != StageReady {
		t.Fatalf("expected stage Ready, got %v", sim.Stage())
	}
	dt := w.TimeStep
	wantY := common.Gravity * dt * dt * float64(steps*(steps+1)) / 2
	got := w.Bodies()[0].WorldFromBody.Translation
	if math.Abs(got.Y-wantY) > 1e-9 || got.X != 0 {
		t.Fatalf("expected body at (0,%v), got %v", wantY, got)
	}
}

func TestRestingContactDoesNotTunnel(t *testing.T) {
	cases := []struct {
		name   string
		height float64
	}{
		{"resting", 0.5},
		{"dropped", 4},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := boxOnGround(t, c.height)
			sim := NewSimulation()
			for i := 0; i < 240; i++ {
				if err := sim.Step(context.Background(), w); err != nil {
					t.Fatalf("step %d: %v", i, err)
				}
			}
			y := w.Bodies()[1].WorldFromBody.Translation.Y
			if y < 0.4 || y > 0.6 {
				t.Fatalf("box should rest on the ground at 0.5, got %v", y)
			}
			if v := w.DynamicsWorld.MotionVelocities()[0].LinearVelocity; v.Length() > 0.1 {
				t.Fatalf("box should be at rest, velocity %v", v)
			}
			if len(sim.CollisionEvents()) == 0 {
				t.Fatalf("expected a collision event for the resting box")
			}
		})
	}
}

func TestTriggerReportsWithoutResponse(t *testing.T) {
	w, _ := NewWorld(1, 1, DefaultSettings())
	sensorMat := collision.DefaultMaterial()
	sensorMat.Flags |= collision.MaterialIsTrigger
	sensor, err := collision.NewBox(collision.BoxGeometry{Size: cp.Vector{X: 4, Y: 4}}, collision.DefaultFilter, sensorMat)
	if err != nil {
		t.Fatalf("sensor: %v", err)
	}
	_ = w.SetStaticBody(0, collision.Body{Collider: sensor, WorldFromBody: common.TransformIdentity})
	addDynamic(t, w, 0, mustCircle(t, 0.25), cp.Vector{}, 1)

	sim := NewSimulation()
	if err := sim.Step(context.Background(), w); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(sim.TriggerEvents()) != 1 || len(sim.CollisionEvents()) != 0 {
		t.Fatalf("expected one trigger event, got %d triggers %d collisions", len(sim.TriggerEvents()), len(sim.CollisionEvents()))
	}
	if ev := sim.TriggerEvents()[0]; ev.BodyIndexA != 1 || ev.BodyIndexB != 0 {
		t.Fatalf("unexpected trigger pair %+v", ev)
	}
	if vy := w.DynamicsWorld.MotionVelocities()[0].LinearVelocity.Y; vy >= 0 {
		t.Fatalf("a trigger must not hold the body up, vy %v", vy)
	}
}

func TestEmptyWorldRunsNothing(t *testing.T) {
	w, _ := NewWorld(0, 0, DefaultSettings())
	sim := NewSimulation()
	called := false
	_ = sim.Callbacks().Enqueue(PhasePreBuild, func(*World, *JobHandle) *JobHandle {
		called = true
		return nil
	}, nil)
	if err := sim.Step(context.Background(), w); err != nil {
		t.Fatalf("step: %v", err)
	}
	if called || sim.Stage() != StageIdle {
		t.Fatalf("an empty world must not run callbacks, stage %v", sim.Stage())
	}
	if sim.Callbacks().Len(PhasePreBuild) != 0 {
		t.Fatalf("callbacks must be cleared after a step")
	}
}

func TestCallbackPhaseOrder(t *testing.T) {
	w := boxOnGround(t, 0.5)
	sim := NewSimulation()

	var order []string
	record := func(name string) Callback {
		return func(_ *World, deps *JobHandle) *JobHandle {
			return Schedule(func() error {
				order = append(order, name)
				return nil
			}, deps)
		}
	}
	// enqueued out of order on purpose
	_ = sim.Callbacks().Enqueue(PhasePostExport, record("post_export"), nil)
	_ = sim.Callbacks().Enqueue(PhasePreStepSimulation, record("pre_step"), nil)
	_ = sim.Callbacks().Enqueue(PhasePreBuild, record("pre_build_1"), nil)
	_ = sim.Callbacks().Enqueue(PhasePostIntegrate, record("post_integrate"), nil)
	_ = sim.Callbacks().Enqueue(PhasePreBuild, record("pre_build_2"), nil)

	if err := sim.Step(context.Background(), w); err != nil {
		t.Fatalf("step: %v", err)
	}
	want := []string{"pre_build_1", "pre_build_2", "pre_step", "post_integrate", "post_export"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}

	order = nil
	if err := sim.Step(context.Background(), w); err != nil {
		t.Fatalf("second step: %v", err)
	}
	if len(order) != 0 {
		t.Fatalf("callbacks should not survive a step, got %v", order)
	}
}

func TestCallbackDependencyFolding(t *testing.T) {
	var c Callbacks
	release := make(chan struct{})
	gate := Schedule(func() error {
		<-release
		return nil
	}, nil)

	sawGate := false
	_ = c.Enqueue(PhasePreBuild, func(_ *World, deps *JobHandle) *JobHandle {
		return Schedule(func() error {
			sawGate = gate.IsCompleted()
			return nil
		}, deps)
	}, gate)

	tail := c.Execute(PhasePreBuild, nil, nil)
	if tail.IsCompleted() {
		t.Fatalf("tail finished before the enqueued dependency")
	}
	close(release)
	if err := tail.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !sawGate {
		t.Fatalf("callback ran before its dependency completed")
	}

	if err := c.Enqueue(numPhases, func(*World, *JobHandle) *JobHandle { return nil }, nil); !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for a bad phase, got %v", err)
	}
	if err := c.Enqueue(PhasePostExport, nil, nil); !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for a nil callback, got %v", err)
	}
}

func TestFailingCallbackStopsStep(t *testing.T) {
	w := boxOnGround(t, 0.5)
	before := w.Bodies()[1].WorldFromBody
	sim := NewSimulation()
	boom := errors.New("boom")
	_ = sim.Callbacks().Enqueue(PhasePreStepSimulation, func(_ *World, deps *JobHandle) *JobHandle {
		return Schedule(func() error { return boom }, deps)
	}, nil)

	if err := sim.Step(context.Background(), w); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if sim.Stage() != StagePreStepSimulation {
		t.Fatalf("expected the step to stop at PreStepSimulation, got %v", sim.Stage())
	}
	if w.Bodies()[1].WorldFromBody != before {
		t.Fatalf("a failed step must not move bodies")
	}
}

func TestScriptedVelocityChange(t *testing.T) {
	w, _ := NewWorld(0, 1, Settings{Gravity: cp.Vector{}})
	addDynamic(t, w, 0, mustCircle(t, 0.5), cp.Vector{}, 1)
	sim := NewSimulation()
	_ = sim.Callbacks().Enqueue(PhasePreStepSimulation, func(w *World, deps *JobHandle) *JobHandle {
		return Schedule(func() error {
			_, vel, err := w.Motion(0)
			if err != nil {
				return err
			}
			vel.LinearVelocity = cp.Vector{X: 6}
			return nil
		}, deps)
	}, nil)
	if err := sim.Step(context.Background(), w); err != nil {
		t.Fatalf("step: %v", err)
	}
	if x := w.Bodies()[0].WorldFromBody.Translation.X; math.Abs(x-6*w.TimeStep) > 1e-12 {
		t.Fatalf("expected x %v, got %v", 6*w.TimeStep, x)
	}
}

func TestDistanceJointHoldsPendulum(t *testing.T) {
	w, _ := NewWorld(0, 1, DefaultSettings())
	addDynamic(t, w, 0, mustCircle(t, 0.25), cp.Vector{X: 2}, 1)
	if err := w.AddJoint(dynamics.DistanceJoint{BodyA: w.GroundBodyIndex(), BodyB: 0, MaxDistance: 2}); err != nil {
		t.Fatalf("add joint: %v", err)
	}
	if err := w.AddJoint(dynamics.DistanceJoint{BodyA: 0, BodyB: 0, MaxDistance: 2}); !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for a self joint, got %v", err)
	}

	sim := NewSimulation()
	lowest := 0.0
	for i := 0; i < 120; i++ {
		if err := sim.Step(context.Background(), w); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		p := w.Bodies()[0].WorldFromBody.Translation
		if d := p.Length(); d > 2.1 {
			t.Fatalf("step %d: pendulum escaped its rope, distance %v", i, d)
		}
		lowest = math.Min(lowest, p.Y)
	}
	if lowest > -1.9 {
		t.Fatalf("pendulum should have swung through the bottom, lowest y %v", lowest)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	w := boxOnGround(t, 3)
	c := w.Clone()
	defer c.Dispose()

	sim := NewSimulation()
	for i := 0; i < 10; i++ {
		if err := sim.Step(context.Background(), c); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if y := w.Bodies()[1].WorldFromBody.Translation.Y; y != 3 {
		t.Fatalf("stepping a clone moved the original to %v", y)
	}
	if y := c.Bodies()[1].WorldFromBody.Translation.Y; y >= 3 {
		t.Fatalf("clone should have fallen, y %v", y)
	}
}

func TestWorldRayQueries(t *testing.T) {
	w, _ := NewWorld(1, 0, DefaultSettings())
	_ = w.SetStaticBody(0, collision.Body{Collider: mustCircle(t, 1), WorldFromBody: common.TransformIdentity})
	if err := w.BuildBroadphase(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}

	in := collision.RaycastInput{Start: cp.Vector{X: -5}, End: cp.Vector{X: 5}, Filter: collision.DefaultFilter}
	closest, ok := collision.CastRayClosest(w, in)
	if !ok {
		t.Fatalf("expected a hit")
	}
	var all []collision.RaycastHit
	if !collision.CastRayAll(w, in, &all) || len(all) != 1 {
		t.Fatalf("expected exactly one hit, got %d", len(all))
	}
	if math.Abs(closest.Fraction-0.4) > 1e-9 || all[0].Fraction != closest.Fraction || all[0].RigidBodyIndex != 0 {
		t.Fatalf("closest %+v and all %+v disagree", closest, all[0])
	}
	if !near(closest.SurfaceNormal, cp.Vector{X: -1}) {
		t.Fatalf("expected normal (-1,0), got %v", closest.SurfaceNormal)
	}
}

func near(a, b cp.Vector) bool {
	return a.Sub(b).Length() < 1e-9
}

func TestWorldResetGrowthOnly(t *testing.T) {
	w, _ := NewWorld(8, 4, DefaultSettings())
	collisionCap, motionCap := w.CollisionWorld.Capacity(), w.DynamicsWorld.Capacity()
	_ = w.AddJoint(dynamics.DistanceJoint{BodyA: 8, BodyB: 9, MaxDistance: 1})

	if err := w.Reset(2, 1); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := w.Reset(8, 4); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if w.CollisionWorld.Capacity() != collisionCap || w.DynamicsWorld.Capacity() != motionCap {
		t.Fatalf("reset to the original size reallocated")
	}
	if len(w.Joints) != 0 {
		t.Fatalf("reset should drop joints")
	}
	if err := w.Reset(-1, 0); !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	w.Dispose()
	w.Dispose()
}

func TestSettingsValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Settings)
		ok   bool
	}{
		{"defaults", func(*Settings) {}, true},
		{"nan_gravity", func(s *Settings) { s.Gravity.Y = math.NaN() }, false},
		{"negative_inflation", func(s *Settings) { s.AabbInflation = -1 }, false},
		{"negative_iterations", func(s *Settings) { s.SolverIterations = -2 }, false},
		{"inf_time_step", func(s *Settings) { s.TimeStep = math.Inf(1) }, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := DefaultSettings()
			c.mod(&s)
			_, err := NewWorld(1, 1, s)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && !errors.Is(err, common.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestZeroInflationIsKept(t *testing.T) {
	s := DefaultSettings()
	s.AabbInflation = 0
	w, err := NewWorld(0, 1, s)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	defer w.Dispose()
	if w.Settings.AabbInflation != 0 {
		t.Fatalf("zero inflation should mean tight bounds, got %v", w.Settings.AabbInflation)
	}
	if n := (Settings{}).Normalize(); n.SolverIterations != common.DefaultSolverIterations || n.TimeStep != common.DefaultTimeStep {
		t.Fatalf("zero iterations and time step should take defaults, got %+v", n)
	}
}

func pushInPreStep(sim *Simulation, v cp.Vector) {
	_ = sim.Callbacks().Enqueue(PhasePreStepSimulation, func(w *World, deps *JobHandle) *JobHandle {
		return Schedule(func() error {
			_, vel, err := w.Motion(0)
			if err != nil {
				return err
			}
			vel.LinearVelocity = v
			return nil
		}, deps)
	}, nil)
}

func TestWorldQueriesFollowExportedBodies(t *testing.T) {
	w, _ := NewWorld(0, 1, Settings{})
	addDynamic(t, w, 0, mustBox(t, cp.Vector{X: 1, Y: 1}), cp.Vector{}, 1)

	sim := NewSimulation()
	pushInPreStep(sim, cp.Vector{X: 30})
	if err := sim.Step(context.Background(), w); err != nil {
		t.Fatalf("step: %v", err)
	}
	body := w.Bodies()[0]
	if x := body.WorldFromBody.Translation.X; math.Abs(x-0.5) > 1e-9 {
		t.Fatalf("expected the box at x 0.5, got %v", x)
	}

	ray := collision.RaycastInput{Start: cp.Vector{X: 0.8, Y: 5}, End: cp.Vector{X: 0.8, Y: -5}, Filter: collision.DefaultFilter}
	point := collision.OverlapPointInput{Position: cp.Vector{X: 0.8}, Filter: collision.DefaultFilter}
	if !collision.CastRayAny(&body, ray) || !collision.OverlapPointAny(&body, point) {
		t.Fatalf("the body itself should be hit at x 0.8")
	}
	if !collision.CastRayAny(w, ray) {
		t.Fatalf("world ray missed a body the body-level ray hits")
	}
	if !collision.OverlapPointAny(w, point) {
		t.Fatalf("world point overlap missed a body the body-level query hits")
	}
}

func TestVelocityChangedBeforeStepIsSwept(t *testing.T) {
	w, _ := NewWorld(1, 1, Settings{})
	wall := collision.Body{Collider: mustBox(t, cp.Vector{X: 0.2, Y: 4}), WorldFromBody: common.NewTransform(cp.Vector{X: 1}, 0)}
	_ = w.SetStaticBody(0, wall)
	addDynamic(t, w, 0, mustBox(t, cp.Vector{X: 1, Y: 1}), cp.Vector{}, 1)

	sim := NewSimulation()
	// two units per step, far enough to pass the wall entirely
	pushInPreStep(sim, cp.Vector{X: 120})
	if err := sim.Step(context.Background(), w); err != nil {
		t.Fatalf("step: %v", err)
	}
	// the wall face is at x 0.9, so the box centre must stay left of 0.4 plus slack
	if x := w.Bodies()[1].WorldFromBody.Translation.X; x > 0.45 || x < 0.2 {
		t.Fatalf("box should stop at the wall near x 0.4, got %v", x)
	}
}
