package physics

import (
	"context"
	"fmt"
	"log"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/common"
	"github.com/milk9111/physics2d/dynamics"
	"github.com/milk9111/physics2d/ecs"
)

// Stage is the last point a step reached.
type Stage int

const (
	StageIdle Stage = iota
	StagePreBuild
	StageBuildBroadphase
	StagePreStepSimulation
	StageSimulate
	StagePostIntegrate
	StageExport
	StagePostExport
	StageReady
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StagePreBuild:
		return "PreBuild"
	case StageBuildBroadphase:
		return "BuildBroadphase"
	case StagePreStepSimulation:
		return "PreStepSimulation"
	case StageSimulate:
		return "Simulate"
	case StagePostIntegrate:
		return "PostIntegrate"
	case StageExport:
		return "Export"
	case StagePostExport:
		return "PostExport"
	case StageReady:
		return "Ready"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

const manifoldBatchSize = 32

// TriggerEvent reports a trigger body overlapping another body.
type TriggerEvent struct {
	BodyIndexA, BodyIndexB int
	EntityA, EntityB       ecs.Entity
}

// CollisionEvent reports two solid bodies touching.
type CollisionEvent struct {
	BodyIndexA, BodyIndexB int
	EntityA, EntityB       ecs.Entity
	// Normal points from A to B.
	Normal   cp.Vector
	Position cp.Vector
	Distance float64
}

// Simulation advances a World one step at a time. It keeps scratch storage between
// steps, so one Simulation should drive one world at a time.
type Simulation struct {
	callbacks Callbacks
	stage     Stage
	solver    dynamics.Solver

	pairs     []collision.IndexPair
	manifolds []collision.Manifold
	contacts  []dynamics.Contact
	joints    []dynamics.JointRow

	triggers   ecs.EventQueue[TriggerEvent]
	collisions ecs.EventQueue[CollisionEvent]
}

func NewSimulation() *Simulation {
	return &Simulation{}
}

// Callbacks is where user work for the next step is enqueued.
func (s *Simulation) Callbacks() *Callbacks { return &s.callbacks }

func (s *Simulation) Stage() Stage { return s.stage }

// TriggerEvents lists the trigger overlaps found by the last step.
func (s *Simulation) TriggerEvents() []TriggerEvent { return s.triggers.Items() }

// CollisionEvents lists the touching solid pairs found by the last step.
func (s *Simulation) CollisionEvents() []CollisionEvent { return s.collisions.Items() }

// Step runs one full step and waits for it.
func (s *Simulation) Step(ctx context.Context, w *World) error {
	return s.ScheduleStep(ctx, w, nil).Complete()
}

// ScheduleStep runs one step after inputDeps. The world must not be touched until
// the returned handle completes.
func (s *Simulation) ScheduleStep(ctx context.Context, w *World, inputDeps *JobHandle) *JobHandle {
	return Schedule(func() error {
		defer s.callbacks.Clear()
		if err := s.step(ctx, w); err != nil {
			log.Printf("Simulation: step failed at %v: %v", s.stage, err)
			return err
		}
		return nil
	}, inputDeps)
}

func (s *Simulation) runPhase(phase Phase, w *World) error {
	if err := s.callbacks.Execute(phase, w, nil).Complete(); err != nil {
		return fmt.Errorf("physics: %v callbacks: %w", phase, err)
	}
	return nil
}

func (s *Simulation) step(ctx context.Context, w *World) error {
	s.stage = StageIdle
	s.triggers.Clear()
	s.collisions.Clear()
	if w == nil || w.NumStaticBodies()+w.NumDynamicBodies() == 0 {
		return nil
	}

	s.stage = StagePreBuild
	if err := s.runPhase(PhasePreBuild, w); err != nil {
		return err
	}

	s.stage = StageBuildBroadphase
	if err := w.BuildBroadphase(ctx); err != nil {
		return fmt.Errorf("physics: build broadphase: %w", err)
	}

	s.stage = StagePreStepSimulation
	if err := s.runPhase(PhasePreStepSimulation, w); err != nil {
		return err
	}

	s.stage = StageSimulate
	// callbacks may have changed velocities; sweep again before pairing
	if err := w.BuildBroadphase(ctx); err != nil {
		return fmt.Errorf("physics: sweep broadphase: %w", err)
	}
	if err := s.simulate(ctx, w); err != nil {
		return err
	}

	s.stage = StagePostIntegrate
	if err := s.runPhase(PhasePostIntegrate, w); err != nil {
		return err
	}

	s.stage = StageExport
	w.ExportMotions()
	if err := w.RefitBroadphase(ctx); err != nil {
		return fmt.Errorf("physics: refit broadphase: %w", err)
	}

	s.stage = StagePostExport
	if err := s.runPhase(PhasePostExport, w); err != nil {
		return err
	}

	s.stage = StageReady
	return nil
}

func (s *Simulation) simulate(ctx context.Context, w *World) error {
	threads := w.Settings.Threads()
	dt := w.TimeStep

	var err error
	s.pairs, err = w.CollisionWorld.FindOverlaps(ctx, threads, s.pairs[:0])
	if err != nil {
		return fmt.Errorf("physics: find overlaps: %w", err)
	}
	if err := s.generateManifolds(ctx, w, threads); err != nil {
		return err
	}
	s.buildContacts(w)
	s.buildJoints(w)

	dw := w.DynamicsWorld
	if err := dw.ApplyGravityAndDamping(ctx, w.Settings.Gravity, dt, threads); err != nil {
		return fmt.Errorf("physics: gravity: %w", err)
	}
	s.solver.Prepare(dw, s.contacts, s.joints, dt)
	s.solver.Solve(dw, w.Settings.SolverIterations)
	if err := dw.Integrate(ctx, dt, threads); err != nil {
		return fmt.Errorf("physics: integrate: %w", err)
	}
	return nil
}

func (s *Simulation) generateManifolds(ctx context.Context, w *World, threads int) error {
	if cap(s.manifolds) < len(s.pairs) {
		s.manifolds = make([]collision.Manifold, len(s.pairs))
	}
	s.manifolds = s.manifolds[:len(s.pairs)]
	bodies := w.Bodies()
	return common.ParallelFor(ctx, len(s.pairs), manifoldBatchSize, threads, func(_ context.Context, begin, end int) error {
		for i := begin; i < end; i++ {
			p := s.pairs[i]
			a, b := &bodies[p.BodyIndexA], &bodies[p.BodyIndexB]
			reach := common.CollisionTolerance + w.Expansion(p.BodyIndexA).MaxDistance() + w.Expansion(p.BodyIndexB).MaxDistance()
			s.manifolds[i] = collision.GenerateManifold(a.Collider, a.WorldFromBody, b.Collider, b.WorldFromBody, reach)
		}
		return nil
	})
}

func (s *Simulation) buildContacts(w *World) {
	s.contacts = s.contacts[:0]
	bodies := w.Bodies()
	for i, p := range s.pairs {
		m := s.manifolds[i]
		if m.Count == 0 {
			continue
		}
		a, b := &bodies[p.BodyIndexA], &bodies[p.BodyIndexB]
		ma, mb := a.Collider.Material(), b.Collider.Material()

		closest := m.Points[0]
		for j := 1; j < m.Count; j++ {
			if m.Points[j].Distance < closest.Distance {
				closest = m.Points[j]
			}
		}

		if ma.IsTrigger() || mb.IsTrigger() {
			if closest.Distance <= 0 {
				s.triggers.Push(TriggerEvent{
					BodyIndexA: p.BodyIndexA, BodyIndexB: p.BodyIndexB,
					EntityA: a.Entity, EntityB: b.Entity,
				})
			}
			continue
		}

		s.contacts = append(s.contacts, dynamics.Contact{
			MotionA:     w.MotionIndex(p.BodyIndexA),
			MotionB:     w.MotionIndex(p.BodyIndexB),
			Manifold:    m,
			Friction:    collision.CombinedFriction(ma, mb),
			Restitution: collision.CombinedRestitution(ma, mb),
		})
		if closest.Distance <= common.CollisionTolerance {
			s.collisions.Push(CollisionEvent{
				BodyIndexA: p.BodyIndexA, BodyIndexB: p.BodyIndexB,
				EntityA: a.Entity, EntityB: b.Entity,
				Normal:   m.Normal,
				Position: closest.Position,
				Distance: closest.Distance,
			})
		}
	}
}

func (s *Simulation) buildJoints(w *World) {
	s.joints = s.joints[:0]
	bodies := w.Bodies()
	for _, j := range w.Joints {
		s.joints = append(s.joints, dynamics.JointRow{
			MotionA:     w.MotionIndex(j.BodyA),
			MotionB:     w.MotionIndex(j.BodyB),
			AnchorA:     bodies[j.BodyA].WorldFromBody.TransformPoint(j.LocalAnchorA),
			AnchorB:     bodies[j.BodyB].WorldFromBody.TransformPoint(j.LocalAnchorB),
			MinDistance: j.MinDistance,
			MaxDistance: j.MaxDistance,
		})
	}
}
