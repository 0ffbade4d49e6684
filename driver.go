package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/ecs"
	"github.com/milk9111/physics2d/physics"
	"github.com/milk9111/physics2d/prefabs"
)

// Driver owns a loaded scene and steps it.
type Driver struct {
	ctx        context.Context
	sceneName  string
	arena      *collision.ColliderArena
	world      *physics.World
	registry   *ecs.Registry
	sim        *physics.Simulation
	scripts    []prefabs.ScriptBinding
	scheduler  *ecs.Scheduler[*Driver]
	statsEvery int
	steps      int
}

func NewDriver(ctx context.Context, sceneName string, statsEvery int) (*Driver, error) {
	d := &Driver{
		ctx:        ctx,
		sceneName:  sceneName,
		arena:      collision.NewColliderArena(),
		sim:        physics.NewSimulation(),
		statsEvery: statsEvery,
	}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	d.scheduler = ecs.NewScheduler[*Driver](
		ecs.SystemFunc[*Driver](scriptSystem),
		ecs.SystemFunc[*Driver](stepSystem),
		ecs.SystemFunc[*Driver](eventSystem),
		ecs.SystemFunc[*Driver](statsSystem),
	)
	return d, nil
}

// Reload rebuilds the world and scripts from the scene file. On failure the
// current world is kept.
func (d *Driver) Reload() error {
	scene, err := prefabs.LoadSceneSpec(d.sceneName)
	if err != nil {
		return err
	}
	world, registry, err := prefabs.BuildWorld(scene, d.arena)
	if err != nil {
		return err
	}
	scripts, err := prefabs.LoadSceneScripts(scene)
	if err != nil {
		world.Dispose()
		return err
	}

	d.world.Dispose()
	d.world, d.registry, d.scripts = world, registry, scripts
	d.steps = 0
	log.Printf("Driver: loaded scene %q: %d static, %d dynamic bodies, %d joints, %d scripts",
		scene.Name, world.NumStaticBodies(), world.NumDynamicBodies(), len(world.Joints), len(scripts))
	return nil
}

func (d *Driver) Update() error {
	return d.scheduler.Update(d)
}

func (d *Driver) Close() {
	d.world.Dispose()
}

func scriptSystem(d *Driver) error {
	return prefabs.EnqueueScripts(d.sim.Callbacks(), d.scripts)
}

func stepSystem(d *Driver) error {
	if err := d.sim.Step(d.ctx, d.world); err != nil {
		return fmt.Errorf("step %d: %w", d.steps, err)
	}
	d.steps++
	return nil
}

func eventSystem(d *Driver) error {
	for _, ev := range d.sim.TriggerEvents() {
		log.Printf("Driver: step %d: %s entered trigger %s", d.steps, d.registry.Name(ev.EntityA), d.registry.Name(ev.EntityB))
	}
	return nil
}

func statsSystem(d *Driver) error {
	if d.statsEvery <= 0 || d.steps%d.statsEvery != 0 {
		return nil
	}

	contacts := len(d.sim.CollisionEvents())
	var fastest float64
	for _, v := range d.world.DynamicsWorld.MotionVelocities() {
		fastest = max(fastest, v.LinearVelocity.Length())
	}

	// cast straight down through the origin
	down := collision.RaycastInput{Start: cp.Vector{Y: 50}, End: cp.Vector{Y: -50}, Filter: collision.DefaultFilter}
	if hit, ok := collision.CastRayClosest(d.world, down); ok {
		log.Printf("Driver: step %d: %d contacts, fastest %.3f m/s, ray hit %s at %.3f",
			d.steps, contacts, fastest, d.registry.Name(hit.Entity), hit.Position.Y)
		return nil
	}
	log.Printf("Driver: step %d: %d contacts, fastest %.3f m/s, ray missed", d.steps, contacts, fastest)
	return nil
}
