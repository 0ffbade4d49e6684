package prefabs

import (
	"fmt"
	"strings"

	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/common"
	"github.com/milk9111/physics2d/dynamics"
	"github.com/milk9111/physics2d/ecs"
	"github.com/milk9111/physics2d/physics"
)

const groundBodyName = "ground"

// Settings converts the scene settings, falling back to defaults for unset fields.
func (s SettingsSpec) Settings() physics.Settings {
	out := physics.DefaultSettings()
	if s.Gravity != nil {
		out.Gravity = s.Gravity.Vector()
	}
	if s.AabbInflation != nil {
		out.AabbInflation = *s.AabbInflation
	}
	out.NumberOfThreadsHint = s.Threads
	out.SolverIterations = s.SolverIterations
	out.TimeStep = s.TimeStep
	return out.Normalize()
}

// BuildWorld creates a world holding every body of scene, with colliders shared
// through arena. Each body gets an entity in the returned registry, named after it.
func BuildWorld(scene SceneSpec, arena *collision.ColliderArena) (*physics.World, *ecs.Registry, error) {
	if arena == nil {
		return nil, nil, fmt.Errorf("prefabs: build world: nil arena: %w", common.ErrInvalidArgument)
	}
	layers, err := newLayerTable(scene.Layers, scene.CollisionMatrix)
	if err != nil {
		return nil, nil, err
	}

	var statics, movers []int
	names := make(map[string]bool, len(scene.Bodies))
	for i, b := range scene.Bodies {
		if b.Name != "" {
			if names[b.Name] || b.Name == groundBodyName {
				return nil, nil, fmt.Errorf("prefabs: body %q: duplicate name: %w", b.Name, common.ErrInvalidArgument)
			}
			names[b.Name] = true
		}
		switch strings.ToLower(b.Motion) {
		case "", "static":
			statics = append(statics, i)
		case "dynamic", "kinematic":
			movers = append(movers, i)
		default:
			return nil, nil, fmt.Errorf("prefabs: body %q: unknown motion %q: %w", b.Name, b.Motion, common.ErrInvalidArgument)
		}
	}

	world, err := physics.NewWorld(len(statics), len(movers), scene.Settings.Settings())
	if err != nil {
		return nil, nil, fmt.Errorf("prefabs: build world: %w", err)
	}
	registry := ecs.NewRegistry()
	bodyIndex := make(map[string]int, len(scene.Bodies))

	fail := func(err error) (*physics.World, *ecs.Registry, error) {
		world.Dispose()
		return nil, nil, err
	}

	for si, i := range statics {
		spec := scene.Bodies[i]
		body, err := buildBody(spec, layers, arena, registry)
		if err != nil {
			return fail(err)
		}
		err = world.SetStaticBody(si, body)
		body.Collider.Release()
		if err != nil {
			return fail(err)
		}
		if spec.Name != "" {
			bodyIndex[spec.Name] = si
		}
	}

	for di, i := range movers {
		spec := scene.Bodies[i]
		body, err := buildBody(spec, layers, arena, registry)
		if err != nil {
			return fail(err)
		}
		err = setDynamic(world, di, spec, body)
		body.Collider.Release()
		if err != nil {
			return fail(err)
		}
		if spec.Name != "" {
			bodyIndex[spec.Name] = len(statics) + di
		}
	}

	resolve := func(name string) (int, error) {
		if name == "" || name == groundBodyName {
			return world.GroundBodyIndex(), nil
		}
		i, ok := bodyIndex[name]
		if !ok {
			return 0, fmt.Errorf("prefabs: joint: unknown body %q: %w", name, common.ErrInvalidArgument)
		}
		return i, nil
	}
	for _, j := range scene.Joints {
		a, err := resolve(j.BodyA)
		if err != nil {
			return fail(err)
		}
		b, err := resolve(j.BodyB)
		if err != nil {
			return fail(err)
		}
		joint := dynamics.DistanceJoint{
			BodyA:        a,
			BodyB:        b,
			LocalAnchorA: j.AnchorA.Vector(),
			LocalAnchorB: j.AnchorB.Vector(),
			MinDistance:  j.MinDistance,
			MaxDistance:  j.MaxDistance,
		}
		if err := world.AddJoint(joint); err != nil {
			return fail(fmt.Errorf("prefabs: joint %s-%s: %w", j.BodyA, j.BodyB, err))
		}
	}

	return world, registry, nil
}

func setDynamic(world *physics.World, i int, spec BodySpec, body collision.Body) error {
	mp := body.Collider.MassProperties()
	var (
		mass dynamics.Mass
		err  error
	)
	if strings.EqualFold(spec.Motion, "kinematic") {
		mass, err = dynamics.CreateKinematic(mp)
	} else {
		m := spec.Mass
		if m == 0 {
			m = 1
		}
		mass, err = dynamics.CreateDynamic(mp, m)
	}
	if err != nil {
		return fmt.Errorf("prefabs: body %q: %w", spec.Name, err)
	}
	if err := world.SetDynamicBody(i, body, mass); err != nil {
		return fmt.Errorf("prefabs: body %q: %w", spec.Name, err)
	}

	data, vel, err := world.Motion(i)
	if err != nil {
		return err
	}
	vel.LinearVelocity = spec.Velocity.Vector()
	vel.AngularVelocity = spec.AngularVelocity
	data.LinearDamping = spec.LinearDamping
	data.AngularDamping = spec.AngularDamping
	if spec.GravityFactor != nil {
		data.GravityFactor = *spec.GravityFactor
	}
	return nil
}

// buildBody acquires the collider of spec. The caller owns one collider reference.
func buildBody(spec BodySpec, layers layerTable, arena *collision.ColliderArena, registry *ecs.Registry) (collision.Body, error) {
	geometry, err := buildGeometry(spec.Shape)
	if err != nil {
		return collision.Body{}, fmt.Errorf("prefabs: body %q: %w", spec.Name, err)
	}
	filter, err := layers.filter(spec.Layer, spec.Group)
	if err != nil {
		return collision.Body{}, fmt.Errorf("prefabs: body %q: %w", spec.Name, err)
	}
	material, err := buildMaterial(spec.Material)
	if err != nil {
		return collision.Body{}, fmt.Errorf("prefabs: body %q: %w", spec.Name, err)
	}
	xf, err := bodyTransform(spec)
	if err != nil {
		return collision.Body{}, fmt.Errorf("prefabs: body %q: %w", spec.Name, err)
	}
	collider, err := arena.Acquire(geometry, filter, material)
	if err != nil {
		return collision.Body{}, fmt.Errorf("prefabs: body %q: %w", spec.Name, err)
	}
	return collision.Body{
		Collider:      collider,
		WorldFromBody: xf,
		Entity:        registry.Create(spec.Name),
	}, nil
}

// bodyTransform places a body by angle or by quaternion, never both.
func bodyTransform(spec BodySpec) (common.Transform, error) {
	if spec.Rotation == nil {
		return common.NewTransform(spec.Position.Vector(), spec.Angle), nil
	}
	if spec.Angle != 0 {
		return common.Transform{}, fmt.Errorf("both angle and rotation set: %w", common.ErrInvalidArgument)
	}
	q, err := spec.Rotation.Quaternion().Normalize()
	if err != nil {
		return common.Transform{}, err
	}
	return common.NewTransformFromQuaternion(spec.Position.Vector(), q), nil
}

func buildGeometry(s ShapeSpec) (collision.Geometry, error) {
	switch strings.ToLower(s.Type) {
	case "circle":
		return collision.CircleGeometry{Center: s.Center.Vector(), Radius: s.Radius}, nil
	case "box":
		return collision.BoxGeometry{Center: s.Center.Vector(), Size: s.Size.Vector(), Angle: s.Angle, BevelRadius: s.Bevel}, nil
	case "capsule":
		return collision.CapsuleGeometry{Vertex0: s.Vertex0.Vector(), Vertex1: s.Vertex1.Vector(), Radius: s.Radius}, nil
	case "polygon":
		g := collision.PolygonGeometry{BevelRadius: s.Bevel}
		for _, v := range s.Vertices {
			g.Vertices = append(g.Vertices, v.Vector())
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown shape %q: %w", s.Type, common.ErrInvalidArgument)
}

func buildMaterial(s MaterialSpec) (collision.Material, error) {
	m := collision.DefaultMaterial()
	if s.Trigger {
		m.Flags |= collision.MaterialIsTrigger
	}
	if s.Friction != nil {
		m.Friction = *s.Friction
	}
	m.Restitution = s.Restitution
	var err error
	if m.FrictionCombine, err = parseCombinePolicy(s.FrictionCombine, m.FrictionCombine); err != nil {
		return m, err
	}
	if m.RestitutionCombine, err = parseCombinePolicy(s.RestitutionCombine, m.RestitutionCombine); err != nil {
		return m, err
	}
	return m, nil
}

func parseCombinePolicy(name string, fallback collision.CombinePolicy) (collision.CombinePolicy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return fallback, nil
	case "min":
		return collision.CombineMinimum, nil
	case "max":
		return collision.CombineMaximum, nil
	}
	for p := collision.CombineMinimum; p <= collision.CombineArithmeticMean; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return fallback, fmt.Errorf("unknown combine policy %q: %w", name, common.ErrInvalidArgument)
}

// layerTable maps layer names to bits and their collision matrix rows.
type layerTable struct {
	bits map[string]int
	rows map[string]uint32
}

func newLayerTable(layers []string, matrix map[string][]string) (layerTable, error) {
	if len(layers) > 32 {
		return layerTable{}, fmt.Errorf("prefabs: %d layers, at most 32: %w", len(layers), common.ErrInvalidArgument)
	}
	t := layerTable{bits: make(map[string]int, len(layers)), rows: make(map[string]uint32, len(matrix))}
	for i, name := range layers {
		if _, dup := t.bits[name]; dup || name == "" {
			return layerTable{}, fmt.Errorf("prefabs: layer %q: %w", name, common.ErrInvalidArgument)
		}
		t.bits[name] = i
	}
	for name, row := range matrix {
		if _, ok := t.bits[name]; !ok {
			return layerTable{}, fmt.Errorf("prefabs: collision matrix: unknown layer %q: %w", name, common.ErrInvalidArgument)
		}
		indices := make([]int, 0, len(row))
		for _, other := range row {
			bit, ok := t.bits[other]
			if !ok {
				return layerTable{}, fmt.Errorf("prefabs: collision matrix %s: unknown layer %q: %w", name, other, common.ErrInvalidArgument)
			}
			indices = append(indices, bit)
		}
		mask, err := collision.CreateMask(indices...)
		if err != nil {
			return layerTable{}, err
		}
		t.rows[name] = mask
	}
	return t, nil
}

// filter returns the filter of a body on layer. No layer means the default filter.
// A layer missing from the matrix collides with everything.
func (t layerTable) filter(layer string, group int32) (collision.Filter, error) {
	f := collision.DefaultFilter
	f.GroupIndex = group
	if layer == "" {
		return f, nil
	}
	bit, ok := t.bits[layer]
	if !ok {
		return f, fmt.Errorf("unknown layer %q: %w", layer, common.ErrInvalidArgument)
	}
	belongs, err := collision.CreateMask(bit)
	if err != nil {
		return f, err
	}
	f.BelongsTo = belongs
	if row, ok := t.rows[layer]; ok {
		f.CollidesWith = row
	}
	return f, nil
}
