package prefabs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
	"github.com/milk9111/physics2d/physics"
)

// Scripts define `step := func(engine, state) { ... }`; state persists across runs.
const scriptDispatch = `
step(__engine, __state)
`

// ScriptCallback runs a compiled tengo script as a phase callback.
type ScriptCallback struct {
	name     string
	mu       sync.Mutex
	compiled *tengo.Compiled
	state    *tengo.Map
}

// NewScriptCallback compiles src once.
func NewScriptCallback(name string, src []byte) (*ScriptCallback, error) {
	script := tengo.NewScript([]byte(string(src) + "\n" + scriptDispatch))
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__state", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("prefabs: compile script %s: %w", name, err)
	}
	return &ScriptCallback{
		name:     name,
		compiled: compiled,
		state:    &tengo.Map{Value: map[string]tengo.Object{}},
	}, nil
}

// LoadScriptCallback reads and compiles a script from prefabs/scripts.
func LoadScriptCallback(name string) (*ScriptCallback, error) {
	src, err := LoadScript(name)
	if err != nil {
		return nil, fmt.Errorf("prefabs: load script %s: %w", name, err)
	}
	return NewScriptCallback(name, src)
}

func (s *ScriptCallback) Name() string { return s.name }

// State returns the value the script stored under key, or nil.
func (s *ScriptCallback) State(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.state.Value[key]
	if !ok {
		return nil
	}
	return tengo.ToInterface(obj)
}

// Run executes the script once against w.
func (s *ScriptCallback) Run(w *physics.World) error {
	if s == nil || s.compiled == nil {
		return fmt.Errorf("prefabs: nil script: %w", common.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.compiled.Set("__engine", buildScriptEngine(w)); err != nil {
		return err
	}
	if err := s.compiled.Set("__state", s.state); err != nil {
		return err
	}
	if err := s.compiled.Run(); err != nil {
		return fmt.Errorf("prefabs: run script %s: %w", s.name, err)
	}
	return nil
}

// Callback adapts the script to a physics phase callback.
func (s *ScriptCallback) Callback() physics.Callback {
	return func(w *physics.World, deps *physics.JobHandle) *physics.JobHandle {
		return physics.Schedule(func() error { return s.Run(w) }, deps)
	}
}

// ScriptBinding is a compiled script and the phase it runs in.
type ScriptBinding struct {
	Phase  physics.Phase
	Script *ScriptCallback
}

// LoadSceneScripts compiles every script a scene lists.
func LoadSceneScripts(scene SceneSpec) ([]ScriptBinding, error) {
	out := make([]ScriptBinding, 0, len(scene.Scripts))
	for _, spec := range scene.Scripts {
		phase, err := ParsePhase(spec.Phase)
		if err != nil {
			return nil, err
		}
		cb, err := LoadScriptCallback(spec.File)
		if err != nil {
			return nil, err
		}
		out = append(out, ScriptBinding{Phase: phase, Script: cb})
	}
	return out, nil
}

// EnqueueScripts queues every binding for the next step.
func EnqueueScripts(c *physics.Callbacks, bindings []ScriptBinding) error {
	for _, b := range bindings {
		if err := c.Enqueue(b.Phase, b.Script.Callback(), nil); err != nil {
			return err
		}
	}
	return nil
}

// ParsePhase maps a scene phase name to a physics phase. Empty means pre_step.
func ParsePhase(name string) (physics.Phase, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pre_build":
		return physics.PhasePreBuild, nil
	case "", "pre_step":
		return physics.PhasePreStepSimulation, nil
	case "post_integrate":
		return physics.PhasePostIntegrate, nil
	case "post_export":
		return physics.PhasePostExport, nil
	}
	return 0, fmt.Errorf("prefabs: unknown phase %q: %w", name, common.ErrInvalidArgument)
}

func buildScriptEngine(w *physics.World) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	motion := func(fn string, args []tengo.Object, want int) (int, error) {
		if len(args) != want {
			return 0, tengo.ErrWrongNumArguments
		}
		i, ok := tengo.ToInt(args[0])
		if !ok {
			return 0, tengo.ErrInvalidArgumentType{Name: "index", Expected: "int", Found: args[0].TypeName()}
		}
		if i < 0 || i >= w.NumDynamicBodies() {
			return 0, fmt.Errorf("%s: motion %d: %w", fn, i, common.ErrIndexOutOfRange)
		}
		return i, nil
	}
	vector := func(args []tengo.Object) (float64, float64, error) {
		x, ok := tengo.ToFloat64(args[0])
		if !ok {
			return 0, 0, tengo.ErrInvalidArgumentType{Name: "x", Expected: "float", Found: args[0].TypeName()}
		}
		y, ok := tengo.ToFloat64(args[1])
		if !ok {
			return 0, 0, tengo.ErrInvalidArgumentType{Name: "y", Expected: "float", Found: args[1].TypeName()}
		}
		return x, y, nil
	}
	pair := func(x, y float64) tengo.Object {
		return &tengo.Array{Value: []tengo.Object{&tengo.Float{Value: x}, &tengo.Float{Value: y}}}
	}

	values["motion_count"] = &tengo.UserFunction{Name: "motion_count", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Int{Value: int64(w.NumDynamicBodies())}, nil
	}}

	values["dt"] = &tengo.UserFunction{Name: "dt", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: w.TimeStep}, nil
	}}

	values["velocity"] = &tengo.UserFunction{Name: "velocity", Value: func(args ...tengo.Object) (tengo.Object, error) {
		i, err := motion("velocity", args, 1)
		if err != nil {
			return nil, err
		}
		v := w.DynamicsWorld.MotionVelocities()[i].LinearVelocity
		return pair(v.X, v.Y), nil
	}}

	values["set_velocity"] = &tengo.UserFunction{Name: "set_velocity", Value: func(args ...tengo.Object) (tengo.Object, error) {
		i, err := motion("set_velocity", args, 3)
		if err != nil {
			return nil, err
		}
		x, y, err := vector(args[1:])
		if err != nil {
			return nil, err
		}
		vel := &w.DynamicsWorld.MotionVelocities()[i]
		vel.LinearVelocity.X, vel.LinearVelocity.Y = x, y
		return tengo.TrueValue, nil
	}}

	values["apply_impulse"] = &tengo.UserFunction{Name: "apply_impulse", Value: func(args ...tengo.Object) (tengo.Object, error) {
		i, err := motion("apply_impulse", args, 3)
		if err != nil {
			return nil, err
		}
		x, y, err := vector(args[1:])
		if err != nil {
			return nil, err
		}
		w.DynamicsWorld.MotionVelocities()[i].ApplyLinearImpulse(cp.Vector{X: x, Y: y})
		return tengo.TrueValue, nil
	}}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		i, err := motion("position", args, 1)
		if err != nil {
			return nil, err
		}
		p := w.DynamicsWorld.MotionDatas()[i].WorldFromBody().Translation
		return pair(p.X, p.Y), nil
	}}

	values["rotation"] = &tengo.UserFunction{Name: "rotation", Value: func(args ...tengo.Object) (tengo.Object, error) {
		i, err := motion("rotation", args, 1)
		if err != nil {
			return nil, err
		}
		q := common.QuaternionFromAngle(w.DynamicsWorld.MotionDatas()[i].WorldFromBody().Angle())
		return &tengo.Array{Value: []tengo.Object{
			&tengo.Float{Value: q.X}, &tengo.Float{Value: q.Y}, &tengo.Float{Value: q.Z}, &tengo.Float{Value: q.W},
		}}, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}
