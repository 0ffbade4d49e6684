package prefabs

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
	"gopkg.in/yaml.v3"
)

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// SceneSpec describes a whole world: its settings, collision layers, bodies,
// joints and the scripts that drive it.
type SceneSpec struct {
	Name            string              `yaml:"name"`
	Settings        SettingsSpec        `yaml:"settings"`
	Layers          []string            `yaml:"layers"`
	CollisionMatrix map[string][]string `yaml:"collision_matrix"`
	Bodies          []BodySpec          `yaml:"bodies"`
	Joints          []JointSpec         `yaml:"joints"`
	Scripts         []ScriptSpec        `yaml:"scripts"`
}

func LoadSceneSpec(filename string) (SceneSpec, error) {
	return LoadSpec[SceneSpec](filename)
}

// ParseSceneSpec decodes a scene from raw YAML.
func ParseSceneSpec(data []byte) (SceneSpec, error) {
	var spec SceneSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return SceneSpec{}, fmt.Errorf("prefabs: unmarshal scene: %w", err)
	}
	return spec, nil
}

type SettingsSpec struct {
	Gravity          *VectorSpec `yaml:"gravity"`
	AabbInflation    *float64    `yaml:"aabb_inflation"`
	Threads          int         `yaml:"threads"`
	SolverIterations int         `yaml:"solver_iterations"`
	TimeStep         float64     `yaml:"time_step"`
}

type BodySpec struct {
	Name            string       `yaml:"name"`
	Motion          string       `yaml:"motion"`
	Position        VectorSpec   `yaml:"position"`
	Angle           float64      `yaml:"angle"`
	Rotation        *QuatSpec    `yaml:"rotation"`
	Shape           ShapeSpec    `yaml:"shape"`
	Material        MaterialSpec `yaml:"material"`
	Layer           string       `yaml:"layer"`
	Group           int32        `yaml:"group"`
	Mass            float64      `yaml:"mass"`
	Velocity        VectorSpec   `yaml:"velocity"`
	AngularVelocity float64      `yaml:"angular_velocity"`
	LinearDamping   float64      `yaml:"linear_damping"`
	AngularDamping  float64      `yaml:"angular_damping"`
	GravityFactor   *float64     `yaml:"gravity_factor"`
}

type ShapeSpec struct {
	Type     string       `yaml:"type"`
	Center   VectorSpec   `yaml:"center"`
	Radius   float64      `yaml:"radius"`
	Size     VectorSpec   `yaml:"size"`
	Angle    float64      `yaml:"angle"`
	Bevel    float64      `yaml:"bevel"`
	Vertex0  VectorSpec   `yaml:"vertex0"`
	Vertex1  VectorSpec   `yaml:"vertex1"`
	Vertices []VectorSpec `yaml:"vertices"`
}

type MaterialSpec struct {
	Trigger            bool     `yaml:"trigger"`
	Friction           *float64 `yaml:"friction"`
	Restitution        float64  `yaml:"restitution"`
	FrictionCombine    string   `yaml:"friction_combine"`
	RestitutionCombine string   `yaml:"restitution_combine"`
}

// JointSpec ties two named bodies together. An empty name or "ground" pins the
// anchor to the world.
type JointSpec struct {
	BodyA       string     `yaml:"body_a"`
	BodyB       string     `yaml:"body_b"`
	AnchorA     VectorSpec `yaml:"anchor_a"`
	AnchorB     VectorSpec `yaml:"anchor_b"`
	MinDistance float64    `yaml:"min_distance"`
	MaxDistance float64    `yaml:"max_distance"`
}

type ScriptSpec struct {
	File  string `yaml:"file"`
	Phase string `yaml:"phase"`
}

// VectorSpec accepts either `[x, y]` or `{x: .., y: ..}`.
type VectorSpec struct {
	X float64
	Y float64
}

func (v VectorSpec) Vector() cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

func (v *VectorSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var xy []float64
		if err := value.Decode(&xy); err != nil {
			return err
		}
		if len(xy) != 2 {
			return fmt.Errorf("vector needs 2 components, got %d (line %d)", len(xy), value.Line)
		}
		v.X, v.Y = xy[0], xy[1]
	case yaml.MappingNode:
		var m struct {
			X float64 `yaml:"x"`
			Y float64 `yaml:"y"`
		}
		if err := value.Decode(&m); err != nil {
			return err
		}
		v.X, v.Y = m.X, m.Y
	default:
		return fmt.Errorf("vector must be a sequence or mapping (line %d)", value.Line)
	}
	return nil
}

// QuatSpec accepts either `[x, y, z, w]` or `{x: .., y: .., z: .., w: ..}`. Only the
// rotation about Z survives in the plane.
type QuatSpec struct {
	X, Y, Z, W float64
}

func (q QuatSpec) Quaternion() common.Quaternion {
	return common.Quaternion{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

func (q *QuatSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var xyzw []float64
		if err := value.Decode(&xyzw); err != nil {
			return err
		}
		if len(xyzw) != 4 {
			return fmt.Errorf("quaternion needs 4 components, got %d (line %d)", len(xyzw), value.Line)
		}
		q.X, q.Y, q.Z, q.W = xyzw[0], xyzw[1], xyzw[2], xyzw[3]
	case yaml.MappingNode:
		var m struct {
			X float64 `yaml:"x"`
			Y float64 `yaml:"y"`
			Z float64 `yaml:"z"`
			W float64 `yaml:"w"`
		}
		if err := value.Decode(&m); err != nil {
			return err
		}
		q.X, q.Y, q.Z, q.W = m.X, m.Y, m.Z, m.W
	default:
		return fmt.Errorf("quaternion must be a sequence or mapping (line %d)", value.Line)
	}
	return nil
}
