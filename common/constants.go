package common

// Engine tolerances shared by the narrowphase, solver and broadphase.
const (
	// LinearSlop absorbs floating point and penetration noise in contact generation.
	LinearSlop = 0.005
	// MinimumConvexRadius is the smallest feature size a collider may have.
	MinimumConvexRadius = 2 * LinearSlop
	MaxGJKIterations    = 20
	// CollisionTolerance is the distance at which contacts start being generated.
	CollisionTolerance = 0.01
)

const (
	DefaultTimeStep         = 1.0 / 60.0
	DefaultAabbInflation    = 0.1
	DefaultSolverIterations = 4
)

const Gravity = -9.81
