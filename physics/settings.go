package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
)

// Settings configures a world. A zero SolverIterations or TimeStep falls back to
// its default in Normalize; a zero AabbInflation is kept and means tight bounds.
type Settings struct {
	Gravity             cp.Vector
	AabbInflation       float64
	NumberOfThreadsHint int
	SolverIterations    int
	TimeStep            float64
}

func DefaultSettings() Settings {
	return Settings{
		Gravity:          cp.Vector{Y: common.Gravity},
		AabbInflation:    common.DefaultAabbInflation,
		SolverIterations: common.DefaultSolverIterations,
		TimeStep:         common.DefaultTimeStep,
	}
}

// Normalize fills the fields whose zero value is meaningless with defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.SolverIterations == 0 {
		s.SolverIterations = d.SolverIterations
	}
	if s.TimeStep == 0 {
		s.TimeStep = d.TimeStep
	}
	return s
}

func (s Settings) Validate() error {
	switch {
	case !common.IsFiniteVector(s.Gravity):
		return fmt.Errorf("physics: settings gravity %v: %w", s.Gravity, common.ErrInvalidArgument)
	case !common.IsFinite(s.AabbInflation) || s.AabbInflation < 0:
		return fmt.Errorf("physics: settings aabb inflation %v: %w", s.AabbInflation, common.ErrInvalidArgument)
	case s.SolverIterations < 0:
		return fmt.Errorf("physics: settings solver iterations %d: %w", s.SolverIterations, common.ErrInvalidArgument)
	case !common.IsFinite(s.TimeStep) || s.TimeStep < 0:
		return fmt.Errorf("physics: settings time step %v: %w", s.TimeStep, common.ErrInvalidArgument)
	}
	return nil
}

// Threads resolves the thread hint against GOMAXPROCS.
func (s Settings) Threads() int {
	return common.ThreadCount(s.NumberOfThreadsHint)
}
