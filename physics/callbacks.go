package physics

import (
	"fmt"

	"github.com/milk9111/physics2d/common"
)

// Phase names a point in the step where user work can be injected.
type Phase int

const (
	PhasePreBuild Phase = iota
	PhasePreStepSimulation
	PhasePostIntegrate
	PhasePostExport
	numPhases
)

func (p Phase) String() string {
	switch p {
	case PhasePreBuild:
		return "PreBuild"
	case PhasePreStepSimulation:
		return "PreStepSimulation"
	case PhasePostIntegrate:
		return "PostIntegrate"
	case PhasePostExport:
		return "PostExport"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Callback schedules work against the world after inputDeps and returns its handle.
// Returning nil means no work was scheduled.
type Callback func(w *World, inputDeps *JobHandle) *JobHandle

type callbackEntry struct {
	cb  Callback
	dep *JobHandle
}

// Callbacks holds the queued callbacks of every phase.
type Callbacks struct {
	phases [numPhases][]callbackEntry
}

// Enqueue adds cb to phase; it will not start before dep completes.
func (c *Callbacks) Enqueue(phase Phase, cb Callback, dep *JobHandle) error {
	if phase < 0 || phase >= numPhases || cb == nil {
		return fmt.Errorf("physics: enqueue callback %v: %w", phase, common.ErrInvalidArgument)
	}
	c.phases[phase] = append(c.phases[phase], callbackEntry{cb: cb, dep: dep})
	return nil
}

// Execute chains the callbacks of phase in enqueue order after inputDeps and
// returns the tail handle.
func (c *Callbacks) Execute(phase Phase, w *World, inputDeps *JobHandle) *JobHandle {
	if phase < 0 || phase >= numPhases {
		return inputDeps
	}
	handle := inputDeps
	for _, e := range c.phases[phase] {
		handle = CombineDependencies(handle, e.dep)
		if out := e.cb(w, handle); out != nil {
			handle = out
		}
	}
	return handle
}

func (c *Callbacks) Len(phase Phase) int {
	if phase < 0 || phase >= numPhases {
		return 0
	}
	return len(c.phases[phase])
}

// Clear drops every queued callback, keeping storage.
func (c *Callbacks) Clear() {
	for i := range c.phases {
		clear(c.phases[i])
		c.phases[i] = c.phases[i][:0]
	}
}
