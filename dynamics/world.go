package dynamics

import (
	"fmt"

	"github.com/milk9111/physics2d/common"
)

// World owns the motion arrays. Index i matches dynamic body i of the collision world.
type World struct {
	motionDatas      []MotionData
	motionVelocities []MotionVelocity
}

func NewWorld(numMotions int) (*World, error) {
	w := &World{}
	if err := w.Reset(numMotions); err != nil {
		return nil, err
	}
	return w, nil
}

// Reset resizes and zeroes the motions. Storage only grows.
func (w *World) Reset(numMotions int) error {
	if numMotions < 0 {
		return fmt.Errorf("dynamics: reset world %d motions: %w", numMotions, common.ErrInvalidArgument)
	}
	if cap(w.motionDatas) < numMotions {
		w.motionDatas = make([]MotionData, numMotions)
		w.motionVelocities = make([]MotionVelocity, numMotions)
		return nil
	}
	w.motionDatas = w.motionDatas[:numMotions]
	w.motionVelocities = w.motionVelocities[:numMotions]
	clear(w.motionDatas)
	clear(w.motionVelocities)
	return nil
}

func (w *World) Dispose() {
	if w == nil {
		return
	}
	w.motionDatas = nil
	w.motionVelocities = nil
}

func (w *World) Clone() *World {
	return &World{
		motionDatas:      append([]MotionData(nil), w.motionDatas...),
		motionVelocities: append([]MotionVelocity(nil), w.motionVelocities...),
	}
}

func (w *World) NumMotions() int { return len(w.motionDatas) }

func (w *World) Capacity() int { return cap(w.motionDatas) }

func (w *World) MotionDatas() []MotionData { return w.motionDatas }

func (w *World) MotionVelocities() []MotionVelocity { return w.motionVelocities }

// SetMotion stores both halves of motion i.
func (w *World) SetMotion(i int, data MotionData, vel MotionVelocity) error {
	if err := common.CheckIndex(i, len(w.motionDatas)); err != nil {
		return fmt.Errorf("dynamics: set motion: %w", err)
	}
	w.motionDatas[i] = data
	w.motionVelocities[i] = vel
	return nil
}
