package dynamics

import (
	"context"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
)

const integrateBatchSize = 64

// ApplyGravityAndDamping accelerates every movable motion by gravity scaled by its
// gravity factor, then damps its velocities.
func (w *World) ApplyGravityAndDamping(ctx context.Context, gravity cp.Vector, dt float64, threads int) error {
	datas, vels := w.motionDatas, w.motionVelocities
	return common.ParallelFor(ctx, len(vels), integrateBatchSize, threads, func(_ context.Context, begin, end int) error {
		for i := begin; i < end; i++ {
			d := &datas[i]
			v := &vels[i]
			if !v.HasInfiniteMass() {
				v.LinearVelocity = v.LinearVelocity.Add(gravity.Mult(d.GravityFactor * dt))
			}
			v.LinearVelocity = v.LinearVelocity.Mult(1 / (1 + dt*d.LinearDamping))
			v.AngularVelocity *= 1 / (1 + dt*d.AngularDamping)
		}
		return nil
	})
}

// Integrate advances positions and angles by dt.
func (w *World) Integrate(ctx context.Context, dt float64, threads int) error {
	datas, vels := w.motionDatas, w.motionVelocities
	return common.ParallelFor(ctx, len(vels), integrateBatchSize, threads, func(_ context.Context, begin, end int) error {
		for i := begin; i < end; i++ {
			datas[i].WorldPosition = datas[i].WorldPosition.Add(vels[i].LinearVelocity.Mult(dt))
			datas[i].WorldAngle += vels[i].AngularVelocity * dt
		}
		return nil
	})
}

// CalculateExpansions fills out with one expansion per motion.
func (w *World) CalculateExpansions(dt float64, out []MotionExpansion) []MotionExpansion {
	out = out[:0]
	for _, v := range w.motionVelocities {
		out = append(out, v.CalculateExpansion(dt))
	}
	return out
}
