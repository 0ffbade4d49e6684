package collision

import (
	"math"

	"github.com/jakecoffman/cp"
)

// MassDistribution is the mass layout of a shape in its own space, per unit mass.
type MassDistribution struct {
	LocalCenterOfMass cp.Vector
	// InverseInertia is the inverse moment of inertia about the centre of mass for unit mass.
	InverseInertia float64
}

// MassProperties are computed once per collider and shared with every body using it.
type MassProperties struct {
	MassDistribution
	Area float64
	// AngularExpansionFactor bounds how far any point of the shape moves per radian of rotation.
	AngularExpansionFactor float64
}

var UnitMassProperties = MassProperties{
	MassDistribution: MassDistribution{InverseInertia: 1},
	Area:             1,
}

func inverseOf(v float64) float64 {
	if v <= 0 || math.IsInf(v, 1) {
		return 0
	}
	return 1 / v
}

func circleMass(center cp.Vector, radius float64) MassProperties {
	return MassProperties{
		MassDistribution: MassDistribution{
			LocalCenterOfMass: center,
			InverseInertia:    inverseOf(cp.MomentForCircle(1, 0, radius, cp.Vector{})),
		},
		Area: cp.AreaForCircle(0, radius),
	}
}

func capsuleMass(v0, v1 cp.Vector, radius float64) MassProperties {
	center := v0.Lerp(v1, 0.5)
	return MassProperties{
		MassDistribution: MassDistribution{
			LocalCenterOfMass: center,
			InverseInertia:    inverseOf(cp.MomentForSegment(1, v0.Sub(center), v1.Sub(center), radius)),
		},
		Area:                   cp.AreaForSegment(v0, v1, radius),
		AngularExpansionFactor: v0.Distance(center),
	}
}

func polygonMass(vertices []cp.Vector, radius float64) MassProperties {
	n := len(vertices)
	center := cp.CentroidForPoly(n, vertices)
	var expansion float64
	for _, v := range vertices {
		expansion = math.Max(expansion, v.Distance(center))
	}
	return MassProperties{
		MassDistribution: MassDistribution{
			LocalCenterOfMass: center,
			InverseInertia:    inverseOf(cp.MomentForPoly(1, n, vertices, center.Neg(), radius)),
		},
		Area:                   cp.AreaForPoly(n, vertices, radius),
		AngularExpansionFactor: expansion,
	}
}
