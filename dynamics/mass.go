package dynamics

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/common"
)

// Mass is the inertial description of a body. Zero inverse values mean the body
// cannot be moved by impulses.
type Mass struct {
	// CenterOfMass is in body space.
	CenterOfMass           cp.Vector
	InverseMass            float64
	InverseInertia         float64
	AngularExpansionFactor float64
}

// CreateDynamic scales unit mass properties to mass.
func CreateDynamic(mp collision.MassProperties, mass float64) (Mass, error) {
	if !common.IsFinite(mass) || mass <= 0 {
		return Mass{}, fmt.Errorf("dynamics: create dynamic mass %v: %w", mass, common.ErrInvalidArgument)
	}
	if !common.IsFiniteVector(mp.LocalCenterOfMass) {
		return Mass{}, fmt.Errorf("dynamics: create dynamic center of mass %v: %w", mp.LocalCenterOfMass, common.ErrInvalidArgument)
	}
	return Mass{
		CenterOfMass:           mp.LocalCenterOfMass,
		InverseMass:            1 / mass,
		InverseInertia:         mp.InverseInertia / mass,
		AngularExpansionFactor: mp.AngularExpansionFactor,
	}, nil
}

// CreateKinematic keeps the centre of mass but makes the body infinitely heavy.
func CreateKinematic(mp collision.MassProperties) (Mass, error) {
	if !common.IsFiniteVector(mp.LocalCenterOfMass) {
		return Mass{}, fmt.Errorf("dynamics: create kinematic center of mass %v: %w", mp.LocalCenterOfMass, common.ErrInvalidArgument)
	}
	return Mass{
		CenterOfMass:           mp.LocalCenterOfMass,
		AngularExpansionFactor: mp.AngularExpansionFactor,
	}, nil
}

// GetMass is +Inf for kinematic bodies.
func (m Mass) GetMass() float64 {
	if m.InverseMass == 0 {
		return math.Inf(1)
	}
	return 1 / m.InverseMass
}

func (m Mass) IsKinematic() bool {
	return m.InverseMass == 0 && m.InverseInertia == 0
}
