package dynamics

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/collision"
	"github.com/milk9111/physics2d/common"
)

const (
	baumgarte            = 0.2
	maxLinearCorrection  = 0.2
	restitutionThreshold = 1.0
	jointStiffness       = 0.3
)

// Contact is a manifold between two motions. A motion index of -1 stands for a
// body that never moves.
type Contact struct {
	MotionA, MotionB int
	Manifold         collision.Manifold
	Friction         float64
	Restitution      float64
}

// DistanceJoint keeps two body anchors between MinDistance and MaxDistance apart.
// Equal limits make a rigid rod. Bodies are collision world indices, so the ground
// body can pin an anchor to the world.
type DistanceJoint struct {
	BodyA, BodyB               int
	LocalAnchorA, LocalAnchorB cp.Vector
	MinDistance, MaxDistance   float64
}

// JointRow is a distance joint resolved to motions and world anchors for one step.
type JointRow struct {
	MotionA, MotionB int
	AnchorA, AnchorB cp.Vector
	MinDistance      float64
	MaxDistance      float64
}

type contactPoint struct {
	rA, rB         cp.Vector
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
	normalImpulse  float64
	tangentImpulse float64
}

type contactConstraint struct {
	a, b     int
	normal   cp.Vector
	friction float64
	points   [2]contactPoint
	count    int
}

type jointConstraint struct {
	a, b      int
	rA, rB    cp.Vector
	u         cp.Vector
	mass      float64
	bias      float64
	lowerOnly bool
	upperOnly bool
	impulse   float64
}

// Solver resolves contacts and joints with sequential impulses.
type Solver struct {
	contacts []contactConstraint
	joints   []jointConstraint
}

type bodyState struct {
	v       cp.Vector
	w       float64
	invMass float64
	invI    float64
	center  cp.Vector
}

func stateOf(w *World, i int) bodyState {
	if i < 0 {
		return bodyState{}
	}
	v := w.motionVelocities[i]
	return bodyState{
		v:       v.LinearVelocity,
		w:       v.AngularVelocity,
		invMass: v.InverseMass,
		invI:    v.InverseInertia,
		center:  w.motionDatas[i].WorldPosition,
	}
}

func effectiveMass(a, b bodyState, rA, rB, dir cp.Vector) float64 {
	rnA := rA.Cross(dir)
	rnB := rB.Cross(dir)
	k := a.invMass + b.invMass + a.invI*rnA*rnA + b.invI*rnB*rnB
	if k <= 0 {
		return 0
	}
	return 1 / k
}

// Prepare builds the constraints for one step. Storage is reused across steps.
func (s *Solver) Prepare(w *World, contacts []Contact, joints []JointRow, dt float64) {
	s.contacts = s.contacts[:0]
	s.joints = s.joints[:0]
	invDt := 0.0
	if dt > 0 {
		invDt = 1 / dt
	}

	for _, c := range contacts {
		if c.Manifold.Count == 0 {
			continue
		}
		a, b := stateOf(w, c.MotionA), stateOf(w, c.MotionB)
		if a.invMass+b.invMass+a.invI+b.invI == 0 {
			continue
		}
		n := c.Manifold.Normal
		tangent := common.CrossVS(n, 1)
		cc := contactConstraint{a: c.MotionA, b: c.MotionB, normal: n, friction: c.Friction, count: c.Manifold.Count}
		for j := 0; j < cc.count; j++ {
			mp := c.Manifold.Points[j]
			p := &cc.points[j]
			p.rA = mp.Position.Sub(a.center)
			p.rB = mp.Position.Sub(b.center)
			p.normalMass = effectiveMass(a, b, p.rA, p.rB, n)
			p.tangentMass = effectiveMass(a, b, p.rA, p.rB, tangent)

			switch {
			case mp.Distance > 0:
				// speculative: allow the gap to close this step
				p.velocityBias = -mp.Distance * invDt
			default:
				p.velocityBias = math.Min(baumgarte*invDt*(-mp.Distance-common.LinearSlop), maxLinearCorrection*invDt)
				p.velocityBias = math.Max(p.velocityBias, 0)
			}

			// only touching points bounce
			if mp.Distance > common.LinearSlop {
				continue
			}
			vn := b.v.Add(common.CrossSV(b.w, p.rB)).Sub(a.v).Sub(common.CrossSV(a.w, p.rA)).Dot(n)
			if vn < -restitutionThreshold {
				p.velocityBias = math.Max(p.velocityBias, -c.Restitution*vn)
			}
		}
		s.contacts = append(s.contacts, cc)
	}

	for _, j := range joints {
		a, b := stateOf(w, j.MotionA), stateOf(w, j.MotionB)
		if a.invMass+b.invMass+a.invI+b.invI == 0 {
			continue
		}
		d := j.AnchorB.Sub(j.AnchorA)
		length := d.Length()
		jc := jointConstraint{
			a:  j.MotionA,
			b:  j.MotionB,
			rA: j.AnchorA.Sub(a.center),
			rB: j.AnchorB.Sub(b.center),
			u:  common.SafeNormalize(d, cp.Vector{Y: 1}),
		}
		var violation float64
		switch {
		case j.MinDistance == j.MaxDistance:
			violation = length - j.MaxDistance
		case length > j.MaxDistance-common.LinearSlop:
			violation = length - j.MaxDistance
			jc.upperOnly = true
		case length < j.MinDistance+common.LinearSlop:
			violation = length - j.MinDistance
			jc.lowerOnly = true
		default:
			continue
		}
		jc.mass = effectiveMass(a, b, jc.rA, jc.rB, jc.u)
		jc.bias = jointStiffness * invDt * violation
		if (jc.upperOnly && violation < 0) || (jc.lowerOnly && violation > 0) {
			// inside the limit: only stop motion that would cross it this step
			jc.bias = violation * invDt
		}
		s.joints = append(s.joints, jc)
	}
}

func (s *Solver) load(w *World, i int) (cp.Vector, float64, float64, float64) {
	if i < 0 {
		return cp.Vector{}, 0, 0, 0
	}
	v := &w.motionVelocities[i]
	return v.LinearVelocity, v.AngularVelocity, v.InverseMass, v.InverseInertia
}

func (s *Solver) store(w *World, i int, lv cp.Vector, av float64) {
	if i < 0 {
		return
	}
	w.motionVelocities[i].LinearVelocity = lv
	w.motionVelocities[i].AngularVelocity = av
}

// Solve runs the velocity iterations and writes the velocities back.
func (s *Solver) Solve(w *World, iterations int) {
	for it := 0; it < iterations; it++ {
		for i := range s.joints {
			s.solveJoint(w, &s.joints[i])
		}
		for i := range s.contacts {
			s.solveContact(w, &s.contacts[i])
		}
	}
}

func (s *Solver) solveContact(w *World, c *contactConstraint) {
	vA, wA, mA, iA := s.load(w, c.a)
	vB, wB, mB, iB := s.load(w, c.b)
	n := c.normal
	tangent := common.CrossVS(n, 1)

	relative := func(p *contactPoint) cp.Vector {
		return vB.Add(common.CrossSV(wB, p.rB)).Sub(vA).Sub(common.CrossSV(wA, p.rA))
	}
	apply := func(p *contactPoint, impulse cp.Vector) {
		vA = vA.Sub(impulse.Mult(mA))
		wA -= iA * p.rA.Cross(impulse)
		vB = vB.Add(impulse.Mult(mB))
		wB += iB * p.rB.Cross(impulse)
	}

	// friction first; staying apart matters more than sliding
	for j := 0; j < c.count; j++ {
		p := &c.points[j]
		vt := relative(p).Dot(tangent)
		maxFriction := c.friction * p.normalImpulse
		impulse := common.Clamp(p.tangentImpulse-p.tangentMass*vt, -maxFriction, maxFriction)
		lambda := impulse - p.tangentImpulse
		p.tangentImpulse = impulse
		apply(p, tangent.Mult(lambda))
	}
	for j := 0; j < c.count; j++ {
		p := &c.points[j]
		vn := relative(p).Dot(n)
		impulse := math.Max(p.normalImpulse-p.normalMass*(vn-p.velocityBias), 0)
		lambda := impulse - p.normalImpulse
		p.normalImpulse = impulse
		apply(p, n.Mult(lambda))
	}

	s.store(w, c.a, vA, wA)
	s.store(w, c.b, vB, wB)
}

func (s *Solver) solveJoint(w *World, j *jointConstraint) {
	vA, wA, mA, iA := s.load(w, j.a)
	vB, wB, mB, iB := s.load(w, j.b)

	cdot := vB.Add(common.CrossSV(wB, j.rB)).Sub(vA).Sub(common.CrossSV(wA, j.rA)).Dot(j.u)
	lambda := -j.mass * (cdot + j.bias)
	old := j.impulse
	j.impulse += lambda
	switch {
	case j.upperOnly:
		j.impulse = math.Min(j.impulse, 0)
	case j.lowerOnly:
		j.impulse = math.Max(j.impulse, 0)
	}
	lambda = j.impulse - old

	p := j.u.Mult(lambda)
	vA = vA.Sub(p.Mult(mA))
	wA -= iA * j.rA.Cross(p)
	vB = vB.Add(p.Mult(mB))
	wB += iB * j.rB.Cross(p)

	s.store(w, j.a, vA, wA)
	s.store(w, j.b, vB, wB)
}

// NumContacts reports the contact constraints built by the last Prepare.
func (s *Solver) NumContacts() int { return len(s.contacts) }

// NormalImpulse sums the normal impulses applied to contact i.
func (s *Solver) NormalImpulse(i int) float64 {
	c := &s.contacts[i]
	total := 0.0
	for j := 0; j < c.count; j++ {
		total += c.points[j].normalImpulse
	}
	return total
}
