package collision

import "math"

type collectorState interface {
	EarlyOutOnFirstHit() bool
	MaxFraction() float64
	NumHits() int
}

type leafBase struct {
	bodies []Body
	state  collectorState
	hit    bool
}

func (p *leafBase) MaxFraction() float64 { return p.state.MaxFraction() }

func (p *leafBase) Done() bool {
	return p.hit && p.state.EarlyOutOnFirstHit()
}

func (p *leafBase) record(hit bool) bool {
	p.hit = p.hit || hit
	return hit
}

type rayLeafProcessor struct {
	leafBase
	in RaycastInput
	c  Collector[RaycastHit]
}

func (p *rayLeafProcessor) ProcessLeaf(i int) bool {
	return p.record(p.bodies[i].castRay(p.in, i, p.c))
}

type colliderCastLeafProcessor struct {
	leafBase
	in ColliderCastInput
	c  Collector[ColliderCastHit]
}

func (p *colliderCastLeafProcessor) ProcessLeaf(i int) bool {
	return p.record(p.bodies[i].castCollider(p.in, i, p.c))
}

type pointOverlapLeafProcessor struct {
	leafBase
	in OverlapPointInput
	c  Collector[OverlapPointHit]
}

func (p *pointOverlapLeafProcessor) ProcessLeaf(i int) bool {
	return p.record(p.bodies[i].overlapPoint(p.in, i, p.c))
}

type colliderOverlapLeafProcessor struct {
	leafBase
	in OverlapColliderInput
	c  Collector[OverlapColliderHit]
}

func (p *colliderOverlapLeafProcessor) ProcessLeaf(i int) bool {
	return p.record(p.bodies[i].overlapCollider(p.in, i, p.c))
}

type pointDistanceLeafProcessor struct {
	leafBase
	in PointDistanceInput
	c  Collector[DistanceHit]
}

func (p *pointDistanceLeafProcessor) ProcessLeaf(i int) bool {
	return p.record(p.bodies[i].pointDistance(p.in, i, p.c))
}

func (p *pointDistanceLeafProcessor) MaxFraction() float64 {
	return math.Min(p.in.MaxDistance, p.c.MaxFraction())
}

type colliderDistanceLeafProcessor struct {
	leafBase
	in ColliderDistanceInput
	c  Collector[DistanceHit]
}

func (p *colliderDistanceLeafProcessor) ProcessLeaf(i int) bool {
	return p.record(p.bodies[i].colliderDistance(p.in, i, p.c))
}

func (p *colliderDistanceLeafProcessor) MaxFraction() float64 {
	return math.Min(p.in.MaxDistance, p.c.MaxFraction())
}

// pairLeafProcessor gathers broadphase pairs for one body. Only indices above
// minIndex are kept so each dynamic pair is reported once.
type pairLeafProcessor struct {
	bodies   []Body
	self     int
	minIndex int
	out      []IndexPair
}

func (p *pairLeafProcessor) ProcessLeaf(i int) bool {
	if i <= p.minIndex || i == p.self {
		return false
	}
	a, b := p.bodies[p.self].Collider, p.bodies[i].Collider
	if a == nil || b == nil || !IsCollisionEnabled(a.filter, b.filter) {
		return false
	}
	p.out = append(p.out, IndexPair{BodyIndexA: p.self, BodyIndexB: i})
	return true
}

func (p *pairLeafProcessor) MaxFraction() float64 { return 1 }
func (p *pairLeafProcessor) Done() bool           { return false }
