package collision

import (
	"context"
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/physics2d/common"
	"golang.org/x/sync/errgroup"
)

const (
	overlapBatchSize = 32
	// rebuildFraction is the share of refitted dynamic elements above which the
	// dynamic tree is rebuilt instead.
	rebuildFraction = 0.5
)

// Broadphase indexes static and dynamic bodies in separate trees.
type Broadphase struct {
	static      BoundingVolumeHierarchy
	dynamic     BoundingVolumeHierarchy
	staticDirty bool
	numStatic   int
	numDynamic  int

	staticElements  []Element
	dynamicElements []Element
	batches         [][]IndexPair
}

func (b *Broadphase) StaticTree() *BoundingVolumeHierarchy  { return &b.static }
func (b *Broadphase) DynamicTree() *BoundingVolumeHierarchy { return &b.dynamic }

// MarkStaticChanged forces the next Build to rebuild the static tree.
func (b *Broadphase) MarkStaticChanged() {
	b.staticDirty = true
}

func (b *Broadphase) reset(numStatic, numDynamic int) {
	b.numStatic = numStatic
	b.numDynamic = numDynamic
	b.staticDirty = true
	b.static.Reset()
	b.dynamic.Reset()
}

// Build refreshes both trees. dynamicAabbs, when not nil, holds one bound per dynamic
// body (already swept by its motion) that replaces the body's own bound.
func (b *Broadphase) Build(ctx context.Context, bodies []Body, numStatic, numDynamic int, dynamicAabbs []Aabb, inflation float64, threads int) error {
	if len(bodies) < numStatic+numDynamic {
		return fmt.Errorf("collision: build broadphase: %d bodies for %d static and %d dynamic: %w",
			len(bodies), numStatic, numDynamic, common.ErrInvalidArgument)
	}
	if dynamicAabbs != nil && len(dynamicAabbs) != numDynamic {
		return fmt.Errorf("collision: build broadphase: %d swept bounds for %d dynamic bodies: %w",
			len(dynamicAabbs), numDynamic, common.ErrInvalidArgument)
	}
	if numStatic != b.numStatic {
		b.staticDirty = true
	}
	rebuildDynamic := numDynamic != b.numDynamic || b.dynamic.Len() != numDynamic
	b.numStatic = numStatic
	b.numDynamic = numDynamic

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(common.ThreadCount(threads))
	if b.staticDirty {
		g.Go(func() error {
			b.staticElements = b.staticElements[:0]
			for i := 0; i < numStatic; i++ {
				b.staticElements = append(b.staticElements, Element{Index: i, Aabb: bodies[i].CalculateAabb()})
			}
			b.static.Build(b.staticElements, inflation)
			return nil
		})
	}
	g.Go(func() error {
		dynamicBound := func(i int) Aabb {
			if dynamicAabbs != nil {
				return dynamicAabbs[i]
			}
			return bodies[numStatic+i].CalculateAabb()
		}
		if !rebuildDynamic && inflation == b.dynamic.inflation {
			refits := 0
			for i := 0; i < numDynamic; i++ {
				if b.dynamic.Refit(numStatic+i, dynamicBound(i)) {
					refits++
				}
			}
			if float64(refits) <= rebuildFraction*float64(numDynamic) {
				return nil
			}
		}
		b.dynamicElements = b.dynamicElements[:0]
		for i := 0; i < numDynamic; i++ {
			b.dynamicElements = append(b.dynamicElements, Element{Index: numStatic + i, Aabb: dynamicBound(i)})
		}
		b.dynamic.Build(b.dynamicElements, inflation)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	b.staticDirty = false
	return nil
}

// FindOverlaps appends the candidate pairs dynamic-vs-dynamic (A < B) and
// dynamic-vs-static (A dynamic, B static) whose stored bounds overlap and whose
// filters allow collision. The order is deterministic.
func (b *Broadphase) FindOverlaps(ctx context.Context, bodies []Body, threads int, out []IndexPair) ([]IndexPair, error) {
	n := b.numDynamic
	batches := common.BatchCount(n, overlapBatchSize)
	if cap(b.batches) < batches {
		b.batches = make([][]IndexPair, batches)
	}
	b.batches = b.batches[:batches]

	err := common.ParallelFor(ctx, n, overlapBatchSize, threads, func(_ context.Context, begin, end int) error {
		batch := begin / overlapBatchSize
		p := pairLeafProcessor{bodies: bodies, out: b.batches[batch][:0]}
		for i := begin; i < end; i++ {
			self := b.numStatic + i
			bounds, ok := b.dynamic.ElementAabb(self)
			if !ok {
				continue
			}
			p.self = self
			p.minIndex = self
			b.dynamic.Overlap(bounds, &p)
			p.minIndex = -1
			b.static.Overlap(bounds, &p)
		}
		b.batches[batch] = p.out
		return nil
	})
	if err != nil {
		return out, err
	}
	for _, batch := range b.batches {
		out = append(out, batch...)
	}
	return out, nil
}

func (b *Broadphase) clone() Broadphase {
	return Broadphase{
		static:      b.static.Clone(),
		dynamic:     b.dynamic.Clone(),
		staticDirty: b.staticDirty,
		numStatic:   b.numStatic,
		numDynamic:  b.numDynamic,
	}
}

func (b *Broadphase) CastRay(bodies []Body, in RaycastInput, c Collector[RaycastHit]) bool {
	p := &rayLeafProcessor{leafBase: leafBase{bodies: bodies, state: c}, in: in, c: c}
	b.static.Cast(in.Start, in.End, cp.Vector{}, p)
	if !p.Done() {
		b.dynamic.Cast(in.Start, in.End, cp.Vector{}, p)
	}
	return p.hit
}

func (b *Broadphase) CastCollider(bodies []Body, in ColliderCastInput, c Collector[ColliderCastHit]) bool {
	if in.Collider == nil {
		return false
	}
	// sweep the caster's bound as a box along the ray of its centre
	start := in.Collider.CalculateAabb(common.Transform{Translation: in.Start, Rotation: in.Orientation})
	half := start.Extents().Mult(0.5)
	from := start.Center()
	to := from.Add(in.End.Sub(in.Start))

	p := &colliderCastLeafProcessor{leafBase: leafBase{bodies: bodies, state: c}, in: in, c: c}
	b.static.Cast(from, to, half, p)
	if !p.Done() {
		b.dynamic.Cast(from, to, half, p)
	}
	return p.hit
}

func (b *Broadphase) OverlapPoint(bodies []Body, in OverlapPointInput, c Collector[OverlapPointHit]) bool {
	p := &pointOverlapLeafProcessor{leafBase: leafBase{bodies: bodies, state: c}, in: in, c: c}
	query := AabbFromPoint(in.Position)
	b.static.Overlap(query, p)
	if !p.Done() {
		b.dynamic.Overlap(query, p)
	}
	return p.hit
}

func (b *Broadphase) OverlapCollider(bodies []Body, in OverlapColliderInput, c Collector[OverlapColliderHit]) bool {
	if in.Collider == nil {
		return false
	}
	p := &colliderOverlapLeafProcessor{leafBase: leafBase{bodies: bodies, state: c}, in: in, c: c}
	query := in.Collider.CalculateAabb(in.Transform)
	b.static.Overlap(query, p)
	if !p.Done() {
		b.dynamic.Overlap(query, p)
	}
	return p.hit
}

func (b *Broadphase) CalculatePointDistance(bodies []Body, in PointDistanceInput, c Collector[DistanceHit]) bool {
	p := &pointDistanceLeafProcessor{leafBase: leafBase{bodies: bodies, state: c}, in: in, c: c}
	query := AabbFromPoint(in.Position)
	b.static.Distance(query, p)
	if !p.Done() {
		b.dynamic.Distance(query, p)
	}
	return p.hit
}

func (b *Broadphase) CalculateColliderDistance(bodies []Body, in ColliderDistanceInput, c Collector[DistanceHit]) bool {
	if in.Collider == nil {
		return false
	}
	p := &colliderDistanceLeafProcessor{leafBase: leafBase{bodies: bodies, state: c}, in: in, c: c}
	query := in.Collider.CalculateAabb(in.Transform)
	b.static.Distance(query, p)
	if !p.Done() {
		b.dynamic.Distance(query, p)
	}
	return p.hit
}
