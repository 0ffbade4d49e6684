package collision

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
)

const leafCapacity = 4

// Element is one body bound stored in a tree leaf.
type Element struct {
	Index int
	Aabb  Aabb
}

type bvhNode struct {
	aabb     Aabb
	parent   int
	children [2]int
	elements [leafCapacity]Element
	count    int
}

func (n *bvhNode) isLeaf() bool { return n.children[0] < 0 }

type elementRef struct {
	node, slot int
}

// LeafProcessor tests the bodies that survive the tree's bound tests for one query family.
type LeafProcessor interface {
	// ProcessLeaf runs the exact test against one body and reports whether it hit.
	ProcessLeaf(bodyIndex int) bool
	// MaxFraction bounds casts and distances; subtrees beyond it are skipped.
	MaxFraction() float64
	// Done stops the traversal.
	Done() bool
}

// BoundingVolumeHierarchy is a binary tree over inflated body bounds whose leaves
// hold up to four elements.
type BoundingVolumeHierarchy struct {
	nodes     []bvhNode
	root      int
	inflation float64
	base      int
	locate    []elementRef
	scratch   []Element
}

func (t *BoundingVolumeHierarchy) Len() int {
	return len(t.locate)
}

func (t *BoundingVolumeHierarchy) Reset() {
	t.nodes = t.nodes[:0]
	t.locate = t.locate[:0]
	t.root = -1
}

// Build replaces the tree with the given elements, each grown by inflation. Node
// storage is reused. Element indices must be distinct and contiguous.
func (t *BoundingVolumeHierarchy) Build(elements []Element, inflation float64) {
	t.Reset()
	t.inflation = inflation
	if len(elements) == 0 {
		return
	}

	t.scratch = append(t.scratch[:0], elements...)
	t.base = math.MaxInt
	for i := range t.scratch {
		t.scratch[i].Aabb = t.scratch[i].Aabb.Expand(inflation)
		t.base = min(t.base, t.scratch[i].Index)
	}
	if cap(t.locate) < len(elements) {
		t.locate = make([]elementRef, len(elements))
	}
	t.locate = t.locate[:len(elements)]

	t.root = t.build(t.scratch, -1)
}

func (t *BoundingVolumeHierarchy) build(elements []Element, parent int) int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, bvhNode{parent: parent, children: [2]int{-1, -1}})

	if len(elements) <= leafCapacity {
		n := &t.nodes[id]
		n.aabb = EmptyAabb
		for i, e := range elements {
			n.elements[i] = e
			n.aabb = n.aabb.Union(e.Aabb)
			t.locate[e.Index-t.base] = elementRef{node: id, slot: i}
		}
		n.count = len(elements)
		return id
	}

	centers := EmptyAabb
	for _, e := range elements {
		centers = centers.Include(e.Aabb.Center())
	}
	ext := centers.Extents()
	axis := func(v cp.Vector) float64 { return v.X }
	if ext.Y > ext.X {
		axis = func(v cp.Vector) float64 { return v.Y }
	}
	sort.Slice(elements, func(i, j int) bool {
		return axis(elements[i].Aabb.Center()) < axis(elements[j].Aabb.Center())
	})

	mid := len(elements) / 2
	left := t.build(elements[:mid], id)
	right := t.build(elements[mid:], id)

	n := &t.nodes[id]
	n.children = [2]int{left, right}
	n.aabb = t.nodes[left].aabb.Union(t.nodes[right].aabb)
	return id
}

// ElementAabb returns the stored (inflated) bound of a body.
func (t *BoundingVolumeHierarchy) ElementAabb(index int) (Aabb, bool) {
	i := index - t.base
	if i < 0 || i >= len(t.locate) {
		return Aabb{}, false
	}
	ref := t.locate[i]
	return t.nodes[ref.node].elements[ref.slot].Aabb, true
}

// Refit updates the bound of one element. The tree is only touched when aabb escapes
// the stored inflated bound; it reports whether that happened.
func (t *BoundingVolumeHierarchy) Refit(index int, aabb Aabb) bool {
	i := index - t.base
	if i < 0 || i >= len(t.locate) {
		return false
	}
	ref := t.locate[i]
	n := &t.nodes[ref.node]
	if n.elements[ref.slot].Aabb.ContainsAabb(aabb) {
		return false
	}
	n.elements[ref.slot].Aabb = aabb.Expand(t.inflation)

	for id := ref.node; id >= 0; id = t.nodes[id].parent {
		node := &t.nodes[id]
		bounds := EmptyAabb
		if node.isLeaf() {
			for k := 0; k < node.count; k++ {
				bounds = bounds.Union(node.elements[k].Aabb)
			}
		} else {
			bounds = t.nodes[node.children[0]].aabb.Union(t.nodes[node.children[1]].aabb)
		}
		if node.aabb == bounds {
			break
		}
		node.aabb = bounds
	}
	return true
}

func (t *BoundingVolumeHierarchy) Clone() BoundingVolumeHierarchy {
	return BoundingVolumeHierarchy{
		nodes:     append([]bvhNode(nil), t.nodes...),
		root:      t.root,
		inflation: t.inflation,
		base:      t.base,
		locate:    append([]elementRef(nil), t.locate...),
	}
}

func (t *BoundingVolumeHierarchy) empty() bool {
	return len(t.nodes) == 0 || t.root < 0
}

type castEntry struct {
	node     int
	fraction float64
}

// Cast walks nodes struck by the segment start→end, with every bound grown by halfExtents
// so a swept box can be tested as a ray. Nearer children are visited first.
func (t *BoundingVolumeHierarchy) Cast(start, end, halfExtents cp.Vector, p LeafProcessor) {
	if t.empty() {
		return
	}
	grow := func(a Aabb) Aabb {
		return Aabb{Min: a.Min.Sub(halfExtents), Max: a.Max.Add(halfExtents)}
	}

	stack := make([]castEntry, 0, 64)
	if f := grow(t.nodes[t.root].aabb).SegmentFraction(start, end); f <= p.MaxFraction() {
		stack = append(stack, castEntry{node: t.root, fraction: f})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.fraction > p.MaxFraction() {
			continue
		}

		n := &t.nodes[top.node]
		if n.isLeaf() {
			for k := 0; k < n.count; k++ {
				if grow(n.elements[k].Aabb).SegmentFraction(start, end) > p.MaxFraction() {
					continue
				}
				p.ProcessLeaf(n.elements[k].Index)
				if p.Done() {
					return
				}
			}
			continue
		}

		a := castEntry{node: n.children[0], fraction: grow(t.nodes[n.children[0]].aabb).SegmentFraction(start, end)}
		b := castEntry{node: n.children[1], fraction: grow(t.nodes[n.children[1]].aabb).SegmentFraction(start, end)}
		if a.fraction < b.fraction {
			a, b = b, a
		}
		// far child first so the near one is popped next
		if a.fraction <= p.MaxFraction() {
			stack = append(stack, a)
		}
		if b.fraction <= p.MaxFraction() {
			stack = append(stack, b)
		}
	}
}

// Distance walks nodes within MaxFraction of query, closest first.
func (t *BoundingVolumeHierarchy) Distance(query Aabb, p LeafProcessor) {
	if t.empty() {
		return
	}
	limit := func() float64 { return math.Max(p.MaxFraction(), 0) }
	dist := func(a Aabb) float64 { return math.Sqrt(a.DistanceSq(query)) }

	stack := make([]castEntry, 0, 64)
	if d := dist(t.nodes[t.root].aabb); d <= limit() {
		stack = append(stack, castEntry{node: t.root, fraction: d})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.fraction > limit() {
			continue
		}

		n := &t.nodes[top.node]
		if n.isLeaf() {
			for k := 0; k < n.count; k++ {
				if dist(n.elements[k].Aabb) > limit() {
					continue
				}
				p.ProcessLeaf(n.elements[k].Index)
				if p.Done() {
					return
				}
			}
			continue
		}

		a := castEntry{node: n.children[0], fraction: dist(t.nodes[n.children[0]].aabb)}
		b := castEntry{node: n.children[1], fraction: dist(t.nodes[n.children[1]].aabb)}
		if a.fraction < b.fraction {
			a, b = b, a
		}
		if a.fraction <= limit() {
			stack = append(stack, a)
		}
		if b.fraction <= limit() {
			stack = append(stack, b)
		}
	}
}

// Overlap visits every element whose bound overlaps query.
func (t *BoundingVolumeHierarchy) Overlap(query Aabb, p LeafProcessor) {
	if t.empty() {
		return
	}
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if !n.aabb.Overlaps(query) {
			continue
		}
		if n.isLeaf() {
			for k := 0; k < n.count; k++ {
				if !n.elements[k].Aabb.Overlaps(query) {
					continue
				}
				p.ProcessLeaf(n.elements[k].Index)
				if p.Done() {
					return
				}
			}
			continue
		}
		stack = append(stack, n.children[1], n.children[0])
	}
}
