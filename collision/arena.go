package collision

import (
	"fmt"
	"sync"

	"github.com/milk9111/physics2d/common"
)

type colliderHandle struct {
	id  int
	gen int
}

// ColliderArena deduplicates colliders by content and reference counts them. A
// collider stays alive while any body holds it and its slot is recycled under a new
// generation once the last reference is released.
type ColliderArena struct {
	mu     sync.Mutex
	slots  []*Collider
	gen    []int
	free   []int
	byHash map[uint64][]*Collider
	live   int
}

func NewColliderArena() *ColliderArena {
	return &ColliderArena{byHash: make(map[uint64][]*Collider)}
}

// Acquire returns a collider for g, sharing an existing blob when the content matches.
// The caller owns one reference and must Release it.
func (a *ColliderArena) Acquire(g Geometry, filter Filter, material Material) (*Collider, error) {
	if g == nil {
		return nil, fmt.Errorf("collision: acquire collider: nil geometry: %w", common.ErrInvalidArgument)
	}
	data, err := g.build()
	if err != nil {
		return nil, err
	}
	candidate := bake(data, filter, material)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.byHash == nil {
		a.byHash = make(map[uint64][]*Collider)
	}
	for _, existing := range a.byHash[candidate.hash] {
		if existing.sameContent(candidate) {
			existing.refs++
			return existing, nil
		}
	}

	var id int
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, nil)
		a.gen = append(a.gen, 0)
		id = len(a.slots)
	}
	candidate.arena = a
	candidate.handle = colliderHandle{id: id, gen: a.gen[id-1]}
	candidate.refs = 1
	a.slots[id-1] = candidate
	a.byHash[candidate.hash] = append(a.byHash[candidate.hash], candidate)
	a.live++
	return candidate, nil
}

func (a *ColliderArena) retain(c *Collider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.isAlive(c) {
		c.refs++
	}
}

func (a *ColliderArena) release(c *Collider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.isAlive(c) {
		return
	}
	c.refs--
	if c.refs > 0 {
		return
	}

	id := c.handle.id
	a.slots[id-1] = nil
	a.gen[id-1]++
	a.free = append(a.free, id)
	a.live--

	bucket := a.byHash[c.hash]
	for i, existing := range bucket {
		if existing == c {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(a.byHash, c.hash)
	} else {
		a.byHash[c.hash] = bucket
	}
}

// IsAlive reports whether c is still referenced by someone.
func (a *ColliderArena) IsAlive(c *Collider) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isAlive(c)
}

func (a *ColliderArena) isAlive(c *Collider) bool {
	if c == nil || c.arena != a {
		return false
	}
	id := c.handle.id
	if id <= 0 || id > len(a.slots) {
		return false
	}
	return a.gen[id-1] == c.handle.gen && a.slots[id-1] == c
}

// RefCount returns the number of outstanding references to c.
func (a *ColliderArena) RefCount(c *Collider) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.isAlive(c) {
		return 0
	}
	return int(c.refs)
}

// Len returns the number of live colliders.
func (a *ColliderArena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// Retain adds a reference. Colliders built outside an arena are left alone.
func (c *Collider) Retain() {
	if c == nil || c.arena == nil {
		return
	}
	c.arena.retain(c)
}

// Release drops a reference; the arena frees the collider when none remain.
func (c *Collider) Release() {
	if c == nil || c.arena == nil {
		return
	}
	c.arena.release(c)
}
