package ecs

import "sync"

// Registry hands out entity handles, recycling destroyed slots under a new generation.
type Registry struct {
	mu    sync.Mutex
	gen   []generation
	free  []entityID
	names SparseSet[string]
	alive int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create allocates a new entity, optionally labelled with a debug name.
func (r *Registry) Create(name string) Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id entityID
	if n := len(r.free); n > 0 {
		id = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.gen = append(r.gen, 0)
		id = entityID(len(r.gen))
	}
	e := makeEntity(id, r.gen[id-1])
	if name != "" {
		r.names.Set(e, name)
	}
	r.alive++
	return e
}

// Destroy retires e; stale copies of the handle stop being alive.
func (r *Registry) Destroy(e Entity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isAlive(e) {
		return false
	}
	r.gen[e.id()-1]++
	r.free = append(r.free, e.id())
	r.names.Remove(e)
	r.alive--
	return true
}

func (r *Registry) IsAlive(e Entity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isAlive(e)
}

func (r *Registry) isAlive(e Entity) bool {
	if !e.Valid() || int(e.id()) > len(r.gen) {
		return false
	}
	return r.gen[e.id()-1] == e.generation()
}

// Name returns the debug name given at creation, or the handle's string form.
func (r *Registry) Name(e Entity) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := r.names.Get(e); ok {
		return name
	}
	return e.String()
}

// Lookup finds a live entity by debug name.
func (r *Registry) Lookup(name string) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.names.Values() {
		if n == name {
			return r.names.Entities()[i], true
		}
	}
	return Null, false
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alive
}
