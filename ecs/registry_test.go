package ecs

import "testing"

func TestRegistryEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewRegistry()
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, r.Create(""))
			}
			if r.Count() != c.create {
				t.Fatalf("expected %d entities, got %d", c.create, r.Count())
			}
			if c.destroyIndex >= 0 {
				if !r.Destroy(ents[c.destroyIndex]) {
					t.Fatalf("Destroy should return true for alive entity")
				}
				if r.IsAlive(ents[c.destroyIndex]) {
					t.Fatalf("entity should not be alive after destruction")
				}
				if r.Destroy(ents[c.destroyIndex]) {
					t.Fatalf("second Destroy should report false")
				}
			}
		})
	}
}

func TestRegistryRecyclesWithNewGeneration(t *testing.T) {
	r := NewRegistry()
	a := r.Create("crate")
	r.Destroy(a)
	b := r.Create("barrel")

	if a == b {
		t.Fatalf("recycled entity must differ from the destroyed handle")
	}
	if a.id() != b.id() {
		t.Fatalf("expected slot reuse, got ids %d and %d", a.id(), b.id())
	}
	if r.IsAlive(a) || !r.IsAlive(b) {
		t.Fatalf("stale handle alive=%v, new handle alive=%v", r.IsAlive(a), r.IsAlive(b))
	}
	if got := r.Name(b); got != "barrel" {
		t.Fatalf("expected name barrel, got %q", got)
	}
	if e, ok := r.Lookup("barrel"); !ok || e != b {
		t.Fatalf("Lookup(barrel) = %v, %v", e, ok)
	}
	if Null.Valid() {
		t.Fatalf("Null must not be valid")
	}
}

func TestSparseSetSwapRemove(t *testing.T) {
	r := NewRegistry()
	a, b, c := r.Create(""), r.Create(""), r.Create("")

	var s SparseSet[int]
	s.Set(a, 1)
	s.Set(b, 2)
	s.Set(c, 3)
	s.Remove(a)

	if s.Has(a) || s.Len() != 2 {
		t.Fatalf("a should be gone, len %d", s.Len())
	}
	if v, ok := s.Get(c); !ok || v != 3 {
		t.Fatalf("c should survive the swap, got %v %v", v, ok)
	}

	r.Destroy(b)
	stale := b
	fresh := r.Create("")
	if s.Has(fresh) {
		t.Fatalf("a recycled slot must not see the old value")
	}
	s.Set(fresh, 9)
	if s.Has(stale) || s.Len() != 2 {
		t.Fatalf("setting the new generation should replace the stale entry")
	}
}
