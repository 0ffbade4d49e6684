package ecs

import "strconv"

// Entity is an opaque owner reference: a slot id in the low 32 bits and its generation above.
type Entity uint64

type entityID uint32
type generation uint32

const entityIDBits = 32

// Null is the zero entity; it never refers to a live slot.
const Null Entity = 0

func makeEntity(id entityID, gen generation) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(id))
}

func (e Entity) id() entityID {
	return entityID(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIDBits))
}

func (e Entity) String() string {
	if !e.Valid() {
		return "null"
	}
	return strconv.FormatUint(uint64(e.id()), 10) + ":" + strconv.FormatUint(uint64(e.generation()), 10)
}

func (e Entity) Valid() bool {
	return e.id() > 0
}
