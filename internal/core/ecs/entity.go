package ecs

import "strconv"

// EntityID is an opaque 32-bit entity identity. Zero is reserved as invalid;
// an entity exists only as membership in a Registry, never as an object.
type EntityID uint32

// InvalidEntity is the reserved zero ID. No live entity ever carries it.
const InvalidEntity EntityID = 0

func (id EntityID) IsZero() bool { return id == InvalidEntity }

func (id EntityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// idAllocator hands out entity IDs. IDs increase monotonically and are never
// reused for the process lifetime, so a stale handle can never alias a newer
// entity created after its target was destroyed.
type idAllocator struct {
	next EntityID
}

func newIDAllocator() *idAllocator {
	return &idAllocator{next: 1}
}

// allocate returns the next unused ID. Callers hold the registry's entity
// write lock; that is what makes concurrent CreateEntity calls unique.
func (a *idAllocator) allocate() EntityID {
	id := a.next
	a.next++
	return id
}
