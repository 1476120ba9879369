package ecs

import (
	"fmt"

	"github.com/prismengine/prism/internal/persist"
)

// componentStore is the untyped face of a Pool, letting the Registry hold
// and tear down pools of any component type. Stores never touch entity
// masks; the Registry keeps mask and pool state in lockstep.
type componentStore interface {
	TypeID() TypeID
	Tag() string
	Has(EntityID) bool
	Remove(EntityID) bool
	Destroy(EntityID)
	Len() int
	SerializeComponent(EntityID, persist.Serializer) error
	DeserializeComponent(EntityID, persist.Deserializer) error
}

// Pool is dense contiguous storage for one component type across all
// entities. Components live in a single slice; an entity→slot map gives
// O(1) lookup, and removal swaps the last element into the vacated slot so
// the slice never fragments.
//
// Pointers returned by Add and Get stay valid only until the next Add or
// Remove on the same pool; callers must not retain them across mutations.
type Pool[T any] struct {
	id     TypeID
	ptag   string
	dense  []T
	owners []EntityID
	slots  map[EntityID]int
}

var _ componentStore = (*Pool[struct{}])(nil)

func NewPool[T any](id TypeID, tag string) *Pool[T] {
	return &Pool[T]{
		id:    id,
		ptag:  tag,
		slots: make(map[EntityID]int, 64),
	}
}

func (p *Pool[T]) TypeID() TypeID { return p.id }
func (p *Pool[T]) Tag() string    { return p.ptag }
func (p *Pool[T]) Len() int       { return len(p.dense) }

// Add stores v for the entity and returns a pointer to the stored copy.
// Idempotent: if the entity already holds this component the existing
// instance is returned unchanged rather than duplicated.
func (p *Pool[T]) Add(e EntityID, v T) *T {
	if slot, ok := p.slots[e]; ok {
		return &p.dense[slot]
	}
	p.dense = append(p.dense, v)
	p.owners = append(p.owners, e)
	p.slots[e] = len(p.dense) - 1
	return &p.dense[len(p.dense)-1]
}

// Get returns the entity's component, or nil if it has none.
func (p *Pool[T]) Get(e EntityID) *T {
	slot, ok := p.slots[e]
	if !ok {
		return nil
	}
	return &p.dense[slot]
}

func (p *Pool[T]) Has(e EntityID) bool {
	_, ok := p.slots[e]
	return ok
}

// Remove deletes the entity's component, keeping the dense slice compact by
// moving the last element into the freed slot.
func (p *Pool[T]) Remove(e EntityID) bool {
	slot, ok := p.slots[e]
	if !ok {
		return false
	}
	last := len(p.dense) - 1
	if slot != last {
		p.dense[slot] = p.dense[last]
		moved := p.owners[last]
		p.owners[slot] = moved
		p.slots[moved] = slot
	}
	var zero T
	p.dense[last] = zero
	p.dense = p.dense[:last]
	p.owners = p.owners[:last]
	delete(p.slots, e)
	return true
}

// Destroy is Remove without the result, used during bulk entity teardown.
func (p *Pool[T]) Destroy(e EntityID) {
	p.Remove(e)
}

// Each visits every stored component. Iteration order is storage order,
// which shifts as entities are removed.
func (p *Pool[T]) Each(fn func(EntityID, *T)) {
	for i := range p.dense {
		fn(p.owners[i], &p.dense[i])
	}
}

// SerializeComponent delegates encoding of the entity's component to the
// component value itself via the persist contract.
func (p *Pool[T]) SerializeComponent(e EntityID, s persist.Serializer) error {
	v := p.Get(e)
	if v == nil {
		return fmt.Errorf("serialize %s for entity %d: %w", p.ptag, e, ErrInvalidEntity)
	}
	sz, ok := any(v).(persist.Serializable)
	if !ok {
		return fmt.Errorf("component %T does not implement persist.Serializable", v)
	}
	return sz.Serialize(s)
}

// DeserializeComponent decodes a component for the entity, creating the
// slot if it does not exist yet.
func (p *Pool[T]) DeserializeComponent(e EntityID, d persist.Deserializer) error {
	existed := p.Has(e)
	var zero T
	v := p.Add(e, zero)
	sz, ok := any(v).(persist.Serializable)
	if !ok {
		return fmt.Errorf("component %T does not implement persist.Serializable", v)
	}
	if err := sz.Deserialize(d); err != nil {
		if !existed {
			p.Remove(e)
		}
		return err
	}
	return nil
}
