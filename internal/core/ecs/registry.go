package ecs

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry is the database of the simulation: it owns entity identity, the
// per-entity component masks and metadata, and every component pool.
//
// Two reader-writer locks guard it: entityMu covers the live set, masks,
// and metadata; poolMu covers the pool map. Lock order is always entityMu
// before poolMu, never the reverse.
type Registry struct {
	log    *zap.Logger
	types  *TypeRegistry
	closed atomic.Bool

	entityMu sync.RWMutex
	alloc    *idAllocator
	order    []EntityID
	index    map[EntityID]int
	masks    map[EntityID]Mask
	meta     map[EntityID]*Metadata

	poolMu sync.RWMutex
	pools  map[TypeID]componentStore
}

func NewRegistry(types *TypeRegistry, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:   log,
		types: types,
		alloc: newIDAllocator(),
		index: make(map[EntityID]int, 256),
		masks: make(map[EntityID]Mask, 256),
		meta:  make(map[EntityID]*Metadata, 256),
		pools: make(map[TypeID]componentStore, 16),
	}
}

// Types returns the component type registry this registry resolves against.
func (r *Registry) Types() *TypeRegistry { return r.types }

// Close tears the registry down. Every entity, mask, metadata record
// and component pool is dropped, so accessors observe an empty registry
// afterwards and handles fail their validity check.
func (r *Registry) Close() {
	r.closed.Store(true)
	r.entityMu.Lock()
	r.order = nil
	r.index = make(map[EntityID]int)
	r.masks = make(map[EntityID]Mask)
	r.meta = make(map[EntityID]*Metadata)
	r.entityMu.Unlock()
	r.poolMu.Lock()
	r.pools = make(map[TypeID]componentStore)
	r.poolMu.Unlock()
}

// CreateEntity allocates a fresh ID with an empty mask and default
// metadata. When withUUID is set the entity also receives a persistent
// cross-session UUID.
func (r *Registry) CreateEntity(withUUID bool) EntityID {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	id := r.alloc.allocate()
	r.index[id] = len(r.order)
	r.order = append(r.order, id)
	r.masks[id] = 0
	md := newMetadata()
	if withUUID {
		md.UUID = uuid.NewString()
	}
	r.meta[id] = md
	return id
}

// DestroyEntity removes the entity from every pool that holds data for it,
// unlinks it from the hierarchy, clears its metadata, and drops the ID from
// the live set. Returns false if the ID is not currently valid.
func (r *Registry) DestroyEntity(id EntityID) bool {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	pos, ok := r.index[id]
	if !ok {
		r.log.Debug("destroy of invalid entity", zap.Uint32("entity", uint32(id)))
		return false
	}

	md := r.meta[id]
	if md.Parent != InvalidEntity {
		if pm, ok := r.meta[md.Parent]; ok {
			pm.removeChild(id)
		}
	}
	// Children become roots. Deep hierarchies are torn down by the caller
	// walking Children before destroying, not implicitly here.
	for _, c := range md.Children {
		if cm, ok := r.meta[c]; ok {
			cm.Parent = InvalidEntity
		}
	}

	r.removeAllComponentsLocked(id)

	last := len(r.order) - 1
	if pos != last {
		moved := r.order[last]
		r.order[pos] = moved
		r.index[moved] = pos
	}
	r.order = r.order[:last]
	delete(r.index, id)
	delete(r.masks, id)
	delete(r.meta, id)
	return true
}

// IsValid reports whether the ID is in the live entity set.
func (r *Registry) IsValid(id EntityID) bool {
	if r.closed.Load() {
		return false
	}
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// Count returns the number of live entities.
func (r *Registry) Count() int {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	return len(r.order)
}

// Entities returns a snapshot of the live entity set. Order is storage
// order and is not stable across destroy/create cycles.
func (r *Registry) Entities() []EntityID {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	out := make([]EntityID, len(r.order))
	copy(out, r.order)
	return out
}

// MaskOf returns the entity's component mask, zero for invalid entities.
func (r *Registry) MaskOf(id EntityID) Mask {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	return r.masks[id]
}

// RemoveAllComponents strips every component the entity holds, leaving the
// mask all-zero. The entity itself stays alive.
func (r *Registry) RemoveAllComponents(id EntityID) {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	if _, ok := r.index[id]; !ok {
		return
	}
	r.removeAllComponentsLocked(id)
}

// removeAllComponentsLocked walks the mask and destroys the entity's entry
// in each set pool. Caller holds entityMu exclusively.
func (r *Registry) removeAllComponentsLocked(id EntityID) {
	mask := r.masks[id]
	if mask.IsEmpty() {
		return
	}
	r.poolMu.Lock()
	for _, tid := range mask.Bits() {
		if p, ok := r.pools[tid]; ok {
			p.Destroy(id)
		}
	}
	r.poolMu.Unlock()
	r.masks[id] = 0
}

// Add attaches a component to the entity, lazily registering its type and
// creating its pool on first use, and sets the corresponding mask bit.
// Returns nil (logged) when the entity is invalid or the type capacity is
// exhausted. Idempotent: an entity that already holds T keeps its existing
// instance.
func Add[T any](r *Registry, id EntityID, v T) *T {
	tid, err := RegisterComponent[T](r.types, "")
	if err != nil {
		r.log.Error("component registration failed",
			zap.String("type", fmt.Sprintf("%T", v)), zap.Error(err))
		return nil
	}

	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	mask, ok := r.masks[id]
	if !ok {
		r.log.Debug("add component on invalid entity", zap.Uint32("entity", uint32(id)))
		return nil
	}

	r.poolMu.Lock()
	pool := poolForLocked[T](r, tid)
	ptr := pool.Add(id, v)
	r.poolMu.Unlock()

	mask.Set(tid)
	r.masks[id] = mask
	return ptr
}

// Get returns the entity's component of type T, or nil. The pointer stays
// valid only until the next structural mutation of T's pool.
func Get[T any](r *Registry, id EntityID) *T {
	tid, ok := TypeIDOf[T](r.types)
	if !ok {
		return nil
	}
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	if !r.masks[id].Has(tid) {
		return nil
	}
	r.poolMu.RLock()
	defer r.poolMu.RUnlock()
	pool, ok := r.pools[tid].(*Pool[T])
	if !ok {
		return nil
	}
	return pool.Get(id)
}

// Has reports whether the entity currently holds a component of type T.
func Has[T any](r *Registry, id EntityID) bool {
	tid, ok := TypeIDOf[T](r.types)
	if !ok {
		return false
	}
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	return r.masks[id].Has(tid)
}

// RemoveComponent detaches T from the entity and clears its mask bit.
func RemoveComponent[T any](r *Registry, id EntityID) bool {
	tid, ok := TypeIDOf[T](r.types)
	if !ok {
		return false
	}
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	mask, ok := r.masks[id]
	if !ok || !mask.Has(tid) {
		return false
	}
	r.poolMu.Lock()
	removed := false
	if p, ok := r.pools[tid]; ok {
		removed = p.Remove(id)
	}
	r.poolMu.Unlock()
	mask.Clear(tid)
	r.masks[id] = mask
	return removed
}

// poolForLocked resolves (or creates) the typed pool for tid. Caller holds
// poolMu exclusively.
func poolForLocked[T any](r *Registry, tid TypeID) *Pool[T] {
	if p, ok := r.pools[tid]; ok {
		return p.(*Pool[T])
	}
	tag, _ := r.types.TagFor(tid)
	p := NewPool[T](tid, tag)
	r.pools[tid] = p
	return p
}
