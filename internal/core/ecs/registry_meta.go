package ecs

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Metadata accessors. All take the entity lock; invalid IDs fail soft with
// zero values so callers holding stale handles never crash.

func (r *Registry) SetName(id EntityID, name string) {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	if md, ok := r.meta[id]; ok {
		md.Name = name
	}
}

func (r *Registry) Name(id EntityID) string {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	if md, ok := r.meta[id]; ok {
		return md.Name
	}
	return ""
}

// UUID returns the entity's persistent identity, empty if it has none.
func (r *Registry) UUID(id EntityID) string {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	if md, ok := r.meta[id]; ok {
		return md.UUID
	}
	return ""
}

// EnsureUUID assigns a UUID if the entity lacks one and returns it.
func (r *Registry) EnsureUUID(id EntityID) string {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	md, ok := r.meta[id]
	if !ok {
		return ""
	}
	if md.UUID == "" {
		md.UUID = uuid.NewString()
	}
	return md.UUID
}

func (r *Registry) setUUID(id EntityID, u string) {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	if md, ok := r.meta[id]; ok {
		md.UUID = u
	}
}

// FindByUUID scans the live set for an entity carrying the given UUID.
// Linear; intended for scene loading, not per-frame lookups.
func (r *Registry) FindByUUID(u string) EntityID {
	if u == "" {
		return InvalidEntity
	}
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	for _, id := range r.order {
		if r.meta[id].UUID == u {
			return id
		}
	}
	return InvalidEntity
}

// SetParent links child under parent, keeping both sides of the relation
// consistent. Self-parenting is rejected; deep cycles are not validated
// exhaustively.
func (r *Registry) SetParent(child, parent EntityID) error {
	if child == parent {
		return SelfRelationError{Entity: child}
	}
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	cm, ok := r.meta[child]
	if !ok {
		return ErrInvalidEntity
	}
	pm, ok := r.meta[parent]
	if !ok {
		return ErrInvalidEntity
	}
	if cm.Parent == parent {
		return nil
	}
	if cm.Parent != InvalidEntity {
		if old, ok := r.meta[cm.Parent]; ok {
			old.removeChild(child)
		}
	}
	cm.Parent = parent
	if !pm.hasChild(child) {
		pm.Children = append(pm.Children, child)
	}
	return nil
}

// ClearParent detaches the entity from its parent, making it a root.
func (r *Registry) ClearParent(child EntityID) {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	cm, ok := r.meta[child]
	if !ok || cm.Parent == InvalidEntity {
		return
	}
	if pm, ok := r.meta[cm.Parent]; ok {
		pm.removeChild(child)
	}
	cm.Parent = InvalidEntity
}

func (r *Registry) Parent(id EntityID) EntityID {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	if md, ok := r.meta[id]; ok {
		return md.Parent
	}
	return InvalidEntity
}

// Children returns a copy of the entity's ordered child list.
func (r *Registry) Children(id EntityID) []EntityID {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	md, ok := r.meta[id]
	if !ok || len(md.Children) == 0 {
		return nil
	}
	out := make([]EntityID, len(md.Children))
	copy(out, md.Children)
	return out
}

func (r *Registry) AddTag(id EntityID, tag string) {
	if tag == "" {
		return
	}
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	if md, ok := r.meta[id]; ok {
		md.Tags[tag] = struct{}{}
	}
}

func (r *Registry) RemoveTag(id EntityID, tag string) {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	if md, ok := r.meta[id]; ok {
		delete(md.Tags, tag)
	}
}

func (r *Registry) HasTag(id EntityID, tag string) bool {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	if md, ok := r.meta[id]; ok {
		_, has := md.Tags[tag]
		return has
	}
	return false
}

// Tags returns the entity's tags in sorted order.
func (r *Registry) Tags(id EntityID) []string {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	if md, ok := r.meta[id]; ok {
		return md.sortedTags()
	}
	return nil
}

func (r *Registry) SetActive(id EntityID, active bool) {
	r.entityMu.Lock()
	defer r.entityMu.Unlock()
	if md, ok := r.meta[id]; ok {
		md.Active = active
	}
}

func (r *Registry) IsActive(id EntityID) bool {
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	if md, ok := r.meta[id]; ok {
		return md.Active
	}
	return false
}

// logInvalid is shared debug logging for operations on dead entities.
func (r *Registry) logInvalid(op string, id EntityID) {
	r.log.Debug("operation on invalid entity",
		zap.String("op", op), zap.Uint32("entity", uint32(id)))
}
