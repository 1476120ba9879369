package ecs

// Handle is a lightweight value callers pass around instead of raw pool
// pointers: an entity ID plus a non-owning reference to its registry. The
// registry is the sole owner of all component data; a handle whose registry
// has been closed, or whose entity has been destroyed, fails every
// operation gracefully.
type Handle struct {
	id  EntityID
	reg *Registry
}

// Handle wraps an entity ID for this registry. The ID is not validated
// here; every operation validates on use.
func (r *Registry) Handle(id EntityID) Handle {
	return Handle{id: id, reg: r}
}

func (h Handle) ID() EntityID { return h.id }

// IsValid reports whether the handle still resolves to a live entity.
func (h Handle) IsValid() bool {
	return h.reg != nil && h.reg.IsValid(h.id)
}

// Destroy tears the entity down. No-op on an invalid handle.
func (h Handle) Destroy() bool {
	if h.reg == nil {
		return false
	}
	return h.reg.DestroyEntity(h.id)
}

func (h Handle) Name() string {
	if h.reg == nil {
		return ""
	}
	return h.reg.Name(h.id)
}

func (h Handle) SetName(name string) {
	if h.reg == nil {
		return
	}
	h.reg.SetName(h.id, name)
}

func (h Handle) UUID() string {
	if h.reg == nil {
		return ""
	}
	return h.reg.UUID(h.id)
}

// SetParent reparents this entity under parent, which must belong to the
// same registry.
func (h Handle) SetParent(parent Handle) error {
	if h.reg == nil || parent.reg != h.reg {
		h.logDropped("SetParent")
		return ErrInvalidEntity
	}
	return h.reg.SetParent(h.id, parent.id)
}

func (h Handle) ClearParent() {
	if h.reg == nil {
		return
	}
	h.reg.ClearParent(h.id)
}

func (h Handle) Parent() Handle {
	if h.reg == nil {
		return Handle{}
	}
	return Handle{id: h.reg.Parent(h.id), reg: h.reg}
}

func (h Handle) Children() []Handle {
	if h.reg == nil {
		return nil
	}
	ids := h.reg.Children(h.id)
	out := make([]Handle, len(ids))
	for i, id := range ids {
		out[i] = Handle{id: id, reg: h.reg}
	}
	return out
}

func (h Handle) AddTag(tag string) {
	if h.reg == nil {
		return
	}
	h.reg.AddTag(h.id, tag)
}

func (h Handle) RemoveTag(tag string) {
	if h.reg == nil {
		return
	}
	h.reg.RemoveTag(h.id, tag)
}

func (h Handle) HasTag(tag string) bool {
	return h.reg != nil && h.reg.HasTag(h.id, tag)
}

func (h Handle) SetActive(active bool) {
	if h.reg == nil {
		return
	}
	h.reg.SetActive(h.id, active)
}

func (h Handle) IsActive() bool {
	return h.reg != nil && h.reg.IsActive(h.id)
}

func (h Handle) logDropped(op string) {
	if h.reg != nil {
		h.reg.logInvalid(op, h.id)
	}
}

// GetComponent resolves a component through a handle. Methods cannot be
// generic, so this is a package function taking the handle.
func GetComponent[T any](h Handle) *T {
	if h.reg == nil {
		return nil
	}
	return Get[T](h.reg, h.id)
}

// AddComponent attaches a component through a handle.
func AddComponent[T any](h Handle, v T) *T {
	if h.reg == nil {
		return nil
	}
	return Add(h.reg, h.id, v)
}

// HasComponent reports component presence through a handle.
func HasComponent[T any](h Handle) bool {
	return h.reg != nil && Has[T](h.reg, h.id)
}
