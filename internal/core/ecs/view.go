package ecs

// View is a lazy query over entities whose mask is a superset of the query
// mask. The mask is computed once at construction; iteration walks the
// whole live set, so cost is O(live entities) rather than O(matches).
type View struct {
	reg  *Registry
	mask Mask
}

// ViewMask builds a view over an explicit component mask.
func (r *Registry) ViewMask(mask Mask) *View {
	return &View{reg: r, mask: mask}
}

// Mask returns the query mask.
func (v *View) Mask() Mask { return v.mask }

// Entities snapshots the IDs currently matching the query. The snapshot is
// taken under the read lock; entities destroyed afterwards may appear.
func (v *View) Entities() []EntityID {
	r := v.reg
	r.entityMu.RLock()
	defer r.entityMu.RUnlock()
	out := make([]EntityID, 0, len(r.order))
	for _, id := range r.order {
		if r.masks[id].ContainsAll(v.mask) {
			out = append(out, id)
		}
	}
	return out
}

// Each calls fn for every matching entity. The matching set is snapshotted
// first and fn runs outside the registry's locks, so fn may freely mutate
// the registry (create, destroy, add, remove); each entity is revalidated
// just before its visit.
func (v *View) Each(fn func(EntityID)) {
	for _, id := range v.Entities() {
		if v.reg.MaskOf(id).ContainsAll(v.mask) {
			fn(id)
		}
	}
}

// maskFor resolves the combined mask for a set of already-registered
// types. Returns false if any type was never registered, in which case no
// entity can match.
func maskFor(r *Registry, ids []TypeID, ok bool) (Mask, bool) {
	if !ok {
		return 0, false
	}
	var m Mask
	for _, id := range ids {
		m.Set(id)
	}
	return m, true
}

// Each1 iterates entities holding component A, yielding typed pointers.
// Pointers are valid only for the duration of the callback.
func Each1[A any](r *Registry, fn func(EntityID, *A)) {
	ida, oka := TypeIDOf[A](r.types)
	mask, ok := maskFor(r, []TypeID{ida}, oka)
	if !ok {
		return
	}
	for _, id := range r.ViewMask(mask).Entities() {
		a := Get[A](r, id)
		if a != nil {
			fn(id, a)
		}
	}
}

// Each2 iterates entities holding both A and B.
func Each2[A, B any](r *Registry, fn func(EntityID, *A, *B)) {
	ida, oka := TypeIDOf[A](r.types)
	idb, okb := TypeIDOf[B](r.types)
	mask, ok := maskFor(r, []TypeID{ida, idb}, oka && okb)
	if !ok {
		return
	}
	for _, id := range r.ViewMask(mask).Entities() {
		a := Get[A](r, id)
		b := Get[B](r, id)
		if a != nil && b != nil {
			fn(id, a, b)
		}
	}
}

// Each3 iterates entities holding A, B, and C.
func Each3[A, B, C any](r *Registry, fn func(EntityID, *A, *B, *C)) {
	ida, oka := TypeIDOf[A](r.types)
	idb, okb := TypeIDOf[B](r.types)
	idc, okc := TypeIDOf[C](r.types)
	mask, ok := maskFor(r, []TypeID{ida, idb, idc}, oka && okb && okc)
	if !ok {
		return
	}
	for _, id := range r.ViewMask(mask).Entities() {
		a := Get[A](r, id)
		b := Get[B](r, id)
		c := Get[C](r, id)
		if a != nil && b != nil && c != nil {
			fn(id, a, b, c)
		}
	}
}

// MaskFor1 builds a query mask from a component type, registering it if it
// has not been used yet. Systems use these to declare required components.
func MaskFor1[A any](tr *TypeRegistry) Mask {
	var m Mask
	if id, err := RegisterComponent[A](tr, ""); err == nil {
		m.Set(id)
	}
	return m
}

func MaskFor2[A, B any](tr *TypeRegistry) Mask {
	m := MaskFor1[A](tr)
	return m | MaskFor1[B](tr)
}

func MaskFor3[A, B, C any](tr *TypeRegistry) Mask {
	m := MaskFor2[A, B](tr)
	return m | MaskFor1[C](tr)
}
