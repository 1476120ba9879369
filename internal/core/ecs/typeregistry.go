package ecs

import (
	"reflect"
	"strings"
	"sync"
)

// TypeID is a small dense identifier for a component type, 0..63. IDs are
// assigned lazily the first time a type is used with a TypeRegistry and are
// stable for the process lifetime, never reused.
type TypeID uint8

// TypeRegistry maps Go component types to TypeIDs and keeps a factory per
// type so pools can be rebuilt from a TypeID alone, needed when persisted
// data is decoded before any code has statically referenced the type.
//
// A TypeRegistry is an explicit object, not process-global state: each
// World owns one, so independent worlds (and tests) never share IDs.
type TypeRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]TypeID
	infos  []typeInfo
}

type typeInfo struct {
	typ     reflect.Type
	tag     string
	factory func(TypeID, string) componentStore
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byType: make(map[reflect.Type]TypeID, 16),
		infos:  make([]typeInfo, 0, 16),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterComponent assigns (or returns the existing) TypeID for T. The tag
// is the 4-byte persistence identifier for T's buffers; pass "" to derive
// one from the type name. Registering the 65th distinct type fails with
// ErrTypeCapacity and leaves the registry untouched.
func RegisterComponent[T any](tr *TypeRegistry, tag string) (TypeID, error) {
	t := typeOf[T]()

	tr.mu.RLock()
	id, ok := tr.byType[t]
	tr.mu.RUnlock()
	if ok {
		return id, nil
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	// Double-checked: another goroutine may have registered t between the
	// read unlock and here.
	if id, ok := tr.byType[t]; ok {
		return id, nil
	}
	if len(tr.infos) >= MaxComponentTypes {
		return 0, ErrTypeCapacity
	}
	if tag == "" {
		tag = deriveTag(t.Name())
	}
	id = TypeID(len(tr.infos))
	tr.byType[t] = id
	tr.infos = append(tr.infos, typeInfo{
		typ: t,
		tag: tag,
		factory: func(id TypeID, tag string) componentStore {
			return NewPool[T](id, tag)
		},
	})
	return id, nil
}

// TypeIDOf looks up the TypeID previously assigned to T without registering.
func TypeIDOf[T any](tr *TypeRegistry) (TypeID, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	id, ok := tr.byType[typeOf[T]()]
	return id, ok
}

// CreatePool builds a fresh, empty pool for the given TypeID using the
// factory captured at registration. Returns ErrUnknownType when the ID was
// never registered; the caller skips the offending component.
func (tr *TypeRegistry) CreatePool(id TypeID) (componentStore, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if int(id) >= len(tr.infos) {
		return nil, ErrUnknownType
	}
	info := tr.infos[id]
	return info.factory(id, info.tag), nil
}

// TagFor returns the persistence tag assigned to a TypeID.
func (tr *TypeRegistry) TagFor(id TypeID) (string, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if int(id) >= len(tr.infos) {
		return "", false
	}
	return tr.infos[id].tag, true
}

// TypeNameFor returns the Go type name behind a TypeID, for diagnostics.
func (tr *TypeRegistry) TypeNameFor(id TypeID) (string, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if int(id) >= len(tr.infos) {
		return "", false
	}
	return tr.infos[id].typ.Name(), true
}

// Count returns how many distinct types are registered.
func (tr *TypeRegistry) Count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.infos)
}

// deriveTag builds a 4-byte tag from a type name: uppercase, truncated or
// padded with '_'. "Transform" registered without an explicit tag becomes
// "TRAN".
func deriveTag(name string) string {
	up := strings.ToUpper(name)
	if len(up) >= 4 {
		return up[:4]
	}
	return up + strings.Repeat("_", 4-len(up))
}
