package ecs

import (
	"errors"
	"fmt"
)

// ErrInvalidEntity is returned when an operation references an ID that is
// not in the live entity set. Always recoverable.
var ErrInvalidEntity = errors.New("ecs: invalid entity")

// ErrTypeCapacity is returned when registering a component type would
// exceed MaxComponentTypes. The registration fails explicitly; the mask is
// never corrupted by a wrapped bit index.
var ErrTypeCapacity = errors.New("ecs: component type capacity exceeded")

// ErrUnknownType is returned when a TypeID has no registered factory,
// typically because persisted data references a component type the running
// build no longer knows. Callers skip the component and continue.
var ErrUnknownType = errors.New("ecs: unknown component type")

// SelfRelationError reports an attempt to make an entity its own parent or
// child.
type SelfRelationError struct {
	Entity EntityID
}

func (e SelfRelationError) Error() string {
	return fmt.Sprintf("ecs: entity %d cannot be its own parent or child", e.Entity)
}
