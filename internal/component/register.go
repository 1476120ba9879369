package component

import "github.com/prismengine/prism/internal/core/ecs"

// RegisterBuiltins assigns type IDs and persistence tags for the built-in
// components. Call once per TypeRegistry, before loading any scene, so
// persisted type IDs stay stable across sessions regardless of which
// component a caller happens to touch first.
func RegisterBuiltins(tr *ecs.TypeRegistry) error {
	if _, err := ecs.RegisterComponent[Transform](tr, TagTransform); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Camera](tr, TagCamera); err != nil {
		return err
	}
	if _, err := ecs.RegisterComponent[Velocity](tr, TagVelocity); err != nil {
		return err
	}
	return nil
}
