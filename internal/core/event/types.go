package event

import "github.com/prismengine/prism/internal/core/ecs"

// Engine event types. Systems may also define their own and route them
// through the same bus.

// EntityDestroyed is emitted by the world after an entity has been torn
// down, so scene indexes and caches can drop their references.
type EntityDestroyed struct {
	Entity ecs.EntityID
	Name   string
}

// SceneLoaded is emitted after a scene finishes loading from disk.
type SceneLoaded struct {
	Name     string
	Entities int
}

// SceneSaved is emitted after a scene save completes, whether it ran
// synchronously or on the background worker.
type SceneSaved struct {
	Name string
	Path string
	Err  error
}

// ChunkFlushed is emitted after a dirty-chunk flush completes, carrying
// how many chunks were processed.
type ChunkFlushed struct {
	Scene  string
	Chunks int
}
