// Package scene groups entities into a named, persistable collection with
// spatial chunks that save and load independently of the whole scene.
package scene

import (
	"sync"

	"go.uber.org/zap"

	"github.com/prismengine/prism/internal/core/ecs"
)

// Scene is a named collection of root entities with name and tag indexes,
// a main-camera reference, and a sparse map of spatial chunks. A dirty set
// tracks chunks modified since the last flush.
//
// The scene does not own entity data; the registry does. The scene owns
// only its indexes and chunk membership.
type Scene struct {
	log  *zap.Logger
	name string
	reg  *ecs.Registry

	mu         sync.RWMutex
	roots      []ecs.EntityID
	byName     map[string]ecs.EntityID
	byTag      map[string]map[ecs.EntityID]struct{}
	mainCamera ecs.EntityID
	chunks     map[ChunkCoord]*Chunk
	dirty      map[ChunkCoord]struct{}
}

func New(name string, reg *ecs.Registry, log *zap.Logger) *Scene {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scene{
		log:    log,
		name:   name,
		reg:    reg,
		byName: make(map[string]ecs.EntityID, 64),
		byTag:  make(map[string]map[ecs.EntityID]struct{}, 16),
		chunks: make(map[ChunkCoord]*Chunk, 16),
		dirty:  make(map[ChunkCoord]struct{}, 16),
	}
}

func (s *Scene) Name() string            { return s.name }
func (s *Scene) Registry() *ecs.Registry { return s.reg }

// CreateEntity makes a new root entity with a UUID and registers it in the
// scene's name index.
func (s *Scene) CreateEntity(name string) ecs.EntityID {
	id := s.reg.CreateEntity(true)
	if name != "" {
		s.reg.SetName(id, name)
	}
	s.mu.Lock()
	s.roots = append(s.roots, id)
	if name != "" {
		s.byName[name] = id
	}
	s.mu.Unlock()
	return id
}

// Adopt registers an existing entity with the scene, indexing its current
// name and tags.
func (s *Scene) Adopt(id ecs.EntityID) {
	if !s.reg.IsValid(id) {
		return
	}
	name := s.reg.Name(id)
	tags := s.reg.Tags(id)
	isRoot := s.reg.Parent(id) == ecs.InvalidEntity

	s.mu.Lock()
	defer s.mu.Unlock()
	if isRoot && !s.isRootLocked(id) {
		s.roots = append(s.roots, id)
	}
	if name != "" {
		s.byName[name] = id
	}
	for _, t := range tags {
		s.tagLocked(id, t)
	}
}

// Forget removes an entity from every scene index and from any chunk it
// belongs to. The entity itself is untouched; destruction is the caller's
// (or the world's) business.
func (s *Scene) Forget(id ecs.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.roots {
		if r == id {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			break
		}
	}
	for name, e := range s.byName {
		if e == id {
			delete(s.byName, name)
		}
	}
	for _, set := range s.byTag {
		delete(set, id)
	}
	for coord, ch := range s.chunks {
		if ch.contains(id) {
			delete(ch.members, id)
			s.dirty[coord] = struct{}{}
		}
	}
	if s.mainCamera == id {
		s.mainCamera = ecs.InvalidEntity
	}
}

// FindByName resolves a display name to an entity, zero when absent.
// Names are unique by convention, not enforcement; on collision the most
// recently indexed entity wins.
func (s *Scene) FindByName(name string) ecs.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[name]
}

// Tag tags the entity in both the registry metadata and the scene index.
func (s *Scene) Tag(id ecs.EntityID, tag string) {
	if !s.reg.IsValid(id) || tag == "" {
		return
	}
	s.reg.AddTag(id, tag)
	s.mu.Lock()
	s.tagLocked(id, tag)
	s.mu.Unlock()
}

func (s *Scene) tagLocked(id ecs.EntityID, tag string) {
	set, ok := s.byTag[tag]
	if !ok {
		set = make(map[ecs.EntityID]struct{}, 8)
		s.byTag[tag] = set
	}
	set[id] = struct{}{}
}

// Untag removes a tag from both the registry and the index.
func (s *Scene) Untag(id ecs.EntityID, tag string) {
	s.reg.RemoveTag(id, tag)
	s.mu.Lock()
	if set, ok := s.byTag[tag]; ok {
		delete(set, id)
	}
	s.mu.Unlock()
}

// FindByTag returns all entities carrying the tag.
func (s *Scene) FindByTag(tag string) []ecs.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.byTag[tag]
	out := make([]ecs.EntityID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Roots returns a snapshot of the scene's root entities.
func (s *Scene) Roots() []ecs.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ecs.EntityID, len(s.roots))
	copy(out, s.roots)
	return out
}

func (s *Scene) isRootLocked(id ecs.EntityID) bool {
	for _, r := range s.roots {
		if r == id {
			return true
		}
	}
	return false
}

// SetMainCamera records which entity drives rendering.
func (s *Scene) SetMainCamera(id ecs.EntityID) {
	s.mu.Lock()
	s.mainCamera = id
	s.mu.Unlock()
}

func (s *Scene) MainCamera() ecs.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mainCamera
}

// ChunkAt returns the chunk at coord, creating it on first use. A freshly
// created chunk starts dirty so it reaches disk on the next flush.
func (s *Scene) ChunkAt(coord ChunkCoord) *Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chunks[coord]
	if !ok {
		ch = newChunk(coord)
		s.chunks[coord] = ch
		s.dirty[coord] = struct{}{}
	}
	return ch
}

// AssignToChunk moves the entity into the chunk at coord, removing it from
// any other chunk. Both touched chunks go dirty. The entity is given a
// UUID if it lacks one, since chunk buffers reference members by UUID.
func (s *Scene) AssignToChunk(id ecs.EntityID, coord ChunkCoord) {
	if !s.reg.IsValid(id) {
		return
	}
	s.reg.EnsureUUID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	for c, ch := range s.chunks {
		if c != coord && ch.contains(id) {
			delete(ch.members, id)
			s.dirty[c] = struct{}{}
		}
	}
	ch, ok := s.chunks[coord]
	if !ok {
		ch = newChunk(coord)
		s.chunks[coord] = ch
	}
	ch.members[id] = struct{}{}
	s.dirty[coord] = struct{}{}
}

// MarkChunkDirty flags a chunk for the next flush.
func (s *Scene) MarkChunkDirty(coord ChunkCoord) {
	s.mu.Lock()
	if _, ok := s.chunks[coord]; ok {
		s.dirty[coord] = struct{}{}
	}
	s.mu.Unlock()
}

// DirtyChunks returns the coordinates awaiting a flush.
func (s *Scene) DirtyChunks() []ChunkCoord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChunkCoord, 0, len(s.dirty))
	for c := range s.dirty {
		out = append(out, c)
	}
	return out
}

// ChunkCount returns how many chunks the scene currently tracks.
func (s *Scene) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
