package scene

import (
	"fmt"
	"sort"

	"github.com/prismengine/prism/internal/core/ecs"
	"github.com/prismengine/prism/internal/persist"
)

// ChunkCoord addresses one spatial cell of a scene.
type ChunkCoord struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
	Z int32 `yaml:"z"`
}

// FileName returns the on-disk name for this chunk's buffer.
func (c ChunkCoord) FileName() string {
	return fmt.Sprintf("chunk_%d_%d_%d.chunk", c.X, c.Y, c.Z)
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Chunk is a spatial subdivision of scene data, persisted and loaded
// independently of the whole scene. It stores member entities by UUID so a
// chunk buffer stays meaningful across sessions where runtime IDs differ.
type Chunk struct {
	coord   ChunkCoord
	members map[ecs.EntityID]struct{}

	// digest is the blake2b-256 of the last flushed encoding. A chunk
	// whose current encoding hashes identically is skipped at flush time.
	digest   [32]byte
	hasFlush bool
}

func newChunk(coord ChunkCoord) *Chunk {
	return &Chunk{
		coord:   coord,
		members: make(map[ecs.EntityID]struct{}, 16),
	}
}

func (c *Chunk) Coord() ChunkCoord { return c.coord }
func (c *Chunk) Len() int          { return len(c.members) }

func (c *Chunk) contains(id ecs.EntityID) bool {
	_, ok := c.members[id]
	return ok
}

// Entities returns the member IDs in unspecified order.
func (c *Chunk) Entities() []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(c.members))
	for id := range c.members {
		out = append(out, id)
	}
	return out
}

// serialize writes the chunk frame: coordinates plus member entity UUIDs.
// Members without a UUID cannot be referenced cross-session and are
// dropped from the buffer.
func (c *Chunk) serialize(reg *ecs.Registry, s persist.Serializer) error {
	if err := s.BeginObject(persist.TagChunk); err != nil {
		return err
	}
	if err := s.WriteInt32("x", c.coord.X); err != nil {
		return err
	}
	if err := s.WriteInt32("y", c.coord.Y); err != nil {
		return err
	}
	if err := s.WriteInt32("z", c.coord.Z); err != nil {
		return err
	}

	uuids := make([]string, 0, len(c.members))
	for id := range c.members {
		if u := reg.UUID(id); u != "" {
			uuids = append(uuids, u)
		}
	}
	// Deterministic order keeps the digest stable for identical content.
	sort.Strings(uuids)

	if err := s.BeginArray("entities", len(uuids)); err != nil {
		return err
	}
	for _, u := range uuids {
		if err := s.WriteString("uuid", u); err != nil {
			return err
		}
	}
	if err := s.EndArray(); err != nil {
		return err
	}
	return s.EndObject()
}

// deserializeChunk reads a chunk frame, returning the coordinate and the
// member UUIDs for the caller to resolve against the registry.
func deserializeChunk(d persist.Deserializer) (ChunkCoord, []string, error) {
	var coord ChunkCoord
	if err := d.BeginObject(persist.TagChunk); err != nil {
		return coord, nil, err
	}
	var err error
	if coord.X, err = d.ReadInt32("x"); err != nil {
		return coord, nil, err
	}
	if coord.Y, err = d.ReadInt32("y"); err != nil {
		return coord, nil, err
	}
	if coord.Z, err = d.ReadInt32("z"); err != nil {
		return coord, nil, err
	}
	n, err := d.BeginArray("entities")
	if err != nil {
		return coord, nil, err
	}
	// The count is untrusted on-disk data; cap the capacity hint so a
	// corrupt chunk file fails on the first short read, not in make.
	hint := n
	if hint > 1024 {
		hint = 1024
	}
	uuids := make([]string, 0, hint)
	for i := 0; i < n; i++ {
		u, err := d.ReadString("uuid")
		if err != nil {
			return coord, nil, err
		}
		uuids = append(uuids, u)
	}
	if err := d.EndArray(); err != nil {
		return coord, nil, err
	}
	return coord, uuids, d.EndObject()
}
