package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/prismengine/prism/internal/core/ecs"
	"github.com/prismengine/prism/internal/persist"
)

// manifest is the YAML body of an X.scene file: scene identity plus the
// chunk index. Entity payloads live next to it in X.entities; chunk
// buffers under <scene>_data/chunks/.
type manifest struct {
	Name          string       `yaml:"name"`
	SchemaVersion uint32       `yaml:"schema_version"`
	MainCamera    string       `yaml:"main_camera,omitempty"`
	Chunks        []ChunkCoord `yaml:"chunks"`
}

// scenePaths derives the file tree layout from a scene path "X.scene".
type scenePaths struct {
	manifest string
	entities string
	chunkDir string
}

func pathsFor(path string) scenePaths {
	base := strings.TrimSuffix(filepath.Base(path), ".scene")
	dir := filepath.Dir(path)
	return scenePaths{
		manifest: filepath.Join(dir, base+".scene"),
		entities: filepath.Join(dir, base+".entities"),
		chunkDir: filepath.Join(dir, base+"_data", "chunks"),
	}
}

// Save writes the whole scene: manifest, entity buffer, and every chunk.
// Unchanged chunks (by content digest) are not rewritten. Directories are
// created on demand. The dirty set is cleared on success.
func (s *Scene) Save(path string) error {
	p := pathsFor(path)
	if err := os.MkdirAll(filepath.Dir(p.manifest), 0755); err != nil {
		return fmt.Errorf("create scene dir: %w", err)
	}

	if err := s.saveEntities(p.entities); err != nil {
		return err
	}

	s.mu.Lock()
	coords := make([]ChunkCoord, 0, len(s.chunks))
	for c := range s.chunks {
		coords = append(coords, c)
	}
	s.mu.Unlock()

	for _, coord := range coords {
		if err := s.saveChunk(p, coord); err != nil {
			return err
		}
	}

	if err := s.saveManifest(p.manifest, coords); err != nil {
		return err
	}

	s.mu.Lock()
	s.dirty = make(map[ChunkCoord]struct{}, 16)
	s.mu.Unlock()

	s.log.Info("scene saved",
		zap.String("scene", s.name),
		zap.String("path", p.manifest),
		zap.Int("entities", s.reg.Count()),
		zap.Int("chunks", len(coords)))
	return nil
}

// FlushDirtyChunks writes only chunks flagged dirty since the last flush,
// plus the manifest so the chunk index stays current. Returns how many
// chunks were flushed.
func (s *Scene) FlushDirtyChunks(path string) (int, error) {
	p := pathsFor(path)

	s.mu.Lock()
	coords := make([]ChunkCoord, 0, len(s.dirty))
	for c := range s.dirty {
		coords = append(coords, c)
	}
	all := make([]ChunkCoord, 0, len(s.chunks))
	for c := range s.chunks {
		all = append(all, c)
	}
	s.mu.Unlock()

	flushed := 0
	for _, coord := range coords {
		if err := s.saveChunk(p, coord); err != nil {
			return flushed, err
		}
		flushed++
		s.mu.Lock()
		delete(s.dirty, coord)
		s.mu.Unlock()
	}
	if flushed > 0 {
		if err := s.saveManifest(p.manifest, all); err != nil {
			return flushed, err
		}
	}
	return flushed, nil
}

func (s *Scene) saveManifest(path string, coords []ChunkCoord) error {
	s.mu.RLock()
	m := manifest{
		Name:          s.name,
		SchemaVersion: persist.SchemaVersion,
		MainCamera:    s.reg.UUID(s.mainCamera),
		Chunks:        coords,
	}
	s.mu.RUnlock()

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (s *Scene) saveEntities(path string) error {
	w := persist.NewBinaryWriter()
	if err := w.BeginObject(persist.TagScene); err != nil {
		return err
	}
	if err := w.WriteString("scene", s.name); err != nil {
		return err
	}
	if err := s.reg.SerializeAll(w); err != nil {
		return fmt.Errorf("serialize entities: %w", err)
	}
	if err := w.EndObject(); err != nil {
		return err
	}
	if err := os.WriteFile(path, w.Bytes(), 0644); err != nil {
		return fmt.Errorf("write entities: %w", err)
	}
	return nil
}

// saveChunk encodes one chunk and writes it unless its content digest
// matches the last flush.
func (s *Scene) saveChunk(p scenePaths, coord ChunkCoord) error {
	s.mu.RLock()
	ch, ok := s.chunks[coord]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	w := persist.NewBinaryWriter()
	s.mu.RLock()
	err := ch.serialize(s.reg, w)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("serialize chunk %s: %w", coord, err)
	}

	sum := blake2b.Sum256(w.Bytes())
	s.mu.Lock()
	unchanged := ch.hasFlush && sum == ch.digest
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	if err := os.MkdirAll(p.chunkDir, 0755); err != nil {
		return fmt.Errorf("create chunk dir: %w", err)
	}
	file := filepath.Join(p.chunkDir, coord.FileName())
	if err := os.WriteFile(file, w.Bytes(), 0644); err != nil {
		return fmt.Errorf("write chunk %s: %w", coord, err)
	}

	s.mu.Lock()
	ch.digest = sum
	ch.hasFlush = true
	s.mu.Unlock()
	return nil
}

// Load reads a scene file tree into the given registry and returns the
// populated scene. The manifest is required; a missing entities file or
// missing chunk buffers are each non-fatal, as long as at least one of the
// two sources yields data.
func Load(path string, reg *ecs.Registry, log *zap.Logger) (*Scene, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := pathsFor(path)

	raw, err := os.ReadFile(p.manifest)
	if err != nil {
		return nil, fmt.Errorf("read scene manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse scene manifest: %w", err)
	}
	if m.SchemaVersion > persist.SchemaVersion {
		return nil, persist.VersionError{Tag: persist.TagScene, Version: m.SchemaVersion}
	}

	sc := New(m.Name, reg, log)

	entitiesLoaded := sc.loadEntities(p.entities)
	chunksLoaded := sc.loadChunks(p, m.Chunks)

	if !entitiesLoaded && !chunksLoaded {
		return nil, fmt.Errorf("scene %q: neither entities nor chunks could be loaded", m.Name)
	}

	if m.MainCamera != "" {
		if id := reg.FindByUUID(m.MainCamera); id != ecs.InvalidEntity {
			sc.SetMainCamera(id)
		} else {
			log.Warn("main camera not found in loaded entities",
				zap.String("scene", m.Name), zap.String("uuid", m.MainCamera))
		}
	}
	return sc, nil
}

func (s *Scene) loadEntities(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("entities file unreadable", zap.String("path", path), zap.Error(err))
		}
		return false
	}
	r := persist.NewBinaryReader(raw)
	if err := r.BeginObject(persist.TagScene); err != nil {
		s.log.Warn("bad entities buffer", zap.String("path", path), zap.Error(err))
		return false
	}
	if _, err := r.ReadString("scene"); err != nil {
		s.log.Warn("bad entities buffer", zap.String("path", path), zap.Error(err))
		return false
	}
	created, err := s.reg.DeserializeAll(r)
	if err != nil {
		s.log.Warn("entity bundle partially loaded",
			zap.String("path", path), zap.Int("loaded", len(created)), zap.Error(err))
	}
	for _, id := range created {
		s.Adopt(id)
	}
	return err == nil || len(created) > 0
}

func (s *Scene) loadChunks(p scenePaths, coords []ChunkCoord) bool {
	any := false
	for _, coord := range coords {
		file := filepath.Join(p.chunkDir, coord.FileName())
		raw, err := os.ReadFile(file)
		if err != nil {
			if !os.IsNotExist(err) {
				s.log.Warn("chunk unreadable", zap.String("path", file), zap.Error(err))
			}
			continue
		}
		got, uuids, err := deserializeChunk(persist.NewBinaryReader(raw))
		if err != nil {
			s.log.Warn("bad chunk buffer, skipping",
				zap.String("path", file), zap.Error(err))
			continue
		}
		if got != coord {
			s.log.Warn("chunk coordinate mismatch, using file content",
				zap.String("path", file),
				zap.String("manifest", coord.String()),
				zap.String("buffer", got.String()))
		}

		sum := blake2b.Sum256(raw)
		s.mu.Lock()
		ch, ok := s.chunks[got]
		if !ok {
			ch = newChunk(got)
			s.chunks[got] = ch
		}
		ch.digest = sum
		ch.hasFlush = true
		s.mu.Unlock()

		for _, u := range uuids {
			id := s.reg.FindByUUID(u)
			if id == ecs.InvalidEntity {
				s.log.Warn("chunk references unknown entity",
					zap.String("chunk", got.String()), zap.String("uuid", u))
				continue
			}
			s.mu.Lock()
			ch.members[id] = struct{}{}
			s.mu.Unlock()
		}
		any = true
	}
	return any
}
