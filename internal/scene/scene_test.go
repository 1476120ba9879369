package scene

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/prismengine/prism/internal/component"
	"github.com/prismengine/prism/internal/core/ecs"
	"github.com/prismengine/prism/internal/persist"
)

func newTestScene(t *testing.T, name string) *Scene {
	t.Helper()
	types := ecs.NewTypeRegistry()
	if err := component.RegisterBuiltins(types); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	reg := ecs.NewRegistry(types, zap.NewNop())
	return New(name, reg, zap.NewNop())
}

func TestSceneNameIndex(t *testing.T) {
	s := newTestScene(t, "test")
	e := s.CreateEntity("player")
	if s.FindByName("player") != e {
		t.Fatalf("name lookup failed")
	}
	if s.FindByName("ghost") != ecs.InvalidEntity {
		t.Fatalf("unknown names should resolve to zero")
	}

	s.Forget(e)
	if s.FindByName("player") != ecs.InvalidEntity {
		t.Fatalf("Forget left the name index entry")
	}
	if len(s.Roots()) != 0 {
		t.Fatalf("Forget left the root list entry")
	}
}

func TestSceneTagIndex(t *testing.T) {
	s := newTestScene(t, "test")
	a := s.CreateEntity("a")
	b := s.CreateEntity("b")
	s.Tag(a, "enemy")
	s.Tag(b, "enemy")
	s.Tag(b, "boss")

	if got := s.FindByTag("enemy"); len(got) != 2 {
		t.Fatalf("enemy tag matches = %v", got)
	}
	if got := s.FindByTag("boss"); len(got) != 1 || got[0] != b {
		t.Fatalf("boss tag matches = %v", got)
	}

	s.Untag(b, "enemy")
	if got := s.FindByTag("enemy"); len(got) != 1 || got[0] != a {
		t.Fatalf("after untag = %v", got)
	}
	if s.Registry().HasTag(b, "enemy") {
		t.Fatalf("Untag left the registry metadata tag")
	}
}

func TestSceneChunkAssignment(t *testing.T) {
	s := newTestScene(t, "test")
	e := s.CreateEntity("mob")

	c1 := ChunkCoord{X: 0, Y: 0, Z: 0}
	c2 := ChunkCoord{X: 1, Y: 0, Z: 0}
	s.AssignToChunk(e, c1)
	if !s.ChunkAt(c1).contains(e) {
		t.Fatalf("entity not in assigned chunk")
	}

	// Moving between chunks removes from the old one and dirties both.
	s.AssignToChunk(e, c2)
	if s.ChunkAt(c1).contains(e) {
		t.Fatalf("entity left behind in old chunk")
	}
	if !s.ChunkAt(c2).contains(e) {
		t.Fatalf("entity missing from new chunk")
	}
	dirty := s.DirtyChunks()
	if len(dirty) != 2 {
		t.Fatalf("dirty chunks = %v, want both", dirty)
	}

	s.Forget(e)
	if s.ChunkAt(c2).contains(e) {
		t.Fatalf("Forget left chunk membership")
	}
}

func TestSceneMainCamera(t *testing.T) {
	s := newTestScene(t, "test")
	cam := s.CreateEntity("camera")
	s.SetMainCamera(cam)
	if s.MainCamera() != cam {
		t.Fatalf("main camera not recorded")
	}
	s.Forget(cam)
	if s.MainCamera() != ecs.InvalidEntity {
		t.Fatalf("forgotten camera still referenced")
	}
}

func TestChunkCoordFileName(t *testing.T) {
	c := ChunkCoord{X: -1, Y: 0, Z: 12}
	if got := c.FileName(); got != "chunk_-1_0_12.chunk" {
		t.Fatalf("file name = %q", got)
	}
}

func TestSceneSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.scene")

	src := newTestScene(t, "main")
	reg := src.Registry()

	cam := src.CreateEntity("Main Camera")
	camComp := component.NewCamera()
	camComp.Primary = true
	ecs.Add(reg, cam, camComp)
	ecs.Add(reg, cam, component.NewTransform())
	src.SetMainCamera(cam)

	mob := src.CreateEntity("mob")
	tf := component.NewTransform()
	tf.Position = component.Vec3{X: 5, Y: 0, Z: -5}
	ecs.Add(reg, mob, tf)
	src.Tag(mob, "enemy")
	src.AssignToChunk(mob, ChunkCoord{X: 1, Y: 0, Z: -1})

	if err := src.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, f := range []string{"main.scene", "main.entities"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Fatalf("expected file %s: %v", f, err)
		}
	}
	chunkFile := filepath.Join(dir, "main_data", "chunks", "chunk_1_0_-1.chunk")
	if _, err := os.Stat(chunkFile); err != nil {
		t.Fatalf("expected chunk file: %v", err)
	}

	// Load into a fresh registry with the same builtin registration order.
	dstTypes := ecs.NewTypeRegistry()
	if err := component.RegisterBuiltins(dstTypes); err != nil {
		t.Fatal(err)
	}
	dstReg := ecs.NewRegistry(dstTypes, zap.NewNop())
	loaded, err := Load(path, dstReg, zap.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Name() != "main" {
		t.Errorf("scene name = %q", loaded.Name())
	}
	if dstReg.Count() != 2 {
		t.Fatalf("loaded %d entities, want 2", dstReg.Count())
	}

	newCam := loaded.FindByName("Main Camera")
	if newCam == ecs.InvalidEntity {
		t.Fatalf("camera entity not indexed after load")
	}
	if loaded.MainCamera() != newCam {
		t.Errorf("main camera reference not restored")
	}
	gotCam := ecs.Get[component.Camera](dstReg, newCam)
	if gotCam == nil || !gotCam.Primary {
		t.Errorf("camera component = %+v", gotCam)
	}

	newMob := loaded.FindByName("mob")
	gotTf := ecs.Get[component.Transform](dstReg, newMob)
	if gotTf == nil || gotTf.Position != (component.Vec3{X: 5, Y: 0, Z: -5}) {
		t.Errorf("mob transform = %+v", gotTf)
	}
	if tags := loaded.FindByTag("enemy"); len(tags) != 1 || tags[0] != newMob {
		t.Errorf("tag index after load = %v", tags)
	}

	ch := loaded.ChunkAt(ChunkCoord{X: 1, Y: 0, Z: -1})
	if !ch.contains(newMob) {
		t.Errorf("chunk membership not restored")
	}
}

func TestSceneLoadMissingManifest(t *testing.T) {
	reg := ecs.NewRegistry(ecs.NewTypeRegistry(), zap.NewNop())
	if _, err := Load(filepath.Join(t.TempDir(), "no.scene"), reg, zap.NewNop()); err == nil {
		t.Fatalf("missing manifest must be fatal")
	}
}

func TestSceneLoadMissingEntitiesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.scene")

	src := newTestScene(t, "partial")
	e := src.CreateEntity("thing")
	src.AssignToChunk(e, ChunkCoord{})
	if err := src.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "partial.entities")); err != nil {
		t.Fatal(err)
	}

	// Chunks alone still constitute a loadable scene.
	dstTypes := ecs.NewTypeRegistry()
	if err := component.RegisterBuiltins(dstTypes); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path, ecs.NewRegistry(dstTypes, zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("load with missing entities file: %v", err)
	}
	if loaded.ChunkCount() != 1 {
		t.Fatalf("chunk count = %d", loaded.ChunkCount())
	}
}

func TestSceneDigestSkipsUnchangedChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.scene")

	s := newTestScene(t, "digest")
	e := s.CreateEntity("thing")
	coord := ChunkCoord{X: 2, Y: 0, Z: 2}
	s.AssignToChunk(e, coord)
	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Delete the chunk file, then save again without changing content. The
	// digest matches the last flush, so the file must not reappear.
	chunkFile := filepath.Join(dir, "digest_data", "chunks", coord.FileName())
	if err := os.Remove(chunkFile); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if _, err := os.Stat(chunkFile); !os.IsNotExist(err) {
		t.Fatalf("unchanged chunk was rewritten")
	}

	// Changing membership invalidates the digest and the chunk is written.
	other := s.CreateEntity("other")
	s.AssignToChunk(other, coord)
	if err := s.Save(path); err != nil {
		t.Fatalf("third save: %v", err)
	}
	if _, err := os.Stat(chunkFile); err != nil {
		t.Fatalf("changed chunk was not rewritten: %v", err)
	}
}

func TestSceneFlushDirtyChunksOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flush.scene")

	s := newTestScene(t, "flush")
	a := s.CreateEntity("a")
	b := s.CreateEntity("b")
	ca := ChunkCoord{X: 0, Y: 0, Z: 0}
	cb := ChunkCoord{X: 1, Y: 1, Z: 1}
	s.AssignToChunk(a, ca)
	s.AssignToChunk(b, cb)
	if err := s.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(s.DirtyChunks()) != 0 {
		t.Fatalf("save did not clear the dirty set")
	}

	s.AssignToChunk(b, ca)
	dirty := s.DirtyChunks()
	if len(dirty) != 2 {
		t.Fatalf("dirty = %v, want the two touched chunks", dirty)
	}
	flushed, err := s.FlushDirtyChunks(path)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushed != 2 {
		t.Fatalf("flushed %d chunks, want 2", flushed)
	}
	if len(s.DirtyChunks()) != 0 {
		t.Fatalf("flush did not clear the dirty set")
	}
}

func TestDeserializeChunkRejectsOversizedCount(t *testing.T) {
	// The member count is untrusted file data; a header claiming billions
	// of UUIDs backed by zero bytes must fail cheaply on the first read.
	w := persist.NewBinaryWriter()
	if err := w.BeginObject(persist.TagChunk); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteInt32("x", 1); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteInt32("y", 2); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteInt32("z", 3); err != nil {
		t.Fatal(err)
	}
	if err := w.BeginArray("entities", math.MaxInt32); err != nil {
		t.Fatal(err)
	}

	if _, _, err := deserializeChunk(persist.NewBinaryReader(w.Bytes())); err == nil {
		t.Fatalf("truncated chunk frame should fail")
	}
}
