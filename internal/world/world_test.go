package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prismengine/prism/internal/component"
	"github.com/prismengine/prism/internal/core/ecs"
	"github.com/prismengine/prism/internal/core/event"
	"github.com/prismengine/prism/internal/core/system"
	"github.com/prismengine/prism/internal/scene"
)

// recorder appends its name to a shared trace on every update, so tests
// can assert execution order across systems.
type recorder struct {
	system.Base
	name     string
	deps     []string
	priority int
	trace    *[]string
	events   []string
	initErr  error
}

func (r *recorder) Name() string           { return r.name }
func (r *recorder) Dependencies() []string { return r.deps }
func (r *recorder) Priority() int          { return r.priority }
func (r *recorder) Init() error            { return r.initErr }

func (r *recorder) Update(time.Duration) {
	*r.trace = append(*r.trace, r.name)
}

func (r *recorder) OnEvent(name string) {
	r.events = append(r.events, name)
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w := New(zap.NewNop())
	if err := component.RegisterBuiltins(w.Types()); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	return w
}

func TestWorldStateMachine(t *testing.T) {
	w := newTestWorld(t)
	if w.State() != Uninitialized {
		t.Fatalf("initial state = %v", w.State())
	}
	if err := w.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if w.State() != Initialized {
		t.Fatalf("state after init = %v", w.State())
	}
	if err := w.Init(); err != nil {
		t.Fatalf("second init must be a no-op: %v", err)
	}

	w.Update(time.Millisecond)
	if w.State() != Running {
		t.Fatalf("first update should transition to running, got %v", w.State())
	}

	w.Pause()
	if !w.IsPaused() {
		t.Fatalf("pause did not take")
	}
	w.Pause() // idempotent
	w.Resume()
	if w.State() != Running {
		t.Fatalf("resume did not take, state = %v", w.State())
	}

	w.Shutdown()
	if w.State() != Terminated {
		t.Fatalf("state after shutdown = %v", w.State())
	}
	w.Shutdown() // safe to repeat
	if err := w.RegisterSystem(&recorder{name: "late"}); !errors.Is(err, ErrTerminated) {
		t.Fatalf("registration after shutdown: err = %v", err)
	}
}

func TestWorldUpdateOrder(t *testing.T) {
	w := newTestWorld(t)
	var trace []string
	for _, r := range []*recorder{
		{name: "render", priority: 5, trace: &trace},
		{name: "physics", priority: 10, trace: &trace},
		{name: "cleanup", deps: []string{"physics", "render"}, trace: &trace},
	} {
		if err := w.RegisterSystem(r); err != nil {
			t.Fatalf("register %s: %v", r.name, err)
		}
	}
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}
	w.Update(time.Millisecond)

	want := []string{"physics", "render", "cleanup"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v", trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestWorldPauseSkipsUpdate(t *testing.T) {
	w := newTestWorld(t)
	var trace []string
	if err := w.RegisterSystem(&recorder{name: "sys", trace: &trace}); err != nil {
		t.Fatal(err)
	}
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}
	w.Update(time.Millisecond)
	w.Pause()
	w.Update(time.Millisecond)
	if len(trace) != 1 {
		t.Fatalf("paused world still updated: %v", trace)
	}
}

func TestWorldCycleRejectedKeepsOrder(t *testing.T) {
	w := newTestWorld(t)
	var trace []string
	if err := w.RegisterSystem(&recorder{name: "a", deps: []string{"b"}, trace: &trace}); err != nil {
		t.Fatal(err)
	}
	err := w.RegisterSystem(&recorder{name: "b", deps: []string{"a"}, trace: &trace})
	if !errors.Is(err, system.ErrCyclicDependency) {
		t.Fatalf("err = %v, want ErrCyclicDependency", err)
	}
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}
	w.Update(time.Millisecond)
	if len(trace) != 1 || trace[0] != "a" {
		t.Fatalf("trace = %v, want just the surviving system", trace)
	}
}

func TestWorldFailedInitDeactivates(t *testing.T) {
	w := newTestWorld(t)
	var trace []string
	bad := &recorder{name: "bad", trace: &trace, initErr: errors.New("boom")}
	good := &recorder{name: "good", trace: &trace}
	if err := w.RegisterSystem(bad); err != nil {
		t.Fatal(err)
	}
	if err := w.RegisterSystem(good); err != nil {
		t.Fatal(err)
	}
	if err := w.Init(); err != nil {
		t.Fatalf("one bad system must not fail world init: %v", err)
	}
	w.Update(time.Millisecond)
	if len(trace) != 1 || trace[0] != "good" {
		t.Fatalf("trace = %v, failed-init system must not run", trace)
	}
}

func TestWorldRegisterByName(t *testing.T) {
	w := newTestWorld(t)
	var trace []string
	w.Factory().Register("movement", func() system.System {
		return &recorder{name: "movement", trace: &trace}
	})
	if err := w.RegisterSystemByName("movement"); err != nil {
		t.Fatalf("register by name: %v", err)
	}
	if err := w.RegisterSystemByName("nope"); err == nil {
		t.Fatalf("unknown factory name should fail")
	}
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}
	w.Update(time.Millisecond)
	if len(trace) != 1 {
		t.Fatalf("factory-built system did not run: %v", trace)
	}
}

func TestWorldBroadcast(t *testing.T) {
	w := newTestWorld(t)
	r := &recorder{name: "listener"}
	if err := w.RegisterSystem(r); err != nil {
		t.Fatal(err)
	}
	w.Broadcast("custom.event")
	if len(r.events) != 1 || r.events[0] != "custom.event" {
		t.Fatalf("events = %v", r.events)
	}
}

func TestWorldDestroyEntityForgetsAndEmits(t *testing.T) {
	w := newTestWorld(t)
	sc := scene.New("test", w.Registry(), zap.NewNop())
	w.SetScene(sc, "")

	e := sc.CreateEntity("mob")
	var destroyed []event.EntityDestroyed
	event.Subscribe(w.Bus(), func(ev event.EntityDestroyed) {
		destroyed = append(destroyed, ev)
	})

	if !w.DestroyEntity(e) {
		t.Fatalf("destroy failed")
	}
	if w.DestroyEntity(e) {
		t.Fatalf("second destroy should fail")
	}
	if sc.FindByName("mob") != ecs.InvalidEntity {
		t.Fatalf("scene still indexes the destroyed entity")
	}

	// The event surfaces on the next tick's dispatch.
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}
	w.Update(time.Millisecond)
	if len(destroyed) != 1 || destroyed[0].Entity != e || destroyed[0].Name != "mob" {
		t.Fatalf("destroyed events = %+v", destroyed)
	}
}

func TestWorldSaveSceneSync(t *testing.T) {
	w := newTestWorld(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sync.scene")

	sc := scene.New("sync", w.Registry(), zap.NewNop())
	sc.CreateEntity("thing")
	w.SetScene(sc, path)

	if err := w.SaveScene(""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("scene file missing: %v", err)
	}
}

func TestWorldSaveSceneNoScene(t *testing.T) {
	w := newTestWorld(t)
	if err := w.SaveScene("anywhere.scene"); err == nil {
		t.Fatalf("save without an active scene should fail")
	}
}

func TestWorldBackgroundSaveDrains(t *testing.T) {
	w := newTestWorld(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bg.scene")

	sc := scene.New("bg", w.Registry(), zap.NewNop())
	sc.CreateEntity("thing")
	w.SetScene(sc, path)

	w.EnableBackgroundSaving(true)
	if !w.BackgroundSavingEnabled() {
		t.Fatalf("worker should be running")
	}
	w.EnableBackgroundSaving(true) // idempotent

	if err := w.SaveScene(""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// Disabling must block until the queued save has completed.
	w.EnableBackgroundSaving(false)
	if w.BackgroundSavingEnabled() {
		t.Fatalf("worker still reported running")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("queued save was discarded: %v", err)
	}
}

func TestWorldFlushChunksBackground(t *testing.T) {
	w := newTestWorld(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.scene")

	sc := scene.New("chunks", w.Registry(), zap.NewNop())
	e := sc.CreateEntity("thing")
	coord := scene.ChunkCoord{X: 3, Y: 0, Z: 3}
	sc.AssignToChunk(e, coord)
	w.SetScene(sc, path)

	w.EnableBackgroundSaving(true)
	if err := w.FlushChunks(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	w.EnableBackgroundSaving(false)

	chunkFile := filepath.Join(dir, "chunks_data", "chunks", coord.FileName())
	if _, err := os.Stat(chunkFile); err != nil {
		t.Fatalf("chunk not flushed: %v", err)
	}
}

func TestWorldLoadScene(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "load.scene")

	src := newTestWorld(t)
	sc := scene.New("load", src.Registry(), zap.NewNop())
	e := sc.CreateEntity("hero")
	ecs.Add(src.Registry(), e, component.NewTransform())
	src.SetScene(sc, path)
	if err := src.SaveScene(""); err != nil {
		t.Fatalf("save: %v", err)
	}

	dst := newTestWorld(t)
	loaded, err := dst.LoadScene(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dst.Scene() != loaded {
		t.Fatalf("loaded scene not active")
	}
	hero := loaded.FindByName("hero")
	if hero == ecs.InvalidEntity {
		t.Fatalf("entity not restored")
	}
	if ecs.Get[component.Transform](dst.Registry(), hero) == nil {
		t.Fatalf("component not restored")
	}
}

func TestWorldShutdownDrainsSaver(t *testing.T) {
	w := newTestWorld(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "shutdown.scene")

	sc := scene.New("shutdown", w.Registry(), zap.NewNop())
	sc.CreateEntity("thing")
	w.SetScene(sc, path)

	r := &recorder{name: "listener"}
	if err := w.RegisterSystem(r); err != nil {
		t.Fatal(err)
	}

	w.EnableBackgroundSaving(true)
	if err := w.SaveScene(""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	w.Shutdown()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("shutdown discarded the queued save: %v", err)
	}
	found := false
	for _, ev := range r.events {
		if ev == "world.shutdown" {
			found = true
		}
	}
	if !found {
		t.Fatalf("shutdown notification not broadcast: %v", r.events)
	}
}

func TestWorldRegistrationExcludesFrames(t *testing.T) {
	w := newTestWorld(t)
	var trace []string
	if err := w.RegisterSystem(&recorder{name: "steady", trace: &trace}); err != nil {
		t.Fatal(err)
	}
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}

	// Spin frames on one goroutine while systems whose Init fails are
	// registered on another. Registration mutates the inactive set, so it
	// must wait for the frame in flight rather than race its reads.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				w.Update(time.Microsecond)
			}
		}
	}()

	for i := 0; i < 64; i++ {
		sys := &recorder{name: fmt.Sprintf("flaky%02d", i), initErr: errors.New("init refused")}
		if err := w.RegisterSystem(sys); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	close(stop)
	<-done

	w.mu.RLock()
	inactive := len(w.inactive)
	w.mu.RUnlock()
	if inactive != 64 {
		t.Fatalf("inactive systems = %d, want 64", inactive)
	}
	if len(trace) == 0 {
		t.Fatalf("steady system never ran")
	}
}

func TestWorldBridgesEventsToSystems(t *testing.T) {
	w := newTestWorld(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.scene")
	sc := scene.New("bridge", w.Registry(), zap.NewNop())
	w.SetScene(sc, path)

	var trace []string
	r := &recorder{name: "listener", trace: &trace}
	if err := w.RegisterSystem(r); err != nil {
		t.Fatal(err)
	}
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}

	e := sc.CreateEntity("mob")
	if !w.DestroyEntity(e) {
		t.Fatalf("destroy failed")
	}
	if err := w.SaveScene(""); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Bus events emitted during one tick reach OnEvent on the next.
	w.Update(time.Millisecond)

	want := map[string]bool{"entity.destroyed": false, "scene.saved": false}
	for _, name := range r.events {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("system never heard %q, events = %v", name, r.events)
		}
	}
}
