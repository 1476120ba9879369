// Package world ties the engine core together: one entity registry, the
// dependency-ordered system list, the active scene, and the background
// persistence worker. The world is the thread-safety boundary for the
// whole simulation.
package world

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/prismengine/prism/internal/core/ecs"
	"github.com/prismengine/prism/internal/core/event"
	"github.com/prismengine/prism/internal/core/system"
	"github.com/prismengine/prism/internal/scene"
)

// State is the world lifecycle phase.
type State int32

const (
	Uninitialized State = iota
	Initialized
	Running
	Paused
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrTerminated is returned by mutating calls on a world that has been
// shut down.
var ErrTerminated = errors.New("world: terminated")

// World owns exactly one registry, the scheduler-ordered systems, the
// active scene, and the save worker.
//
// Two locks guard it: mu (reader-writer) covers systems, the scene
// pointer, and configuration; execMu serializes Update and Render so a
// frame can never interleave with another frame or with system
// registration. Lock order is always world locks before registry locks.
type World struct {
	log *zap.Logger

	mu     sync.RWMutex
	execMu sync.Mutex
	state  atomic.Int32

	types   *ecs.TypeRegistry
	reg     *ecs.Registry
	sched   *system.Scheduler
	factory *system.Factory
	bus     *event.Bus

	// systems whose Init failed; they stay registered but never run
	inactive map[string]bool

	activeScene *scene.Scene
	scenePath   string

	saver *saver
}

func New(log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	types := ecs.NewTypeRegistry()
	w := &World{
		log:      log,
		types:    types,
		reg:      ecs.NewRegistry(types, log),
		sched:    system.NewScheduler(log),
		factory:  system.NewFactory(log),
		bus:      event.NewBus(),
		inactive: make(map[string]bool),
	}
	w.bridgeEvents()
	return w
}

// bridgeEvents subscribes the world to its own bus so engine events reach
// every system's OnEvent hook as named notifications. The bus is
// double-buffered, so systems hear about an event on the tick after it
// was emitted.
func (w *World) bridgeEvents() {
	event.Subscribe(w.bus, func(event.EntityDestroyed) { w.Broadcast("entity.destroyed") })
	event.Subscribe(w.bus, func(event.SceneLoaded) { w.Broadcast("scene.loaded") })
	event.Subscribe(w.bus, func(event.SceneSaved) { w.Broadcast("scene.saved") })
	event.Subscribe(w.bus, func(event.ChunkFlushed) { w.Broadcast("chunks.flushed") })
}

func (w *World) Registry() *ecs.Registry  { return w.reg }
func (w *World) Types() *ecs.TypeRegistry { return w.types }
func (w *World) Factory() *system.Factory { return w.factory }
func (w *World) Bus() *event.Bus          { return w.bus }
func (w *World) State() State             { return State(w.state.Load()) }

// Init runs every registered system's Init once. Idempotent: subsequent
// calls are a no-op returning success.
func (w *World) Init() error {
	if !w.state.CompareAndSwap(int32(Uninitialized), int32(Initialized)) {
		return nil
	}
	w.execMu.Lock()
	defer w.execMu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sys := range w.sched.Ordered() {
		w.initSystemLocked(sys)
	}
	w.log.Info("world initialized", zap.Int("systems", w.sched.Len()))
	return nil
}

func (w *World) initSystemLocked(sys system.System) {
	if err := sys.Init(); err != nil {
		w.log.Error("system init failed, deactivating",
			zap.String("system", sys.Name()), zap.Error(err))
		w.inactive[sys.Name()] = true
	}
}

// RegisterSystem adds a system and rebuilds the schedule. A registration
// that would introduce a dependency cycle is rejected and the previous
// order stays in effect. Registration takes the execution mutex before the
// world lock, same order as Update, so it can never observe a frame in
// flight.
func (w *World) RegisterSystem(sys system.System) error {
	if w.State() >= ShuttingDown {
		return ErrTerminated
	}
	w.execMu.Lock()
	defer w.execMu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.sched.Register(sys); err != nil {
		return err
	}
	if w.State() >= Initialized {
		w.initSystemLocked(sys)
	}
	return nil
}

// RegisterSystemByName instantiates a system through the factory and
// registers it.
func (w *World) RegisterSystemByName(name string) error {
	sys, ok := w.factory.Create(name)
	if !ok {
		return fmt.Errorf("world: no system registered under %q", name)
	}
	return w.RegisterSystem(sys)
}

// RemoveSystem drops a system from the schedule by name. Like
// registration it waits for any frame in flight.
func (w *World) RemoveSystem(name string) bool {
	w.execMu.Lock()
	defer w.execMu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inactive, name)
	return w.sched.Remove(name)
}

// Pause suspends Update and Render. No-op unless running.
func (w *World) Pause() {
	w.state.CompareAndSwap(int32(Running), int32(Paused))
}

// Resume lifts a pause.
func (w *World) Resume() {
	w.state.CompareAndSwap(int32(Paused), int32(Running))
}

func (w *World) IsPaused() bool { return w.State() == Paused }

// Update pumps the event bus and runs every active system in scheduler
// order. No-op while paused or before Init. The execution mutex guarantees
// update and render never interleave with each other or with registration.
func (w *World) Update(dt time.Duration) {
	w.state.CompareAndSwap(int32(Initialized), int32(Running))
	if w.State() != Running {
		return
	}
	w.execMu.Lock()
	defer w.execMu.Unlock()

	w.bus.SwapBuffers()
	w.bus.DispatchAll()

	w.mu.RLock()
	ordered := w.sched.Ordered()
	inactive := w.inactive
	w.mu.RUnlock()

	for _, sys := range ordered {
		if inactive[sys.Name()] {
			continue
		}
		sys.Update(dt)
	}
}

// Render runs every active system's Render in scheduler order. No-op
// while paused.
func (w *World) Render() {
	if w.State() != Running {
		return
	}
	w.execMu.Lock()
	defer w.execMu.Unlock()

	w.mu.RLock()
	ordered := w.sched.Ordered()
	inactive := w.inactive
	w.mu.RUnlock()

	for _, sys := range ordered {
		if inactive[sys.Name()] {
			continue
		}
		sys.Render()
	}
}

// Broadcast delivers a named notification to every system's OnEvent hook.
// Best-effort: hooks have no way to fail and nothing is propagated.
func (w *World) Broadcast(name string) {
	w.mu.RLock()
	ordered := w.sched.Ordered()
	w.mu.RUnlock()
	for _, sys := range ordered {
		sys.OnEvent(name)
	}
}

// DestroyEntity tears an entity down through the registry and keeps the
// active scene's indexes consistent, then announces the destruction on the
// event bus for next tick.
func (w *World) DestroyEntity(id ecs.EntityID) bool {
	name := w.reg.Name(id)
	if !w.reg.DestroyEntity(id) {
		return false
	}
	w.mu.RLock()
	sc := w.activeScene
	w.mu.RUnlock()
	if sc != nil {
		sc.Forget(id)
	}
	event.Emit(w.bus, event.EntityDestroyed{Entity: id, Name: name})
	return true
}

// SetScene makes sc the active scene; path is where saves go by default.
func (w *World) SetScene(sc *scene.Scene, path string) {
	w.mu.Lock()
	w.activeScene = sc
	w.scenePath = path
	w.mu.Unlock()
}

// Scene returns the active scene, nil when none is loaded.
func (w *World) Scene() *scene.Scene {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.activeScene
}

// LoadScene reads a scene file tree into this world's registry and makes
// it the active scene. Systems hear "scene.loaded" on the next tick via
// the event bridge.
func (w *World) LoadScene(path string) (*scene.Scene, error) {
	sc, err := scene.Load(path, w.reg, w.log)
	if err != nil {
		return nil, err
	}
	w.SetScene(sc, path)
	event.Emit(w.bus, event.SceneLoaded{Name: sc.Name(), Entities: w.reg.Count()})
	return sc, nil
}

// Shutdown drains the background saver, closes the registry, and moves the
// world to Terminated. Safe to call more than once.
func (w *World) Shutdown() {
	prev := State(w.state.Swap(int32(ShuttingDown)))
	if prev == ShuttingDown || prev == Terminated {
		w.state.Store(int32(Terminated))
		return
	}
	w.Broadcast("world.shutdown")
	w.EnableBackgroundSaving(false)
	w.reg.Close()
	w.state.Store(int32(Terminated))
	w.log.Info("world terminated")
}
