package world

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/prismengine/prism/internal/core/event"
	"github.com/prismengine/prism/internal/core/queue"
)

type taskKind int

const (
	taskSaveScene taskKind = iota
	taskFlushChunks
)

// saveTask is one unit of background persistence work. The worker
// serializes whatever the active scene looks like when the task is
// dequeued, not when it was enqueued; callers needing a consistent
// snapshot must save synchronously.
type saveTask struct {
	kind taskKind
	path string
}

// saver owns the single background persistence worker: one goroutine
// blocked on the task queue. On shutdown the queue stops accepting work
// and the worker drains everything already queued before exiting, so an
// enqueued save is never silently discarded.
type saver struct {
	log   *zap.Logger
	world *World
	tasks *queue.Queue[saveTask]
	wg    sync.WaitGroup
}

func newSaver(w *World) *saver {
	s := &saver{
		log:   w.log,
		world: w,
		tasks: queue.New[saveTask](),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *saver) run() {
	defer s.wg.Done()
	for {
		task, ok := s.tasks.WaitPop()
		if !ok {
			return
		}
		s.execute(task)
	}
}

func (s *saver) execute(task saveTask) {
	sc := s.world.Scene()
	if sc == nil {
		s.log.Warn("save task dropped: no active scene",
			zap.String("path", task.path))
		return
	}
	var err error
	switch task.kind {
	case taskSaveScene:
		err = sc.Save(task.path)
		event.Emit(s.world.bus, event.SceneSaved{Name: sc.Name(), Path: task.path, Err: err})
	case taskFlushChunks:
		var flushed int
		flushed, err = sc.FlushDirtyChunks(task.path)
		event.Emit(s.world.bus, event.ChunkFlushed{Scene: sc.Name(), Chunks: flushed})
	}
	if err != nil {
		s.log.Error("background save failed",
			zap.String("scene", sc.Name()),
			zap.String("path", task.path),
			zap.Error(err))
	}
}

// stop shuts the queue down and joins the worker after it has drained all
// remaining tasks.
func (s *saver) stop() {
	s.tasks.Shutdown()
	s.wg.Wait()
}

// EnableBackgroundSaving turns the background persistence worker on or
// off. Enabling is lazy and idempotent. Disabling blocks until every task
// queued so far has run to completion, then joins the worker thread.
func (w *World) EnableBackgroundSaving(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if on {
		if w.saver == nil {
			w.saver = newSaver(w)
			w.log.Info("background saving enabled")
		}
		return
	}
	if w.saver != nil {
		sv := w.saver
		w.saver = nil
		// Release the world lock while draining: the worker reads the
		// scene pointer through World.Scene, which takes mu itself.
		w.mu.Unlock()
		sv.stop()
		w.mu.Lock()
		w.log.Info("background saving disabled, queue drained")
	}
}

// BackgroundSavingEnabled reports whether the worker is running.
func (w *World) BackgroundSavingEnabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.saver != nil
}

// SaveScene persists the active scene to path. With background saving off
// the save runs synchronously and its error is returned. With it on, the
// task is enqueued and SaveScene returns immediately; the result is
// reported only through the log and the SceneSaved event.
func (w *World) SaveScene(path string) error {
	w.mu.RLock()
	sc := w.activeScene
	sv := w.saver
	if path == "" {
		path = w.scenePath
	}
	w.mu.RUnlock()

	if sc == nil {
		return fmt.Errorf("world: no active scene to save")
	}
	if path == "" {
		return fmt.Errorf("world: no scene path")
	}

	if sv != nil {
		if !sv.tasks.Push(saveTask{kind: taskSaveScene, path: path}) {
			return fmt.Errorf("world: save queue is shut down")
		}
		return nil
	}

	err := sc.Save(path)
	event.Emit(w.bus, event.SceneSaved{Name: sc.Name(), Path: path, Err: err})
	return err
}

// FlushChunks persists the active scene's dirty chunks, synchronously or
// via the worker, following the same split as SaveScene.
func (w *World) FlushChunks() error {
	w.mu.RLock()
	sc := w.activeScene
	sv := w.saver
	path := w.scenePath
	w.mu.RUnlock()

	if sc == nil || path == "" {
		return fmt.Errorf("world: no active scene to flush")
	}
	if sv != nil {
		if !sv.tasks.Push(saveTask{kind: taskFlushChunks, path: path}) {
			return fmt.Errorf("world: save queue is shut down")
		}
		return nil
	}
	flushed, err := sc.FlushDirtyChunks(path)
	event.Emit(w.bus, event.ChunkFlushed{Scene: sc.Name(), Chunks: flushed})
	return err
}
