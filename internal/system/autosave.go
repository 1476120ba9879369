package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/prismengine/prism/internal/core/system"
	"github.com/prismengine/prism/internal/world"
)

// AutosaveSystem periodically saves the active scene and flushes dirty
// chunks between full saves. Whether the writes happen on this thread or
// the background worker follows the world's background-saving mode.
type AutosaveSystem struct {
	coresys.Base
	world    *world.World
	log      *zap.Logger
	interval time.Duration
	elapsed  time.Duration
}

func NewAutosaveSystem(w *world.World, interval time.Duration, log *zap.Logger) *AutosaveSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &AutosaveSystem{world: w, log: log, interval: interval}
}

func (s *AutosaveSystem) Name() string  { return "autosave" }
func (s *AutosaveSystem) Priority() int { return -10 }

func (s *AutosaveSystem) Update(dt time.Duration) {
	if s.interval <= 0 || s.world.Scene() == nil {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	if err := s.world.SaveScene(""); err != nil {
		s.log.Error("autosave failed", zap.Error(err))
	}
}

// OnEvent flushes chunks early when told the world is about to go down.
func (s *AutosaveSystem) OnEvent(name string) {
	if name != "world.shutdown" {
		return
	}
	if s.world.Scene() == nil {
		return
	}
	if err := s.world.FlushChunks(); err != nil {
		s.log.Warn("shutdown chunk flush failed", zap.Error(err))
	}
}
