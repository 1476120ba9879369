// Package system defines per-frame logic units and the dependency-aware
// scheduler that orders them.
package system

import (
	"time"

	"github.com/prismengine/prism/internal/core/ecs"
)

// System is a unit of per-frame logic. Systems are stateless with respect
// to entities; all entity data lives in the registry, reached through
// views over RequiredComponents.
type System interface {
	// Name identifies the system for dependency matching and the factory.
	Name() string

	// Init runs once before the first update. A failed Init keeps the
	// system registered but inactive.
	Init() error

	Update(dt time.Duration)
	Render()

	// RequiredComponents is the mask of component types this system reads
	// or writes each frame.
	RequiredComponents() ecs.Mask

	// Dependencies names systems that must run earlier regardless of
	// priority.
	Dependencies() []string

	// Priority breaks ties between systems with no ordering constraint;
	// higher runs earlier.
	Priority() int

	// OnEvent is a best-effort notification hook. Failures are swallowed;
	// nothing is propagated.
	OnEvent(name string)
}

// Base provides no-op defaults so systems only implement what they need.
type Base struct{}

func (Base) Init() error                  { return nil }
func (Base) Update(time.Duration)         {}
func (Base) Render()                      {}
func (Base) RequiredComponents() ecs.Mask { return 0 }
func (Base) Dependencies() []string       { return nil }
func (Base) Priority() int                { return 0 }
func (Base) OnEvent(string)               {}
