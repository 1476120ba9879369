package system

import (
	"time"

	"github.com/prismengine/prism/internal/component"
	"github.com/prismengine/prism/internal/core/ecs"
	coresys "github.com/prismengine/prism/internal/core/system"
)

// TransformSystem propagates dirtiness down the entity hierarchy and
// consumes the dirty flags once per frame. Propagation uses an explicit
// worklist instead of recursing into children, so no registry lock is held
// across cross-entity calls and depth is bounded by the queue, not the
// call stack.
type TransformSystem struct {
	coresys.Base
	reg  *ecs.Registry
	work []ecs.EntityID
}

func NewTransformSystem(reg *ecs.Registry) *TransformSystem {
	return &TransformSystem{reg: reg}
}

func (s *TransformSystem) Name() string { return "transform" }

// Runs after movement has written this frame's positions.
func (s *TransformSystem) Dependencies() []string { return []string{"movement"} }

func (s *TransformSystem) RequiredComponents() ecs.Mask {
	return ecs.MaskFor1[component.Transform](s.reg.Types())
}

func (s *TransformSystem) Update(_ time.Duration) {
	s.work = s.work[:0]
	ecs.Each1(s.reg, func(id ecs.EntityID, t *component.Transform) {
		if t.Dirty {
			s.work = append(s.work, id)
		}
	})

	// Mark descendants dirty breadth-first.
	for i := 0; i < len(s.work); i++ {
		for _, child := range s.reg.Children(s.work[i]) {
			ct := ecs.Get[component.Transform](s.reg, child)
			if ct != nil && !ct.Dirty {
				ct.Dirty = true
				s.work = append(s.work, child)
			}
		}
	}

	// World matrices would be rebuilt here; the renderer consuming them is
	// an external collaborator. Consume the flags either way.
	for _, id := range s.work {
		if t := ecs.Get[component.Transform](s.reg, id); t != nil {
			t.Dirty = false
		}
	}
}
