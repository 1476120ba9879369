// Package system holds the engine's built-in systems. The scheduling
// framework they plug into lives in core/system.
package system

import (
	"math"
	"time"

	"github.com/prismengine/prism/internal/component"
	"github.com/prismengine/prism/internal/core/ecs"
	coresys "github.com/prismengine/prism/internal/core/system"
)

// MovementSystem integrates velocities into transforms each update.
type MovementSystem struct {
	coresys.Base
	reg *ecs.Registry
}

func NewMovementSystem(reg *ecs.Registry) *MovementSystem {
	return &MovementSystem{reg: reg}
}

func (s *MovementSystem) Name() string  { return "movement" }
func (s *MovementSystem) Priority() int { return 10 }

func (s *MovementSystem) RequiredComponents() ecs.Mask {
	return ecs.MaskFor2[component.Transform, component.Velocity](s.reg.Types())
}

func (s *MovementSystem) Update(dt time.Duration) {
	secs := float32(dt.Seconds())
	ecs.Each2(s.reg, func(id ecs.EntityID, t *component.Transform, v *component.Velocity) {
		if v.Linear == (component.Vec3{}) && v.Angular == (component.Vec3{}) {
			return
		}
		t.Position.X += v.Linear.X * secs
		t.Position.Y += v.Linear.Y * secs
		t.Position.Z += v.Linear.Z * secs
		if v.Angular != (component.Vec3{}) {
			t.Rotation = integrateAngular(t.Rotation, v.Angular, secs)
		}
		t.Dirty = true
	})
}

// integrateAngular advances q by the angular velocity w (radians per
// second) over dt using the first-order quaternion derivative
// q' = q + dt/2 * (0, w) * q, renormalized to stay a unit rotation.
func integrateAngular(q component.Quat, w component.Vec3, dt float32) component.Quat {
	half := 0.5 * dt
	out := component.Quat{
		X: q.X + half*(w.X*q.W+w.Y*q.Z-w.Z*q.Y),
		Y: q.Y + half*(w.Y*q.W+w.Z*q.X-w.X*q.Z),
		Z: q.Z + half*(w.Z*q.W+w.X*q.Y-w.Y*q.X),
		W: q.W + half*(-w.X*q.X-w.Y*q.Y-w.Z*q.Z),
	}
	n := float32(math.Sqrt(float64(out.X*out.X + out.Y*out.Y + out.Z*out.Z + out.W*out.W)))
	if n == 0 {
		return component.QuatIdentity()
	}
	out.X /= n
	out.Y /= n
	out.Z /= n
	out.W /= n
	return out
}
