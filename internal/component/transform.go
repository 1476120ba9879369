// Package component holds the engine's built-in component payloads. Pure
// data, zero behavior; all mutations happen in systems.
package component

import "github.com/prismengine/prism/internal/persist"

// TagTransform is the Transform buffer's 4-byte type identifier.
const TagTransform = "TRFM"

// Vec3 is a plain 3-component vector. The math package owning full vector
// operations is out of scope here; components only need the storage shape.
type Vec3 struct {
	X, Y, Z float32
}

// Quat is a rotation quaternion, identity when W==1 and XYZ==0.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat { return Quat{W: 1} }

// Transform is an entity's local position, rotation, and scale relative to
// its parent. Dirty marks the world matrix stale; the transform system
// clears it after propagation through an explicit worklist, never by
// recursing into children while locks are held.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
	Dirty    bool
}

// NewTransform returns an identity transform.
func NewTransform() Transform {
	return Transform{
		Rotation: QuatIdentity(),
		Scale:    Vec3{1, 1, 1},
		Dirty:    true,
	}
}

func (t *Transform) Serialize(s persist.Serializer) error {
	if err := s.BeginObject(TagTransform); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		v    float32
	}{
		{"px", t.Position.X}, {"py", t.Position.Y}, {"pz", t.Position.Z},
		{"rx", t.Rotation.X}, {"ry", t.Rotation.Y}, {"rz", t.Rotation.Z}, {"rw", t.Rotation.W},
		{"sx", t.Scale.X}, {"sy", t.Scale.Y}, {"sz", t.Scale.Z},
	} {
		if err := s.WriteFloat32(f.name, f.v); err != nil {
			return err
		}
	}
	return s.EndObject()
}

func (t *Transform) Deserialize(d persist.Deserializer) error {
	if err := d.BeginObject(TagTransform); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		dst  *float32
	}{
		{"px", &t.Position.X}, {"py", &t.Position.Y}, {"pz", &t.Position.Z},
		{"rx", &t.Rotation.X}, {"ry", &t.Rotation.Y}, {"rz", &t.Rotation.Z}, {"rw", &t.Rotation.W},
		{"sx", &t.Scale.X}, {"sy", &t.Scale.Y}, {"sz", &t.Scale.Z},
	} {
		v, err := d.ReadFloat32(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	t.Dirty = true
	return d.EndObject()
}
