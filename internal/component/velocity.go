package component

import "github.com/prismengine/prism/internal/persist"

// TagVelocity is the Velocity buffer's 4-byte type identifier.
const TagVelocity = "VELO"

// Velocity is linear and angular motion per second, consumed by the
// movement system each update.
type Velocity struct {
	Linear  Vec3
	Angular Vec3
}

func (v *Velocity) Serialize(s persist.Serializer) error {
	if err := s.BeginObject(TagVelocity); err != nil {
		return err
	}
	vals := []float32{
		v.Linear.X, v.Linear.Y, v.Linear.Z,
		v.Angular.X, v.Angular.Y, v.Angular.Z,
	}
	for _, f := range vals {
		if err := s.WriteFloat32("v", f); err != nil {
			return err
		}
	}
	return s.EndObject()
}

func (v *Velocity) Deserialize(d persist.Deserializer) error {
	if err := d.BeginObject(TagVelocity); err != nil {
		return err
	}
	dsts := []*float32{
		&v.Linear.X, &v.Linear.Y, &v.Linear.Z,
		&v.Angular.X, &v.Angular.Y, &v.Angular.Z,
	}
	for _, dst := range dsts {
		f, err := d.ReadFloat32("v")
		if err != nil {
			return err
		}
		*dst = f
	}
	return d.EndObject()
}
