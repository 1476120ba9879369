package component

import "github.com/prismengine/prism/internal/persist"

// TagCamera is the Camera buffer's 4-byte type identifier.
const TagCamera = "CAMR"

// Projection selects how a camera maps view space to clip space.
type Projection uint8

const (
	Perspective Projection = iota
	Orthographic
)

// Camera holds projection parameters. The renderer owning the actual
// matrices is an external collaborator; this is only the persisted state.
type Camera struct {
	Projection Projection
	FOVDegrees float32 // perspective only
	OrthoSize  float32 // orthographic only
	NearClip   float32
	FarClip    float32
	Primary    bool
}

// NewCamera returns a perspective camera with common defaults.
func NewCamera() Camera {
	return Camera{
		Projection: Perspective,
		FOVDegrees: 60,
		OrthoSize:  10,
		NearClip:   0.1,
		FarClip:    1000,
	}
}

func (c *Camera) Serialize(s persist.Serializer) error {
	if err := s.BeginObject(TagCamera); err != nil {
		return err
	}
	if err := s.WriteUint8("projection", uint8(c.Projection)); err != nil {
		return err
	}
	if err := s.WriteFloat32("fov", c.FOVDegrees); err != nil {
		return err
	}
	if err := s.WriteFloat32("ortho_size", c.OrthoSize); err != nil {
		return err
	}
	if err := s.WriteFloat32("near", c.NearClip); err != nil {
		return err
	}
	if err := s.WriteFloat32("far", c.FarClip); err != nil {
		return err
	}
	if err := s.WriteBool("primary", c.Primary); err != nil {
		return err
	}
	return s.EndObject()
}

func (c *Camera) Deserialize(d persist.Deserializer) error {
	if err := d.BeginObject(TagCamera); err != nil {
		return err
	}
	proj, err := d.ReadUint8("projection")
	if err != nil {
		return err
	}
	c.Projection = Projection(proj)
	if c.FOVDegrees, err = d.ReadFloat32("fov"); err != nil {
		return err
	}
	if c.OrthoSize, err = d.ReadFloat32("ortho_size"); err != nil {
		return err
	}
	if c.NearClip, err = d.ReadFloat32("near"); err != nil {
		return err
	}
	if c.FarClip, err = d.ReadFloat32("far"); err != nil {
		return err
	}
	if c.Primary, err = d.ReadBool("primary"); err != nil {
		return err
	}
	return d.EndObject()
}
