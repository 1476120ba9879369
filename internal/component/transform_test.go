package component

import (
	"testing"

	"go.uber.org/zap"

	"github.com/prismengine/prism/internal/core/ecs"
	"github.com/prismengine/prism/internal/persist"
)

func TestNewTransformDefaults(t *testing.T) {
	tr := NewTransform()
	if tr.Position != (Vec3{}) {
		t.Errorf("position = %+v, want origin", tr.Position)
	}
	if tr.Rotation != QuatIdentity() {
		t.Errorf("rotation = %+v, want identity", tr.Rotation)
	}
	if tr.Scale != (Vec3{1, 1, 1}) {
		t.Errorf("scale = %+v, want unit", tr.Scale)
	}
	if !tr.Dirty {
		t.Errorf("fresh transforms must start dirty")
	}
}

func TestTransformRoundTripThroughRegistry(t *testing.T) {
	types := ecs.NewTypeRegistry()
	if err := RegisterBuiltins(types); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	src := ecs.NewRegistry(types, zap.NewNop())

	e := src.CreateEntity(true)
	tf := NewTransform()
	tf.Position = Vec3{1, 2, 3}
	ecs.Add(src, e, tf)

	w := persist.NewBinaryWriter()
	if err := src.SerializeEntity(e, w); err != nil {
		t.Fatalf("serialize: %v", err)
	}

	dstTypes := ecs.NewTypeRegistry()
	if err := RegisterBuiltins(dstTypes); err != nil {
		t.Fatal(err)
	}
	dst := ecs.NewRegistry(dstTypes, zap.NewNop())
	ne := dst.CreateEntity(false)
	if err := dst.DeserializeEntity(ne, persist.NewBinaryReader(w.Bytes())); err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	got := ecs.Get[Transform](dst, ne)
	if got == nil {
		t.Fatalf("transform missing after round trip")
	}
	if got.Position != (Vec3{1, 2, 3}) {
		t.Errorf("position = %+v", got.Position)
	}
	if got.Rotation != QuatIdentity() {
		t.Errorf("rotation = %+v", got.Rotation)
	}
	if got.Scale != (Vec3{1, 1, 1}) {
		t.Errorf("scale = %+v", got.Scale)
	}
	if !got.Dirty {
		t.Errorf("loaded transforms must come back dirty for repropagation")
	}
}

func TestCameraRoundTrip(t *testing.T) {
	c := NewCamera()
	c.Projection = Orthographic
	c.OrthoSize = 25
	c.Primary = true

	w := persist.NewBinaryWriter()
	if err := c.Serialize(w); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	var got Camera
	if err := got.Deserialize(persist.NewBinaryReader(w.Bytes())); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got != c {
		t.Fatalf("round trip = %+v, want %+v", got, c)
	}
}

func TestVelocityRoundTrip(t *testing.T) {
	v := Velocity{
		Linear:  Vec3{1, -2, 3},
		Angular: Vec3{0, 0.5, 0},
	}
	w := persist.NewBinaryWriter()
	if err := v.Serialize(w); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	var got Velocity
	if err := got.Deserialize(persist.NewBinaryReader(w.Bytes())); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got != v {
		t.Fatalf("round trip = %+v, want %+v", got, v)
	}
}

func TestTransformRejectsWrongBuffer(t *testing.T) {
	c := NewCamera()
	w := persist.NewBinaryWriter()
	if err := c.Serialize(w); err != nil {
		t.Fatal(err)
	}
	var tf Transform
	if err := tf.Deserialize(persist.NewBinaryReader(w.Bytes())); err == nil {
		t.Fatalf("transform decoded a camera buffer")
	}
}
