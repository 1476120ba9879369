package persist

// SchemaVersion is the current on-disk schema revision. Readers reject
// buffers written by a newer schema before touching payload bytes.
const SchemaVersion uint32 = 1

// Well-known 4-byte buffer type tags. Component types carry their own tags
// (registered alongside the type); these are the container-level ones.
const (
	TagScene  = "SCNE"
	TagEntity = "ENTY"
	TagChunk  = "CHNK"
)

// Serializer is the write half of the encoding contract. Every component
// and every container (entity, scene, chunk) encodes itself purely in terms
// of this interface, so the concrete format stays swappable. Callers must
// check every return and abort the current object on the first failure.
type Serializer interface {
	// BeginObject opens a frame identified by a 4-byte type tag and stamps
	// it with the schema version.
	BeginObject(tag string) error
	EndObject() error

	// BeginArray opens a counted sequence of homogeneous elements.
	BeginArray(name string, count int) error
	EndArray() error

	WriteBool(name string, v bool) error
	WriteUint8(name string, v uint8) error
	WriteInt32(name string, v int32) error
	WriteUint32(name string, v uint32) error
	WriteInt64(name string, v int64) error
	WriteUint64(name string, v uint64) error
	WriteFloat32(name string, v float32) error
	WriteFloat64(name string, v float64) error
	WriteString(name string, v string) error
	WriteBytes(name string, v []byte) error

	// WriteEntityRef records a reference to another entity by runtime ID.
	// Zero encodes "no entity".
	WriteEntityRef(name string, id uint32) error
}

// Deserializer is the read half of the contract, mirroring Serializer.
type Deserializer interface {
	BeginObject(tag string) error
	EndObject() error

	// BeginArray returns the element count written by the producer.
	BeginArray(name string) (int, error)
	EndArray() error

	ReadBool(name string) (bool, error)
	ReadUint8(name string) (uint8, error)
	ReadInt32(name string) (int32, error)
	ReadUint32(name string) (uint32, error)
	ReadInt64(name string) (int64, error)
	ReadUint64(name string) (uint64, error)
	ReadFloat32(name string) (float32, error)
	ReadFloat64(name string) (float64, error)
	ReadString(name string) (string, error)
	ReadBytes(name string) ([]byte, error)

	ReadEntityRef(name string) (uint32, error)
}

// Serializable is implemented by component payloads. A component encodes
// only its own fields; identity, masks, and pool membership belong to the
// registry.
type Serializable interface {
	Serialize(Serializer) error
	Deserialize(Deserializer) error
}
