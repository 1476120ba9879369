package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// BinaryWriter encodes the Serializer contract as a little-endian byte
// stream. Field names are part of the contract for self-describing formats;
// the binary encoding is positional and ignores them, relying on producer
// and consumer sharing the same field order (guarded by the frame tag and
// schema version).
type BinaryWriter struct {
	buf bytes.Buffer
	err error
}

var _ Serializer = (*BinaryWriter)(nil)

func NewBinaryWriter() *BinaryWriter {
	return &BinaryWriter{}
}

// Bytes returns the encoded buffer. Invalid if any write failed.
func (w *BinaryWriter) Bytes() []byte { return w.buf.Bytes() }

// Err returns the first error encountered, if any.
func (w *BinaryWriter) Err() error { return w.err }

func (w *BinaryWriter) BeginObject(tag string) error {
	if w.err != nil {
		return w.err
	}
	if len(tag) != 4 {
		w.err = BadTagError{Tag: tag}
		return w.err
	}
	w.buf.WriteString(tag)
	return w.writeUint32(SchemaVersion)
}

func (w *BinaryWriter) EndObject() error { return w.err }

func (w *BinaryWriter) BeginArray(_ string, count int) error {
	if count < 0 {
		return fmt.Errorf("persist: negative array count %d", count)
	}
	return w.writeUint32(uint32(count))
}

func (w *BinaryWriter) EndArray() error { return w.err }

func (w *BinaryWriter) writeUint32(v uint32) error {
	if w.err != nil {
		return w.err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
	return nil
}

func (w *BinaryWriter) writeUint64(v uint64) error {
	if w.err != nil {
		return w.err
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
	return nil
}

func (w *BinaryWriter) WriteBool(_ string, v bool) error {
	if w.err != nil {
		return w.err
	}
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
	return nil
}

func (w *BinaryWriter) WriteUint8(_ string, v uint8) error {
	if w.err != nil {
		return w.err
	}
	w.buf.WriteByte(v)
	return nil
}

func (w *BinaryWriter) WriteInt32(_ string, v int32) error   { return w.writeUint32(uint32(v)) }
func (w *BinaryWriter) WriteUint32(_ string, v uint32) error { return w.writeUint32(v) }
func (w *BinaryWriter) WriteInt64(_ string, v int64) error   { return w.writeUint64(uint64(v)) }
func (w *BinaryWriter) WriteUint64(_ string, v uint64) error { return w.writeUint64(v) }

func (w *BinaryWriter) WriteFloat32(_ string, v float32) error {
	return w.writeUint32(math.Float32bits(v))
}

func (w *BinaryWriter) WriteFloat64(_ string, v float64) error {
	return w.writeUint64(math.Float64bits(v))
}

func (w *BinaryWriter) WriteString(_ string, v string) error {
	if err := w.writeUint32(uint32(len(v))); err != nil {
		return err
	}
	w.buf.WriteString(v)
	return nil
}

func (w *BinaryWriter) WriteBytes(_ string, v []byte) error {
	if err := w.writeUint32(uint32(len(v))); err != nil {
		return err
	}
	w.buf.Write(v)
	return nil
}

func (w *BinaryWriter) WriteEntityRef(_ string, id uint32) error {
	return w.writeUint32(id)
}

// BinaryReader decodes buffers produced by BinaryWriter. BeginObject
// verifies the 4-byte tag and schema version before any payload bytes are
// consumed, so mismatched buffer types fail fast and cleanly.
type BinaryReader struct {
	data []byte
	off  int
}

var _ Deserializer = (*BinaryReader)(nil)

func NewBinaryReader(data []byte) *BinaryReader {
	return &BinaryReader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *BinaryReader) Remaining() int { return len(r.data) - r.off }

func (r *BinaryReader) take(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, ErrShortBuffer
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *BinaryReader) BeginObject(tag string) error {
	if len(tag) != 4 {
		return BadTagError{Tag: tag}
	}
	b, err := r.take(4)
	if err != nil {
		return fmt.Errorf("persist: read tag: %w", err)
	}
	if got := string(b); got != tag {
		return TagMismatchError{Want: tag, Got: got}
	}
	ver, err := r.readUint32()
	if err != nil {
		return fmt.Errorf("persist: read schema version: %w", err)
	}
	if ver > SchemaVersion {
		return VersionError{Tag: tag, Version: ver}
	}
	return nil
}

func (r *BinaryReader) EndObject() error { return nil }

func (r *BinaryReader) BeginArray(_ string) (int, error) {
	n, err := r.readUint32()
	return int(n), err
}

func (r *BinaryReader) EndArray() error { return nil }

func (r *BinaryReader) readUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *BinaryReader) readUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *BinaryReader) ReadBool(_ string) (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *BinaryReader) ReadUint8(_ string) (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *BinaryReader) ReadInt32(_ string) (int32, error) {
	v, err := r.readUint32()
	return int32(v), err
}

func (r *BinaryReader) ReadUint32(_ string) (uint32, error) { return r.readUint32() }

func (r *BinaryReader) ReadInt64(_ string) (int64, error) {
	v, err := r.readUint64()
	return int64(v), err
}

func (r *BinaryReader) ReadUint64(_ string) (uint64, error) { return r.readUint64() }

func (r *BinaryReader) ReadFloat32(_ string) (float32, error) {
	v, err := r.readUint32()
	return math.Float32frombits(v), err
}

func (r *BinaryReader) ReadFloat64(_ string) (float64, error) {
	v, err := r.readUint64()
	return math.Float64frombits(v), err
}

func (r *BinaryReader) ReadString(_ string) (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *BinaryReader) ReadBytes(_ string) ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (r *BinaryReader) ReadEntityRef(_ string) (uint32, error) {
	return r.readUint32()
}
