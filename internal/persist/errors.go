package persist

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a read runs past the end of the buffer.
var ErrShortBuffer = errors.New("persist: short buffer")

// TagMismatchError reports a buffer whose 4-byte type tag does not match
// what the reader expected. Detected before any payload bytes are decoded.
type TagMismatchError struct {
	Want string
	Got  string
}

func (e TagMismatchError) Error() string {
	return fmt.Sprintf("persist: buffer tag mismatch: want %q, got %q", e.Want, e.Got)
}

// VersionError reports a buffer written by an incompatible schema version.
type VersionError struct {
	Tag     string
	Version uint32
}

func (e VersionError) Error() string {
	return fmt.Sprintf("persist: %s buffer has unsupported schema version %d (current %d)", e.Tag, e.Version, SchemaVersion)
}

// BadTagError reports a type tag that is not exactly 4 bytes.
type BadTagError struct {
	Tag string
}

func (e BadTagError) Error() string {
	return fmt.Sprintf("persist: type tag %q must be exactly 4 bytes", e.Tag)
}
