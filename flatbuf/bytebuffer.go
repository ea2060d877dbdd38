package flatbuf

import (
	"encoding/binary"
	"math"
)

// Scalar sizes in bytes.
const (
	SizeUint8   = 1
	SizeUint16  = 2
	SizeUint32  = 4
	SizeUint64  = 8
	SizeInt8    = 1
	SizeInt16   = 2
	SizeInt32   = 4
	SizeInt64   = 8
	SizeFloat32 = 4
	SizeFloat64 = 8
	SizeByte    = 1
	SizeBool    = 1

	SizeSOffsetT = 4
	SizeUOffsetT = 4
	SizeVOffsetT = 2
)

// UOffsetT is an unsigned offset, measured from the end of the buffer while
// building and relative to its own location once written.
type UOffsetT uint32

// SOffsetT is the signed back-pointer from a table to its vtable.
type SOffsetT int32

// VOffsetT is a field offset stored in a vtable.
type VOffsetT uint16

// ByteBuffer owns a byte slice and a read position. All multi-byte values
// are little-endian. Offsets passed to the accessors are absolute.
type ByteBuffer struct {
	bytes    []byte
	position int
}

// Allocate returns a ByteBuffer of size zero bytes.
func Allocate(size int) *ByteBuffer {
	if size < 0 {
		size = 0
	}
	return &ByteBuffer{bytes: make([]byte, size)}
}

// Wrap returns a ByteBuffer reading from b without copying it.
func Wrap(b []byte) *ByteBuffer {
	return &ByteBuffer{bytes: b}
}

// Bytes returns the whole backing slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.bytes }

// Capacity returns the length of the backing slice.
func (bb *ByteBuffer) Capacity() int { return len(bb.bytes) }

// Position returns the read position.
func (bb *ByteBuffer) Position() int { return bb.position }

// SetPosition moves the read position.
func (bb *ByteBuffer) SetPosition(pos int) { bb.position = pos }

// Clear resets the read position to zero.
func (bb *ByteBuffer) Clear() { bb.position = 0 }

// inBounds reports whether size bytes starting at off are addressable.
func (bb *ByteBuffer) inBounds(off, size int) bool {
	return off >= 0 && size >= 0 && off <= len(bb.bytes)-size
}

func (bb *ByteBuffer) ReadInt8(off int) int8     { return int8(bb.bytes[off]) }
func (bb *ByteBuffer) ReadUint8(off int) uint8   { return bb.bytes[off] }
func (bb *ByteBuffer) ReadBool(off int) bool     { return bb.bytes[off] != 0 }
func (bb *ByteBuffer) ReadInt16(off int) int16   { return int16(bb.ReadUint16(off)) }
func (bb *ByteBuffer) ReadInt32(off int) int32   { return int32(bb.ReadUint32(off)) }
func (bb *ByteBuffer) ReadInt64(off int) int64   { return int64(bb.ReadUint64(off)) }
func (bb *ByteBuffer) ReadFloat32(off int) float32 {
	return math.Float32frombits(bb.ReadUint32(off))
}
func (bb *ByteBuffer) ReadFloat64(off int) float64 {
	return math.Float64frombits(bb.ReadUint64(off))
}

func (bb *ByteBuffer) ReadUint16(off int) uint16 {
	return binary.LittleEndian.Uint16(bb.bytes[off:])
}

func (bb *ByteBuffer) ReadUint32(off int) uint32 {
	return binary.LittleEndian.Uint32(bb.bytes[off:])
}

func (bb *ByteBuffer) ReadUint64(off int) uint64 {
	return binary.LittleEndian.Uint64(bb.bytes[off:])
}

func (bb *ByteBuffer) WriteInt8(off int, v int8)   { bb.bytes[off] = byte(v) }
func (bb *ByteBuffer) WriteUint8(off int, v uint8) { bb.bytes[off] = v }
func (bb *ByteBuffer) WriteBool(off int, v bool) {
	if v {
		bb.bytes[off] = 1
	} else {
		bb.bytes[off] = 0
	}
}
func (bb *ByteBuffer) WriteInt16(off int, v int16) { bb.WriteUint16(off, uint16(v)) }
func (bb *ByteBuffer) WriteInt32(off int, v int32) { bb.WriteUint32(off, uint32(v)) }
func (bb *ByteBuffer) WriteInt64(off int, v int64) { bb.WriteUint64(off, uint64(v)) }
func (bb *ByteBuffer) WriteFloat32(off int, v float32) {
	bb.WriteUint32(off, math.Float32bits(v))
}
func (bb *ByteBuffer) WriteFloat64(off int, v float64) {
	bb.WriteUint64(off, math.Float64bits(v))
}

func (bb *ByteBuffer) WriteUint16(off int, v uint16) {
	binary.LittleEndian.PutUint16(bb.bytes[off:], v)
}

func (bb *ByteBuffer) WriteUint32(off int, v uint32) {
	binary.LittleEndian.PutUint32(bb.bytes[off:], v)
}

func (bb *ByteBuffer) WriteUint64(off int, v uint64) {
	binary.LittleEndian.PutUint64(bb.bytes[off:], v)
}
