package flatbuf

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/wippyai/treepatch/errors"
)

// FieldSlot converts a zero-based field index into its vtable byte offset.
func FieldSlot(field int) VOffsetT {
	return VOffsetT((vtableMetadataFields + field) * SizeVOffsetT)
}

// Table reads fields of one encoded object. Every access is bounds-checked,
// so a Table can be used on untrusted input.
type Table struct {
	bb  *ByteBuffer
	pos int
}

// Vector is a length-prefixed run of elements.
type Vector struct {
	bb    *ByteBuffer
	start int
	len   int
}

// RootTable returns the root table whose offset is stored at the buffer's
// current position.
func RootTable(bb *ByteBuffer) (Table, error) {
	pos := bb.Position()
	if !bb.inBounds(pos, SizeUOffsetT) {
		return Table{}, outOfBounds(bb, pos)
	}
	return bb.table(pos + int(bb.ReadUint32(pos)))
}

// GetRootTable returns the root table of a finished buffer.
func GetRootTable(buf []byte) (Table, error) {
	return RootTable(Wrap(buf))
}

// HasIdentifier reports whether the buffer carries the given 4-byte file
// identifier right after its root offset. Panics if id is not 4 bytes long.
func HasIdentifier(bb *ByteBuffer, id string) bool {
	if len(id) != FileIdentifierLength {
		panic(errors.InvalidInput(errors.PhaseDecode, "file identifier must be exactly 4 bytes"))
	}
	start := bb.Position() + SizeUOffsetT
	if !bb.inBounds(start, FileIdentifierLength) {
		return false
	}
	return string(bb.bytes[start:start+FileIdentifierLength]) == id
}

// table validates that pos starts a table with a readable vtable.
func (bb *ByteBuffer) table(pos int) (Table, error) {
	if !bb.inBounds(pos, SizeSOffsetT) {
		return Table{}, outOfBounds(bb, pos)
	}
	vt := pos - int(bb.ReadInt32(pos))
	if !bb.inBounds(vt, 2*SizeVOffsetT) {
		return Table{}, outOfBounds(bb, vt)
	}
	size := int(bb.ReadUint16(vt))
	if size < 2*SizeVOffsetT || size%SizeVOffsetT != 0 || !bb.inBounds(vt, size) {
		return Table{}, errors.InvalidData(errors.PhaseDecode, nil, "malformed vtable")
	}
	return Table{bb: bb, pos: pos}, nil
}

func outOfBounds(bb *ByteBuffer, off int) error {
	return errors.OutOfBounds(errors.PhaseDecode, nil, off, bb.Capacity())
}

// Pos returns the absolute position of the table.
func (t Table) Pos() int { return t.pos }

// offset returns the field's offset from the table start, 0 if absent.
func (t Table) offset(field int) int {
	vt := t.pos - int(t.bb.ReadInt32(t.pos))
	slot := int(FieldSlot(field))
	if slot >= int(t.bb.ReadUint16(vt)) {
		return 0
	}
	return int(t.bb.ReadUint16(vt + slot))
}

// Present reports whether the field was written.
func (t Table) Present(field int) bool {
	return t.offset(field) != 0
}

// scalar returns the absolute position of a scalar field of size bytes.
func (t Table) scalar(field, size int) (int, bool, error) {
	o := t.offset(field)
	if o == 0 {
		return 0, false, nil
	}
	p := t.pos + o
	if !t.bb.inBounds(p, size) {
		return 0, false, outOfBounds(t.bb, p)
	}
	return p, true, nil
}

// Bool reads a bool field, returning d if absent.
func (t Table) Bool(field int, d bool) (bool, bool, error) {
	p, ok, err := t.scalar(field, SizeBool)
	if !ok || err != nil {
		return d, false, err
	}
	return t.bb.ReadBool(p), true, nil
}

// Uint8 reads a uint8 field, returning d if absent.
func (t Table) Uint8(field int, d uint8) (uint8, bool, error) {
	p, ok, err := t.scalar(field, SizeUint8)
	if !ok || err != nil {
		return d, false, err
	}
	return t.bb.ReadUint8(p), true, nil
}

// Int32 reads an int32 field, returning d if absent.
func (t Table) Int32(field int, d int32) (int32, bool, error) {
	p, ok, err := t.scalar(field, SizeInt32)
	if !ok || err != nil {
		return d, false, err
	}
	return t.bb.ReadInt32(p), true, nil
}

// Uint32 reads a uint32 field, returning d if absent.
func (t Table) Uint32(field int, d uint32) (uint32, bool, error) {
	p, ok, err := t.scalar(field, SizeUint32)
	if !ok || err != nil {
		return d, false, err
	}
	return t.bb.ReadUint32(p), true, nil
}

// Float64 reads a float64 field, returning d if absent.
func (t Table) Float64(field int, d float64) (float64, bool, error) {
	p, ok, err := t.scalar(field, SizeFloat64)
	if !ok || err != nil {
		return d, false, err
	}
	return t.bb.ReadFloat64(p), true, nil
}

// indirect follows the offset stored in field.
func (t Table) indirect(field int) (int, bool, error) {
	p, ok, err := t.scalar(field, SizeUOffsetT)
	if !ok || err != nil {
		return 0, false, err
	}
	return p + int(t.bb.ReadUint32(p)), true, nil
}

// Bytes reads a string or byte-vector field as raw bytes without copying.
func (t Table) Bytes(field int) ([]byte, bool, error) {
	p, ok, err := t.indirect(field)
	if !ok || err != nil {
		return nil, false, err
	}
	if !t.bb.inBounds(p, SizeUOffsetT) {
		return nil, false, outOfBounds(t.bb, p)
	}
	n := int(t.bb.ReadUint32(p))
	start := p + SizeUOffsetT
	if !t.bb.inBounds(start, n) {
		return nil, false, outOfBounds(t.bb, start+n)
	}
	return t.bb.bytes[start : start+n], true, nil
}

// String reads a string field. The bytes must be valid UTF-8.
func (t Table) String(field int) (string, bool, error) {
	b, ok, err := t.Bytes(field)
	if !ok || err != nil {
		return "", ok, err
	}
	if !utf8.Valid(b) {
		return "", false, errors.InvalidData(errors.PhaseDecode, nil, "invalid UTF-8 in string")
	}
	return string(b), true, nil
}

// UTF16 reads a string field decoded into UTF-16 code units.
func (t Table) UTF16(field int) ([]uint16, bool, error) {
	s, ok, err := t.String(field)
	if !ok || err != nil {
		return nil, ok, err
	}
	return utf16.Encode([]rune(s)), true, nil
}

// Table reads a sub-table field.
func (t Table) Table(field int) (Table, bool, error) {
	p, ok, err := t.indirect(field)
	if !ok || err != nil {
		return Table{}, false, err
	}
	sub, err := t.bb.table(p)
	if err != nil {
		return Table{}, false, err
	}
	return sub, true, nil
}

// Vector reads a vector field whose elements are elemSize bytes wide.
func (t Table) Vector(field, elemSize int) (Vector, bool, error) {
	p, ok, err := t.indirect(field)
	if !ok || err != nil {
		return Vector{}, false, err
	}
	if !t.bb.inBounds(p, SizeUOffsetT) {
		return Vector{}, false, outOfBounds(t.bb, p)
	}
	n := int(t.bb.ReadUint32(p))
	start := p + SizeUOffsetT
	if n < 0 || n > t.bb.Capacity()/elemSize || !t.bb.inBounds(start, n*elemSize) {
		return Vector{}, false, outOfBounds(t.bb, start)
	}
	return Vector{bb: t.bb, start: start, len: n}, true, nil
}

// Len returns the number of elements.
func (v Vector) Len() int { return v.len }

// Table reads the i-th element of a vector of tables.
func (v Vector) Table(i int) (Table, error) {
	if i < 0 || i >= v.len {
		return Table{}, errors.OutOfBounds(errors.PhaseDecode, nil, i, v.len)
	}
	p := v.start + i*SizeUOffsetT
	return v.bb.table(p + int(v.bb.ReadUint32(p)))
}

// Uint8 reads the i-th element of a ubyte vector.
func (v Vector) Uint8(i int) (uint8, error) {
	if i < 0 || i >= v.len {
		return 0, errors.OutOfBounds(errors.PhaseDecode, nil, i, v.len)
	}
	return v.bb.ReadUint8(v.start + i), nil
}
