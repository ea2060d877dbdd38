package flatbuf

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/wippyai/treepatch/errors"
)

// MaxBufferSize is the largest buffer a Builder will grow to.
const MaxBufferSize = 1<<31 - 1

// FileIdentifierLength is the exact length of a file identifier.
const FileIdentifierLength = 4

// vtableMetadataFields counts the vtable size and object size entries.
const vtableMetadataFields = 2

// Builder constructs objects back to front in a ByteBuffer.
//
// Leaves must be created before the objects that reference them: strings,
// vectors and sub-tables are all closed before the parent table is started.
// A Builder is stateful and must not be shared between goroutines.
type Builder struct {
	bb        *ByteBuffer
	space     UOffsetT
	minalign  int
	vtable    []UOffsetT
	objectEnd UOffsetT
	vtables   []UOffsetT
	nested    bool
	finished  bool
}

// NewBuilder returns a Builder with an initial buffer of initialSize bytes.
// The buffer doubles as needed.
func NewBuilder(initialSize int) *Builder {
	if initialSize < 0 {
		initialSize = 0
	}
	return &Builder{
		bb:       Allocate(initialSize),
		space:    UOffsetT(initialSize),
		minalign: 1,
		vtables:  make([]UOffsetT, 0, 16),
	}
}

// Reset truncates the builder for reuse without reallocating.
func (b *Builder) Reset() {
	b.bb.bytes = b.bb.bytes[:cap(b.bb.bytes)]
	b.bb.position = 0
	b.vtables = b.vtables[:0]
	b.vtable = b.vtable[:0]
	b.space = UOffsetT(len(b.bb.bytes))
	b.minalign = 1
	b.nested = false
	b.finished = false
}

// DataBuffer returns the underlying ByteBuffer. After Finish its position
// marks the start of the encoded data.
func (b *Builder) DataBuffer() *ByteBuffer { return b.bb }

// FinishedBytes returns the encoded data. Panics before Finish.
func (b *Builder) FinishedBytes() []byte {
	if !b.finished {
		panic(errors.Nesting("FinishedBytes called before Finish"))
	}
	return b.bb.bytes[b.space:]
}

// Head returns the start of written data, counted from the left.
func (b *Builder) Head() UOffsetT { return b.space }

// Offset returns the current position, counted from the end of the buffer.
func (b *Builder) Offset() UOffsetT {
	return UOffsetT(len(b.bb.bytes)) - b.space
}

// StartObject begins a table with numFields vtable slots.
func (b *Builder) StartObject(numFields int) {
	b.assertNotNested()
	b.nested = true

	if cap(b.vtable) < numFields {
		b.vtable = make([]UOffsetT, numFields)
	} else {
		b.vtable = b.vtable[:numFields]
		for i := range b.vtable {
			b.vtable[i] = 0
		}
	}

	b.objectEnd = b.Offset()
}

// EndObject closes the current table and returns its offset.
func (b *Builder) EndObject() UOffsetT {
	b.assertNested()
	n := b.writeVtable()
	b.nested = false
	return n
}

// writeVtable writes the table's back-pointer and either reuses an
// identical, already emitted vtable or appends a new one.
//
// A vtable is laid out as
//
//	<VOffsetT: vtable size in bytes, including this entry>
//	<VOffsetT: object size in bytes, including the back-pointer>
//	<VOffsetT: field offset> * N
func (b *Builder) writeVtable() UOffsetT {
	b.PrependSOffsetT(0)

	objectOffset := b.Offset()

	i := len(b.vtable) - 1
	for ; i >= 0 && b.vtable[i] == 0; i-- {
	}
	b.vtable = b.vtable[:i+1]

	vtableSize := (len(b.vtable) + vtableMetadataFields) * SizeVOffsetT
	objectSize := objectOffset - b.objectEnd

	existing := UOffsetT(0)
	for _, vt := range b.vtables {
		if b.vtableEqual(len(b.bb.bytes)-int(vt), vtableSize, objectSize, objectOffset) {
			existing = vt
			break
		}
	}

	objectStart := len(b.bb.bytes) - int(objectOffset)
	if existing == 0 {
		for i := len(b.vtable) - 1; i >= 0; i-- {
			var off UOffsetT
			if b.vtable[i] != 0 {
				off = objectOffset - b.vtable[i]
			}
			b.PrependVOffsetT(VOffsetT(off))
		}
		b.PrependVOffsetT(VOffsetT(objectSize))
		b.PrependVOffsetT(VOffsetT(vtableSize))

		b.bb.WriteInt32(objectStart, int32(SOffsetT(b.Offset())-SOffsetT(objectOffset)))
		b.vtables = append(b.vtables, b.Offset())
	} else {
		b.space = UOffsetT(objectStart)
		b.bb.WriteInt32(objectStart, int32(SOffsetT(existing)-SOffsetT(objectOffset)))
	}

	b.vtable = b.vtable[:0]
	return objectOffset
}

// vtableEqual compares the pending vtable with the emitted one at start,
// byte for byte including both metadata entries.
func (b *Builder) vtableEqual(start, vtableSize int, objectSize, objectOffset UOffsetT) bool {
	if int(b.bb.ReadUint16(start)) != vtableSize {
		return false
	}
	if UOffsetT(b.bb.ReadUint16(start+SizeVOffsetT)) != objectSize {
		return false
	}
	base := start + vtableMetadataFields*SizeVOffsetT
	for i, field := range b.vtable {
		var want VOffsetT
		if field != 0 {
			want = VOffsetT(objectOffset - field)
		}
		if VOffsetT(b.bb.ReadUint16(base+i*SizeVOffsetT)) != want {
			return false
		}
	}
	return true
}

// nextCapacity returns the doubled buffer size, panicking past MaxBufferSize.
func nextCapacity(current int) int {
	if current == 0 {
		return 1
	}
	if current > MaxBufferSize/2 {
		panic(errors.Overflow(errors.PhaseBuild, "cannot grow buffer beyond 2 gigabytes"))
	}
	return current * 2
}

// growByteBuffer doubles the buffer and moves the old content to its tail.
func (b *Builder) growByteBuffer() {
	oldLen := len(b.bb.bytes)
	newLen := nextCapacity(oldLen)

	if cap(b.bb.bytes) >= newLen {
		b.bb.bytes = b.bb.bytes[:newLen]
	} else {
		b.bb.bytes = append(b.bb.bytes, make([]byte, newLen-oldLen)...)
	}

	copy(b.bb.bytes[newLen-oldLen:], b.bb.bytes[:oldLen])
	for i := 0; i < newLen-oldLen; i++ {
		b.bb.bytes[i] = 0
	}
}

// Pad writes n zero bytes.
func (b *Builder) Pad(n int) {
	for i := 0; i < n; i++ {
		b.PlaceByte(0)
	}
}

// Prep aligns the next write to size bytes, taking into account
// additionalBytes that will be written after the aligned element, and
// grows the buffer when there is not enough room.
func (b *Builder) Prep(size, additionalBytes int) {
	if size > b.minalign {
		b.minalign = size
	}

	alignSize := (^(len(b.bb.bytes) - int(b.space) + additionalBytes)) + 1
	alignSize &= size - 1

	for int(b.space) <= alignSize+size+additionalBytes {
		oldLen := len(b.bb.bytes)
		b.growByteBuffer()
		b.space += UOffsetT(len(b.bb.bytes) - oldLen)
	}
	b.Pad(alignSize)
}

// PrependSOffsetT writes a signed offset relative to where it is written.
func (b *Builder) PrependSOffsetT(off SOffsetT) {
	b.Prep(SizeSOffsetT, 0)
	if UOffsetT(off) > b.Offset() {
		panic(errors.Nesting("signed offset points past the written data"))
	}
	b.PlaceSOffsetT(SOffsetT(b.Offset()) - off + SOffsetT(SizeSOffsetT))
}

// PrependUOffsetT writes an offset relative to where it is written.
func (b *Builder) PrependUOffsetT(off UOffsetT) {
	b.Prep(SizeUOffsetT, 0)
	if off > b.Offset() {
		panic(errors.Nesting("offset points past the written data"))
	}
	b.PlaceUOffsetT(b.Offset() - off + UOffsetT(SizeUOffsetT))
}

// StartVector begins a vector of numElems elements of elemSize bytes.
//
// A vector is laid out as
//
//	<UOffsetT: element count>
//	<T: element> * count
func (b *Builder) StartVector(elemSize, numElems, alignment int) UOffsetT {
	b.assertNotNested()
	b.nested = true
	b.Prep(SizeUint32, elemSize*numElems)
	b.Prep(alignment, elemSize*numElems)
	return b.Offset()
}

// EndVector writes the element count and returns the vector offset.
func (b *Builder) EndVector(numElems int) UOffsetT {
	b.assertNested()
	b.PlaceUOffsetT(UOffsetT(numElems))
	b.nested = false
	return b.Offset()
}

// CreateOffsetVector writes a vector of offsets to previously written objects.
func (b *Builder) CreateOffsetVector(offsets []UOffsetT) UOffsetT {
	b.StartVector(SizeUOffsetT, len(offsets), SizeUOffsetT)
	for i := len(offsets) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offsets[i])
	}
	return b.EndVector(len(offsets))
}

// CreateString writes s as a length-prefixed, null-terminated UTF-8 vector.
func (b *Builder) CreateString(s string) UOffsetT {
	b.assertNotNested()
	b.nested = true

	b.Prep(SizeUOffsetT, (len(s)+1)*SizeByte)
	b.PlaceByte(0)

	l := UOffsetT(len(s))
	b.space -= l
	copy(b.bb.bytes[b.space:b.space+l], s)

	return b.EndVector(len(s))
}

// CreateByteString writes raw bytes as a null-terminated string vector.
func (b *Builder) CreateByteString(s []byte) UOffsetT {
	b.assertNotNested()
	b.nested = true

	b.Prep(SizeUOffsetT, (len(s)+1)*SizeByte)
	b.PlaceByte(0)

	l := UOffsetT(len(s))
	b.space -= l
	copy(b.bb.bytes[b.space:b.space+l], s)

	return b.EndVector(len(s))
}

// CreateUTF16String encodes UTF-16 code units as UTF-8 and writes them as a
// string. Unpaired surrogates become U+FFFD.
func (b *Builder) CreateUTF16String(units []uint16) UOffsetT {
	runes := utf16.Decode(units)
	buf := make([]byte, 0, len(runes))
	for _, r := range runes {
		buf = utf8.AppendRune(buf, r)
	}
	return b.CreateByteString(buf)
}

// CreateByteVector writes a ubyte vector without a terminator.
func (b *Builder) CreateByteVector(v []byte) UOffsetT {
	b.assertNotNested()
	b.nested = true

	b.Prep(SizeUOffsetT, len(v)*SizeByte)

	l := UOffsetT(len(v))
	b.space -= l
	copy(b.bb.bytes[b.space:b.space+l], v)

	return b.EndVector(len(v))
}

func (b *Builder) assertNested() {
	if !b.nested {
		panic(errors.Nesting("incorrect creation order: must be inside object"))
	}
}

func (b *Builder) assertNotNested() {
	if b.nested {
		panic(errors.Nesting("incorrect creation order: object must not be nested"))
	}
}

// Slot records the current offset as the location of field slot.
func (b *Builder) Slot(slot int) {
	b.vtable[slot] = b.Offset()
}

// AddBoolSlot writes x into slot unless it equals the default d.
func (b *Builder) AddBoolSlot(slot int, x, d bool) {
	if x != d {
		b.PrependBool(x)
		b.Slot(slot)
	}
}

// AddUint8Slot writes x into slot unless it equals the default d.
func (b *Builder) AddUint8Slot(slot int, x, d uint8) {
	if x != d {
		b.PrependUint8(x)
		b.Slot(slot)
	}
}

// AddInt32Slot writes x into slot unless it equals the default d.
func (b *Builder) AddInt32Slot(slot int, x, d int32) {
	if x != d {
		b.PrependInt32(x)
		b.Slot(slot)
	}
}

// AddUint32Slot writes x into slot unless it equals the default d.
func (b *Builder) AddUint32Slot(slot int, x, d uint32) {
	if x != d {
		b.PrependUint32(x)
		b.Slot(slot)
	}
}

// AddFloat64Slot writes x into slot unless it equals the default d.
func (b *Builder) AddFloat64Slot(slot int, x, d float64) {
	if x != d {
		b.PrependFloat64(x)
		b.Slot(slot)
	}
}

// AddOffsetSlot writes an offset into slot unless it is zero.
func (b *Builder) AddOffsetSlot(slot int, off UOffsetT) {
	if off != 0 {
		b.PrependUOffsetT(off)
		b.Slot(slot)
	}
}

// ForceInt32Slot writes x into slot even when it is zero, so readers can
// tell a required field apart from an absent one.
func (b *Builder) ForceInt32Slot(slot int, x int32) {
	b.PrependInt32(x)
	b.Slot(slot)
}

// ForceUint32Slot writes x into slot even when it is zero.
func (b *Builder) ForceUint32Slot(slot int, x uint32) {
	b.PrependUint32(x)
	b.Slot(slot)
}

// ForceFloat64Slot writes x into slot even when it is zero.
func (b *Builder) ForceFloat64Slot(slot int, x float64) {
	b.PrependFloat64(x)
	b.Slot(slot)
}

// ForceBoolSlot writes x into slot even when it is false.
func (b *Builder) ForceBoolSlot(slot int, x bool) {
	b.PrependBool(x)
	b.Slot(slot)
}

// ForceUint8Slot writes x into slot even when it is zero.
func (b *Builder) ForceUint8Slot(slot int, x uint8) {
	b.PrependUint8(x)
	b.Slot(slot)
}

// Finish writes the root offset and marks the buffer finished.
func (b *Builder) Finish(root UOffsetT) {
	b.assertNotNested()
	b.Prep(b.minalign, SizeUOffsetT)
	b.PrependUOffsetT(root)
	b.finished = true
	b.bb.position = int(b.space)
}

// FinishWithFileIdentifier writes a 4-byte identifier after the root offset.
func (b *Builder) FinishWithFileIdentifier(root UOffsetT, fid []byte) {
	if len(fid) != FileIdentifierLength {
		panic(errors.InvalidInput(errors.PhaseBuild, "file identifier must be exactly 4 bytes"))
	}
	b.Prep(b.minalign, SizeInt32+FileIdentifierLength)
	for i := FileIdentifierLength - 1; i >= 0; i-- {
		b.PlaceByte(fid[i])
	}
	b.Finish(root)
}

func (b *Builder) PrependBool(x bool) {
	b.Prep(SizeBool, 0)
	b.PlaceBool(x)
}

func (b *Builder) PrependUint8(x uint8) {
	b.Prep(SizeUint8, 0)
	b.PlaceUint8(x)
}

func (b *Builder) PrependByte(x byte) {
	b.Prep(SizeByte, 0)
	b.PlaceByte(x)
}

func (b *Builder) PrependUint16(x uint16) {
	b.Prep(SizeUint16, 0)
	b.PlaceUint16(x)
}

func (b *Builder) PrependInt32(x int32) {
	b.Prep(SizeInt32, 0)
	b.PlaceInt32(x)
}

func (b *Builder) PrependUint32(x uint32) {
	b.Prep(SizeUint32, 0)
	b.PlaceUint32(x)
}

func (b *Builder) PrependInt64(x int64) {
	b.Prep(SizeInt64, 0)
	b.PlaceInt64(x)
}

func (b *Builder) PrependFloat64(x float64) {
	b.Prep(SizeFloat64, 0)
	b.PlaceFloat64(x)
}

func (b *Builder) PrependVOffsetT(x VOffsetT) {
	b.Prep(SizeVOffsetT, 0)
	b.PlaceVOffsetT(x)
}

// Place* write without alignment or space checks.

func (b *Builder) PlaceBool(x bool) {
	b.space -= SizeBool
	b.bb.WriteBool(int(b.space), x)
}

func (b *Builder) PlaceUint8(x uint8) {
	b.space -= SizeUint8
	b.bb.WriteUint8(int(b.space), x)
}

func (b *Builder) PlaceByte(x byte) {
	b.space -= SizeByte
	b.bb.WriteUint8(int(b.space), x)
}

func (b *Builder) PlaceUint16(x uint16) {
	b.space -= SizeUint16
	b.bb.WriteUint16(int(b.space), x)
}

func (b *Builder) PlaceInt32(x int32) {
	b.space -= SizeInt32
	b.bb.WriteInt32(int(b.space), x)
}

func (b *Builder) PlaceUint32(x uint32) {
	b.space -= SizeUint32
	b.bb.WriteUint32(int(b.space), x)
}

func (b *Builder) PlaceInt64(x int64) {
	b.space -= SizeInt64
	b.bb.WriteInt64(int(b.space), x)
}

func (b *Builder) PlaceFloat64(x float64) {
	b.space -= SizeFloat64
	b.bb.WriteFloat64(int(b.space), x)
}

func (b *Builder) PlaceVOffsetT(x VOffsetT) {
	b.space -= SizeVOffsetT
	b.bb.WriteUint16(int(b.space), uint16(x))
}

func (b *Builder) PlaceSOffsetT(x SOffsetT) {
	b.space -= SizeSOffsetT
	b.bb.WriteInt32(int(b.space), int32(x))
}

func (b *Builder) PlaceUOffsetT(x UOffsetT) {
	b.space -= SizeUOffsetT
	b.bb.WriteUint32(int(b.space), uint32(x))
}
