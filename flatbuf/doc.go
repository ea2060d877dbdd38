// Package flatbuf implements the binary substrate of the change-log format:
// a little-endian ByteBuffer, a back-to-front Builder and a bounds-checked
// Table reader.
//
// The layout is flatbuffers compatible. Objects are tables preceded by a
// signed back-pointer to a vtable; the vtable lists 16-bit field offsets
// where 0 means the field is absent. Vectors and strings are prefixed with
// a 32-bit element count, strings are UTF-8 and null-terminated on write.
// Offsets are stored relative to their own location, so an encoded buffer
// can be moved without rewriting it.
//
// # Building
//
//	b := flatbuf.NewBuilder(0)
//	name := b.CreateString("div")
//	b.StartObject(2)
//	b.AddOffsetSlot(0, name)
//	b.ForceInt32Slot(1, 0)
//	b.Finish(b.EndObject())
//	data := b.FinishedBytes()
//
// Identical vtables are written once: EndObject compares the pending vtable
// byte for byte with every vtable emitted so far and points the table at
// the first match.
//
// # Reading
//
//	t, err := flatbuf.GetRootTable(data)
//	name, ok, err := t.String(0)
//
// Reads never panic on malformed input; they return an *errors.Error with
// Kind out_of_bounds or invalid_data instead. Builder misuse (bad nesting,
// a buffer beyond 2 GiB, a file identifier that is not 4 bytes) panics.
package flatbuf
