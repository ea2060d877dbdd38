package flatbuf

import (
	stderrors "errors"
	"testing"

	fb "github.com/google/flatbuffers/go"

	"github.com/wippyai/treepatch/errors"
)

func buildSample() []byte {
	b := NewBuilder(0)
	name := b.CreateString("span")
	tags := b.CreateByteVector([]byte{3, 1, 2})

	var kids []UOffsetT
	for i := int32(10); i < 13; i++ {
		b.StartObject(1)
		b.ForceInt32Slot(0, i)
		kids = append(kids, b.EndObject())
	}
	children := b.CreateOffsetVector(kids)

	b.StartObject(7)
	b.AddOffsetSlot(0, name)
	b.ForceUint32Slot(1, 0)
	b.AddBoolSlot(2, true, false)
	b.AddFloat64Slot(3, 2.5, 0)
	b.AddOffsetSlot(4, children)
	b.AddOffsetSlot(5, tags)
	b.Finish(b.EndObject())
	return b.FinishedBytes()
}

func TestTable_ReadFields(t *testing.T) {
	tbl, err := GetRootTable(buildSample())
	if err != nil {
		t.Fatalf("root: %v", err)
	}

	name, ok, err := tbl.String(0)
	if err != nil || !ok || name != "span" {
		t.Errorf("String(0) = %q, %v, %v", name, ok, err)
	}

	u, ok, err := tbl.Uint32(1, 99)
	if err != nil || !ok || u != 0 {
		t.Errorf("forced Uint32(1) = %d, %v, %v", u, ok, err)
	}

	flag, ok, err := tbl.Bool(2, false)
	if err != nil || !ok || !flag {
		t.Errorf("Bool(2) = %v, %v, %v", flag, ok, err)
	}

	f, ok, err := tbl.Float64(3, 0)
	if err != nil || !ok || f != 2.5 {
		t.Errorf("Float64(3) = %v, %v, %v", f, ok, err)
	}

	vec, ok, err := tbl.Vector(4, SizeUOffsetT)
	if err != nil || !ok {
		t.Fatalf("Vector(4): %v, %v", ok, err)
	}
	if vec.Len() != 3 {
		t.Fatalf("vector length = %d", vec.Len())
	}
	for i := 0; i < vec.Len(); i++ {
		child, err := vec.Table(i)
		if err != nil {
			t.Fatalf("child %d: %v", i, err)
		}
		v, ok, err := child.Int32(0, -1)
		if err != nil || !ok || v != int32(10+i) {
			t.Errorf("child %d = %d, %v, %v", i, v, ok, err)
		}
	}

	tags, ok, err := tbl.Vector(5, SizeUint8)
	if err != nil || !ok || tags.Len() != 3 {
		t.Fatalf("Vector(5): %v, %v", ok, err)
	}
	if v, _ := tags.Uint8(0); v != 3 {
		t.Errorf("tags[0] = %d", v)
	}

	// Field 6 was declared but never written.
	if tbl.Present(6) {
		t.Errorf("field 6 should be absent")
	}
	d, ok, err := tbl.Int32(6, 77)
	if err != nil || ok || d != 77 {
		t.Errorf("absent Int32(6) = %d, %v, %v", d, ok, err)
	}
	// Beyond the vtable entirely.
	if _, ok, _ := tbl.String(40); ok {
		t.Errorf("field beyond vtable should be absent")
	}
}

func TestTable_ReadsReferenceEncoding(t *testing.T) {
	ref := fb.NewBuilder(0)
	s := ref.CreateString("from reference")
	ref.StartObject(2)
	ref.PrependUOffsetTSlot(0, s, 0)
	ref.PrependInt32Slot(1, -5, 0)
	ref.FinishWithFileIdentifier(ref.EndObject(), []byte("TPLG"))

	bb := Wrap(ref.FinishedBytes())
	if !HasIdentifier(bb, "TPLG") {
		t.Fatalf("identifier not found")
	}
	if HasIdentifier(bb, "XXXX") {
		t.Fatalf("wrong identifier matched")
	}

	tbl, err := RootTable(bb)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	str, _, err := tbl.String(0)
	if err != nil || str != "from reference" {
		t.Errorf("String(0) = %q, %v", str, err)
	}
	n, _, err := tbl.Int32(1, 0)
	if err != nil || n != -5 {
		t.Errorf("Int32(1) = %d, %v", n, err)
	}
}

func TestTable_MalformedInput(t *testing.T) {
	good := buildSample()

	tests := []struct {
		name string
		data []byte
		kind errors.Kind
	}{
		{"empty", nil, errors.KindOutOfBounds},
		{"short", []byte{1, 2}, errors.KindOutOfBounds},
		{"root past end", []byte{0xff, 0, 0, 0}, errors.KindOutOfBounds},
		{"truncated", good[:len(good)/2], ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := GetRootTable(tt.data)
			if err == nil {
				// The root may still resolve on a truncated buffer; the
				// failure then surfaces on the first out-of-range field.
				_, _, err = tbl.Vector(4, SizeUOffsetT)
				if err == nil {
					_, _, err = tbl.String(0)
				}
			}
			if err == nil {
				t.Fatalf("expected error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("error %T is not *errors.Error", err)
			}
			if e.Phase != errors.PhaseDecode {
				t.Errorf("phase = %s", e.Phase)
			}
			if tt.kind != "" && e.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", e.Kind, tt.kind)
			}
		})
	}
}

func TestTable_MalformedVtable(t *testing.T) {
	data := append([]byte(nil), buildSample()...)
	tbl, err := GetRootTable(data)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	vt := tbl.Pos() - int(Wrap(data).ReadInt32(tbl.Pos()))
	// Odd vtable size.
	Wrap(data).WriteUint16(vt, 3)

	_, err = GetRootTable(data)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidData {
		t.Fatalf("err = %v, want invalid_data", err)
	}
}

func TestTable_InvalidUTF8(t *testing.T) {
	b := NewBuilder(0)
	s := b.CreateByteString([]byte{0xff, 0xfe})
	b.StartObject(1)
	b.AddOffsetSlot(0, s)
	b.Finish(b.EndObject())

	tbl, err := GetRootTable(b.FinishedBytes())
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if _, _, err := tbl.String(0); err == nil {
		t.Fatalf("expected UTF-8 error")
	}
	raw, ok, err := tbl.Bytes(0)
	if err != nil || !ok || len(raw) != 2 {
		t.Fatalf("Bytes(0) = %v, %v, %v", raw, ok, err)
	}
}

func TestVector_IndexOutOfRange(t *testing.T) {
	tbl, err := GetRootTable(buildSample())
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	vec, _, err := tbl.Vector(4, SizeUOffsetT)
	if err != nil {
		t.Fatalf("vector: %v", err)
	}
	if _, err := vec.Table(3); err == nil {
		t.Errorf("expected out of range error")
	}
	if _, err := vec.Table(-1); err == nil {
		t.Errorf("expected out of range error")
	}
}

func TestFieldSlot(t *testing.T) {
	for i, want := range []VOffsetT{4, 6, 8, 10} {
		if got := FieldSlot(i); got != want {
			t.Errorf("FieldSlot(%d) = %d, want %d", i, got, want)
		}
	}
}
