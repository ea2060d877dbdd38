package schema_test

import (
	stderrors "errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/treepatch/decoder"
	"github.com/wippyai/treepatch/errors"
	"github.com/wippyai/treepatch/flatbuf"
	"github.com/wippyai/treepatch/schema"
)

func allOps() []schema.Op {
	return []schema.Op{
		schema.SelectChildren{},
		schema.SelectSibling{Offset: 3},
		schema.SelectParent{},
		schema.InsertComment{Data: "note"},
		schema.InsertText{Data: "héllo"},
		schema.InsertElement{LocalName: "div"},
		schema.InsertElement{NamespaceURI: "http://www.w3.org/2000/svg", LocalName: "svg"},
		schema.InsertStashedNode{Address: 7},
		schema.ReplaceWithComment{Data: ""},
		schema.ReplaceWithText{Data: "t"},
		schema.ReplaceWithElement{LocalName: "span"},
		schema.ReplaceWithStashedNode{Address: 0},
		schema.RemoveNextSibling{},
		schema.SetTextData{Data: "new"},
		schema.EditTextData{Start: 1, End: 2, Prefix: "<", Suffix: ">"},
		schema.SetAttribute{Name: "id", Value: "main"},
		schema.SetAttribute{NamespaceURI: "http://www.w3.org/1999/xlink", Name: "href", Value: ""},
		schema.RemoveAttribute{Name: "class"},
		schema.AssignStringProperty{Name: "value", Value: "x"},
		schema.AssignBooleanProperty{Name: "checked", Value: false},
		schema.AssignNumberProperty{Name: "scrollTop", Value: -1.5},
		schema.AssignNullProperty{Name: "onclick"},
		schema.DeleteProperty{Name: "custom"},
		schema.SetStyleRule{Name: "color", Value: "red"},
		schema.RemoveStyleRule{Name: "color"},
		schema.StashNextSibling{Address: 9},
		schema.DiscardStashedNode{Address: 9},
		schema.ShiftSiblings{Count: 2},
		schema.AddEventListener{Type: "click", Decoder: decoder.Field("button", decoder.Integer()), Capture: true},
		schema.RemoveEventListener{Type: "click", Decoder: decoder.Field("button", decoder.Integer()), Capture: true},
	}
}

func allDecoders() []decoder.Decoder {
	return []decoder.Decoder{
		decoder.Accessor("now", decoder.Float()),
		decoder.Either(decoder.String(), decoder.Null(nil)),
		decoder.Either(),
		decoder.Array(decoder.Integer()),
		decoder.Dictionary(decoder.Boolean()),
		decoder.Maybe(decoder.String()),
		decoder.Optional(decoder.String()),
		decoder.Float(),
		decoder.Integer(),
		decoder.String(),
		decoder.Boolean(),
		decoder.Record(decoder.Fields{"x": decoder.Float(), "y": decoder.Float()}),
		decoder.Record(decoder.Fields{}),
		decoder.Form(decoder.Fields{"name": decoder.Field("value", decoder.String())}),
		decoder.Error("unsupported"),
		decoder.Ok(map[string]any{"kind": "submit", "n": 2.0}),
		decoder.Ok(decoder.Undef),
		decoder.Field("target", decoder.Index(0, decoder.String())),
		decoder.Index(2, decoder.Integer()),
		decoder.Null("none"),
		decoder.Undefined(decoder.Undef),
		decoder.Match([]any{"a", 1.0, true, nil}),
		decoder.And(decoder.Field("type", decoder.Match("click")), decoder.Field("x", decoder.Float())),
	}
}

// sameOp compares ops, using decoder equality for listener decoders.
func sameOp(a, b schema.Op) bool {
	switch x := a.(type) {
	case schema.AddEventListener:
		y, ok := b.(schema.AddEventListener)
		return ok && x.Type == y.Type && x.Capture == y.Capture && decoder.Equal(x.Decoder, y.Decoder)
	case schema.RemoveEventListener:
		y, ok := b.(schema.RemoveEventListener)
		return ok && x.Type == y.Type && x.Capture == y.Capture && decoder.Equal(x.Decoder, y.Decoder)
	}
	return reflect.DeepEqual(a, b)
}

func TestRoundTrip_AllOps(t *testing.T) {
	ops := allOps()
	buf, err := schema.Encode(ops)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := schema.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != len(ops) {
		t.Fatalf("decoded %d ops, want %d", len(got), len(ops))
	}
	for i := range ops {
		if !sameOp(ops[i], got[i]) {
			t.Errorf("op %d: got %v, want %v", i, got[i], ops[i])
		}
	}
}

func TestRoundTrip_AllDecoders(t *testing.T) {
	for _, d := range allDecoders() {
		t.Run(d.String(), func(t *testing.T) {
			op := schema.AddEventListener{Type: "input", Decoder: d}
			buf, err := schema.Encode([]schema.Op{op})
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := schema.Decode(buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(got) != 1 || !sameOp(op, got[0]) {
				t.Fatalf("got %v, want %v", got, op)
			}
		})
	}
}

func TestRoundTrip_CoversEveryKind(t *testing.T) {
	seen := make(map[schema.OpKind]bool)
	for _, op := range allOps() {
		seen[op.Kind()] = true
	}
	for k := schema.OpSelectChildren; k <= schema.OpMax; k++ {
		if !seen[k] {
			t.Errorf("no round-trip case for %s", k)
		}
	}

	kinds := make(map[decoder.Kind]bool)
	for _, d := range allDecoders() {
		kinds[d.Kind()] = true
	}
	for k := decoder.KindAccessor; k <= decoder.KindMax; k++ {
		if !kinds[k] {
			t.Errorf("no round-trip case for decoder %s", k)
		}
	}
}

func TestEncode_Empty(t *testing.T) {
	for _, ops := range [][]schema.Op{nil, {}} {
		buf, err := schema.Encode(ops)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := schema.Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("got %#v, want empty non-nil slice", got)
		}
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name string
		ops  []schema.Op
		kind errors.Kind
		path string
	}{
		{"nil op", []schema.Op{schema.SelectChildren{}, nil}, errors.KindInvalidInput, "changes[1]"},
		{"nil listener decoder", []schema.Op{schema.AddEventListener{Type: "click"}}, errors.KindFieldMissing, "changes[0]"},
		{
			"undefined inside literal",
			[]schema.Op{schema.AddEventListener{Type: "click", Decoder: decoder.Ok([]any{decoder.Undef})}},
			errors.KindInvalidInput, "changes[0]",
		},
		{
			"literal not encodable",
			[]schema.Op{schema.AddEventListener{Type: "click", Decoder: decoder.Match(math.NaN())}},
			errors.KindInvalidInput, "changes[0]",
		},
		{
			"index out of range",
			[]schema.Op{schema.AddEventListener{Type: "click", Decoder: decoder.Index(math.MaxInt32+1, decoder.String())}},
			errors.KindOverflow, "changes[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Encode(tt.ops)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("got %v, want *errors.Error", err)
			}
			if e.Phase != errors.PhaseEncode || e.Kind != tt.kind {
				t.Errorf("got %s/%s, want encode/%s", e.Phase, e.Kind, tt.kind)
			}
			if len(e.Path) == 0 || e.Path[0] != tt.path {
				t.Errorf("path = %v, want prefix %s", e.Path, tt.path)
			}
		})
	}
}

func TestEncoder_Reuse(t *testing.T) {
	enc := schema.NewEncoder()
	first, err := enc.Encode([]schema.Op{schema.InsertText{Data: "a"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Encode([]schema.Op{nil}); err == nil {
		t.Fatal("expected error")
	}
	second, err := enc.Encode([]schema.Op{schema.InsertText{Data: "a"}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("encoder output changed after failed encode")
	}
}

func TestEncodeWithIdentifier(t *testing.T) {
	ops := []schema.Op{schema.SelectParent{}}
	buf, err := schema.EncodeWithIdentifier(ops, schema.FileIdentifier)
	if err != nil {
		t.Fatal(err)
	}
	if !schema.HasIdentifier(buf) {
		t.Error("HasIdentifier = false")
	}
	got, err := schema.Decode(buf)
	if err != nil || len(got) != 1 || got[0] != (schema.SelectParent{}) {
		t.Errorf("Decode = %v, %v", got, err)
	}

	plain, err := schema.Encode(ops)
	if err != nil {
		t.Fatal(err)
	}
	if schema.HasIdentifier(plain) {
		t.Error("plain buffer reports identifier")
	}

	if _, err := schema.EncodeWithIdentifier(ops, "TOOLONG"); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidInput}) {
		t.Errorf("bad identifier: %v", err)
	}
}

// rawLog builds a one-change log by hand. A nil body omits the op table.
func rawLog(tag uint8, body func(b *flatbuf.Builder) flatbuf.UOffsetT) []byte {
	b := flatbuf.NewBuilder(0)
	var op flatbuf.UOffsetT
	if body != nil {
		op = body(b)
	}
	b.StartObject(2)
	b.AddOffsetSlot(1, op)
	b.AddUint8Slot(0, tag, 0)
	change := b.EndObject()
	vec := b.CreateOffsetVector([]flatbuf.UOffsetT{change})
	b.StartObject(1)
	b.AddOffsetSlot(0, vec)
	b.Finish(b.EndObject())
	return b.FinishedBytes()
}

func emptyTable(b *flatbuf.Builder) flatbuf.UOffsetT {
	b.StartObject(0)
	return b.EndObject()
}

func TestDecode_Malformed(t *testing.T) {
	listenerWithBadDecoder := func(b *flatbuf.Builder) flatbuf.UOffsetT {
		b.StartObject(2)
		b.AddUint8Slot(0, 99, 0)
		node := b.EndObject()
		typ := b.CreateString("click")
		b.StartObject(3)
		b.AddOffsetSlot(1, node)
		b.AddOffsetSlot(0, typ)
		b.ForceBoolSlot(2, false)
		return b.EndObject()
	}

	tests := []struct {
		name string
		buf  []byte
		kind errors.Kind
		path string
	}{
		{"unknown tag", rawLog(200, emptyTable), errors.KindUnknownOp, "changes[0]"},
		{"none tag", rawLog(0, emptyTable), errors.KindUnknownOp, "changes[0]"},
		{"absent op table", rawLog(uint8(schema.OpInsertText), nil), errors.KindOpMissing, "changes[0]"},
		{"missing data", rawLog(uint8(schema.OpInsertText), emptyTable), errors.KindFieldMissing, "changes[0].insertText"},
		{"missing offset", rawLog(uint8(schema.OpSelectSibling), emptyTable), errors.KindFieldMissing, "changes[0].selectSibling"},
		{"missing edit fields", rawLog(uint8(schema.OpEditTextData), emptyTable), errors.KindFieldMissing, "changes[0].editTextData"},
		{"missing listener type", rawLog(uint8(schema.OpAddEventListener), emptyTable), errors.KindFieldMissing, "changes[0].addEventListener"},
		{"unknown decoder tag", rawLog(uint8(schema.OpAddEventListener), listenerWithBadDecoder), errors.KindUnknownOp, "changes[0].addEventListener.decoder"},
		{"empty buffer", nil, errors.KindOutOfBounds, "changeLog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Decode(tt.buf)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("got %v, want *errors.Error", err)
			}
			if e.Phase != errors.PhaseDecode || e.Kind != tt.kind {
				t.Errorf("got %s/%s, want decode/%s (%v)", e.Phase, e.Kind, tt.kind, err)
			}
			if got := strings.Join(e.Path, "."); got != tt.path {
				t.Errorf("path = %q, want %q", got, tt.path)
			}
		})
	}
}

func TestReader_Limits(t *testing.T) {
	ops := []schema.Op{schema.SelectChildren{}, schema.SelectParent{}}
	buf, err := schema.Encode(ops)
	if err != nil {
		t.Fatal(err)
	}

	deep := decoder.Array(decoder.Array(decoder.Array(decoder.String())))
	deepBuf, err := schema.Encode([]schema.Op{schema.AddEventListener{Type: "x", Decoder: deep}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		limits schema.Limits
		buf    []byte
		fail   bool
	}{
		{"unlimited", schema.Limits{}, buf, false},
		{"defaults", schema.DefaultLimits(), deepBuf, false},
		{"max bytes", schema.Limits{MaxBytes: 8}, buf, true},
		{"max changes", schema.Limits{MaxChanges: 1}, buf, true},
		{"exact changes", schema.Limits{MaxChanges: 2}, buf, false},
		{"decoder depth", schema.Limits{MaxDecoderDepth: 3}, deepBuf, true},
		{"decoder depth fits", schema.Limits{MaxDecoderDepth: 4}, deepBuf, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.NewReader(tt.limits).Decode(tt.buf)
			if !tt.fail {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindLimitExceeded {
				t.Fatalf("got %v, want limit_exceeded", err)
			}
		})
	}
}

// sharedAndLog builds a log whose listener decoder nests levels of And
// nodes that reference the same child table on both sides.
func sharedAndLog(levels int) []byte {
	return rawLog(uint8(schema.OpAddEventListener), func(b *flatbuf.Builder) flatbuf.UOffsetT {
		body := emptyTable(b)
		b.StartObject(2)
		b.AddOffsetSlot(1, body)
		b.AddUint8Slot(0, uint8(decoder.KindString), 0)
		node := b.EndObject()
		for i := 0; i < levels; i++ {
			b.StartObject(2)
			b.AddOffsetSlot(1, node)
			b.AddOffsetSlot(0, node)
			and := b.EndObject()
			b.StartObject(2)
			b.AddOffsetSlot(1, and)
			b.AddUint8Slot(0, uint8(decoder.KindAnd), 0)
			node = b.EndObject()
		}
		typ := b.CreateString("click")
		b.StartObject(3)
		b.AddOffsetSlot(1, node)
		b.AddOffsetSlot(0, typ)
		b.ForceBoolSlot(2, false)
		return b.EndObject()
	})
}

func TestReader_DecoderNodeLimit(t *testing.T) {
	pair := decoder.And(decoder.String(), decoder.String())
	twoListeners, err := schema.Encode([]schema.Op{
		schema.AddEventListener{Type: "a", Decoder: pair},
		schema.AddEventListener{Type: "b", Decoder: pair},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		limits schema.Limits
		buf    []byte
		fail   bool
	}{
		{"shared children within defaults", schema.DefaultLimits(), sharedAndLog(4), false},
		{"shared children blow up", schema.DefaultLimits(), sharedAndLog(48), true},
		{"every reference counts", schema.Limits{MaxDecoderNodes: 30}, sharedAndLog(4), true},
		{"exact node count", schema.Limits{MaxDecoderNodes: 31}, sharedAndLog(4), false},
		{"counted across the log", schema.Limits{MaxDecoderNodes: 5}, twoListeners, true},
		{"whole log fits", schema.Limits{MaxDecoderNodes: 6}, twoListeners, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := schema.NewReader(tt.limits).Decode(tt.buf)
			if !tt.fail {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(ops) == 0 {
					t.Fatal("no changes decoded")
				}
				return
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindLimitExceeded {
				t.Fatalf("got %v, want limit_exceeded", err)
			}
		})
	}
}

func TestAssignProperty(t *testing.T) {
	tests := []struct {
		value any
		want  schema.Op
	}{
		{nil, schema.AssignNullProperty{Name: "p"}},
		{"s", schema.AssignStringProperty{Name: "p", Value: "s"}},
		{true, schema.AssignBooleanProperty{Name: "p", Value: true}},
		{3, schema.AssignNumberProperty{Name: "p", Value: 3}},
		{uint8(4), schema.AssignNumberProperty{Name: "p", Value: 4}},
		{float32(0.5), schema.AssignNumberProperty{Name: "p", Value: 0.5}},
	}
	for _, tt := range tests {
		got, err := schema.AssignProperty("p", tt.value)
		if err != nil {
			t.Fatalf("AssignProperty(%v): %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("AssignProperty(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}

	if _, err := schema.AssignProperty("p", []int{1}); err == nil {
		t.Error("slice value accepted")
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   schema.Op
		want string
	}{
		{schema.SelectChildren{}, "selectChildren()"},
		{schema.SelectSibling{Offset: 2}, "selectSibling(2)"},
		{schema.InsertText{Data: "hi"}, `insertText("hi")`},
		{schema.ShiftSiblings{Count: 1}, "shiftSiblings(1)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("String = %s, want %s", got, tt.want)
		}
	}
	for k := schema.OpSelectChildren; k <= schema.OpMax; k++ {
		got, ok := schema.ParseOpKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseOpKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	ops := allOps()
	enc := schema.NewEncoder()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := enc.Encode(ops); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	buf, err := schema.Encode(allOps())
	if err != nil {
		b.Fatal(err)
	}
	r := schema.NewReader(schema.DefaultLimits())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := r.Decode(buf); err != nil {
			b.Fatal(err)
		}
	}
}
