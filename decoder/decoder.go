package decoder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies a decoder variant. Values are stable: they are the tags
// written to the wire.
type Kind uint8

const (
	KindNone Kind = iota
	KindAccessor
	KindEither
	KindArray
	KindDictionary
	KindMaybe
	KindOptional
	KindFloat
	KindInteger
	KindString
	KindBoolean
	KindRecord
	KindForm
	KindError
	KindOk
	KindField
	KindIndex
	KindNull
	KindUndefined
	KindMatch
	KindAnd
)

// KindMax is the highest defined kind.
const KindMax = KindAnd

var kindNames = [...]string{
	KindNone:       "none",
	KindAccessor:   "accessor",
	KindEither:     "either",
	KindArray:      "array",
	KindDictionary: "dictionary",
	KindMaybe:      "maybe",
	KindOptional:   "optional",
	KindFloat:      "float",
	KindInteger:    "integer",
	KindString:     "string",
	KindBoolean:    "boolean",
	KindRecord:     "record",
	KindForm:       "form",
	KindError:      "error",
	KindOk:         "ok",
	KindField:      "field",
	KindIndex:      "index",
	KindNull:       "null",
	KindUndefined:  "undefined",
	KindMatch:      "match",
	KindAnd:        "and",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && k != int(KindNone) {
			return Kind(k), true
		}
	}
	return KindNone, false
}

// Decoder is an immutable description of how to turn an untrusted input
// into a value. The set of implementations is closed; build decoders with
// the constructors in this package.
type Decoder interface {
	Kind() Kind
	String() string
	decoder()
}

// Primitive checks the input type: string, boolean, integer or float.
type Primitive Kind

func (p Primitive) Kind() Kind     { return Kind(p) }
func (p Primitive) String() string { return Kind(p).String() + "()" }
func (Primitive) decoder()         {}

// FieldDecoder decodes a named property of an object.
type FieldDecoder struct {
	Name    string
	Decoder Decoder
}

// AccessorDecoder calls a named zero-argument method and decodes the result.
type AccessorDecoder struct {
	Name    string
	Decoder Decoder
}

// IndexDecoder decodes one element of an array.
type IndexDecoder struct {
	Index   int
	Decoder Decoder
}

// ArrayDecoder decodes every element of an array.
type ArrayDecoder struct {
	Element Decoder
}

// DictionaryDecoder decodes every property value of an object.
type DictionaryDecoder struct {
	Value Decoder
}

// Member is one named entry of a record or form.
type Member struct {
	Name    string
	Decoder Decoder
}

// Fields maps member names to decoders for Record and Form.
type Fields map[string]Decoder

// RecordDecoder builds an object from named members. A record decodes
// input[name] for each member; a form (Whole set) runs every member against
// the whole input.
type RecordDecoder struct {
	Members []Member
	Whole   bool
}

// EitherDecoder tries alternatives left to right.
type EitherDecoder struct {
	Decoders []Decoder
}

// NullableDecoder tolerates a failure on null or undefined input. With
// NullOnMissing (optional) the result is nil; without it (maybe) the
// nullish input itself is returned.
type NullableDecoder struct {
	Decoder       Decoder
	NullOnMissing bool
}

// OkDecoder always succeeds with Value.
type OkDecoder struct {
	Value any
}

// ErrorDecoder always fails with Message.
type ErrorDecoder struct {
	Message string
}

// NullDecoder accepts only null and returns Value.
type NullDecoder struct {
	Value any
}

// UndefinedDecoder accepts only undefined and returns Value.
type UndefinedDecoder struct {
	Value any
}

// MatchDecoder accepts inputs that structurally contain Literal.
type MatchDecoder struct {
	Literal any
}

// AndDecoder requires both decoders to succeed and returns Right's value.
type AndDecoder struct {
	Left  Decoder
	Right Decoder
}

func (*FieldDecoder) Kind() Kind      { return KindField }
func (*AccessorDecoder) Kind() Kind   { return KindAccessor }
func (*IndexDecoder) Kind() Kind      { return KindIndex }
func (*ArrayDecoder) Kind() Kind      { return KindArray }
func (*DictionaryDecoder) Kind() Kind { return KindDictionary }
func (*EitherDecoder) Kind() Kind     { return KindEither }
func (*OkDecoder) Kind() Kind         { return KindOk }
func (*ErrorDecoder) Kind() Kind      { return KindError }
func (*NullDecoder) Kind() Kind       { return KindNull }
func (*UndefinedDecoder) Kind() Kind  { return KindUndefined }
func (*MatchDecoder) Kind() Kind      { return KindMatch }
func (*AndDecoder) Kind() Kind        { return KindAnd }

func (d *RecordDecoder) Kind() Kind {
	if d.Whole {
		return KindForm
	}
	return KindRecord
}

func (d *NullableDecoder) Kind() Kind {
	if d.NullOnMissing {
		return KindOptional
	}
	return KindMaybe
}

func (*FieldDecoder) decoder()      {}
func (*AccessorDecoder) decoder()   {}
func (*IndexDecoder) decoder()      {}
func (*ArrayDecoder) decoder()      {}
func (*DictionaryDecoder) decoder() {}
func (*RecordDecoder) decoder()     {}
func (*EitherDecoder) decoder()     {}
func (*NullableDecoder) decoder()   {}
func (*OkDecoder) decoder()         {}
func (*ErrorDecoder) decoder()      {}
func (*NullDecoder) decoder()       {}
func (*UndefinedDecoder) decoder()  {}
func (*MatchDecoder) decoder()      {}
func (*AndDecoder) decoder()        {}

func (d *FieldDecoder) String() string      { return Describe(d) }
func (d *AccessorDecoder) String() string   { return Describe(d) }
func (d *IndexDecoder) String() string      { return Describe(d) }
func (d *ArrayDecoder) String() string      { return Describe(d) }
func (d *DictionaryDecoder) String() string { return Describe(d) }
func (d *RecordDecoder) String() string     { return Describe(d) }
func (d *EitherDecoder) String() string     { return Describe(d) }
func (d *NullableDecoder) String() string   { return Describe(d) }
func (d *OkDecoder) String() string         { return Describe(d) }
func (d *ErrorDecoder) String() string      { return Describe(d) }
func (d *NullDecoder) String() string       { return Describe(d) }
func (d *UndefinedDecoder) String() string  { return Describe(d) }
func (d *MatchDecoder) String() string      { return Describe(d) }
func (d *AndDecoder) String() string        { return Describe(d) }

// String accepts strings.
func String() Primitive { return Primitive(KindString) }

// Integer accepts integer-valued numbers and yields int64.
func Integer() Primitive { return Primitive(KindInteger) }

// Float accepts finite numbers and yields float64.
func Float() Primitive { return Primitive(KindFloat) }

// Boolean accepts booleans.
func Boolean() Primitive { return Primitive(KindBoolean) }

// Field decodes input[name] with d.
func Field(name string, d Decoder) *FieldDecoder {
	return &FieldDecoder{Name: name, Decoder: d}
}

// Accessor decodes the result of calling input[name]() with d.
func Accessor(name string, d Decoder) *AccessorDecoder {
	return &AccessorDecoder{Name: name, Decoder: d}
}

// Index decodes input[i] with d.
func Index(i int, d Decoder) *IndexDecoder {
	return &IndexDecoder{Index: i, Decoder: d}
}

// Array decodes every element with d.
func Array(d Decoder) *ArrayDecoder {
	return &ArrayDecoder{Element: d}
}

// Dictionary decodes every property value with d.
func Dictionary(d Decoder) *DictionaryDecoder {
	return &DictionaryDecoder{Value: d}
}

// Record decodes each named field of the input. Members run in name order.
func Record(fields Fields) *RecordDecoder {
	return &RecordDecoder{Members: members(fields)}
}

// Form runs each named decoder against the whole input. Members run in
// name order.
func Form(fields Fields) *RecordDecoder {
	return &RecordDecoder{Members: members(fields), Whole: true}
}

func members(fields Fields) []Member {
	out := make([]Member, 0, len(fields))
	for name, d := range fields {
		out = append(out, Member{Name: name, Decoder: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Either returns the first successful alternative.
func Either(ds ...Decoder) *EitherDecoder {
	return &EitherDecoder{Decoders: ds}
}

// Optional yields nil when d fails on a null or undefined input.
func Optional(d Decoder) *NullableDecoder {
	return &NullableDecoder{Decoder: d, NullOnMissing: true}
}

// Maybe yields the nullish input itself when d fails on it.
func Maybe(d Decoder) *NullableDecoder {
	return &NullableDecoder{Decoder: d}
}

// Ok ignores the input and yields v.
func Ok(v any) *OkDecoder { return &OkDecoder{Value: v} }

// Error always fails with msg.
func Error(msg string) *ErrorDecoder { return &ErrorDecoder{Message: msg} }

// Null accepts null and yields v.
func Null(v any) *NullDecoder { return &NullDecoder{Value: v} }

// Undefined accepts undefined and yields v.
func Undefined(v any) *UndefinedDecoder { return &UndefinedDecoder{Value: v} }

// Match accepts inputs that structurally contain literal and yields literal.
func Match(literal any) *MatchDecoder { return &MatchDecoder{Literal: literal} }

// And decodes with left, then with right, and yields right's value.
func And(left, right Decoder) *AndDecoder {
	return &AndDecoder{Left: left, Right: right}
}

// Describe renders d in constructor notation, e.g.
// field("detail", either(integer(), null(null))).
func Describe(d Decoder) string {
	var b strings.Builder
	writeDecoder(&b, d)
	return b.String()
}

func writeDecoder(b *strings.Builder, d Decoder) {
	switch d := d.(type) {
	case nil:
		b.WriteString("<nil>")
	case Primitive:
		b.WriteString(d.String())
	case *FieldDecoder:
		fmt.Fprintf(b, "field(%q, ", d.Name)
		writeDecoder(b, d.Decoder)
		b.WriteByte(')')
	case *AccessorDecoder:
		fmt.Fprintf(b, "accessor(%q, ", d.Name)
		writeDecoder(b, d.Decoder)
		b.WriteByte(')')
	case *IndexDecoder:
		fmt.Fprintf(b, "index(%d, ", d.Index)
		writeDecoder(b, d.Decoder)
		b.WriteByte(')')
	case *ArrayDecoder:
		b.WriteString("array(")
		writeDecoder(b, d.Element)
		b.WriteByte(')')
	case *DictionaryDecoder:
		b.WriteString("dictionary(")
		writeDecoder(b, d.Value)
		b.WriteByte(')')
	case *RecordDecoder:
		b.WriteString(d.Kind().String())
		b.WriteString("({")
		for i, m := range d.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%q: ", m.Name)
			writeDecoder(b, m.Decoder)
		}
		b.WriteString("})")
	case *EitherDecoder:
		b.WriteString("either(")
		for i, alt := range d.Decoders {
			if i > 0 {
				b.WriteString(", ")
			}
			writeDecoder(b, alt)
		}
		b.WriteByte(')')
	case *NullableDecoder:
		b.WriteString(d.Kind().String())
		b.WriteByte('(')
		writeDecoder(b, d.Decoder)
		b.WriteByte(')')
	case *OkDecoder:
		fmt.Fprintf(b, "ok(%s)", render(d.Value))
	case *ErrorDecoder:
		fmt.Fprintf(b, "error(%q)", d.Message)
	case *NullDecoder:
		fmt.Fprintf(b, "null(%s)", render(d.Value))
	case *UndefinedDecoder:
		fmt.Fprintf(b, "undefined(%s)", render(d.Value))
	case *MatchDecoder:
		fmt.Fprintf(b, "match(%s)", render(d.Literal))
	case *AndDecoder:
		b.WriteString("and(")
		writeDecoder(b, d.Left)
		b.WriteString(", ")
		writeDecoder(b, d.Right)
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "%s(?)", d.Kind())
	}
}
