package schema

import (
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/treepatch/decoder"
	"github.com/wippyai/treepatch/errors"
	"github.com/wippyai/treepatch/flatbuf"
)

// FileIdentifier marks buffers written by EncodeWithIdentifier.
const FileIdentifier = "TPLG"

// Field slots of the wire tables. Tables not listed carry no fields.
const (
	changeLogChanges = 0

	changeOpType = 0
	changeOp     = 1

	// insert*/replace*/setTextData (data)
	textData = 0

	// insert/replaceWithElement
	elementNamespaceURI = 0
	elementLocalName    = 1

	// single uint32 payloads: address, offset, count
	scalarValue = 0

	editStart  = 0
	editEnd    = 1
	editPrefix = 2
	editSuffix = 3

	attributeNamespaceURI = 0
	attributeName         = 1
	attributeValue        = 2

	// properties and style rules
	namedName  = 0
	namedValue = 1

	listenerType    = 0
	listenerDecoder = 1
	listenerCapture = 2

	decoderNodeType = 0
	decoderNodeBody = 1

	// field, accessor
	projectionName    = 0
	projectionDecoder = 1

	indexIndex   = 0
	indexDecoder = 1

	// array, dictionary, maybe, optional
	wrapperDecoder = 0

	eitherDecoders = 0
	recordFields   = 0

	recordFieldName    = 0
	recordFieldDecoder = 1

	errorMessage = 0

	// ok, null, undefined, match: JSON text, absent means undefined
	literalValue = 0

	andLeft  = 0
	andRight = 1
)

// Encoder writes change logs. It reuses one builder between calls and must
// not be shared between goroutines.
type Encoder struct {
	b *flatbuf.Builder
}

// NewEncoder returns an Encoder with a small initial buffer.
func NewEncoder() *Encoder {
	return &Encoder{b: flatbuf.NewBuilder(1024)}
}

// Reset discards any partially built state.
func (e *Encoder) Reset() {
	e.b.Reset()
}

// Encode writes ops as a change log. The returned slice is a copy owned by
// the caller.
func (e *Encoder) Encode(ops []Op) ([]byte, error) {
	return e.encode(ops, "")
}

// EncodeWithIdentifier writes ops followed by a 4-byte file identifier.
func (e *Encoder) EncodeWithIdentifier(ops []Op, id string) ([]byte, error) {
	if len(id) != flatbuf.FileIdentifierLength {
		return nil, errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("file identifier %q must be exactly 4 bytes", id))
	}
	return e.encode(ops, id)
}

func (e *Encoder) encode(ops []Op, id string) (out []byte, err error) {
	e.b.Reset()
	defer func() {
		// Builder misuse panics; surface it instead of crashing the caller.
		if r := recover(); r != nil {
			if be, ok := r.(*errors.Error); ok {
				err = be
				e.b.Reset()
				return
			}
			panic(r)
		}
	}()

	changes := make([]flatbuf.UOffsetT, len(ops))
	for i, op := range ops {
		c, err := e.change(op)
		if err != nil {
			return nil, at(err, changePath(i))
		}
		changes[i] = c
	}

	vec := e.b.CreateOffsetVector(changes)
	e.b.StartObject(1)
	e.b.AddOffsetSlot(changeLogChanges, vec)
	root := e.b.EndObject()

	if id != "" {
		e.b.FinishWithFileIdentifier(root, []byte(id))
	} else {
		e.b.Finish(root)
	}

	data := e.b.FinishedBytes()
	out = make([]byte, len(data))
	copy(out, data)

	Logger().Debug("encoded change log",
		zap.Int("changes", len(ops)),
		zap.Int("bytes", len(out)))
	return out, nil
}

// Encode writes ops as a change log with a fresh Encoder.
func Encode(ops []Op) ([]byte, error) {
	return NewEncoder().Encode(ops)
}

// EncodeWithIdentifier writes ops followed by id with a fresh Encoder.
func EncodeWithIdentifier(ops []Op, id string) ([]byte, error) {
	return NewEncoder().EncodeWithIdentifier(ops, id)
}

func (e *Encoder) change(op Op) (flatbuf.UOffsetT, error) {
	if op == nil {
		return 0, errors.InvalidInput(errors.PhaseEncode, "nil operation")
	}
	body, err := e.op(op)
	if err != nil {
		return 0, err
	}
	b := e.b
	b.StartObject(2)
	b.AddOffsetSlot(changeOp, body)
	b.AddUint8Slot(changeOpType, uint8(op.Kind()), 0)
	return b.EndObject(), nil
}

func (e *Encoder) op(op Op) (flatbuf.UOffsetT, error) {
	b := e.b
	switch o := op.(type) {
	case SelectChildren, SelectParent, RemoveNextSibling:
		b.StartObject(0)
		return b.EndObject(), nil

	case SelectSibling:
		return e.scalar(o.Offset), nil
	case InsertStashedNode:
		return e.scalar(o.Address), nil
	case ReplaceWithStashedNode:
		return e.scalar(o.Address), nil
	case StashNextSibling:
		return e.scalar(o.Address), nil
	case DiscardStashedNode:
		return e.scalar(o.Address), nil
	case ShiftSiblings:
		return e.scalar(o.Count), nil

	case InsertComment:
		return e.text(o.Data), nil
	case InsertText:
		return e.text(o.Data), nil
	case ReplaceWithComment:
		return e.text(o.Data), nil
	case ReplaceWithText:
		return e.text(o.Data), nil
	case SetTextData:
		return e.text(o.Data), nil

	case InsertElement:
		return e.element(o.NamespaceURI, o.LocalName), nil
	case ReplaceWithElement:
		return e.element(o.NamespaceURI, o.LocalName), nil

	case EditTextData:
		prefix := b.CreateString(o.Prefix)
		suffix := b.CreateString(o.Suffix)
		b.StartObject(4)
		b.AddOffsetSlot(editSuffix, suffix)
		b.AddOffsetSlot(editPrefix, prefix)
		b.ForceUint32Slot(editEnd, o.End)
		b.ForceUint32Slot(editStart, o.Start)
		return b.EndObject(), nil

	case SetAttribute:
		var ns flatbuf.UOffsetT
		if o.NamespaceURI != "" {
			ns = b.CreateString(o.NamespaceURI)
		}
		name := b.CreateString(o.Name)
		value := b.CreateString(o.Value)
		b.StartObject(3)
		b.AddOffsetSlot(attributeValue, value)
		b.AddOffsetSlot(attributeName, name)
		b.AddOffsetSlot(attributeNamespaceURI, ns)
		return b.EndObject(), nil

	case RemoveAttribute:
		var ns flatbuf.UOffsetT
		if o.NamespaceURI != "" {
			ns = b.CreateString(o.NamespaceURI)
		}
		name := b.CreateString(o.Name)
		b.StartObject(2)
		b.AddOffsetSlot(attributeName, name)
		b.AddOffsetSlot(attributeNamespaceURI, ns)
		return b.EndObject(), nil

	case AssignStringProperty:
		return e.namedString(o.Name, o.Value), nil
	case SetStyleRule:
		return e.namedString(o.Name, o.Value), nil

	case AssignBooleanProperty:
		name := b.CreateString(o.Name)
		b.StartObject(2)
		b.AddOffsetSlot(namedName, name)
		b.ForceBoolSlot(namedValue, o.Value)
		return b.EndObject(), nil

	case AssignNumberProperty:
		name := b.CreateString(o.Name)
		b.StartObject(2)
		b.ForceFloat64Slot(namedValue, o.Value)
		b.AddOffsetSlot(namedName, name)
		return b.EndObject(), nil

	case AssignNullProperty:
		return e.name(o.Name), nil
	case DeleteProperty:
		return e.name(o.Name), nil
	case RemoveStyleRule:
		return e.name(o.Name), nil

	case AddEventListener:
		return e.listener(o.Type, o.Decoder, o.Capture)
	case RemoveEventListener:
		return e.listener(o.Type, o.Decoder, o.Capture)
	}
	return 0, errors.New(errors.PhaseEncode, errors.KindUnknownOp).
		Op(op.Kind().String()).
		Detail("unsupported operation value %T", op).
		Build()
}

func (e *Encoder) scalar(v uint32) flatbuf.UOffsetT {
	e.b.StartObject(1)
	e.b.ForceUint32Slot(scalarValue, v)
	return e.b.EndObject()
}

func (e *Encoder) text(data string) flatbuf.UOffsetT {
	s := e.b.CreateString(data)
	e.b.StartObject(1)
	e.b.AddOffsetSlot(textData, s)
	return e.b.EndObject()
}

func (e *Encoder) name(name string) flatbuf.UOffsetT {
	s := e.b.CreateString(name)
	e.b.StartObject(1)
	e.b.AddOffsetSlot(namedName, s)
	return e.b.EndObject()
}

func (e *Encoder) namedString(name, value string) flatbuf.UOffsetT {
	n := e.b.CreateString(name)
	v := e.b.CreateString(value)
	e.b.StartObject(2)
	e.b.AddOffsetSlot(namedValue, v)
	e.b.AddOffsetSlot(namedName, n)
	return e.b.EndObject()
}

func (e *Encoder) element(ns, localName string) flatbuf.UOffsetT {
	var nsOff flatbuf.UOffsetT
	if ns != "" {
		nsOff = e.b.CreateString(ns)
	}
	name := e.b.CreateString(localName)
	e.b.StartObject(2)
	e.b.AddOffsetSlot(elementLocalName, name)
	e.b.AddOffsetSlot(elementNamespaceURI, nsOff)
	return e.b.EndObject()
}

func (e *Encoder) listener(typ string, d decoder.Decoder, capture bool) (flatbuf.UOffsetT, error) {
	if d == nil {
		return 0, errors.FieldMissing(errors.PhaseEncode, nil, "decoder")
	}
	node, err := e.decoder(d)
	if err != nil {
		return 0, at(err, "decoder")
	}
	t := e.b.CreateString(typ)
	e.b.StartObject(3)
	e.b.AddOffsetSlot(listenerDecoder, node)
	e.b.AddOffsetSlot(listenerType, t)
	e.b.ForceBoolSlot(listenerCapture, capture)
	return e.b.EndObject(), nil
}

// decoder writes a DecoderNode: the variant tag plus its table.
func (e *Encoder) decoder(d decoder.Decoder) (flatbuf.UOffsetT, error) {
	if d == nil {
		return 0, errors.InvalidInput(errors.PhaseEncode, "nil decoder")
	}
	body, err := e.decoderBody(d)
	if err != nil {
		return 0, at(err, d.Kind().String())
	}
	e.b.StartObject(2)
	e.b.AddOffsetSlot(decoderNodeBody, body)
	e.b.AddUint8Slot(decoderNodeType, uint8(d.Kind()), 0)
	return e.b.EndObject(), nil
}

func (e *Encoder) decoderBody(d decoder.Decoder) (flatbuf.UOffsetT, error) {
	b := e.b
	switch d := d.(type) {
	case decoder.Primitive:
		b.StartObject(0)
		return b.EndObject(), nil

	case *decoder.FieldDecoder:
		return e.projection(d.Name, d.Decoder)
	case *decoder.AccessorDecoder:
		return e.projection(d.Name, d.Decoder)

	case *decoder.IndexDecoder:
		if d.Index < math.MinInt32 || d.Index > math.MaxInt32 {
			return 0, errors.Overflow(errors.PhaseEncode, fmt.Sprintf("index %d does not fit in 32 bits", d.Index))
		}
		inner, err := e.decoder(d.Decoder)
		if err != nil {
			return 0, err
		}
		b.StartObject(2)
		b.AddOffsetSlot(indexDecoder, inner)
		b.ForceInt32Slot(indexIndex, int32(d.Index))
		return b.EndObject(), nil

	case *decoder.ArrayDecoder:
		return e.wrapper(d.Element)
	case *decoder.DictionaryDecoder:
		return e.wrapper(d.Value)
	case *decoder.NullableDecoder:
		return e.wrapper(d.Decoder)

	case *decoder.EitherDecoder:
		alts := make([]flatbuf.UOffsetT, len(d.Decoders))
		for i, alt := range d.Decoders {
			n, err := e.decoder(alt)
			if err != nil {
				return 0, at(err, fmt.Sprintf("[%d]", i))
			}
			alts[i] = n
		}
		vec := b.CreateOffsetVector(alts)
		b.StartObject(1)
		b.AddOffsetSlot(eitherDecoders, vec)
		return b.EndObject(), nil

	case *decoder.RecordDecoder:
		fields := make([]flatbuf.UOffsetT, len(d.Members))
		for i, m := range d.Members {
			inner, err := e.decoder(m.Decoder)
			if err != nil {
				return 0, at(err, m.Name)
			}
			name := b.CreateString(m.Name)
			b.StartObject(2)
			b.AddOffsetSlot(recordFieldDecoder, inner)
			b.AddOffsetSlot(recordFieldName, name)
			fields[i] = b.EndObject()
		}
		vec := b.CreateOffsetVector(fields)
		b.StartObject(1)
		b.AddOffsetSlot(recordFields, vec)
		return b.EndObject(), nil

	case *decoder.ErrorDecoder:
		msg := b.CreateString(d.Message)
		b.StartObject(1)
		b.AddOffsetSlot(errorMessage, msg)
		return b.EndObject(), nil

	case *decoder.OkDecoder:
		return e.literal(d.Value)
	case *decoder.NullDecoder:
		return e.literal(d.Value)
	case *decoder.UndefinedDecoder:
		return e.literal(d.Value)
	case *decoder.MatchDecoder:
		return e.literal(d.Literal)

	case *decoder.AndDecoder:
		left, err := e.decoder(d.Left)
		if err != nil {
			return 0, at(err, "left")
		}
		right, err := e.decoder(d.Right)
		if err != nil {
			return 0, at(err, "right")
		}
		b.StartObject(2)
		b.AddOffsetSlot(andRight, right)
		b.AddOffsetSlot(andLeft, left)
		return b.EndObject(), nil
	}
	return 0, errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("unsupported decoder %T", d))
}

func (e *Encoder) projection(name string, inner decoder.Decoder) (flatbuf.UOffsetT, error) {
	n, err := e.decoder(inner)
	if err != nil {
		return 0, err
	}
	s := e.b.CreateString(name)
	e.b.StartObject(2)
	e.b.AddOffsetSlot(projectionDecoder, n)
	e.b.AddOffsetSlot(projectionName, s)
	return e.b.EndObject(), nil
}

func (e *Encoder) wrapper(inner decoder.Decoder) (flatbuf.UOffsetT, error) {
	n, err := e.decoder(inner)
	if err != nil {
		return 0, err
	}
	e.b.StartObject(1)
	e.b.AddOffsetSlot(wrapperDecoder, n)
	return e.b.EndObject(), nil
}

func (e *Encoder) literal(v any) (flatbuf.UOffsetT, error) {
	var off flatbuf.UOffsetT
	if v != decoder.Undef {
		text, err := marshalLiteral(v)
		if err != nil {
			return 0, err
		}
		off = e.b.CreateByteString(text)
	}
	e.b.StartObject(1)
	e.b.AddOffsetSlot(literalValue, off)
	return e.b.EndObject(), nil
}

// marshalLiteral renders a literal as JSON. Undefined is only representable
// at the top level, where it is encoded as an absent field.
func marshalLiteral(v any) ([]byte, error) {
	if containsUndefined(v) {
		return nil, errors.InvalidInput(errors.PhaseEncode, "undefined is not allowed inside a literal")
	}
	text, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "literal is not JSON encodable")
	}
	return text, nil
}

func containsUndefined(v any) bool {
	switch x := v.(type) {
	case decoder.UndefinedValue:
		return true
	case []any:
		for _, e := range x {
			if containsUndefined(e) {
				return true
			}
		}
	case map[string]any:
		for _, e := range x {
			if containsUndefined(e) {
				return true
			}
		}
	}
	return false
}
