package schema

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/treepatch/decoder"
	"github.com/wippyai/treepatch/errors"
	"github.com/wippyai/treepatch/flatbuf"
)

// Limits bounds the resources a Reader spends on one buffer. A zero field
// means no limit.
type Limits struct {
	MaxBytes        int
	MaxChanges      int
	MaxDecoderDepth int
	// MaxDecoderNodes caps the decoder nodes read across the whole log.
	// Shared subtables count once per reference.
	MaxDecoderNodes int
}

// DefaultLimits returns limits suitable for logs received from an
// untrusted producer.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:        16 * 1024 * 1024,
		MaxChanges:      1 << 20,
		MaxDecoderDepth: 64,
		MaxDecoderNodes: 1 << 16,
	}
}

// Reader decodes change logs. It holds no per-call state and may be shared.
type Reader struct {
	Limits Limits
}

// NewReader returns a Reader enforcing limits.
func NewReader(limits Limits) *Reader {
	return &Reader{Limits: limits}
}

// Decode reads a change log with DefaultLimits.
func Decode(buf []byte) ([]Op, error) {
	return NewReader(DefaultLimits()).Decode(buf)
}

// HasIdentifier reports whether buf carries FileIdentifier.
func HasIdentifier(buf []byte) bool {
	return flatbuf.HasIdentifier(flatbuf.Wrap(buf), FileIdentifier)
}

// session carries the state of a single Decode call.
type session struct {
	*Reader
	nodes int
}

type decodeFunc func(r *session, t flatbuf.Table) (Op, error)

// registry maps every operation tag to its payload decoder.
var registry = map[OpKind]decodeFunc{
	OpSelectChildren:    func(*session, flatbuf.Table) (Op, error) { return SelectChildren{}, nil },
	OpSelectParent:      func(*session, flatbuf.Table) (Op, error) { return SelectParent{}, nil },
	OpRemoveNextSibling: func(*session, flatbuf.Table) (Op, error) { return RemoveNextSibling{}, nil },

	OpSelectSibling: func(_ *session, t flatbuf.Table) (Op, error) {
		v, err := requiredUint32(t, scalarValue, "offset")
		return SelectSibling{Offset: v}, err
	},
	OpInsertStashedNode: func(_ *session, t flatbuf.Table) (Op, error) {
		v, err := requiredUint32(t, scalarValue, "address")
		return InsertStashedNode{Address: v}, err
	},
	OpReplaceWithStashedNode: func(_ *session, t flatbuf.Table) (Op, error) {
		v, err := requiredUint32(t, scalarValue, "address")
		return ReplaceWithStashedNode{Address: v}, err
	},
	OpStashNextSibling: func(_ *session, t flatbuf.Table) (Op, error) {
		v, err := requiredUint32(t, scalarValue, "address")
		return StashNextSibling{Address: v}, err
	},
	OpDiscardStashedNode: func(_ *session, t flatbuf.Table) (Op, error) {
		v, err := requiredUint32(t, scalarValue, "address")
		return DiscardStashedNode{Address: v}, err
	},
	OpShiftSiblings: func(_ *session, t flatbuf.Table) (Op, error) {
		v, err := requiredUint32(t, scalarValue, "count")
		return ShiftSiblings{Count: v}, err
	},

	OpInsertComment: func(_ *session, t flatbuf.Table) (Op, error) {
		s, err := requiredString(t, textData, "data")
		return InsertComment{Data: s}, err
	},
	OpInsertText: func(_ *session, t flatbuf.Table) (Op, error) {
		s, err := requiredString(t, textData, "data")
		return InsertText{Data: s}, err
	},
	OpReplaceWithComment: func(_ *session, t flatbuf.Table) (Op, error) {
		s, err := requiredString(t, textData, "data")
		return ReplaceWithComment{Data: s}, err
	},
	OpReplaceWithText: func(_ *session, t flatbuf.Table) (Op, error) {
		s, err := requiredString(t, textData, "data")
		return ReplaceWithText{Data: s}, err
	},
	OpSetTextData: func(_ *session, t flatbuf.Table) (Op, error) {
		s, err := requiredString(t, textData, "data")
		return SetTextData{Data: s}, err
	},

	OpInsertElement: func(_ *session, t flatbuf.Table) (Op, error) {
		ns, name, err := readElement(t)
		return InsertElement{NamespaceURI: ns, LocalName: name}, err
	},
	OpReplaceWithElement: func(_ *session, t flatbuf.Table) (Op, error) {
		ns, name, err := readElement(t)
		return ReplaceWithElement{NamespaceURI: ns, LocalName: name}, err
	},

	OpEditTextData: func(_ *session, t flatbuf.Table) (Op, error) {
		var op EditTextData
		var err error
		if op.Start, err = requiredUint32(t, editStart, "start"); err != nil {
			return nil, err
		}
		if op.End, err = requiredUint32(t, editEnd, "end"); err != nil {
			return nil, err
		}
		if op.Prefix, err = requiredString(t, editPrefix, "prefix"); err != nil {
			return nil, err
		}
		if op.Suffix, err = requiredString(t, editSuffix, "suffix"); err != nil {
			return nil, err
		}
		return op, nil
	},

	OpSetAttribute: func(_ *session, t flatbuf.Table) (Op, error) {
		var op SetAttribute
		var err error
		if op.NamespaceURI, err = optionalString(t, attributeNamespaceURI, "namespace_uri"); err != nil {
			return nil, err
		}
		if op.Name, err = requiredString(t, attributeName, "name"); err != nil {
			return nil, err
		}
		if op.Value, err = requiredString(t, attributeValue, "value"); err != nil {
			return nil, err
		}
		return op, nil
	},
	OpRemoveAttribute: func(_ *session, t flatbuf.Table) (Op, error) {
		var op RemoveAttribute
		var err error
		if op.NamespaceURI, err = optionalString(t, attributeNamespaceURI, "namespace_uri"); err != nil {
			return nil, err
		}
		if op.Name, err = requiredString(t, attributeName, "name"); err != nil {
			return nil, err
		}
		return op, nil
	},

	OpAssignStringProperty: func(_ *session, t flatbuf.Table) (Op, error) {
		name, value, err := readNamedString(t)
		return AssignStringProperty{Name: name, Value: value}, err
	},
	OpSetStyleRule: func(_ *session, t flatbuf.Table) (Op, error) {
		name, value, err := readNamedString(t)
		return SetStyleRule{Name: name, Value: value}, err
	},
	OpAssignBooleanProperty: func(_ *session, t flatbuf.Table) (Op, error) {
		name, err := requiredString(t, namedName, "name")
		if err != nil {
			return nil, err
		}
		v, ok, err := t.Bool(namedValue, false)
		if err != nil {
			return nil, at(err, "value")
		}
		if !ok {
			return nil, errors.FieldMissing(errors.PhaseDecode, nil, "value")
		}
		return AssignBooleanProperty{Name: name, Value: v}, nil
	},
	OpAssignNumberProperty: func(_ *session, t flatbuf.Table) (Op, error) {
		name, err := requiredString(t, namedName, "name")
		if err != nil {
			return nil, err
		}
		v, ok, err := t.Float64(namedValue, 0)
		if err != nil {
			return nil, at(err, "value")
		}
		if !ok {
			return nil, errors.FieldMissing(errors.PhaseDecode, nil, "value")
		}
		return AssignNumberProperty{Name: name, Value: v}, nil
	},
	OpAssignNullProperty: func(_ *session, t flatbuf.Table) (Op, error) {
		name, err := requiredString(t, namedName, "name")
		return AssignNullProperty{Name: name}, err
	},
	OpDeleteProperty: func(_ *session, t flatbuf.Table) (Op, error) {
		name, err := requiredString(t, namedName, "name")
		return DeleteProperty{Name: name}, err
	},
	OpRemoveStyleRule: func(_ *session, t flatbuf.Table) (Op, error) {
		name, err := requiredString(t, namedName, "name")
		return RemoveStyleRule{Name: name}, err
	},

	OpAddEventListener: func(r *session, t flatbuf.Table) (Op, error) {
		typ, d, capture, err := r.readListener(t)
		if err != nil {
			return nil, err
		}
		return AddEventListener{Type: typ, Decoder: d, Capture: capture}, nil
	},
	OpRemoveEventListener: func(r *session, t flatbuf.Table) (Op, error) {
		typ, d, capture, err := r.readListener(t)
		if err != nil {
			return nil, err
		}
		return RemoveEventListener{Type: typ, Decoder: d, Capture: capture}, nil
	},
}

// Decode reads every change of a change log in order. The first malformed
// change fails the whole log; the error's path names the change index.
func (r *Reader) Decode(buf []byte) ([]Op, error) {
	if r.Limits.MaxBytes > 0 && len(buf) > r.Limits.MaxBytes {
		return nil, errors.LimitExceeded(errors.PhaseDecode, "buffer size", len(buf), r.Limits.MaxBytes)
	}

	root, err := flatbuf.GetRootTable(buf)
	if err != nil {
		return nil, at(err, "changeLog")
	}
	vec, ok, err := root.Vector(changeLogChanges, flatbuf.SizeUOffsetT)
	if err != nil {
		return nil, at(err, "changeLog", "changes")
	}
	if !ok {
		return []Op{}, nil
	}
	if r.Limits.MaxChanges > 0 && vec.Len() > r.Limits.MaxChanges {
		return nil, errors.LimitExceeded(errors.PhaseDecode, "change count", vec.Len(), r.Limits.MaxChanges)
	}

	s := &session{Reader: r}
	ops := make([]Op, 0, vec.Len())
	for i := 0; i < vec.Len(); i++ {
		op, err := s.change(vec, i)
		if err != nil {
			return nil, at(err, changePath(i))
		}
		ops = append(ops, op)
	}

	Logger().Debug("decoded change log",
		zap.Int("changes", len(ops)),
		zap.Int("bytes", len(buf)))
	return ops, nil
}

func (r *session) change(vec flatbuf.Vector, i int) (Op, error) {
	ct, err := vec.Table(i)
	if err != nil {
		return nil, err
	}
	tag, _, err := ct.Uint8(changeOpType, 0)
	if err != nil {
		return nil, err
	}
	kind := OpKind(tag)
	fn, known := registry[kind]
	if !known {
		return nil, errors.UnknownOpType(nil, tag)
	}
	body, ok, err := ct.Table(changeOp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.OpMissing(nil, kind.String())
	}
	op, err := fn(r, body)
	if err != nil {
		return nil, at(err, kind.String())
	}
	return op, nil
}

func (r *session) readListener(t flatbuf.Table) (string, decoder.Decoder, bool, error) {
	typ, err := requiredString(t, listenerType, "type")
	if err != nil {
		return "", nil, false, err
	}
	node, ok, err := t.Table(listenerDecoder)
	if err != nil {
		return "", nil, false, at(err, "decoder")
	}
	if !ok {
		return "", nil, false, errors.FieldMissing(errors.PhaseDecode, nil, "decoder")
	}
	d, err := r.decoder(node, 1)
	if err != nil {
		return "", nil, false, at(err, "decoder")
	}
	capture, ok, err := t.Bool(listenerCapture, false)
	if err != nil {
		return "", nil, false, at(err, "capture")
	}
	if !ok {
		return "", nil, false, errors.FieldMissing(errors.PhaseDecode, nil, "capture")
	}
	return typ, d, capture, nil
}

// decoder reads a DecoderNode at the given nesting depth.
func (r *session) decoder(node flatbuf.Table, depth int) (decoder.Decoder, error) {
	if r.Limits.MaxDecoderDepth > 0 && depth > r.Limits.MaxDecoderDepth {
		return nil, errors.LimitExceeded(errors.PhaseDecode, "decoder depth", depth, r.Limits.MaxDecoderDepth)
	}
	r.nodes++
	if r.Limits.MaxDecoderNodes > 0 && r.nodes > r.Limits.MaxDecoderNodes {
		return nil, errors.LimitExceeded(errors.PhaseDecode, "decoder nodes", r.nodes, r.Limits.MaxDecoderNodes)
	}
	tag, _, err := node.Uint8(decoderNodeType, 0)
	if err != nil {
		return nil, err
	}
	kind := decoder.Kind(tag)
	if kind == decoder.KindNone || kind > decoder.KindMax {
		return nil, errors.New(errors.PhaseDecode, errors.KindUnknownOp).
			Value(tag).
			Detail("unknown decoder type %d", tag).
			Build()
	}
	body, ok, err := node.Table(decoderNodeBody)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindOpMissing).
			Op(kind.String()).
			Detail("decoder table is absent").
			Build()
	}
	d, err := r.decoderBody(kind, body, depth)
	if err != nil {
		return nil, at(err, kind.String())
	}
	return d, nil
}

func (r *session) decoderBody(kind decoder.Kind, t flatbuf.Table, depth int) (decoder.Decoder, error) {
	switch kind {
	case decoder.KindString:
		return decoder.String(), nil
	case decoder.KindInteger:
		return decoder.Integer(), nil
	case decoder.KindFloat:
		return decoder.Float(), nil
	case decoder.KindBoolean:
		return decoder.Boolean(), nil

	case decoder.KindField, decoder.KindAccessor:
		name, err := requiredString(t, projectionName, "name")
		if err != nil {
			return nil, err
		}
		inner, err := r.child(t, projectionDecoder, depth)
		if err != nil {
			return nil, err
		}
		if kind == decoder.KindField {
			return decoder.Field(name, inner), nil
		}
		return decoder.Accessor(name, inner), nil

	case decoder.KindIndex:
		i, ok, err := t.Int32(indexIndex, 0)
		if err != nil {
			return nil, at(err, "index")
		}
		if !ok {
			return nil, errors.FieldMissing(errors.PhaseDecode, nil, "index")
		}
		inner, err := r.child(t, indexDecoder, depth)
		if err != nil {
			return nil, err
		}
		return decoder.Index(int(i), inner), nil

	case decoder.KindArray, decoder.KindDictionary, decoder.KindMaybe, decoder.KindOptional:
		inner, err := r.child(t, wrapperDecoder, depth)
		if err != nil {
			return nil, err
		}
		switch kind {
		case decoder.KindArray:
			return decoder.Array(inner), nil
		case decoder.KindDictionary:
			return decoder.Dictionary(inner), nil
		case decoder.KindMaybe:
			return decoder.Maybe(inner), nil
		}
		return decoder.Optional(inner), nil

	case decoder.KindEither:
		vec, ok, err := t.Vector(eitherDecoders, flatbuf.SizeUOffsetT)
		if err != nil {
			return nil, at(err, "decoders")
		}
		if !ok {
			return nil, errors.FieldMissing(errors.PhaseDecode, nil, "decoders")
		}
		alts := make([]decoder.Decoder, vec.Len())
		for i := range alts {
			node, err := vec.Table(i)
			if err != nil {
				return nil, at(err, fmt.Sprintf("[%d]", i))
			}
			if alts[i], err = r.decoder(node, depth+1); err != nil {
				return nil, at(err, fmt.Sprintf("[%d]", i))
			}
		}
		return decoder.Either(alts...), nil

	case decoder.KindRecord, decoder.KindForm:
		vec, ok, err := t.Vector(recordFields, flatbuf.SizeUOffsetT)
		if err != nil {
			return nil, at(err, "fields")
		}
		if !ok {
			return nil, errors.FieldMissing(errors.PhaseDecode, nil, "fields")
		}
		members := make([]decoder.Member, vec.Len())
		for i := range members {
			ft, err := vec.Table(i)
			if err != nil {
				return nil, at(err, fmt.Sprintf("[%d]", i))
			}
			name, err := requiredString(ft, recordFieldName, "name")
			if err != nil {
				return nil, at(err, fmt.Sprintf("[%d]", i))
			}
			inner, err := r.child(ft, recordFieldDecoder, depth)
			if err != nil {
				return nil, at(err, name)
			}
			members[i] = decoder.Member{Name: name, Decoder: inner}
		}
		return &decoder.RecordDecoder{Members: members, Whole: kind == decoder.KindForm}, nil

	case decoder.KindError:
		msg, err := requiredString(t, errorMessage, "message")
		if err != nil {
			return nil, err
		}
		return decoder.Error(msg), nil

	case decoder.KindOk, decoder.KindNull, decoder.KindUndefined, decoder.KindMatch:
		v, err := readLiteral(t)
		if err != nil {
			return nil, err
		}
		switch kind {
		case decoder.KindOk:
			return decoder.Ok(v), nil
		case decoder.KindNull:
			return decoder.Null(v), nil
		case decoder.KindUndefined:
			return decoder.Undefined(v), nil
		}
		return decoder.Match(v), nil

	case decoder.KindAnd:
		left, err := r.child(t, andLeft, depth)
		if err != nil {
			return nil, at(err, "left")
		}
		right, err := r.child(t, andRight, depth)
		if err != nil {
			return nil, at(err, "right")
		}
		return decoder.And(left, right), nil
	}
	return nil, errors.New(errors.PhaseDecode, errors.KindUnknownOp).
		Detail("unknown decoder type %d", uint8(kind)).
		Build()
}

// child reads the required DecoderNode stored in field.
func (r *session) child(t flatbuf.Table, field, depth int) (decoder.Decoder, error) {
	node, ok, err := t.Table(field)
	if err != nil {
		return nil, at(err, "decoder")
	}
	if !ok {
		return nil, errors.FieldMissing(errors.PhaseDecode, nil, "decoder")
	}
	return r.decoder(node, depth+1)
}

func readLiteral(t flatbuf.Table) (any, error) {
	text, ok, err := t.Bytes(literalValue)
	if err != nil {
		return nil, at(err, "value")
	}
	if !ok {
		return decoder.Undef, nil
	}
	var v any
	if err := json.Unmarshal(text, &v); err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path("value").
			Cause(err).
			Detail("literal is not valid JSON").
			Build()
	}
	return v, nil
}

func readElement(t flatbuf.Table) (string, string, error) {
	ns, err := optionalString(t, elementNamespaceURI, "namespace_uri")
	if err != nil {
		return "", "", err
	}
	name, err := requiredString(t, elementLocalName, "local_name")
	if err != nil {
		return "", "", err
	}
	return ns, name, nil
}

func readNamedString(t flatbuf.Table) (string, string, error) {
	name, err := requiredString(t, namedName, "name")
	if err != nil {
		return "", "", err
	}
	value, err := requiredString(t, namedValue, "value")
	if err != nil {
		return "", "", err
	}
	return name, value, nil
}

func requiredString(t flatbuf.Table, field int, name string) (string, error) {
	s, ok, err := t.String(field)
	if err != nil {
		return "", at(err, name)
	}
	if !ok {
		return "", errors.FieldMissing(errors.PhaseDecode, nil, name)
	}
	return s, nil
}

func optionalString(t flatbuf.Table, field int, name string) (string, error) {
	s, _, err := t.String(field)
	if err != nil {
		return "", at(err, name)
	}
	return s, nil
}

func requiredUint32(t flatbuf.Table, field int, name string) (uint32, error) {
	v, ok, err := t.Uint32(field, 0)
	if err != nil {
		return 0, at(err, name)
	}
	if !ok {
		return 0, errors.FieldMissing(errors.PhaseDecode, nil, name)
	}
	return v, nil
}

func changePath(i int) string {
	return fmt.Sprintf("changes[%d]", i)
}

// at prefixes err's path. Errors that are not *errors.Error are wrapped.
func at(err error, path ...string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.WithPath(path...)
	}
	return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "").WithPath(path...)
}
