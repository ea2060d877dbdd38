package schema

import (
	"encoding/json"
	"fmt"

	"github.com/wippyai/treepatch/decoder"
	"github.com/wippyai/treepatch/errors"
)

// jsonOp is the text form of one operation. Only the fields the operation
// uses are set.
type jsonOp struct {
	Op           string       `json:"op"`
	NamespaceURI string       `json:"namespaceURI,omitempty"`
	LocalName    string       `json:"localName,omitempty"`
	Data         *string      `json:"data,omitempty"`
	Name         string       `json:"name,omitempty"`
	Value        any          `json:"value,omitempty"`
	Address      *uint32      `json:"address,omitempty"`
	Offset       *uint32      `json:"offset,omitempty"`
	Count        *uint32      `json:"count,omitempty"`
	Start        *uint32      `json:"start,omitempty"`
	End          *uint32      `json:"end,omitempty"`
	Prefix       *string      `json:"prefix,omitempty"`
	Suffix       *string      `json:"suffix,omitempty"`
	Type         string       `json:"type,omitempty"`
	Capture      bool         `json:"capture,omitempty"`
	Decoder      *jsonDecoder `json:"decoder,omitempty"`
}

// jsonDecoder is the text form of a decoder. An absent Value is undefined.
type jsonDecoder struct {
	Kind     string                  `json:"kind"`
	Name     string                  `json:"name,omitempty"`
	Index    int                     `json:"index,omitempty"`
	Message  string                  `json:"message,omitempty"`
	Value    json.RawMessage         `json:"value,omitempty"`
	Decoder  *jsonDecoder            `json:"decoder,omitempty"`
	Decoders []*jsonDecoder          `json:"decoders,omitempty"`
	Fields   map[string]*jsonDecoder `json:"fields,omitempty"`
	Left     *jsonDecoder            `json:"left,omitempty"`
	Right    *jsonDecoder            `json:"right,omitempty"`
}

// MarshalOps renders ops as an indented JSON array, one object per
// operation with an "op" member naming its kind.
func MarshalOps(ops []Op) ([]byte, error) {
	out := make([]jsonOp, len(ops))
	for i, op := range ops {
		j, err := toJSONOp(op)
		if err != nil {
			return nil, at(err, changePath(i))
		}
		out[i] = j
	}
	return json.MarshalIndent(out, "", "  ")
}

// UnmarshalOps parses the output of MarshalOps. The op name
// "assignProperty" is also accepted and picks the typed assignment from
// the JSON type of "value".
func UnmarshalOps(data []byte) ([]Op, error) {
	var in []jsonOp
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "change log is not a JSON array of operations")
	}
	ops := make([]Op, len(in))
	for i := range in {
		op, err := fromJSONOp(&in[i])
		if err != nil {
			return nil, at(err, changePath(i))
		}
		ops[i] = op
	}
	return ops, nil
}

func ptr[T any](v T) *T { return &v }

func toJSONOp(op Op) (jsonOp, error) {
	if op == nil {
		return jsonOp{}, errors.InvalidInput(errors.PhaseEncode, "nil operation")
	}
	j := jsonOp{Op: op.Kind().String()}
	switch o := op.(type) {
	case SelectChildren, SelectParent, RemoveNextSibling:
	case SelectSibling:
		j.Offset = ptr(o.Offset)
	case InsertComment:
		j.Data = ptr(o.Data)
	case InsertText:
		j.Data = ptr(o.Data)
	case ReplaceWithComment:
		j.Data = ptr(o.Data)
	case ReplaceWithText:
		j.Data = ptr(o.Data)
	case SetTextData:
		j.Data = ptr(o.Data)
	case InsertElement:
		j.NamespaceURI, j.LocalName = o.NamespaceURI, o.LocalName
	case ReplaceWithElement:
		j.NamespaceURI, j.LocalName = o.NamespaceURI, o.LocalName
	case InsertStashedNode:
		j.Address = ptr(o.Address)
	case ReplaceWithStashedNode:
		j.Address = ptr(o.Address)
	case StashNextSibling:
		j.Address = ptr(o.Address)
	case DiscardStashedNode:
		j.Address = ptr(o.Address)
	case ShiftSiblings:
		j.Count = ptr(o.Count)
	case EditTextData:
		j.Start, j.End = ptr(o.Start), ptr(o.End)
		j.Prefix, j.Suffix = ptr(o.Prefix), ptr(o.Suffix)
	case SetAttribute:
		j.NamespaceURI, j.Name, j.Value = o.NamespaceURI, o.Name, o.Value
	case RemoveAttribute:
		j.NamespaceURI, j.Name = o.NamespaceURI, o.Name
	case AssignStringProperty:
		j.Name, j.Value = o.Name, o.Value
	case AssignBooleanProperty:
		j.Name, j.Value = o.Name, o.Value
	case AssignNumberProperty:
		j.Name, j.Value = o.Name, o.Value
	case AssignNullProperty:
		j.Name = o.Name
	case DeleteProperty:
		j.Name = o.Name
	case SetStyleRule:
		j.Name, j.Value = o.Name, o.Value
	case RemoveStyleRule:
		j.Name = o.Name
	case AddEventListener:
		d, err := toJSONDecoder(o.Decoder)
		if err != nil {
			return jsonOp{}, at(err, "decoder")
		}
		j.Type, j.Decoder, j.Capture = o.Type, d, o.Capture
	case RemoveEventListener:
		d, err := toJSONDecoder(o.Decoder)
		if err != nil {
			return jsonOp{}, at(err, "decoder")
		}
		j.Type, j.Decoder, j.Capture = o.Type, d, o.Capture
	default:
		return jsonOp{}, errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("unsupported operation value %T", op))
	}
	return j, nil
}

func fromJSONOp(j *jsonOp) (Op, error) {
	if j.Op == "assignProperty" {
		return AssignProperty(j.Name, j.Value)
	}
	kind, ok := ParseOpKind(j.Op)
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindUnknownOp).
			Value(j.Op).
			Detail("unknown op %q", j.Op).
			Build()
	}

	data := func() (string, error) {
		if j.Data == nil {
			return "", errors.FieldMissing(errors.PhaseDecode, []string{kind.String()}, "data")
		}
		return *j.Data, nil
	}
	u32 := func(v *uint32, name string) (uint32, error) {
		if v == nil {
			return 0, errors.FieldMissing(errors.PhaseDecode, []string{kind.String()}, name)
		}
		return *v, nil
	}
	str := func(v *string, name string) (string, error) {
		if v == nil {
			return "", errors.FieldMissing(errors.PhaseDecode, []string{kind.String()}, name)
		}
		return *v, nil
	}

	switch kind {
	case OpSelectChildren:
		return SelectChildren{}, nil
	case OpSelectParent:
		return SelectParent{}, nil
	case OpRemoveNextSibling:
		return RemoveNextSibling{}, nil
	case OpSelectSibling:
		v, err := u32(j.Offset, "offset")
		return SelectSibling{Offset: v}, err
	case OpShiftSiblings:
		v, err := u32(j.Count, "count")
		return ShiftSiblings{Count: v}, err
	case OpInsertStashedNode:
		v, err := u32(j.Address, "address")
		return InsertStashedNode{Address: v}, err
	case OpReplaceWithStashedNode:
		v, err := u32(j.Address, "address")
		return ReplaceWithStashedNode{Address: v}, err
	case OpStashNextSibling:
		v, err := u32(j.Address, "address")
		return StashNextSibling{Address: v}, err
	case OpDiscardStashedNode:
		v, err := u32(j.Address, "address")
		return DiscardStashedNode{Address: v}, err
	case OpInsertComment:
		s, err := data()
		return InsertComment{Data: s}, err
	case OpInsertText:
		s, err := data()
		return InsertText{Data: s}, err
	case OpReplaceWithComment:
		s, err := data()
		return ReplaceWithComment{Data: s}, err
	case OpReplaceWithText:
		s, err := data()
		return ReplaceWithText{Data: s}, err
	case OpSetTextData:
		s, err := data()
		return SetTextData{Data: s}, err
	case OpInsertElement:
		return InsertElement{NamespaceURI: j.NamespaceURI, LocalName: j.LocalName}, nil
	case OpReplaceWithElement:
		return ReplaceWithElement{NamespaceURI: j.NamespaceURI, LocalName: j.LocalName}, nil
	case OpEditTextData:
		var op EditTextData
		var err error
		if op.Start, err = u32(j.Start, "start"); err != nil {
			return nil, err
		}
		if op.End, err = u32(j.End, "end"); err != nil {
			return nil, err
		}
		if op.Prefix, err = str(j.Prefix, "prefix"); err != nil {
			return nil, err
		}
		if op.Suffix, err = str(j.Suffix, "suffix"); err != nil {
			return nil, err
		}
		return op, nil
	case OpSetAttribute:
		v, err := stringValue(kind, j.Value)
		return SetAttribute{NamespaceURI: j.NamespaceURI, Name: j.Name, Value: v}, err
	case OpRemoveAttribute:
		return RemoveAttribute{NamespaceURI: j.NamespaceURI, Name: j.Name}, nil
	case OpAssignStringProperty:
		v, err := stringValue(kind, j.Value)
		return AssignStringProperty{Name: j.Name, Value: v}, err
	case OpAssignBooleanProperty:
		v, ok := j.Value.(bool)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseDecode, []string{kind.String(), "value"}, "boolean", fmt.Sprintf("%T", j.Value))
		}
		return AssignBooleanProperty{Name: j.Name, Value: v}, nil
	case OpAssignNumberProperty:
		v, ok := j.Value.(float64)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseDecode, []string{kind.String(), "value"}, "number", fmt.Sprintf("%T", j.Value))
		}
		return AssignNumberProperty{Name: j.Name, Value: v}, nil
	case OpAssignNullProperty:
		return AssignNullProperty{Name: j.Name}, nil
	case OpDeleteProperty:
		return DeleteProperty{Name: j.Name}, nil
	case OpSetStyleRule:
		v, err := stringValue(kind, j.Value)
		return SetStyleRule{Name: j.Name, Value: v}, err
	case OpRemoveStyleRule:
		return RemoveStyleRule{Name: j.Name}, nil
	case OpAddEventListener, OpRemoveEventListener:
		if j.Decoder == nil {
			return nil, errors.FieldMissing(errors.PhaseDecode, []string{kind.String()}, "decoder")
		}
		d, err := fromJSONDecoder(j.Decoder)
		if err != nil {
			return nil, at(err, kind.String(), "decoder")
		}
		if kind == OpAddEventListener {
			return AddEventListener{Type: j.Type, Decoder: d, Capture: j.Capture}, nil
		}
		return RemoveEventListener{Type: j.Type, Decoder: d, Capture: j.Capture}, nil
	}
	return nil, errors.UnknownOpType(nil, uint8(kind))
}

func stringValue(kind OpKind, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.TypeMismatch(errors.PhaseDecode, []string{kind.String(), "value"}, "string", fmt.Sprintf("%T", v))
	}
	return s, nil
}

func toJSONDecoder(d decoder.Decoder) (*jsonDecoder, error) {
	if d == nil {
		return nil, errors.InvalidInput(errors.PhaseEncode, "nil decoder")
	}
	j := &jsonDecoder{Kind: d.Kind().String()}
	var err error
	switch d := d.(type) {
	case decoder.Primitive:
	case *decoder.FieldDecoder:
		j.Name = d.Name
		j.Decoder, err = toJSONDecoder(d.Decoder)
	case *decoder.AccessorDecoder:
		j.Name = d.Name
		j.Decoder, err = toJSONDecoder(d.Decoder)
	case *decoder.IndexDecoder:
		j.Index = d.Index
		j.Decoder, err = toJSONDecoder(d.Decoder)
	case *decoder.ArrayDecoder:
		j.Decoder, err = toJSONDecoder(d.Element)
	case *decoder.DictionaryDecoder:
		j.Decoder, err = toJSONDecoder(d.Value)
	case *decoder.NullableDecoder:
		j.Decoder, err = toJSONDecoder(d.Decoder)
	case *decoder.EitherDecoder:
		j.Decoders = make([]*jsonDecoder, len(d.Decoders))
		for i, alt := range d.Decoders {
			if j.Decoders[i], err = toJSONDecoder(alt); err != nil {
				return nil, err
			}
		}
	case *decoder.RecordDecoder:
		j.Fields = make(map[string]*jsonDecoder, len(d.Members))
		for _, m := range d.Members {
			if j.Fields[m.Name], err = toJSONDecoder(m.Decoder); err != nil {
				return nil, at(err, m.Name)
			}
		}
	case *decoder.ErrorDecoder:
		j.Message = d.Message
	case *decoder.OkDecoder:
		j.Value, err = literalText(d.Value)
	case *decoder.NullDecoder:
		j.Value, err = literalText(d.Value)
	case *decoder.UndefinedDecoder:
		j.Value, err = literalText(d.Value)
	case *decoder.MatchDecoder:
		j.Value, err = literalText(d.Literal)
	case *decoder.AndDecoder:
		if j.Left, err = toJSONDecoder(d.Left); err != nil {
			return nil, err
		}
		j.Right, err = toJSONDecoder(d.Right)
	default:
		return nil, errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("unsupported decoder %T", d))
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func literalText(v any) (json.RawMessage, error) {
	if v == decoder.Undef {
		return nil, nil
	}
	return marshalLiteral(v)
}

func fromJSONDecoder(j *jsonDecoder) (decoder.Decoder, error) {
	if j == nil {
		return nil, errors.FieldMissing(errors.PhaseDecode, nil, "decoder")
	}
	kind, ok := decoder.ParseKind(j.Kind)
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindUnknownOp).
			Value(j.Kind).
			Detail("unknown decoder kind %q", j.Kind).
			Build()
	}

	inner := func() (decoder.Decoder, error) { return fromJSONDecoder(j.Decoder) }

	switch kind {
	case decoder.KindString:
		return decoder.String(), nil
	case decoder.KindInteger:
		return decoder.Integer(), nil
	case decoder.KindFloat:
		return decoder.Float(), nil
	case decoder.KindBoolean:
		return decoder.Boolean(), nil
	case decoder.KindField:
		d, err := inner()
		return decoder.Field(j.Name, d), err
	case decoder.KindAccessor:
		d, err := inner()
		return decoder.Accessor(j.Name, d), err
	case decoder.KindIndex:
		d, err := inner()
		return decoder.Index(j.Index, d), err
	case decoder.KindArray:
		d, err := inner()
		return decoder.Array(d), err
	case decoder.KindDictionary:
		d, err := inner()
		return decoder.Dictionary(d), err
	case decoder.KindMaybe:
		d, err := inner()
		return decoder.Maybe(d), err
	case decoder.KindOptional:
		d, err := inner()
		return decoder.Optional(d), err
	case decoder.KindEither:
		alts := make([]decoder.Decoder, len(j.Decoders))
		for i, alt := range j.Decoders {
			d, err := fromJSONDecoder(alt)
			if err != nil {
				return nil, at(err, fmt.Sprintf("[%d]", i))
			}
			alts[i] = d
		}
		return decoder.Either(alts...), nil
	case decoder.KindRecord, decoder.KindForm:
		fields := make(decoder.Fields, len(j.Fields))
		for name, f := range j.Fields {
			d, err := fromJSONDecoder(f)
			if err != nil {
				return nil, at(err, name)
			}
			fields[name] = d
		}
		if kind == decoder.KindForm {
			return decoder.Form(fields), nil
		}
		return decoder.Record(fields), nil
	case decoder.KindError:
		return decoder.Error(j.Message), nil
	case decoder.KindOk, decoder.KindNull, decoder.KindUndefined, decoder.KindMatch:
		v, err := literalValueOf(j.Value)
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
		left, err := fromJSONDecoder(j.Left)
		if err != nil {
			return nil, at(err, "left")
		}
		right, err := fromJSONDecoder(j.Right)
		if err != nil {
			return nil, at(err, "right")
		}
		return decoder.And(left, right), nil
	}
	return nil, errors.InvalidInput(errors.PhaseDecode, "unsupported decoder kind "+j.Kind)
}

func literalValueOf(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return decoder.Undef, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "literal is not valid JSON")
	}
	return v, nil
}
