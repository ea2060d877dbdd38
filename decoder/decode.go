package decoder

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/wippyai/treepatch/result"
)

// Decode runs d against input. On failure the error is one of the
// DecodeError types of this package.
func Decode(d Decoder, input any) (any, error) {
	switch d := d.(type) {
	case Primitive:
		return decodePrimitive(Kind(d), input)

	case *FieldDecoder:
		obj, ok := toObject(input)
		if !ok {
			return nil, fieldTypeError(d.Name, input)
		}
		v, present, err := obj.Get(d.Name)
		if err != nil {
			return nil, &FieldError{Name: d.Name, Err: &ThrownError{Err: err}}
		}
		if !present {
			return nil, fieldTypeError(d.Name, input)
		}
		out, err := Decode(d.Decoder, v)
		if err != nil {
			return nil, &FieldError{Name: d.Name, Err: err}
		}
		return out, nil

	case *AccessorDecoder:
		obj, ok := toObject(input)
		if !ok {
			return nil, &TypeError{Expected: fmt.Sprintf("object with a method named %q", d.Name), Article: "an", Actual: input}
		}
		v, present, err := obj.Get(d.Name)
		if err != nil {
			return nil, &FieldError{Name: d.Name, Err: &ThrownError{Err: err}}
		}
		if !present {
			return nil, &TypeError{Expected: fmt.Sprintf("object with a method named %q", d.Name), Article: "an", Actual: input}
		}
		ret, callable, err := call(v)
		if !callable {
			return nil, &FieldError{Name: d.Name, Err: &TypeError{Expected: "function", Article: "a", Actual: v}}
		}
		if err != nil {
			return nil, &AccessorError{Name: d.Name, Err: &ThrownError{Err: err}}
		}
		out, err := Decode(d.Decoder, ret)
		if err != nil {
			return nil, &AccessorError{Name: d.Name, Err: err}
		}
		return out, nil

	case *IndexDecoder:
		arr, ok := toArray(input)
		if !ok || d.Index < 0 || d.Index >= len(arr) {
			return nil, &TypeError{Expected: fmt.Sprintf("array with an element at index %d", d.Index), Article: "an", Actual: input}
		}
		out, err := Decode(d.Decoder, arr[d.Index])
		if err != nil {
			return nil, &IndexError{Index: d.Index, Err: err}
		}
		return out, nil

	case *ArrayDecoder:
		arr, ok := toArray(input)
		if !ok {
			return nil, &TypeError{Expected: "array", Article: "an", Actual: input}
		}
		out := make([]any, len(arr))
		for i, e := range arr {
			v, err := Decode(d.Element, e)
			if err != nil {
				return nil, &IndexError{Index: i, Err: err}
			}
			out[i] = v
		}
		return out, nil

	case *DictionaryDecoder:
		obj, ok := toObject(input)
		if !ok {
			return nil, &TypeError{Expected: "object", Article: "an", Actual: input}
		}
		keys := obj.Keys()
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			e, _, err := obj.Get(k)
			if err != nil {
				return nil, &FieldError{Name: k, Err: &ThrownError{Err: err}}
			}
			v, err := Decode(d.Value, e)
			if err != nil {
				return nil, &FieldError{Name: k, Err: err}
			}
			out[k] = v
		}
		return out, nil

	case *RecordDecoder:
		if d.Whole {
			return decodeForm(d, input)
		}
		return decodeRecord(d, input)

	case *EitherDecoder:
		var errs []error
		for _, alt := range d.Decoders {
			v, err := Decode(alt, input)
			if err == nil {
				return v, nil
			}
			errs = append(errs, err)
		}
		return nil, &EitherError{Errors: errs}

	case *NullableDecoder:
		v, err := Decode(d.Decoder, input)
		if err == nil {
			return v, nil
		}
		if !IsNullish(input) {
			return nil, err
		}
		if d.NullOnMissing {
			return nil, nil
		}
		return input, nil

	case *OkDecoder:
		return d.Value, nil

	case *ErrorDecoder:
		return nil, &ThrownError{Err: errors.New(d.Message)}

	case *NullDecoder:
		if input != nil {
			return nil, &TypeError{Expected: "null", Actual: input}
		}
		return d.Value, nil

	case *UndefinedDecoder:
		if input != Undef {
			return nil, &TypeError{Expected: "undefined", Actual: input}
		}
		return d.Value, nil

	case *MatchDecoder:
		if !matches(d.Literal, input) {
			return nil, &MismatchError{Actual: input, Expected: d.Literal}
		}
		return d.Literal, nil

	case *AndDecoder:
		if _, err := Decode(d.Left, input); err != nil {
			return nil, err
		}
		return Decode(d.Right, input)
	}

	return nil, &ThrownError{Err: fmt.Errorf("unsupported decoder %T", d)}
}

// DecodeResult is Decode in Result form.
func DecodeResult(d Decoder, input any) result.Result[any] {
	v, err := Decode(d, input)
	return result.Of(v, err)
}

func fieldTypeError(name string, input any) error {
	return &TypeError{Expected: fmt.Sprintf("object with a field named %q", name), Article: "an", Actual: input}
}

func decodePrimitive(k Kind, input any) (any, error) {
	switch k {
	case KindString:
		if s, ok := input.(string); ok {
			return s, nil
		}
		return nil, &TypeError{Expected: "string", Article: "a", Actual: input}
	case KindBoolean:
		if b, ok := input.(bool); ok {
			return b, nil
		}
		return nil, &TypeError{Expected: "boolean", Article: "a", Actual: input}
	case KindInteger:
		if i, ok := toInteger(input); ok {
			return i, nil
		}
		return nil, &TypeError{Expected: "integer", Article: "an", Actual: input}
	case KindFloat:
		if f, ok := toNumber(input); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, nil
		}
		return nil, &TypeError{Expected: "float", Article: "a", Actual: input}
	}
	return nil, &ThrownError{Err: fmt.Errorf("unsupported primitive %s", k)}
}

func decodeRecord(d *RecordDecoder, input any) (any, error) {
	obj, ok := toObject(input)
	if !ok {
		return nil, &TypeError{Expected: "object", Article: "an", Actual: input}
	}
	out := make(map[string]any, len(d.Members))
	for _, m := range d.Members {
		e, present, err := obj.Get(m.Name)
		if err != nil {
			return nil, &FieldError{Name: m.Name, Err: &ThrownError{Err: err}}
		}
		if !present {
			e = Undef
		}
		v, err := Decode(m.Decoder, e)
		if err != nil {
			return nil, &FieldError{Name: m.Name, Err: err}
		}
		out[m.Name] = v
	}
	return out, nil
}

func decodeForm(d *RecordDecoder, input any) (any, error) {
	out := make(map[string]any, len(d.Members))
	for _, m := range d.Members {
		v, err := Decode(m.Decoder, input)
		if err != nil {
			return nil, err
		}
		out[m.Name] = v
	}
	return out, nil
}

// matches reports whether actual structurally contains expected: every key
// of an expected object and every index of an expected array must match,
// scalars compare by value with numbers compared numerically.
func matches(expected, actual any) bool {
	switch e := expected.(type) {
	case nil:
		return actual == nil
	case UndefinedValue:
		return actual == Undef
	case bool:
		a, ok := actual.(bool)
		return ok && a == e
	case string:
		a, ok := actual.(string)
		return ok && a == e
	}
	if ef, ok := toNumber(expected); ok {
		af, ok := toNumber(actual)
		return ok && af == ef
	}
	if ea, ok := toArray(expected); ok {
		aa, ok := toArray(actual)
		if !ok || len(aa) < len(ea) {
			return false
		}
		for i := range ea {
			if !matches(ea[i], aa[i]) {
				return false
			}
		}
		return true
	}
	if eo, ok := toObject(expected); ok {
		ao, ok := toObject(actual)
		if !ok {
			return false
		}
		for _, k := range eo.Keys() {
			ev, _, _ := eo.Get(k)
			av, present, err := ao.Get(k)
			if err != nil {
				return false
			}
			if !present {
				av = Undef
			}
			if !matches(ev, av) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(expected, actual)
}

// Equal reports whether two decoders are structurally identical. Literal
// payloads compare in the JSON value model, so 1 and 1.0 are equal.
func Equal(a, b Decoder) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Primitive:
		return true
	case *FieldDecoder:
		y := b.(*FieldDecoder)
		return x.Name == y.Name && Equal(x.Decoder, y.Decoder)
	case *AccessorDecoder:
		y := b.(*AccessorDecoder)
		return x.Name == y.Name && Equal(x.Decoder, y.Decoder)
	case *IndexDecoder:
		y := b.(*IndexDecoder)
		return x.Index == y.Index && Equal(x.Decoder, y.Decoder)
	case *ArrayDecoder:
		return Equal(x.Element, b.(*ArrayDecoder).Element)
	case *DictionaryDecoder:
		return Equal(x.Value, b.(*DictionaryDecoder).Value)
	case *RecordDecoder:
		y := b.(*RecordDecoder)
		if len(x.Members) != len(y.Members) {
			return false
		}
		for i := range x.Members {
			if x.Members[i].Name != y.Members[i].Name || !Equal(x.Members[i].Decoder, y.Members[i].Decoder) {
				return false
			}
		}
		return true
	case *EitherDecoder:
		y := b.(*EitherDecoder)
		if len(x.Decoders) != len(y.Decoders) {
			return false
		}
		for i := range x.Decoders {
			if !Equal(x.Decoders[i], y.Decoders[i]) {
				return false
			}
		}
		return true
	case *NullableDecoder:
		return Equal(x.Decoder, b.(*NullableDecoder).Decoder)
	case *OkDecoder:
		return sameLiteral(x.Value, b.(*OkDecoder).Value)
	case *ErrorDecoder:
		return x.Message == b.(*ErrorDecoder).Message
	case *NullDecoder:
		return sameLiteral(x.Value, b.(*NullDecoder).Value)
	case *UndefinedDecoder:
		return sameLiteral(x.Value, b.(*UndefinedDecoder).Value)
	case *MatchDecoder:
		return sameLiteral(x.Literal, b.(*MatchDecoder).Literal)
	case *AndDecoder:
		y := b.(*AndDecoder)
		return Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	}
	return false
}

func sameLiteral(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}
