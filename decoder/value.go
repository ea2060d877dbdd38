package decoder

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// UndefinedValue is the type of Undef.
type UndefinedValue struct{}

func (UndefinedValue) String() string { return "undefined" }

// Undef stands for a value that is not there at all, as opposed to nil,
// which stands for an explicit null.
var Undef = UndefinedValue{}

// Object is a host value whose properties are read on demand. A read may
// fail; the failure is reported as a ThrownError.
type Object interface {
	// Get returns the named property and whether it exists.
	Get(name string) (any, bool, error)
	// Keys lists the object's own enumerable property names in order.
	Keys() []string
}

// IsNullish reports whether v is null or undefined.
func IsNullish(v any) bool {
	return v == nil || v == Undef
}

// TypeOf names the kind of an input value the way error messages show it.
func TypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case UndefinedValue:
		return "undefined"
	case bool:
		return "boolean"
	case string:
		return "string"
	case func() (any, error), func() any:
		return "function"
	case Object:
		return "object"
	}
	if _, ok := toNumber(v); ok {
		return "number"
	}
	if _, ok := toArray(v); ok {
		return "array"
	}
	if _, ok := toObject(v); ok {
		return "object"
	}
	return "unknown"
}

// toNumber widens every Go numeric kind to float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// toInteger returns v as an int64 if it is an integer-valued number.
func toInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := toNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// toArray returns the elements of any slice or array value.
func toArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case nil, string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// toObject adapts maps with string keys and Object values to Object.
// Arrays are not objects here.
func toObject(v any) (Object, bool) {
	switch o := v.(type) {
	case Object:
		return o, true
	case map[string]any:
		return mapObject(o), true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return mapObject(m), true
}

type mapObject map[string]any

func (m mapObject) Get(name string) (any, bool, error) {
	v, ok := m[name]
	return v, ok, nil
}

func (m mapObject) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// call invokes a zero-argument function value.
func call(v any) (any, bool, error) {
	switch fn := v.(type) {
	case func() (any, error):
		out, err := fn()
		return out, true, err
	case func() any:
		return fn(), true, nil
	}
	return nil, false, nil
}

// render formats an input value for error messages.
func render(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case UndefinedValue:
		return "undefined"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case func() (any, error), func() any:
		return "[function]"
	case Object:
		if _, ok := x.(mapObject); !ok {
			return "[object]"
		}
	}
	if f, ok := toNumber(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if b, err := json.Marshal(normalize(v)); err == nil {
		return string(b)
	}
	return "[" + TypeOf(v) + "]"
}

// normalize rewrites a literal into the JSON value model: numbers become
// float64, slices []any and string-keyed maps map[string]any. Undef is kept.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, string, UndefinedValue:
		return x
	}
	if f, ok := toNumber(v); ok {
		return f
	}
	if a, ok := toArray(v); ok {
		out := make([]any, len(a))
		for i, e := range a {
			out[i] = normalize(e)
		}
		return out
	}
	if _, ok := v.(Object); !ok {
		if o, ok := toObject(v); ok {
			out := make(map[string]any)
			for _, k := range o.Keys() {
				e, _, _ := o.Get(k)
				out[k] = normalize(e)
			}
			return out
		}
	}
	return v
}
