// Package decoder validates and reshapes untrusted values, typically event
// payloads, through composable decoders.
//
// A decoder is an immutable tree built from the constructors in this
// package and evaluated with Decode:
//
//	d := decoder.Record(decoder.Fields{
//		"key":   decoder.Field("key", decoder.String()),
//		"shift": decoder.Optional(decoder.Field("shiftKey", decoder.Boolean())),
//	})
//	v, err := decoder.Decode(d, event)
//
// # Input values
//
// nil is null and Undef is undefined. Booleans, strings and every Go
// numeric type are primitives. Slices are arrays, string-keyed maps are
// plain objects, and values implementing Object are host objects whose
// property reads may fail. Zero-argument functions of type
// func() (any, error) or func() any are methods, called by Accessor.
//
// Integer yields int64, Float yields float64, Array yields []any and
// Dictionary, Record and Form yield map[string]any.
//
// # Errors
//
// Failures are values of the DecodeError types: TypeError, MismatchError,
// FieldError, IndexError, AccessorError, EitherError and ThrownError.
// Wrapping errors record the access step, so the rendered message names
// the exact location of the failure:
//
//	Expecting an integer at input["items"][2] but instead got: "x"
//
// Decoders hold no per-call state and may be shared between goroutines.
package decoder
