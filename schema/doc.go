// Package schema defines the change-log operations and their binary wire
// form.
//
// A change log is a flatbuffers table holding a vector of Change unions.
// Each Change pairs a one-byte op tag (1..28) with the table carrying that
// operation's payload. Event listener operations embed a decoder tree
// encoded as nested DecoderNode unions.
//
// Encoding:
//
//	buf, err := schema.Encode([]schema.Op{
//	    schema.SelectChildren{},
//	    schema.InsertElement{LocalName: "div"},
//	    schema.SelectSibling{Offset: 0},
//	    schema.SetAttribute{Name: "id", Value: "main"},
//	})
//
// Decoding validates every offset and returns *errors.Error values with a
// path such as "changes[3].setAttribute":
//
//	ops, err := schema.NewReader(schema.DefaultLimits()).Decode(buf)
//
// MarshalOps and UnmarshalOps provide a JSON text form of the same
// operations for tooling and fixtures.
package schema
