// Package errors provides structured error types for the treepatch module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: access path, operation name, offending value
// and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindFieldMissing).
//		Path("changes", "3").
//		Op("SetAttribute").
//		Detail("required field %q not found", "name").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownOpType(path, tag)
//	err := errors.InvalidState("SelectChildren", "children already selected")
//
// All errors implement the standard error interface and support errors.Is/As.
// Matching with errors.Is compares Phase and Kind only.
package errors
