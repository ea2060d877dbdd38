package decoder

import (
	"fmt"
	"strconv"
	"strings"
)

// RootContext names the input in rendered error messages.
const RootContext = "input"

// DecodeError is implemented by every decode failure. Describe renders the
// failure with context naming the value it was raised against; wrapping
// errors extend the context with their own access step.
type DecodeError interface {
	error
	Describe(context string) string
}

func describe(err error, context string) string {
	if de, ok := err.(DecodeError); ok {
		return de.Describe(context)
	}
	return err.Error()
}

// TypeError reports an input of the wrong shape.
type TypeError struct {
	Expected string
	Article  string
	Actual   any
}

func (e *TypeError) Error() string { return e.Describe(RootContext) }

func (e *TypeError) Describe(context string) string {
	want := e.Expected
	if e.Article != "" {
		want = e.Article + " " + want
	}
	return fmt.Sprintf("Expecting %s at %s but instead got: %s", want, context, render(e.Actual))
}

// MismatchError reports an input that does not match a literal.
type MismatchError struct {
	Actual   any
	Expected any
}

func (e *MismatchError) Error() string { return e.Describe(RootContext) }

func (e *MismatchError) Describe(context string) string {
	return fmt.Sprintf("Expecting %s at %s but instead got: %s", render(e.Expected), context, render(e.Actual))
}

// FieldError wraps a failure found under a named property.
type FieldError struct {
	Name string
	Err  error
}

func (e *FieldError) Error() string { return e.Describe(RootContext) }

func (e *FieldError) Describe(context string) string {
	return describe(e.Err, context+"["+strconv.Quote(e.Name)+"]")
}

func (e *FieldError) Unwrap() error { return e.Err }

// IndexError wraps a failure found at an array index.
type IndexError struct {
	Index int
	Err   error
}

func (e *IndexError) Error() string { return e.Describe(RootContext) }

func (e *IndexError) Describe(context string) string {
	return describe(e.Err, context+"["+strconv.Itoa(e.Index)+"]")
}

func (e *IndexError) Unwrap() error { return e.Err }

// AccessorError wraps a failure raised by calling a method or decoding its
// result.
type AccessorError struct {
	Name string
	Err  error
}

func (e *AccessorError) Error() string { return e.Describe(RootContext) }

func (e *AccessorError) Describe(context string) string {
	return describe(e.Err, context+"."+e.Name+"()")
}

func (e *AccessorError) Unwrap() error { return e.Err }

// EitherError collects the failure of every alternative, in order.
type EitherError struct {
	Errors []error
}

func (e *EitherError) Error() string { return e.Describe(RootContext) }

func (e *EitherError) Describe(context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ran into %d failures decoding %s:", len(e.Errors), context)
	for i, err := range e.Errors {
		lines := strings.Split(describe(err, context), "\n")
		fmt.Fprintf(&b, "\n  %d) %s", i, strings.Join(lines, "\n     "))
	}
	return b.String()
}

func (e *EitherError) Unwrap() []error { return e.Errors }

// ThrownError carries a failure raised while reading the input, or by an
// Error decoder.
type ThrownError struct {
	Err error
}

func (e *ThrownError) Error() string { return e.Describe(RootContext) }

func (e *ThrownError) Describe(context string) string {
	return fmt.Sprintf("Ran into an error at %s: %v", context, e.Err)
}

func (e *ThrownError) Unwrap() error { return e.Err }

// Path returns the access steps leading to the innermost failure, for
// example ["items", "2"]. Either errors end the path.
func Path(err error) []string {
	var path []string
	for err != nil {
		switch e := err.(type) {
		case *FieldError:
			path = append(path, e.Name)
			err = e.Err
		case *IndexError:
			path = append(path, strconv.Itoa(e.Index))
			err = e.Err
		case *AccessorError:
			path = append(path, e.Name+"()")
			err = e.Err
		default:
			return path
		}
	}
	return path
}
