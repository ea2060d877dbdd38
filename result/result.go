// Package result provides a tagged Ok/Err value used where a computation's
// outcome is passed around as data instead of returned as (value, error).
//
// The interpreter and the decoder engine both return plain Go errors from
// their primary entry points; Result is offered alongside them for callers
// that want to thread outcomes through pipelines:
//
//	r := result.Map(decoder.DecodeResult(d, input), toEvent)
//	ev, err := r.Get()
package result

// Result holds either a value or an error, never both.
type Result[T any] struct {
	value T
	err   error
}

// Ok returns a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err returns a failed Result. A nil err yields a successful zero Result.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Of lifts a (value, error) pair.
func Of[T any](v T, err error) Result[T] {
	if err != nil {
		return Result[T]{err: err}
	}
	return Result[T]{value: v}
}

// IsOk reports whether r holds a value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// IsErr reports whether r holds an error.
func (r Result[T]) IsErr() bool { return r.err != nil }

// Value returns the held value, or the zero value on error.
func (r Result[T]) Value() T { return r.value }

// Error returns the held error, or nil.
func (r Result[T]) Error() error { return r.err }

// Get returns the pair form.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

// Unwrap returns the value or panics with the held error.
func (r Result[T]) Unwrap() T {
	if r.err != nil {
		panic(r.err)
	}
	return r.value
}

// OrElse returns the value, or d on error.
func (r Result[T]) OrElse(d T) T {
	if r.err != nil {
		return d
	}
	return r.value
}

// MapErr transforms the error, leaving a success untouched.
func (r Result[T]) MapErr(fn func(error) error) Result[T] {
	if r.err == nil {
		return r
	}
	return Result[T]{err: fn(r.err)}
}

// Recover turns a failure into a success computed from the error.
func (r Result[T]) Recover(fn func(error) T) Result[T] {
	if r.err == nil {
		return r
	}
	return Result[T]{value: fn(r.err)}
}

// Map transforms a successful value.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return Result[U]{value: fn(r.value)}
}

// Chain feeds a successful value into a fallible step.
func Chain[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return fn(r.value)
}

// All collects the values of rs, stopping at the first failure.
func All[T any](rs ...Result[T]) Result[[]T] {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		if r.err != nil {
			return Result[[]T]{err: r.err}
		}
		out = append(out, r.value)
	}
	return Result[[]T]{value: out}
}
