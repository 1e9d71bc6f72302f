// Package result provides a discriminated success/error value used by the
// legacy facades to report transport failures without mixing them with
// response-shape errors.
package result

// Result holds either a successful Value or an Error, tagged by OK.
type Result[T any, E error] struct {
	OK    bool
	Value T
	Error E
}

// Ok wraps a successful value.
func Ok[T any, E error](v T) Result[T, E] {
	return Result[T, E]{OK: true, Value: v}
}

// Err wraps a failure.
func Err[T any, E error](e E) Result[T, E] {
	return Result[T, E]{Error: e}
}

// Unwrap returns the value and a nil error on success, or the zero value
// and the stored error on failure.
func (r Result[T, E]) Unwrap() (T, error) {
	if r.OK {
		return r.Value, nil
	}
	var zero T
	return zero, r.Error
}

// Map converts the value of a successful result, passing failures through.
func Map[T, U any, E error](r Result[T, E], fn func(T) U) Result[U, E] {
	if !r.OK {
		return Err[U](r.Error)
	}
	return Ok[U, E](fn(r.Value))
}
