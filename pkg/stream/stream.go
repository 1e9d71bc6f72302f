// Package stream provides the lazy, pull-based sequence returned by the
// streaming facades, plus decoders that turn an HTTP body into a sequence
// of JSON objects.
//
// A Stream is single-pass and forward-only. Each element is produced only
// when the consumer calls Next, so backpressure follows from the pull model.
// Closing the stream releases the underlying body.
package stream

import (
	"io"
	"iter"
)

// Stream is a lazily evaluated sequence of T values.
//
// Typical use:
//
//	defer s.Close()
//	for s.Next() {
//		v := s.Current()
//	}
//	if err := s.Err(); err != nil { ... }
type Stream[T any] struct {
	next   func() (T, error)
	closer io.Closer

	cur  T
	err  error
	done bool
}

// New creates a Stream from a producer. The producer returns io.EOF when the
// sequence ends; any other error stops the stream and is reported by Err.
// closer may be nil.
func New[T any](next func() (T, error), closer io.Closer) *Stream[T] {
	return &Stream[T]{next: next, closer: closer}
}

// FromSlice creates a Stream over a fixed set of values.
func FromSlice[T any](values []T) *Stream[T] {
	i := 0
	return New(func() (T, error) {
		if i >= len(values) {
			var zero T
			return zero, io.EOF
		}
		v := values[i]
		i++
		return v, nil
	}, nil)
}

// Next advances to the next element. It returns false when the sequence is
// exhausted or an error occurred.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}
	v, err := s.next()
	if err != nil {
		s.done = true
		if err != io.EOF {
			s.err = err
		}
		var zero T
		s.cur = zero
		return false
	}
	s.cur = v
	return true
}

// Current returns the element produced by the last successful Next.
func (s *Stream[T]) Current() T {
	return s.cur
}

// Err returns the first non-EOF error encountered.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close stops the stream and releases the underlying resources. It is safe
// to call more than once.
func (s *Stream[T]) Close() error {
	s.done = true
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

// All returns a range-over-func iterator. A failing stream yields its
// error once as the final pair. The stream is closed when iteration ends.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Current(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

// Map returns a Stream that applies fn to each element of src. An error from
// fn stops the stream. Closing the result closes src.
func Map[T, U any](src *Stream[T], fn func(T) (U, error)) *Stream[U] {
	return New(func() (U, error) {
		var zero U
		if !src.Next() {
			if err := src.Err(); err != nil {
				return zero, err
			}
			return zero, io.EOF
		}
		return fn(src.Current())
	}, closerFunc(src.Close))
}

// Collect drains s into a slice and closes it.
func Collect[T any](s *Stream[T]) ([]T, error) {
	defer s.Close()
	var out []T
	for s.Next() {
		out = append(out, s.Current())
	}
	return out, s.Err()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
