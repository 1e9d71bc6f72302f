package auth

import (
	"context"
	"errors"
)

// ErrNoCredentials is returned by sources that cannot produce a token.
var ErrNoCredentials = errors.New("no credentials configured")

// TokenSource produces the bearer token for one request. An empty token
// means the request is sent without an Authorization header.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

type staticSource string

func (s staticSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

// Static returns a source that always yields key. An empty key fails every
// request with ErrNoCredentials rather than silently sending none.
func Static(key string) TokenSource {
	return staticSource(key)
}

type noneSource struct{}

func (noneSource) Token(context.Context) (string, error) { return "", nil }

// None returns a source that never attaches credentials.
func None() TokenSource {
	return noneSource{}
}
