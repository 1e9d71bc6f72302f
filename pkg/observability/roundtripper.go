package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type streamingKey struct{}

// WithStreaming marks requests built from ctx as streaming so the
// StreamsActive gauge covers them regardless of response content type.
func WithStreaming(ctx context.Context) context.Context {
	return context.WithValue(ctx, streamingKey{}, true)
}

// IsStreaming reports whether ctx was marked by WithStreaming.
func IsStreaming(ctx context.Context) bool {
	v, _ := ctx.Value(streamingKey{}).(bool)
	return v
}

// InstrumentedTransport wraps next so every request is counted and timed.
// Streaming responses (text/event-stream, or requests marked with
// WithStreaming) hold the StreamsActive gauge until their body is closed.
// A nil next uses http.DefaultTransport.
func InstrumentedTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &instrumented{next: next}
}

type instrumented struct {
	next http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *instrumented) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	path := req.URL.Path

	resp, err := t.next.RoundTrip(req)
	RequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		RequestsTotal.WithLabelValues(path, "error").Inc()
		return nil, err
	}

	RequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()

	if isStreaming(req, resp) && resp.Body != nil {
		StreamsActive.Inc()
		resp.Body = &streamBody{ReadCloser: resp.Body}
	}
	return resp, nil
}

// CloseIdleConnections forwards to the wrapped transport when supported.
func (t *instrumented) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if c, ok := t.next.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}

func isStreaming(req *http.Request, resp *http.Response) bool {
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return true
	}
	return IsStreaming(req.Context())
}

// streamBody decrements StreamsActive exactly once on Close.
type streamBody struct {
	io.ReadCloser
	once sync.Once
}

func (b *streamBody) Close() error {
	b.once.Do(StreamsActive.Dec)
	return b.ReadCloser.Close()
}
