package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/modelfarm/pkg/api"
	"github.com/rhuss/modelfarm/pkg/auth"
	"github.com/rhuss/modelfarm/pkg/debug"
	"github.com/rhuss/modelfarm/pkg/observability"
	"github.com/rhuss/modelfarm/pkg/result"
	"github.com/rhuss/modelfarm/pkg/stream"
)

// DefaultTimeout applies to non-streaming requests when Config.Timeout is 0.
const DefaultTimeout = 60 * time.Second

// Config holds the transport settings.
type Config struct {
	// BaseURL is the service root, e.g. "https://production-modelfarm.replit.com".
	BaseURL string

	// Timeout bounds non-streaming requests. Streaming requests are governed
	// by their context only. Default: DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent on every request. Default: "modelfarm-go".
	UserAgent string

	// Headers are added to every request.
	Headers map[string]string

	// Tokens supplies the bearer token. Default: auth.None().
	Tokens auth.TokenSource

	// HTTPClient provides the base round tripper. If nil, http.DefaultTransport
	// is used.
	HTTPClient *http.Client
}

// Client is the shared request helper. It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	userAgent    string
	headers      http.Header
	tokens       auth.TokenSource
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "modelfarm-go"
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = auth.None()
	}

	var base http.RoundTripper
	if cfg.HTTPClient != nil {
		base = cfg.HTTPClient.Transport
	}
	rt := observability.InstrumentedTransport(base)

	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	return &Client{
		httpClient: &http.Client{Transport: rt, Timeout: timeout},
		// No timeout for streams: a stream can outlive any fixed deadline,
		// so lifetime is controlled by the request context.
		streamClient: &http.Client{Transport: rt},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:    userAgent,
		headers:      headers,
		tokens:       tokens,
	}
}

// URL resolves path against the base URL. Leading slashes are optional, so
// "/v1beta/chat" and "v1beta2/chat/completions" both land under the base.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// MakeSimpleRequest POSTs body as JSON and returns the raw JSON response.
func (c *Client) MakeSimpleRequest(ctx context.Context, path string, body any) result.Result[json.RawMessage, *api.RequestError] {
	httpResp, reqErr := c.do(ctx, c.httpClient, path, body, "application/json")
	if reqErr != nil {
		return result.Err[json.RawMessage](reqErr)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return result.Err[json.RawMessage](MapNetworkError(err))
	}
	debug.Log("transport", "response body", "path", path, "body", debug.Body("transport", data))

	if !json.Valid(data) {
		return result.Err[json.RawMessage](api.NewDecodeError(
			fmt.Sprintf("failed to parse response: %s", debug.Truncate(string(data), 200)),
		))
	}
	return result.Ok[json.RawMessage, *api.RequestError](json.RawMessage(data))
}

// MakeStreamingRequest POSTs body as JSON and returns a lazy sequence of the
// JSON objects in the response. A text/event-stream response is decoded as
// SSE; anything else as back-to-back JSON values. The request is bounded by
// ctx only. The caller must Close the stream.
func (c *Client) MakeStreamingRequest(ctx context.Context, path string, body any) result.Result[*stream.Stream[json.RawMessage], *api.RequestError] {
	ctx = observability.WithStreaming(ctx)
	httpResp, reqErr := c.do(ctx, c.streamClient, path, body, "text/event-stream, application/json")
	if reqErr != nil {
		return result.Err[*stream.Stream[json.RawMessage]](reqErr)
	}
	return result.Ok[*stream.Stream[json.RawMessage], *api.RequestError](decodeBody(path, httpResp))
}

// MakeChunkedRequest is MakeStreamingRequest for endpoints that answer with
// a complete body made of one or more JSON objects. The whole exchange,
// including reading the body, is bounded by Config.Timeout and is not
// counted as an open stream. The caller must Close the stream.
func (c *Client) MakeChunkedRequest(ctx context.Context, path string, body any) result.Result[*stream.Stream[json.RawMessage], *api.RequestError] {
	httpResp, reqErr := c.do(ctx, c.httpClient, path, body, "application/json")
	if reqErr != nil {
		return result.Err[*stream.Stream[json.RawMessage]](reqErr)
	}
	return result.Ok[*stream.Stream[json.RawMessage], *api.RequestError](decodeBody(path, httpResp))
}

// decodeBody picks the decoder for resp by its Content-Type.
func decodeBody(path string, resp *http.Response) *stream.Stream[json.RawMessage] {
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		debug.Log("streaming", "decoding SSE stream", "path", path)
		return stream.NewSSEDecoder(resp.Body)
	}
	debug.Log("streaming", "decoding JSON chunk stream", "path", path)
	return stream.NewJSONDecoder(resp.Body)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do sends the request and returns the response when it has a 2xx status.
// The caller owns the returned body.
func (c *Client) do(ctx context.Context, hc *http.Client, path string, body any, accept string) (*http.Response, *api.RequestError) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, api.NewInvalidRequestError(0, fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.URL(path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, api.NewInvalidRequestError(0, fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	for k, v := range c.headers {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", c.userAgent)

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, api.NewUnauthorizedError(0, fmt.Sprintf("failed to obtain credentials: %s", err.Error()))
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	debug.Log("transport", "request",
		"method", http.MethodPost,
		"url", url,
		"request_id", requestID,
		"headers", debug.RedactHeaders(httpReq.Header),
	)
	debug.Trace("transport", "request body", "request_id", requestID, "body", string(payload))

	start := time.Now()
	httpResp, err := hc.Do(httpReq)
	if err != nil {
		debug.Log("transport", "request failed", "request_id", requestID, "error", err.Error())
		return nil, MapNetworkError(err)
	}

	debug.Log("transport", "response",
		"request_id", requestID,
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}
	return httpResp, nil
}
