// Package completions implements the OpenAI-compatible chat completions
// facade.
//
// Unlike the legacy facades, a transport failure is returned as a plain Go
// error. Its message is the RequestError's Message, and errors.As still
// recovers the *api.RequestError.
package completions

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rhuss/modelfarm/pkg/api"
	"github.com/rhuss/modelfarm/pkg/observability"
	"github.com/rhuss/modelfarm/pkg/result"
	"github.com/rhuss/modelfarm/pkg/stream"
)

// PathCompletions is the chat completions endpoint.
const PathCompletions = "v1beta2/chat/completions"

// Requester is the transport used by the facade. *transport.Client
// satisfies it.
type Requester interface {
	MakeSimpleRequest(ctx context.Context, path string, body any) result.Result[json.RawMessage, *api.RequestError]
	MakeStreamingRequest(ctx context.Context, path string, body any) result.Result[*stream.Stream[json.RawMessage], *api.RequestError]
}

// Error is a transport failure surfaced by this facade.
type Error struct {
	Request *api.RequestError
}

// Error returns the request error's message.
func (e *Error) Error() string {
	return e.Request.Message
}

// Unwrap returns the request error.
func (e *Error) Unwrap() error {
	return e.Request
}

func newError(reqErr *api.RequestError) error {
	return &Error{Request: reqErr}
}

// Completions sends chat completion requests.
type Completions struct {
	requester Requester
}

// Chat groups the chat endpoints, mirroring client.Chat.Completions.
type Chat struct {
	Completions *Completions
}

// NewChat creates the facade over r.
func NewChat(r Requester) *Chat {
	return &Chat{Completions: &Completions{requester: r}}
}

// Create sends a non-streaming request and returns the decoded response
// unchanged.
func (c *Completions) Create(ctx context.Context, params ChatOptionParams) (*ChatCompletionResponse, error) {
	res := c.requester.MakeSimpleRequest(ctx, PathCompletions, params.body(false))
	if !res.OK {
		return nil, newError(res.Error)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(res.Value, &resp); err != nil {
		return nil, newError(api.NewDecodeError("failed to parse chat completion: " + err.Error()))
	}
	recordUsage(params.Model, resp.Model, resp.Usage, resp.Metadata)
	return &resp, nil
}

// CreateStream sends a streaming request. The caller must Close the
// returned stream. A failure after the stream started is reported by Err
// as *Error.
func (c *Completions) CreateStream(ctx context.Context, params ChatOptionParams) (*stream.Stream[ChatCompletionStreamChunkResponse], error) {
	res := c.requester.MakeStreamingRequest(ctx, PathCompletions, params.body(true))
	if !res.OK {
		return nil, newError(res.Error)
	}

	src := res.Value
	return stream.New(func() (ChatCompletionStreamChunkResponse, error) {
		var chunk ChatCompletionStreamChunkResponse
		if !src.Next() {
			err := src.Err()
			if err == nil {
				return chunk, io.EOF
			}
			if reqErr, ok := api.AsRequestError(err); ok {
				return chunk, newError(reqErr)
			}
			return chunk, err
		}
		if err := json.Unmarshal(src.Current(), &chunk); err != nil {
			return chunk, newError(api.NewDecodeError("failed to parse chat completion chunk: " + err.Error()))
		}
		recordUsage(params.Model, chunk.Model, chunk.Usage, chunk.Metadata)
		return chunk, nil
	}, src), nil
}

// recordUsage adds reported token counts to the token metrics, preferring
// the OpenAI usage block over provider metadata.
func recordUsage(requested, reported string, usage *Usage, meta *GoogleMetadata) {
	model := reported
	if model == "" {
		model = requested
	}
	switch {
	case usage != nil:
		observability.RecordTokens(model, usage.PromptTokens, usage.CompletionTokens)
	case meta != nil:
		observability.RecordTokens(model, meta.InputTokenCount, meta.OutputTokenCount)
	}
}
