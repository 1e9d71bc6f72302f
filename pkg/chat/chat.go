package chat

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/rhuss/modelfarm/pkg/api"
	"github.com/rhuss/modelfarm/pkg/debug"
	"github.com/rhuss/modelfarm/pkg/result"
	"github.com/rhuss/modelfarm/pkg/stream"
)

// Shape error messages.
const (
	msgNoMessage         = "Expected at least one message"
	msgMultipleResponses = "Got multiple responses from non-streaming endpoint"
	msgNoResponse        = "Expected at least one response"
	msgMultipleChoices   = "Got multiple choices without choicesCount"
	msgNoChoice          = "Expected at least one choice"
)

// Client is the legacy chat facade. It is safe for concurrent use.
type Client struct {
	requester Requester
}

// New creates a Client that sends requests through r.
func New(r Requester) *Client {
	return &Client{requester: r}
}

// Chat returns the single completion for a conversation.
//
// The returned error is non-nil only when the response has an unexpected
// shape: more than one response object, no response, more than one choice,
// or no choice.
func (c *Client) Chat(ctx context.Context, opts ChatOptions) (result.Result[ChatResult, *api.RequestError], error) {
	res := c.chatImpl(ctx, opts, nil, PathChat)
	if !res.OK {
		return result.Err[ChatResult](res.Error), nil
	}

	response, reqErr, err := collectOne(res.Value)
	if err != nil {
		return result.Result[ChatResult, *api.RequestError]{}, err
	}
	if reqErr != nil {
		return result.Err[ChatResult](reqErr), nil
	}

	if len(response.Choices) > 1 {
		return result.Result[ChatResult, *api.RequestError]{}, api.NewShapeError(msgMultipleChoices)
	}
	if len(response.Choices) == 0 {
		return result.Result[ChatResult, *api.RequestError]{}, api.NewShapeError(msgNoChoice)
	}
	return result.Ok[ChatResult, *api.RequestError](response.Choices[0]), nil
}

// ChatMultipleChoices returns up to opts.ChoicesCount completions for a
// conversation.
func (c *Client) ChatMultipleChoices(ctx context.Context, opts ChatMultipleChoicesOptions) (result.Result[MultipleChoicesResult, *api.RequestError], error) {
	count := opts.ChoicesCount
	res := c.chatImpl(ctx, opts.ChatOptions, &count, PathChat)
	if !res.OK {
		return result.Err[MultipleChoicesResult](res.Error), nil
	}

	response, reqErr, err := collectOne(res.Value)
	if err != nil {
		return result.Result[MultipleChoicesResult, *api.RequestError]{}, err
	}
	if reqErr != nil {
		return result.Err[MultipleChoicesResult](reqErr), nil
	}
	return result.Ok[MultipleChoicesResult, *api.RequestError](response), nil
}

// ChatStream streams a single completion. Each element carries the next
// chunk of the message. An upstream object without a choice stops the
// stream; Err then returns an error matching api.ErrUnexpectedResponse.
// Transport failures after the stream started are reported by Err as
// *api.RequestError.
//
// The error return is reserved for shape failures detected before the
// stream is handed out, matching the other chat calls.
func (c *Client) ChatStream(ctx context.Context, opts ChatOptions) (result.Result[*stream.Stream[ChatResult], *api.RequestError], error) {
	res := c.chatImpl(ctx, opts, nil, PathChatStreaming)
	if !res.OK {
		return result.Err[*stream.Stream[ChatResult]](res.Error), nil
	}

	chunks := stream.Map(res.Value, func(r MultipleChoicesResult) (ChatResult, error) {
		if len(r.Choices) == 0 {
			return ChatResult{}, api.NewShapeError(msgNoChoice)
		}
		return r.Choices[0], nil
	})
	return result.Ok[*stream.Stream[ChatResult], *api.RequestError](chunks), nil
}

// chatImpl sends the request and maps every upstream object to a
// MultipleChoicesResult. Only PathChatStreaming is sent as an open-ended
// stream; PathChat goes through the timeout-bound chunked request.
func (c *Client) chatImpl(ctx context.Context, opts ChatOptions, choicesCount *int, path string) result.Result[*stream.Stream[MultipleChoicesResult], *api.RequestError] {
	send := c.requester.MakeChunkedRequest
	if path == PathChatStreaming {
		send = c.requester.MakeStreamingRequest
	}
	res := send(ctx, path, requestBody(opts, choicesCount))
	if !res.OK {
		debug.Log("transport", "chat request failed", "path", path, "error", res.Error.Error())
		return result.Err[*stream.Stream[MultipleChoicesResult]](res.Error)
	}
	return result.Ok[*stream.Stream[MultipleChoicesResult], *api.RequestError](stream.Map(res.Value, reshape))
}

// requestBody builds
//
//	{model, parameters:{prompts:[{context:"", messages}], temperature,
//	 maxOutputTokens, candidateCount, ...extraParams}}
//
// Unset optional fields are left out. candidateCount is present only when
// choicesCount is non-nil.
func requestBody(opts ChatOptions, choicesCount *int) map[string]any {
	messages := opts.Messages
	if messages == nil {
		messages = []ChatMessage{}
	}

	params := map[string]any{
		"prompts": []map[string]any{
			{"context": "", "messages": messages},
		},
	}
	if opts.Temperature != nil {
		params["temperature"] = *opts.Temperature
	}
	if opts.MaxOutputTokens != nil {
		params["maxOutputTokens"] = *opts.MaxOutputTokens
	}
	if choicesCount != nil {
		params["candidateCount"] = *choicesCount
	}
	maps.Copy(params, opts.ExtraParams)

	return map[string]any{
		"model":      opts.Model,
		"parameters": params,
	}
}

// reshape flattens the candidates of the first response. Any later
// responses in the same object are not read.
func reshape(raw json.RawMessage) (MultipleChoicesResult, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return MultipleChoicesResult{}, api.NewDecodeError("failed to parse chat response: " + err.Error())
	}

	if len(env.Responses) == 0 || len(env.Responses[0].Candidates) == 0 || env.Responses[0].Candidates[0].Message == nil {
		return MultipleChoicesResult{}, api.NewShapeError(msgNoMessage)
	}

	candidates := env.Responses[0].Candidates
	out := MultipleChoicesResult{Choices: make([]ChatResult, 0, len(candidates))}
	for _, cand := range candidates {
		var msg ChatMessage
		if cand.Message != nil {
			msg = ChatMessage{Content: cand.Message.Content, Author: cand.Message.Author}
		}
		out.Choices = append(out.Choices, ChatResult{Message: msg})
	}
	return out, nil
}

// collectOne drains s and expects exactly one element. A transport failure
// met while draining is returned as reqErr; a shape failure as err.
func collectOne(s *stream.Stream[MultipleChoicesResult]) (response MultipleChoicesResult, reqErr *api.RequestError, err error) {
	responses, err := stream.Collect(s)
	if err != nil {
		if re, ok := api.AsRequestError(err); ok {
			return MultipleChoicesResult{}, re, nil
		}
		return MultipleChoicesResult{}, nil, err
	}

	if len(responses) > 1 {
		return MultipleChoicesResult{}, nil, api.NewShapeError(msgMultipleResponses)
	}
	if len(responses) == 0 {
		return MultipleChoicesResult{}, nil, api.NewShapeError(msgNoResponse)
	}
	return responses[0], nil, nil
}
