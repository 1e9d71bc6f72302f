package chat

import (
	"context"
	"encoding/json"

	"github.com/rhuss/modelfarm/pkg/api"
	"github.com/rhuss/modelfarm/pkg/result"
	"github.com/rhuss/modelfarm/pkg/stream"
)

// Endpoint paths.
const (
	PathChat          = "/v1beta/chat"
	PathChatStreaming = "/v1beta/chat_streaming"
)

// ChatModel identifies a chat model.
type ChatModel string

// ModelChatBison is the only chat model offered by the legacy endpoints.
const ModelChatBison ChatModel = "chat-bison"

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// ChatOptions configures a chat request.
type ChatOptions struct {
	Model    ChatModel
	Messages []ChatMessage

	// Temperature is the sampling temperature between 0 and 1. Nil leaves
	// it to the service.
	Temperature *float64

	// MaxOutputTokens caps the generated tokens. Nil leaves it to the service.
	MaxOutputTokens *int

	// ExtraParams are model specific parameters. They are merged into the
	// request parameters after every computed field, so a key here replaces
	// a computed one of the same name.
	ExtraParams map[string]any
}

// ChatMultipleChoicesOptions asks for up to ChoicesCount candidates. The
// service may return fewer.
type ChatMultipleChoicesOptions struct {
	ChatOptions
	ChoicesCount int
}

// ChatResult is a single chat completion.
type ChatResult struct {
	Message ChatMessage `json:"message"`
}

// MultipleChoicesResult carries every candidate of a response, in the order
// the service returned them.
type MultipleChoicesResult struct {
	Choices []ChatResult `json:"choices"`
}

// Requester is the transport used by the facade. *transport.Client
// satisfies it. MakeChunkedRequest serves /v1beta/chat and is expected to
// apply the non-streaming timeout; MakeStreamingRequest serves
// /v1beta/chat_streaming.
type Requester interface {
	MakeChunkedRequest(ctx context.Context, path string, body any) result.Result[*stream.Stream[json.RawMessage], *api.RequestError]
	MakeStreamingRequest(ctx context.Context, path string, body any) result.Result[*stream.Stream[json.RawMessage], *api.RequestError]
}

// envelope is the part of the provider response the facade reads.
type envelope struct {
	Responses []struct {
		Candidates []struct {
			Message *ChatMessage `json:"message"`
		} `json:"candidates"`
	} `json:"responses"`
}
