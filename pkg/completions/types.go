package completions

import "maps"

// ChatCompletionMessageRequestParam is one message of a completion request.
type ChatCompletionMessageRequestParam struct {
	Role       string `json:"role,omitempty"`
	Content    string `json:"content,omitempty"`
	ToolCalls  []any  `json:"tool_calls,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ChatOptionParams is the request for v1beta2/chat/completions. The stream
// flag is set by the entry point: Create sends false, CreateStream true.
type ChatOptionParams struct {
	Model    string
	Messages []ChatCompletionMessageRequestParam

	// Temperature is the sampling temperature between 0 and 1.
	Temperature *float64

	// MaxTokens caps the generated tokens.
	MaxTokens *int

	// ProviderExtraParameters are passed to the upstream provider as-is.
	ProviderExtraParameters map[string]any

	// Extra holds any other top-level request fields. They are applied
	// after the fields above and replace them on a name clash. "stream" is
	// always overwritten by the entry point.
	Extra map[string]any
}

// body renders the request with the given stream mode.
func (p ChatOptionParams) body(stream bool) map[string]any {
	messages := p.Messages
	if messages == nil {
		messages = []ChatCompletionMessageRequestParam{}
	}

	m := map[string]any{
		"model":    p.Model,
		"messages": messages,
	}
	if p.Temperature != nil {
		m["temperature"] = *p.Temperature
	}
	if p.MaxTokens != nil {
		m["max_tokens"] = *p.MaxTokens
	}
	if p.ProviderExtraParameters != nil {
		m["provider_extra_parameters"] = p.ProviderExtraParameters
	}
	maps.Copy(m, p.Extra)
	m["stream"] = stream
	return m
}

// FunctionCall holds a function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// ChoiceMessage is the message of a choice, or the delta of a stream chunk.
type ChoiceMessage struct {
	Content   *string    `json:"content,omitempty"`
	Role      string     `json:"role,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Choice is one completion of a non-streaming response.
type Choice struct {
	Index        int            `json:"index"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Message      ChoiceMessage  `json:"message"`
}

// ChoiceStream is one completion of a stream chunk.
type ChoiceStream struct {
	Index        int            `json:"index"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Delta        ChoiceMessage  `json:"delta"`
}

// Usage reports token counts.
type Usage struct {
	CompletionTokens int `json:"completion_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GoogleMetadata carries the counts reported by Google-backed models.
type GoogleMetadata struct {
	InputTokenCount      int `json:"input_token_count,omitempty"`
	OutputTokenCount     int `json:"output_token_count,omitempty"`
	InputCharacterCount  int `json:"input_character_count,omitempty"`
	OutputCharacterCount int `json:"output_character_count,omitempty"`
}

// ChatCompletionResponse is the non-streaming response.
type ChatCompletionResponse struct {
	ID       string          `json:"id"`
	Choices  []Choice        `json:"choices"`
	Model    string          `json:"model"`
	Created  int64           `json:"created,omitempty"`
	Object   string          `json:"object,omitempty"`
	Usage    *Usage          `json:"usage,omitempty"`
	Metadata *GoogleMetadata `json:"metadata,omitempty"`
}

// ChatCompletionStreamChunkResponse is one chunk of a streaming response.
type ChatCompletionStreamChunkResponse struct {
	ID       string          `json:"id"`
	Choices  []ChoiceStream  `json:"choices"`
	Model    string          `json:"model"`
	Created  int64           `json:"created,omitempty"`
	Object   string          `json:"object,omitempty"`
	Usage    *Usage          `json:"usage,omitempty"`
	Metadata *GoogleMetadata `json:"metadata,omitempty"`
}
