package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/modelfarm/pkg/api"
	"github.com/rhuss/modelfarm/pkg/result"
	"github.com/rhuss/modelfarm/pkg/stream"
	"github.com/rhuss/modelfarm/pkg/transport"
)

// fakeRequester returns a fixed set of JSON objects, optionally followed by
// a stream error.
type fakeRequester struct {
	objects   []string
	err       *api.RequestError
	streamErr error

	method string
	path   string
	body   map[string]any
}

func (f *fakeRequester) MakeChunkedRequest(_ context.Context, path string, body any) result.Result[*stream.Stream[json.RawMessage], *api.RequestError] {
	f.method = "chunked"
	return f.respond(path, body)
}

func (f *fakeRequester) MakeStreamingRequest(_ context.Context, path string, body any) result.Result[*stream.Stream[json.RawMessage], *api.RequestError] {
	f.method = "streaming"
	return f.respond(path, body)
}

func (f *fakeRequester) respond(path string, body any) result.Result[*stream.Stream[json.RawMessage], *api.RequestError] {
	f.path = path
	data, _ := json.Marshal(body)
	f.body = nil
	_ = json.Unmarshal(data, &f.body)

	if f.err != nil {
		return result.Err[*stream.Stream[json.RawMessage]](f.err)
	}

	i := 0
	s := stream.New(func() (json.RawMessage, error) {
		if i < len(f.objects) {
			raw := json.RawMessage(f.objects[i])
			i++
			return raw, nil
		}
		if f.streamErr != nil {
			return nil, f.streamErr
		}
		return nil, io.EOF
	}, nil)
	return result.Ok[*stream.Stream[json.RawMessage], *api.RequestError](s)
}

const helloResponse = `{"responses":[{"candidates":[{"message":{"content":"hello","author":"assistant"}}]}]}`

func hiOptions() ChatOptions {
	return ChatOptions{
		Model:    ModelChatBison,
		Messages: []ChatMessage{{Author: "user", Content: "hi"}},
	}
}

func TestChat(t *testing.T) {
	fake := &fakeRequester{objects: []string{helloResponse}}
	res, err := New(fake).Chat(context.Background(), hiOptions())
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got %v", res.Error)
	}
	want := ChatMessage{Content: "hello", Author: "assistant"}
	if res.Value.Message != want {
		t.Errorf("Message = %+v, want %+v", res.Value.Message, want)
	}
	if fake.path != PathChat {
		t.Errorf("path = %q, want %q", fake.path, PathChat)
	}
}

func TestChatShapeErrors(t *testing.T) {
	tests := []struct {
		name    string
		objects []string
		want    string
	}{
		{
			name:    "no response objects",
			objects: nil,
			want:    "Expected at least one response",
		},
		{
			name:    "multiple response objects",
			objects: []string{helloResponse, helloResponse},
			want:    "Got multiple responses from non-streaming endpoint",
		},
		{
			name:    "multiple choices",
			objects: []string{`{"responses":[{"candidates":[{"message":{"content":"a","author":"x"}},{"message":{"content":"b","author":"x"}}]}]}`},
			want:    "Got multiple choices without choicesCount",
		},
		{
			name:    "empty responses",
			objects: []string{`{"responses":[]}`},
			want:    "Expected at least one message",
		},
		{
			name:    "empty candidates",
			objects: []string{`{"responses":[{"candidates":[]}]}`},
			want:    "Expected at least one message",
		},
		{
			name:    "candidate without message",
			objects: []string{`{"responses":[{"candidates":[{}]}]}`},
			want:    "Expected at least one message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(&fakeRequester{objects: tt.objects}).Chat(context.Background(), hiOptions())
			if err == nil {
				t.Fatalf("expected shape error, got result %+v", res)
			}
			if !errors.Is(err, api.ErrUnexpectedResponse) {
				t.Errorf("error %v does not match ErrUnexpectedResponse", err)
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
			if _, ok := api.AsRequestError(err); ok {
				t.Error("shape error must not be a RequestError")
			}
			if res.OK || res.Error != nil {
				t.Errorf("result must be empty on shape error, got %+v", res)
			}
		})
	}
}

func TestChatRequestError(t *testing.T) {
	reqErr := api.NewUnauthorizedError(401, "bad token")
	res, err := New(&fakeRequester{err: reqErr}).Chat(context.Background(), hiOptions())
	if err != nil {
		t.Fatalf("transport errors must not be returned as Go errors, got %v", err)
	}
	if res.OK {
		t.Fatal("expected failure result")
	}
	if res.Error != reqErr {
		t.Errorf("Error = %v, want %v", res.Error, reqErr)
	}
}

func TestChatRequestErrorWhileCollecting(t *testing.T) {
	fake := &fakeRequester{
		objects:   []string{helloResponse},
		streamErr: api.NewNetworkError("connection reset"),
	}
	res, err := New(fake).Chat(context.Background(), hiOptions())
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if res.OK || res.Error == nil || res.Error.Type != api.ErrorTypeNetwork {
		t.Errorf("expected network error in result, got %+v", res)
	}
}

// The mapping reads only the first response entry of an object; later
// entries are dropped without an error.
func TestChatIgnoresExtraResponseEntries(t *testing.T) {
	body := `{"responses":[
		{"candidates":[{"message":{"content":"first","author":"assistant"}}]},
		{"candidates":[{"message":{"content":"second","author":"assistant"}}]}
	]}`
	res, err := New(&fakeRequester{objects: []string{body}}).Chat(context.Background(), hiOptions())
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Value.Message.Content != "first" {
		t.Errorf("Content = %q, want first", res.Value.Message.Content)
	}
}

func TestRequestBody(t *testing.T) {
	temp := 0.2
	maxTokens := 128

	t.Run("minimal", func(t *testing.T) {
		fake := &fakeRequester{objects: []string{helloResponse}}
		if _, err := New(fake).Chat(context.Background(), hiOptions()); err != nil {
			t.Fatal(err)
		}

		if fake.body["model"] != "chat-bison" {
			t.Errorf("model = %v", fake.body["model"])
		}
		params := fake.body["parameters"].(map[string]any)
		for _, key := range []string{"temperature", "maxOutputTokens", "candidateCount"} {
			if _, ok := params[key]; ok {
				t.Errorf("%s should be omitted when unset", key)
			}
		}
		prompts := params["prompts"].([]any)
		if len(prompts) != 1 {
			t.Fatalf("prompts = %v", prompts)
		}
		prompt := prompts[0].(map[string]any)
		if prompt["context"] != "" {
			t.Errorf("context = %v, want empty string", prompt["context"])
		}
		messages := prompt["messages"].([]any)
		msg := messages[0].(map[string]any)
		if msg["author"] != "user" || msg["content"] != "hi" {
			t.Errorf("message = %v", msg)
		}
	})

	t.Run("optional fields", func(t *testing.T) {
		fake := &fakeRequester{objects: []string{helloResponse}}
		opts := hiOptions()
		opts.Temperature = &temp
		opts.MaxOutputTokens = &maxTokens
		if _, err := New(fake).Chat(context.Background(), opts); err != nil {
			t.Fatal(err)
		}
		params := fake.body["parameters"].(map[string]any)
		if params["temperature"] != 0.2 {
			t.Errorf("temperature = %v", params["temperature"])
		}
		if params["maxOutputTokens"] != float64(128) {
			t.Errorf("maxOutputTokens = %v", params["maxOutputTokens"])
		}
	})

	t.Run("extra params override computed fields", func(t *testing.T) {
		fake := &fakeRequester{objects: []string{helloResponse}}
		opts := hiOptions()
		opts.Temperature = &temp
		opts.ExtraParams = map[string]any{"temperature": 0.9, "topK": 40}
		if _, err := New(fake).Chat(context.Background(), opts); err != nil {
			t.Fatal(err)
		}
		params := fake.body["parameters"].(map[string]any)
		if params["temperature"] != 0.9 {
			t.Errorf("temperature = %v, want 0.9", params["temperature"])
		}
		if params["topK"] != float64(40) {
			t.Errorf("topK = %v", params["topK"])
		}
	})

	t.Run("nil messages serialize as empty list", func(t *testing.T) {
		body := requestBody(ChatOptions{Model: ModelChatBison}, nil)
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		want := `{"model":"chat-bison","parameters":{"prompts":[{"context":"","messages":[]}]}}`
		if string(data) != want {
			t.Errorf("body = %s, want %s", data, want)
		}
	})
}

func TestChatMultipleChoices(t *testing.T) {
	body := `{"responses":[{"candidates":[
		{"message":{"content":"one","author":"assistant"}},
		{"message":{"content":"two","author":"assistant"}},
		{"message":{"content":"three","author":"assistant"}}
	]}]}`
	fake := &fakeRequester{objects: []string{body}}
	opts := ChatMultipleChoicesOptions{ChatOptions: hiOptions(), ChoicesCount: 3}

	res, err := New(fake).ChatMultipleChoices(context.Background(), opts)
	if err != nil {
		t.Fatalf("ChatMultipleChoices: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got %v", res.Error)
	}

	want := []string{"one", "two", "three"}
	if len(res.Value.Choices) != len(want) {
		t.Fatalf("got %d choices, want %d", len(res.Value.Choices), len(want))
	}
	for i, w := range want {
		if got := res.Value.Choices[i].Message.Content; got != w {
			t.Errorf("choice %d = %q, want %q", i, got, w)
		}
	}

	params := fake.body["parameters"].(map[string]any)
	if params["candidateCount"] != float64(3) {
		t.Errorf("candidateCount = %v, want 3", params["candidateCount"])
	}
	if fake.path != PathChat {
		t.Errorf("path = %q", fake.path)
	}
}

func TestChatMultipleChoicesShapeErrors(t *testing.T) {
	tests := []struct {
		name    string
		objects []string
		want    string
	}{
		{"no response objects", nil, "Expected at least one response"},
		{"multiple response objects", []string{helloResponse, helloResponse}, "Got multiple responses from non-streaming endpoint"},
		{"no message", []string{`{"responses":[{"candidates":[]}]}`}, "Expected at least one message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ChatMultipleChoicesOptions{ChatOptions: hiOptions(), ChoicesCount: 2}
			_, err := New(&fakeRequester{objects: tt.objects}).ChatMultipleChoices(context.Background(), opts)
			if err == nil || err.Error() != tt.want {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
			if !errors.Is(err, api.ErrUnexpectedResponse) {
				t.Errorf("error %v does not match ErrUnexpectedResponse", err)
			}
		})
	}
}

func TestChatMultipleChoicesRequestError(t *testing.T) {
	reqErr := api.NewTooManyRequestsError("slow down")
	opts := ChatMultipleChoicesOptions{ChatOptions: hiOptions(), ChoicesCount: 2}
	res, err := New(&fakeRequester{err: reqErr}).ChatMultipleChoices(context.Background(), opts)
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if res.OK || res.Error != reqErr {
		t.Errorf("expected request error in result, got %+v", res)
	}
}

func TestChatStream(t *testing.T) {
	fake := &fakeRequester{objects: []string{
		`{"responses":[{"candidates":[{"message":{"content":"Hel","author":"assistant"}}]}]}`,
		`{"responses":[{"candidates":[{"message":{"content":"lo","author":"assistant"}}]}]}`,
		`{"responses":[{"candidates":[{"message":{"content":"!","author":"assistant"}},{"message":{"content":"ignored","author":"assistant"}}]}]}`,
	}}

	res, err := New(fake).ChatStream(context.Background(), hiOptions())
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got %v", res.Error)
	}
	if fake.path != PathChatStreaming {
		t.Errorf("path = %q, want %q", fake.path, PathChatStreaming)
	}

	var got []string
	for chunk, err := range res.Value.All() {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		got = append(got, chunk.Message.Content)
	}
	want := []string{"Hel", "lo", "!"}
	if len(got) != len(want) {
		t.Fatalf("chunks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChatStreamShapeError(t *testing.T) {
	fake := &fakeRequester{objects: []string{
		helloResponse,
		`{"responses":[{"candidates":[]}]}`,
		helloResponse,
	}}
	res, err := New(fake).ChatStream(context.Background(), hiOptions())
	if err != nil || !res.OK {
		t.Fatalf("ChatStream: res=%+v err=%v", res, err)
	}

	s := res.Value
	defer s.Close()

	if !s.Next() {
		t.Fatalf("expected first chunk, err=%v", s.Err())
	}
	if s.Next() {
		t.Fatal("stream should stop at the object without a message")
	}
	if !errors.Is(s.Err(), api.ErrUnexpectedResponse) {
		t.Errorf("Err = %v, want shape error", s.Err())
	}
	if s.Err().Error() != "Expected at least one message" {
		t.Errorf("Err = %q", s.Err().Error())
	}
}

func TestChatStreamRequestError(t *testing.T) {
	reqErr := api.NewServerError(503, "unavailable")
	res, err := New(&fakeRequester{err: reqErr}).ChatStream(context.Background(), hiOptions())
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if res.OK || res.Error != reqErr {
		t.Errorf("expected request error in result, got %+v", res)
	}
}

func TestChatEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathChat {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["model"] != "chat-bison" {
			t.Errorf("model = %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, helloResponse)
	}))
	defer srv.Close()

	client := New(transport.New(transport.Config{BaseURL: srv.URL}))
	res, err := client.Chat(context.Background(), hiOptions())
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got %v", res.Error)
	}
	if res.Value.Message != (ChatMessage{Content: "hello", Author: "assistant"}) {
		t.Errorf("Message = %+v", res.Value.Message)
	}
}

func TestChatStreamEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responses":[{"candidates":[{"message":{"content":"he","author":"assistant"}}]}]}`)
		w.(http.Flusher).Flush()
		io.WriteString(w, "\n"+`{"responses":[{"candidates":[{"message":{"content":"llo","author":"assistant"}}]}]}`)
	}))
	defer srv.Close()

	client := New(transport.New(transport.Config{BaseURL: srv.URL}))
	res, err := client.ChatStream(context.Background(), hiOptions())
	if err != nil || !res.OK {
		t.Fatalf("ChatStream: res=%+v err=%v", res, err)
	}
	chunks, err := stream.Collect(res.Value)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Message.Content+chunks[1].Message.Content != "hello" {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestChatEndToEndHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"missing token"}}`)
	}))
	defer srv.Close()

	client := New(transport.New(transport.Config{BaseURL: srv.URL}))
	res, err := client.Chat(context.Background(), hiOptions())
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if res.OK || res.Error.Type != api.ErrorTypeUnauthorized || res.Error.Message != "missing token" {
		t.Errorf("result = %+v", res)
	}
}

func TestRequestMethodPerEndpoint(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRequester{objects: []string{helloResponse}}
	client := New(fake)

	if _, err := client.Chat(ctx, hiOptions()); err != nil {
		t.Fatal(err)
	}
	if fake.method != "chunked" {
		t.Errorf("Chat used %s request, want chunked", fake.method)
	}

	opts := ChatMultipleChoicesOptions{ChatOptions: hiOptions(), ChoicesCount: 1}
	if _, err := client.ChatMultipleChoices(ctx, opts); err != nil {
		t.Fatal(err)
	}
	if fake.method != "chunked" {
		t.Errorf("ChatMultipleChoices used %s request, want chunked", fake.method)
	}

	res, err := client.ChatStream(ctx, hiOptions())
	if err != nil {
		t.Fatal(err)
	}
	res.Value.Close()
	if fake.method != "streaming" {
		t.Errorf("ChatStream used %s request, want streaming", fake.method)
	}
}

func TestChatHonorsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, helloResponse)
	}))
	defer srv.Close()
	defer close(release)

	client := New(transport.New(transport.Config{BaseURL: srv.URL, Timeout: 100 * time.Millisecond}))

	start := time.Now()
	res, err := client.Chat(context.Background(), hiOptions())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if res.OK {
		t.Fatal("expected the request to time out")
	}
	if res.Error.Type != api.ErrorTypeNetwork {
		t.Errorf("Type = %q, want %q", res.Error.Type, api.ErrorTypeNetwork)
	}
	if elapsed > time.Second {
		t.Errorf("Chat returned after %s, want close to the 100ms timeout", elapsed)
	}
}
