// Package mockserver provides a deterministic modelfarm service for tests
// and local development. Responses depend only on the request content:
//
//   - /v1beta/chat answers "hello" from "assistant", or candidateCount
//     candidates when that parameter is set.
//   - /v1beta/chat_streaming writes the same reply as back-to-back JSON
//     objects, one per token.
//   - /v1beta/embedding returns one vector per input text.
//   - /v1beta2/chat/completions returns a chat.completion, or an SSE chunk
//     stream ending in [DONE] when "stream" is true.
//
// A model named "mock-error-<status>" makes any endpoint fail with that
// HTTP status.
package mockserver

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// Options configures the mock.
type Options struct {
	// Token, when set, is the bearer token every request must carry.
	Token string
}

// Server is the mock service.
type Server struct {
	opts Options
	mux  *http.ServeMux
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{opts: opts, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /v1beta/chat", s.authorized(s.handleChat))
	s.mux.HandleFunc("POST /v1beta/chat_streaming", s.authorized(s.handleChatStreaming))
	s.mux.HandleFunc("POST /v1beta/embedding", s.authorized(s.handleEmbedding))
	s.mux.HandleFunc("POST /v1beta2/chat/completions", s.authorized(s.handleCompletions))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next(w, r)
	}
}

// --- Request types ---

type legacyChatRequest struct {
	Model      string `json:"model"`
	Parameters struct {
		Prompts []struct {
			Context  string `json:"context"`
			Messages []struct {
				Content string `json:"content"`
				Author  string `json:"author"`
			} `json:"messages"`
		} `json:"prompts"`
		CandidateCount int `json:"candidateCount"`
	} `json:"parameters"`
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Parameters struct {
		Texts []string `json:"texts"`
	} `json:"parameters"`
}

type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream bool `json:"stream"`
}

// --- Legacy chat ---

type message struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

type candidate struct {
	Message message `json:"message"`
}

type legacyResponse struct {
	Responses []struct {
		Candidates []candidate `json:"candidates"`
	} `json:"responses"`
}

func newLegacyResponse(candidates ...candidate) legacyResponse {
	var resp legacyResponse
	resp.Responses = append(resp.Responses, struct {
		Candidates []candidate `json:"candidates"`
	}{Candidates: candidates})
	return resp
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req legacyChatRequest
	if !decode(w, r, &req) || failModel(w, req.Model) {
		return
	}

	n := req.Parameters.CandidateCount
	if n < 1 {
		n = 1
	}
	candidates := make([]candidate, n)
	for i := range candidates {
		text := "hello"
		if i > 0 {
			text = fmt.Sprintf("hello %d", i+1)
		}
		candidates[i] = candidate{Message: message{Content: text, Author: "assistant"}}
	}
	writeJSON(w, newLegacyResponse(candidates...))
}

func (s *Server) handleChatStreaming(w http.ResponseWriter, r *http.Request) {
	var req legacyChatRequest
	if !decode(w, r, &req) || failModel(w, req.Model) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	for _, token := range []string{"hel", "lo"} {
		enc.Encode(newLegacyResponse(candidate{Message: message{Content: token, Author: "assistant"}}))
		flusher.Flush()
	}
}

// --- Embeddings ---

func (s *Server) handleEmbedding(w http.ResponseWriter, r *http.Request) {
	var req embeddingRequest
	if !decode(w, r, &req) || failModel(w, req.Model) {
		return
	}

	type embedding struct {
		Values    []float64 `json:"values"`
		Truncated bool      `json:"truncated"`
	}
	embeddings := make([]embedding, 0, len(req.Parameters.Texts))
	for _, text := range req.Parameters.Texts {
		embeddings = append(embeddings, embedding{Values: vectorFor(text)})
	}
	writeJSON(w, map[string]any{"embeddings": embeddings})
}

// vectorFor derives a stable 4-dimensional vector from text.
func vectorFor(text string) []float64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	sum := h.Sum64()
	v := make([]float64, 4)
	for i := range v {
		v[i] = float64((sum>>(16*i))&0xffff)/0xffff*2 - 1
	}
	return v
}

// --- Chat completions ---

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if !decode(w, r, &req) || failModel(w, req.Model) {
		return
	}
	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	if req.Stream {
		streamCompletion(w, model)
		return
	}

	writeJSON(w, map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "hello"},
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 1, "total_tokens": 11},
	})
}

func streamCompletion(w http.ResponseWriter, model string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSEChunk(w, model, map[string]any{"role": "assistant"}, nil, nil)
	flusher.Flush()

	tokens := []string{"hel", "lo"}
	for _, token := range tokens {
		writeSSEChunk(w, model, map[string]any{"content": token}, nil, nil)
		flusher.Flush()
	}

	stop := "stop"
	writeSSEChunk(w, model, map[string]any{}, &stop, map[string]any{
		"prompt_tokens":     10,
		"completion_tokens": len(tokens),
		"total_tokens":      10 + len(tokens),
	})
	flusher.Flush()

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeSSEChunk(w http.ResponseWriter, model string, delta map[string]any, finishReason *string, usage map[string]any) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": finishReason,
			},
		},
	}
	if usage != nil {
		chunk["usage"] = usage
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Helpers ---

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// failModel answers with the status encoded in a "mock-error-<status>"
// model name and reports whether it did.
func failModel(w http.ResponseWriter, model string) bool {
	code, ok := strings.CutPrefix(model, "mock-error-")
	if !ok {
		return false
	}
	status, err := strconv.Atoi(code)
	if err != nil || status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	writeError(w, status, fmt.Sprintf("mock failure %d", status))
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("mock response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": msg},
	})
}
