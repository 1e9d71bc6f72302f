// Package embed implements the legacy embedding facade.
package embed

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/rhuss/modelfarm/pkg/api"
	"github.com/rhuss/modelfarm/pkg/result"
)

// PathEmbedding is the embedding endpoint.
const PathEmbedding = "/v1beta/embedding"

// EmbeddingModel identifies an embedding model.
type EmbeddingModel string

// ModelTextEmbeddingGecko is the embedding model offered by the service.
const ModelTextEmbeddingGecko EmbeddingModel = "textembedding-gecko"

// EmbedOptions configures an embedding request.
type EmbedOptions struct {
	Model EmbeddingModel

	// Content holds the texts to embed, one vector each.
	Content []string

	// ExtraParams are merged into the request parameters last.
	ExtraParams map[string]any
}

// Embedding is the vector for one text.
type Embedding struct {
	Values []float64 `json:"values"`

	// Truncated reports whether the input was cut to fit the model.
	Truncated bool `json:"truncated"`
}

// EmbedResult holds the embeddings in input order. Embedding is the first
// of them.
type EmbedResult struct {
	Embedding  Embedding   `json:"embedding"`
	Embeddings []Embedding `json:"embeddings"`
}

// Requester is the transport used by the facade.
type Requester interface {
	MakeSimpleRequest(ctx context.Context, path string, body any) result.Result[json.RawMessage, *api.RequestError]
}

// Client is the embedding facade.
type Client struct {
	requester Requester
}

// New creates a Client that sends requests through r.
func New(r Requester) *Client {
	return &Client{requester: r}
}

type envelope struct {
	Embeddings []Embedding `json:"embeddings"`
}

// Embed returns the embeddings for opts.Content. Transport failures are
// returned in the Result; a response without embeddings is returned as an
// error matching api.ErrUnexpectedResponse.
func (c *Client) Embed(ctx context.Context, opts EmbedOptions) (result.Result[EmbedResult, *api.RequestError], error) {
	texts := opts.Content
	if texts == nil {
		texts = []string{}
	}
	params := map[string]any{"texts": texts}
	maps.Copy(params, opts.ExtraParams)

	res := c.requester.MakeSimpleRequest(ctx, PathEmbedding, map[string]any{
		"model":      opts.Model,
		"parameters": params,
	})
	if !res.OK {
		return result.Err[EmbedResult](res.Error), nil
	}

	var env envelope
	if err := json.Unmarshal(res.Value, &env); err != nil {
		return result.Err[EmbedResult](api.NewDecodeError("failed to parse embedding response: " + err.Error())), nil
	}
	if len(env.Embeddings) == 0 {
		return result.Result[EmbedResult, *api.RequestError]{}, api.NewShapeError("Expected at least one embedding")
	}

	return result.Ok[EmbedResult, *api.RequestError](EmbedResult{
		Embedding:  env.Embeddings[0],
		Embeddings: env.Embeddings,
	}), nil
}
