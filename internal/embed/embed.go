// Package embed turns cue text into dense vectors for semantic search.
// All texts for a corpus go through in a single batched API call so an
// index build costs one round trip.
package embed

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder converts a batch of texts into one vector per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}

// OpenAI is the OpenAI embeddings API implementation.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI builds an Embedder for model using the OPENAI_API_KEY
// environment variable. OPENAI_BASE_URL redirects to a compatible
// gateway.
func NewOpenAI(model string) (*OpenAI, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Embed requests embeddings for all texts in one call and returns them
// in input order.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", idx)
		}
		vectors[idx] = d.Embedding
	}
	return vectors, nil
}

// Model reports the embedding model in use.
func (o *OpenAI) Model() string {
	return o.model
}
