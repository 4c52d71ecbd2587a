// Package embed batches text embedding calls and L2-normalizes the result.
// Adapted from the teacher's internal/service/embedder.go (batch size,
// dimension check, l2Normalize), generalized from a fixed 768-dim Vertex AI
// model to any locally-installed embedding model (spec.md §4.10: "dimension
// fixed per model", not fixed across models).
package embed

import (
	"context"
	"fmt"
	"math"
)

// maxBatchSize mirrors the teacher's per-call batching limit; the local
// runtime has no documented cap, but batching this way keeps memory and
// request size bounded the same way.
const maxBatchSize = 250

// Client embeds a batch of texts with one model.
type Client interface {
	EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Embedder batches and normalizes embedding calls for one model.
type Embedder struct {
	client Client
	model  string
}

func New(client Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

// Embed returns one L2-normalized vector per input text, batching calls at
// maxBatchSize and validating that every vector in a batch shares the first
// vector's dimension.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embed.Embed: no texts provided")
	}

	all := make([][]float32, 0, len(texts))
	wantDim := -1

	for i := 0; i < len(texts); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		vectors, err := e.client.EmbedTexts(ctx, e.model, batch)
		if err != nil {
			return nil, fmt.Errorf("embed.Embed: batch %d-%d: %w", i, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed.Embed: got %d vectors for %d texts in batch", len(vectors), len(batch))
		}
		for j, vec := range vectors {
			if wantDim == -1 {
				wantDim = len(vec)
			}
			if len(vec) != wantDim {
				return nil, fmt.Errorf("embed.Embed: vector %d has %d dimensions, want %d", i+j, len(vec), wantDim)
			}
			vectors[j] = l2Normalize(vec)
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func l2Normalize(vec []float32) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// OllamaClient adapts llmclient.Client's single-text Embed into the
// batch-shaped Client interface this package expects.
type OllamaClient struct {
	Embed func(ctx context.Context, model, text string) ([]float32, error)
}

func (o OllamaClient) EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := o.Embed(ctx, model, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
