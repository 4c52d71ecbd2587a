package embed

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	dim     int
	calls   int
	failOn  int
	fixedOk bool
}

func (f *fakeClient) EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error) {
	f.calls++
	if f.failOn > 0 && f.calls >= f.failOn {
		return nil, errors.New("boom")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		for j := range vec {
			vec[j] = float32(i + j + 1)
		}
		out[i] = vec
	}
	return out, nil
}

func TestEmbedNormalizes(t *testing.T) {
	client := &fakeClient{dim: 4}
	e := New(client, "nomic-embed-text")
	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	for _, vec := range vectors {
		var sumSq float64
		for _, v := range vec {
			sumSq += float64(v) * float64(v)
		}
		if sumSq < 0.99 || sumSq > 1.01 {
			t.Fatalf("expected unit-norm vector, got sum-of-squares %f", sumSq)
		}
	}
}

func TestEmbedBatchesAtMaxBatchSize(t *testing.T) {
	client := &fakeClient{dim: 2}
	e := New(client, "m")
	texts := make([]string, maxBatchSize+10)
	for i := range texts {
		texts[i] = "text"
	}
	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 batch calls, got %d", client.calls)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e := New(&fakeClient{dim: 2}, "m")
	if _, err := e.Embed(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestEmbedPropagatesClientError(t *testing.T) {
	client := &fakeClient{dim: 2, failOn: 1}
	e := New(client, "m")
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestOllamaClientAdaptsSingleTextEmbed(t *testing.T) {
	calls := 0
	adapter := OllamaClient{
		Embed: func(ctx context.Context, model, text string) ([]float32, error) {
			calls++
			return []float32{1, 0, 0}, nil
		},
	}
	vectors, err := adapter.EmbedTexts(context.Background(), "m", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vectors) != 3 || calls != 3 {
		t.Fatalf("expected 3 calls and 3 vectors, got %d calls %d vectors", calls, len(vectors))
	}
}
