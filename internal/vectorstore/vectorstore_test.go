package vectorstore

import (
	"context"
	"testing"
)

type fakeSource struct {
	chunks []Chunk
}

func (f fakeSource) ListAll(ctx context.Context) ([]Chunk, error) {
	return f.chunks, nil
}

func TestSearchRanksBySimilarity(t *testing.T) {
	src := fakeSource{chunks: []Chunk{
		{ChunkID: "a", Embedding: []float32{1, 0, 0}},
		{ChunkID: "b", Embedding: []float32{0, 1, 0}},
		{ChunkID: "c", Embedding: []float32{0.9, 0.1, 0}},
	}}
	s := New(src)
	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ChunkID != "a" {
		t.Fatalf("expected exact match first, got %s", results[0].Chunk.ChunkID)
	}
	if results[1].Chunk.ChunkID != "c" {
		t.Fatalf("expected near match second, got %s", results[1].Chunk.ChunkID)
	}
}

func TestSearchSkipsDimensionMismatch(t *testing.T) {
	src := fakeSource{chunks: []Chunk{
		{ChunkID: "a", Embedding: []float32{1, 0}},
		{ChunkID: "b", Embedding: []float32{1, 0, 0}},
	}}
	s := New(src)
	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ChunkID != "b" {
		t.Fatalf("expected only dimension-matching chunk, got %+v", results)
	}
}

func TestSearchEmptyQueryErrors(t *testing.T) {
	s := New(fakeSource{})
	if _, err := s.Search(context.Background(), nil, 5); err == nil {
		t.Fatal("expected error for empty query vector")
	}
}
