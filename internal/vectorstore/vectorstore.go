// Package vectorstore provides a brute-force cosine-similarity search over
// encrypted-at-rest chunks. Adapted from the teacher's
// internal/service/retriever.go VectorSearcher shape: no pgvector is
// available locally, so SimilaritySearch scans every chunk in memory rather
// than delegating to a database index.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Chunk is one embedded, persisted markdown fragment.
type Chunk struct {
	ChunkID          string
	DocumentID       string
	Content          string
	Embedding        []float32
	DocType          string
	DocDate          *int64 // unix seconds, nil if undated
	ProfessionalName string
}

// ScoredChunk is a Chunk with its cosine similarity to a query vector.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float64
}

// ChunkSource loads every chunk available for search. Implemented by
// repository.ChunkRepo.ListAll, adapted into this package's Chunk shape by
// the caller.
type ChunkSource interface {
	ListAll(ctx context.Context) ([]Chunk, error)
}

// Store is a brute-force in-memory cosine-similarity index.
type Store struct {
	source ChunkSource
}

func New(source ChunkSource) *Store {
	return &Store{source: source}
}

// Search returns the top-k chunks by cosine similarity to queryVec, without
// any threshold filtering — callers apply the relevance-floor cut
// themselves so the store stays a dumb scorer.
func (s *Store) Search(ctx context.Context, queryVec []float32, topK int) ([]ScoredChunk, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("vectorstore.Search: empty query vector")
	}
	chunks, err := s.source.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.Search: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != len(queryVec) {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Similarity: cosineSimilarity(queryVec, c.Embedding)})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })

	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
