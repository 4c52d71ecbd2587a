package rag

import (
	"testing"
	"time"

	"github.com/ktiyab/coheara/internal/vectorstore"
)

func TestRerankTemporalDropsBelowFloor(t *testing.T) {
	now := time.Now()
	results := []vectorstore.ScoredChunk{
		{Chunk: vectorstore.Chunk{ChunkID: "low"}, Similarity: 0.1},
		{Chunk: vectorstore.Chunk{ChunkID: "high"}, Similarity: 0.9},
	}
	ranked := rerankTemporal(results, 0.2, now)
	if len(ranked) != 1 || ranked[0].ChunkID != "high" {
		t.Fatalf("expected only the above-floor chunk to survive, got %+v", ranked)
	}
}

func TestRerankTemporalMissingDateUsesMidpoint(t *testing.T) {
	now := time.Now()
	results := []vectorstore.ScoredChunk{
		{Chunk: vectorstore.Chunk{ChunkID: "a"}, Similarity: 0.5},
	}
	ranked := rerankTemporal(results, 1.0, now)
	if len(ranked) != 1 {
		t.Fatalf("expected one result")
	}
	if ranked[0].FinalScore != missingDateRecency {
		t.Fatalf("expected final score to equal the midpoint recency with weight 1.0, got %f", ranked[0].FinalScore)
	}
}

func TestRerankTemporalRecentDocScoresHigherThanOld(t *testing.T) {
	now := time.Now()
	recent := now.AddDate(0, 0, -1).Unix()
	old := now.AddDate(-2, 0, 0).Unix()
	results := []vectorstore.ScoredChunk{
		{Chunk: vectorstore.Chunk{ChunkID: "recent", DocDate: &recent}, Similarity: 0.5},
		{Chunk: vectorstore.Chunk{ChunkID: "old", DocDate: &old}, Similarity: 0.5},
	}
	ranked := rerankTemporal(results, 0.8, now)
	if len(ranked) != 2 || ranked[0].ChunkID != "recent" {
		t.Fatalf("expected the recent document to rank first, got %+v", ranked)
	}
}

func TestDedupeByChunkIDKeepsHighestScore(t *testing.T) {
	chunks := []ScoredChunk{
		{ChunkID: "a", FinalScore: 0.3},
		{ChunkID: "a", FinalScore: 0.8},
		{ChunkID: "b", FinalScore: 0.5},
	}
	deduped := dedupeByChunkID(chunks)
	if len(deduped) != 2 {
		t.Fatalf("expected 2 unique chunks, got %d", len(deduped))
	}
	for _, c := range deduped {
		if c.ChunkID == "a" && c.FinalScore != 0.8 {
			t.Fatalf("expected the higher score to win for chunk a, got %f", c.FinalScore)
		}
	}
}
