package chatextract

import (
	"context"
	"testing"
)

func TestStorePendingCreatesBatchAndItems(t *testing.T) {
	_, extractions := newTestRepos(t)

	items := []VerifiedItem{
		{
			Item:       ExtractedItem{Domain: DomainSymptom, Data: map[string]any{"specific": "headache"}, SourceMessageIndices: []int{0}},
			Grounding:  GroundingGrounded,
			Confidence: 0.85,
		},
		{
			Item:       ExtractedItem{Domain: DomainMedication, Data: map[string]any{"name": "ibuprofen"}},
			Grounding:  GroundingPartial,
			Confidence: 0.6,
		},
	}

	batchID, err := StorePending(context.Background(), extractions, "conv-1", items)
	if err != nil {
		t.Fatalf("StorePending: %v", err)
	}
	if batchID == "" {
		t.Fatal("expected a non-empty batch id")
	}

	stored, err := extractions.ListPendingByBatch(context.Background(), batchID)
	if err != nil {
		t.Fatalf("ListPendingByBatch: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 pending items, got %d", len(stored))
	}
	for _, it := range stored {
		if it.Status != "pending" {
			t.Errorf("expected status pending, got %q", it.Status)
		}
		if it.ConversationID != "conv-1" {
			t.Errorf("expected conversation id conv-1, got %q", it.ConversationID)
		}
	}
}

func TestStorePendingEmptyItemsCreatesEmptyBatch(t *testing.T) {
	_, extractions := newTestRepos(t)

	batchID, err := StorePending(context.Background(), extractions, "conv-2", nil)
	if err != nil {
		t.Fatalf("StorePending: %v", err)
	}

	stored, err := extractions.ListPendingByBatch(context.Background(), batchID)
	if err != nil {
		t.Fatalf("ListPendingByBatch: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected no pending items, got %d", len(stored))
	}
}
