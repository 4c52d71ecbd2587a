package chatextract

import (
	"context"
	"testing"

	"github.com/ktiyab/coheara/internal/repository"
)

func seedPending(t *testing.T, extractions *repository.ExtractionRepo, domain Domain, data map[string]any) string {
	t.Helper()
	batchID, err := StorePending(context.Background(), extractions, "conv-1", []VerifiedItem{
		{Item: ExtractedItem{Domain: domain, Data: data}, Grounding: GroundingGrounded, Confidence: 0.9},
	})
	if err != nil {
		t.Fatalf("StorePending: %v", err)
	}
	items, err := extractions.ListPendingByBatch(context.Background(), batchID)
	if err != nil {
		t.Fatalf("ListPendingByBatch: %v", err)
	}
	return items[0].ID
}

func TestResolveConfirmDispatchesItem(t *testing.T) {
	repos, extractions := newTestRepos(t)
	id := seedPending(t, extractions, DomainSymptom, map[string]any{"specific": "headache"})

	outcome, err := ResolvePendingItem(context.Background(), extractions, repos, ResolveRequest{
		PendingItemID: id, Decision: DecisionConfirm,
	})
	if err != nil {
		t.Fatalf("ResolvePendingItem: %v", err)
	}
	if outcome.Status != "confirmed" {
		t.Errorf("expected status confirmed, got %q", outcome.Status)
	}
	if outcome.Dispatch == nil || outcome.Dispatch.CreatedRecordID == "" {
		t.Fatal("expected a dispatch result with a created record id")
	}

	symptoms, err := repos.Clinical.ListSymptoms(context.Background())
	if err != nil {
		t.Fatalf("ListSymptoms: %v", err)
	}
	if len(symptoms) != 1 {
		t.Fatalf("expected 1 symptom recorded, got %d", len(symptoms))
	}
}

func TestResolveDismissDoesNotDispatch(t *testing.T) {
	repos, extractions := newTestRepos(t)
	id := seedPending(t, extractions, DomainSymptom, map[string]any{"specific": "headache"})

	outcome, err := ResolvePendingItem(context.Background(), extractions, repos, ResolveRequest{
		PendingItemID: id, Decision: DecisionDismiss,
	})
	if err != nil {
		t.Fatalf("ResolvePendingItem: %v", err)
	}
	if outcome.Status != "dismissed" {
		t.Errorf("expected status dismissed, got %q", outcome.Status)
	}
	if outcome.Dispatch != nil {
		t.Error("did not expect a dispatch result for a dismissed item")
	}

	symptoms, err := repos.Clinical.ListSymptoms(context.Background())
	if err != nil {
		t.Fatalf("ListSymptoms: %v", err)
	}
	if len(symptoms) != 0 {
		t.Errorf("expected no symptoms recorded, got %d", len(symptoms))
	}
}

func TestResolveEditDispatchesEditedData(t *testing.T) {
	repos, extractions := newTestRepos(t)
	id := seedPending(t, extractions, DomainMedication, map[string]any{"name": "wrong-name"})

	outcome, err := ResolvePendingItem(context.Background(), extractions, repos, ResolveRequest{
		PendingItemID: id, Decision: DecisionEdit,
		EditedData: map[string]any{"name": "ibuprofen", "dose": "200mg"},
	})
	if err != nil {
		t.Fatalf("ResolvePendingItem: %v", err)
	}
	if outcome.Status != "edited_confirmed" {
		t.Errorf("expected status edited_confirmed, got %q", outcome.Status)
	}

	meds, err := repos.Medications.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(meds) != 1 || meds[0].GenericName != "ibuprofen" {
		t.Fatalf("expected edited medication name to be dispatched, got %+v", meds)
	}
}

func TestResolveRejectsAlreadyResolvedItem(t *testing.T) {
	repos, extractions := newTestRepos(t)
	id := seedPending(t, extractions, DomainSymptom, map[string]any{"specific": "headache"})

	if _, err := ResolvePendingItem(context.Background(), extractions, repos, ResolveRequest{PendingItemID: id, Decision: DecisionConfirm}); err != nil {
		t.Fatalf("first ResolvePendingItem: %v", err)
	}
	if _, err := ResolvePendingItem(context.Background(), extractions, repos, ResolveRequest{PendingItemID: id, Decision: DecisionConfirm}); err == nil {
		t.Fatal("expected an error when resolving an already-resolved item")
	}
}
