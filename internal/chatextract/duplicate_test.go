package chatextract

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/repository"
)

func TestCheckDuplicateMedicationAlreadyTracked(t *testing.T) {
	repos, _ := newTestRepos(t)
	doc := &repository.Document{
		ID: uuid.NewString(), DocType: "conversation", Title: "t", IngestionDate: time.Now().UTC(),
		SourceFile: "x", PipelineStatus: "complete",
	}
	if err := repos.Documents.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	med := repository.Medication{
		ID: uuid.NewString(), DocumentID: doc.ID, GenericName: "ibuprofen", Status: "active", CreatedAt: time.Now().UTC(),
	}
	if err := repos.Medications.ReplaceForDocument(context.Background(), doc.ID, []repository.Medication{med}, nil, nil, nil); err != nil {
		t.Fatalf("ReplaceForDocument: %v", err)
	}

	status, err := CheckDuplicate(context.Background(), repos, DomainMedication, map[string]any{"name": "ibuprofen"}, time.Now())
	if err != nil {
		t.Fatalf("CheckDuplicate: %v", err)
	}
	if status != DuplicateStatusAlreadyTracked {
		t.Errorf("expected AlreadyTracked, got %v", status)
	}
}

func TestCheckDuplicateMedicationNew(t *testing.T) {
	repos, _ := newTestRepos(t)
	status, err := CheckDuplicate(context.Background(), repos, DomainMedication, map[string]any{"name": "amoxicillin"}, time.Now())
	if err != nil {
		t.Fatalf("CheckDuplicate: %v", err)
	}
	if status != DuplicateStatusNew {
		t.Errorf("expected New, got %v", status)
	}
}

func TestCheckDuplicateSymptomPossible(t *testing.T) {
	repos, _ := newTestRepos(t)
	doc := &repository.Document{
		ID: uuid.NewString(), DocType: "conversation", Title: "t", IngestionDate: time.Now().UTC(),
		SourceFile: "x", PipelineStatus: "complete",
	}
	if err := repos.Documents.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	onset := time.Now().UTC()
	sym := repository.Symptom{ID: uuid.NewString(), DocumentID: doc.ID, Description: "headache, forehead, sharp", OnsetDate: &onset}
	if err := repos.Clinical.ReplaceSymptoms(context.Background(), doc.ID, []repository.Symptom{sym}); err != nil {
		t.Fatalf("ReplaceSymptoms: %v", err)
	}

	status, err := CheckDuplicate(context.Background(), repos, DomainSymptom, map[string]any{
		"specific": "headache", "body_region": "forehead", "character": "sharp",
	}, onset)
	if err != nil {
		t.Fatalf("CheckDuplicate: %v", err)
	}
	if status != DuplicateStatusPossible {
		t.Errorf("expected Possible, got %v", status)
	}
}
