package chatextract

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/repository"
)

func pendingItem(t *testing.T, domain Domain, data map[string]any) repository.PendingReviewItem {
	t.Helper()
	encoded, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return repository.PendingReviewItem{
		ID:             uuid.NewString(),
		ConversationID: "conv-1",
		BatchID:        "batch-1",
		Domain:         string(domain),
		ExtractedData:  string(encoded),
		Confidence:     0.9,
		Grounding:      string(GroundingGrounded),
		Status:         "confirmed",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestDispatchSymptomCreatesDocumentAndSymptom(t *testing.T) {
	repos, _ := newTestRepos(t)
	item := pendingItem(t, DomainSymptom, map[string]any{
		"specific":    "headache",
		"body_region": "forehead",
		"onset_hint":  "2026-07-20",
	})

	result, err := DispatchConfirmedItem(context.Background(), repos, item)
	if err != nil {
		t.Fatalf("DispatchConfirmedItem: %v", err)
	}
	if result.CreatedRecordID == "" {
		t.Fatal("expected a created record id")
	}
	if result.Domain != DomainSymptom {
		t.Errorf("expected symptom domain, got %v", result.Domain)
	}

	symptoms, err := repos.Clinical.ListSymptoms(context.Background())
	if err != nil {
		t.Fatalf("ListSymptoms: %v", err)
	}
	if len(symptoms) != 1 {
		t.Fatalf("expected 1 symptom, got %d", len(symptoms))
	}
	if symptoms[0].OnsetDate == nil {
		t.Error("expected an onset date to be parsed")
	}
}

func TestDispatchMedicationCreatesMedication(t *testing.T) {
	repos, _ := newTestRepos(t)
	item := pendingItem(t, DomainMedication, map[string]any{
		"name": "ibuprofen",
		"dose": "200mg",
	})

	result, err := DispatchConfirmedItem(context.Background(), repos, item)
	if err != nil {
		t.Fatalf("DispatchConfirmedItem: %v", err)
	}
	if result.CreatedRecordID == "" {
		t.Fatal("expected a created record id")
	}

	meds, err := repos.Medications.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(meds) != 1 || meds[0].GenericName != "ibuprofen" {
		t.Fatalf("expected ibuprofen to be recorded, got %+v", meds)
	}
}

func TestDispatchAppointmentCreatesProfessionalAndAppointment(t *testing.T) {
	repos, _ := newTestRepos(t)
	item := pendingItem(t, DomainAppointment, map[string]any{
		"professional_name": "Dr. Okafor",
		"specialty":         "cardiology",
		"date_hint":         "2026-08-01",
	})

	result, err := DispatchConfirmedItem(context.Background(), repos, item)
	if err != nil {
		t.Fatalf("DispatchConfirmedItem: %v", err)
	}
	if result.CreatedRecordID == "" {
		t.Fatal("expected a created record id")
	}

	appts, err := repos.Clinical.ListAppointments(context.Background())
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}

	profs, err := repos.Professionals.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(profs) != 1 || profs[0].Name != "Dr. Okafor" {
		t.Fatalf("expected Dr. Okafor to be recorded, got %+v", profs)
	}
}

func TestDispatchUnknownDomainFails(t *testing.T) {
	repos, _ := newTestRepos(t)
	item := pendingItem(t, Domain("unknown"), map[string]any{})

	if _, err := DispatchConfirmedItem(context.Background(), repos, item); err == nil {
		t.Fatal("expected an error for an unknown domain")
	}
}
