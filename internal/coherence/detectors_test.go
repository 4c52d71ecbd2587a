package coherence

import (
	"testing"
	"time"

	"github.com/ktiyab/coheara/internal/repository"
)

func strp(s string) *string { return &s }

func TestDetectConflictFlagsDifferentPrescribersDifferentDose(t *testing.T) {
	snap := RepositorySnapshot{
		Medications: []repository.Medication{
			{ID: "m1", GenericName: "lisinopril", Dose: strp("10mg"), PrescriberID: strp("p1"), Status: "active"},
			{ID: "m2", GenericName: "lisinopril", Dose: strp("20mg"), PrescriberID: strp("p2"), Status: "active"},
		},
	}
	findings := detectConflict(snap, CoherenceReferenceData{}, "en")
	if len(findings) != 1 {
		t.Fatalf("expected 1 conflict finding, got %d: %+v", len(findings), findings)
	}
	if findings[0].Severity != "warning" {
		t.Fatalf("expected warning severity, got %s", findings[0].Severity)
	}
}

func TestDetectConflictIgnoresSamePrescriber(t *testing.T) {
	snap := RepositorySnapshot{
		Medications: []repository.Medication{
			{ID: "m1", GenericName: "lisinopril", Dose: strp("10mg"), PrescriberID: strp("p1"), Status: "active"},
			{ID: "m2", GenericName: "lisinopril", Dose: strp("20mg"), PrescriberID: strp("p1"), Status: "active"},
		},
	}
	findings := detectConflict(snap, CoherenceReferenceData{}, "en")
	if len(findings) != 0 {
		t.Fatalf("expected no findings for a single prescriber changing their own regimen, got %+v", findings)
	}
}

func TestDetectDuplicateFlagsAliasedBrands(t *testing.T) {
	ref := CoherenceReferenceData{Aliases: []MedicationAlias{{Generic: "acetaminophen", Brand: "tylenol"}}}
	snap := RepositorySnapshot{
		Medications: []repository.Medication{
			{ID: "m1", GenericName: "acetaminophen", Status: "active"},
			{ID: "m2", GenericName: "tylenol", Status: "active"},
		},
	}
	findings := detectDuplicate(snap, ref, "en")
	if len(findings) != 1 {
		t.Fatalf("expected 1 duplicate finding, got %d: %+v", len(findings), findings)
	}
}

func TestDetectGapFlagsActiveDiagnosisWithNoMedications(t *testing.T) {
	snap := RepositorySnapshot{
		Diagnoses: []repository.Diagnosis{{ID: "d1", Name: "hypertension", Status: "active"}},
	}
	findings := detectGap(snap, "en")
	if len(findings) != 1 {
		t.Fatalf("expected 1 gap finding, got %d", len(findings))
	}
}

func TestDetectGapSkipsWhenMedicationsExist(t *testing.T) {
	snap := RepositorySnapshot{
		Diagnoses:   []repository.Diagnosis{{ID: "d1", Name: "hypertension", Status: "active"}},
		Medications: []repository.Medication{{ID: "m1", GenericName: "lisinopril", Status: "active"}},
	}
	findings := detectGap(snap, "en")
	if len(findings) != 0 {
		t.Fatalf("expected no gap findings once a medication exists, got %+v", findings)
	}
}

func TestDetectDriftFlagsUndocumentedReason(t *testing.T) {
	snap := RepositorySnapshot{
		DoseChanges: []repository.DoseChange{
			{ID: "dc1", MedicationID: "m1", ChangedAt: time.Now()},
		},
	}
	findings := detectDrift(snap, "en")
	if len(findings) != 1 {
		t.Fatalf("expected 1 drift finding, got %d", len(findings))
	}
}

func TestDetectDriftSkipsDocumentedReason(t *testing.T) {
	snap := RepositorySnapshot{
		DoseChanges: []repository.DoseChange{
			{ID: "dc1", MedicationID: "m1", ChangedAt: time.Now(), Reason: strp("titrating up for symptom control")},
		},
	}
	findings := detectDrift(snap, "en")
	if len(findings) != 0 {
		t.Fatalf("expected no drift findings with a documented reason, got %+v", findings)
	}
}

func TestDetectTemporalFlagsSymptomNearMedicationStart(t *testing.T) {
	start := time.Now().AddDate(0, 0, -5)
	onset := time.Now().AddDate(0, 0, -2)
	snap := RepositorySnapshot{
		Medications: []repository.Medication{{ID: "m1", GenericName: "ibuprofen", StartDate: &start}},
		Symptoms:    []repository.Symptom{{ID: "s1", Description: "stomach pain", OnsetDate: &onset}},
	}
	findings := detectTemporal(snap, "en")
	if len(findings) != 1 {
		t.Fatalf("expected 1 temporal finding, got %d", len(findings))
	}
}

func TestDetectTemporalIgnoresDistantOnset(t *testing.T) {
	start := time.Now().AddDate(0, -6, 0)
	onset := time.Now()
	snap := RepositorySnapshot{
		Medications: []repository.Medication{{ID: "m1", GenericName: "ibuprofen", StartDate: &start}},
		Symptoms:    []repository.Symptom{{ID: "s1", Description: "stomach pain", OnsetDate: &onset}},
	}
	findings := detectTemporal(snap, "en")
	if len(findings) != 0 {
		t.Fatalf("expected no temporal findings for a 6-month gap, got %+v", findings)
	}
}

func TestDetectAllergyFlagsFamilyMatch(t *testing.T) {
	ref := CoherenceReferenceData{Aliases: []MedicationAlias{{Generic: "amoxicillin", Family: "penicillin"}}}
	snap := RepositorySnapshot{
		Medications: []repository.Medication{{ID: "m1", GenericName: "amoxicillin", Status: "active"}},
		Allergies:   []repository.Allergy{{ID: "a1", Allergen: "penicillin"}},
	}
	findings := detectAllergy(snap, ref, "en")
	if len(findings) != 1 || findings[0].Severity != "critical" {
		t.Fatalf("expected 1 critical allergy finding, got %+v", findings)
	}
}

func TestDetectDoseFlagsAboveAbsoluteMax(t *testing.T) {
	max := 1000.0
	ref := CoherenceReferenceData{DoseReferences: map[string]repository.DoseReference{
		"acetaminophen": {GenericName: "acetaminophen", AbsoluteMaxMg: &max},
	}}
	snap := RepositorySnapshot{
		Medications: []repository.Medication{{ID: "m1", GenericName: "acetaminophen", Dose: strp("4000mg"), Status: "active"}},
	}
	findings := detectDose(snap, ref, "en")
	if len(findings) != 1 || findings[0].Severity != "critical" {
		t.Fatalf("expected 1 critical dose finding, got %+v", findings)
	}
}

func TestDetectDoseSkipsUnknownGeneric(t *testing.T) {
	snap := RepositorySnapshot{
		Medications: []repository.Medication{{ID: "m1", GenericName: "unknowndrug", Dose: strp("4000mg"), Status: "active"}},
	}
	findings := detectDose(snap, CoherenceReferenceData{}, "en")
	if len(findings) != 0 {
		t.Fatalf("expected no findings with no dose reference available, got %+v", findings)
	}
}

func TestDetectCriticalFlagsCriticalLabFlags(t *testing.T) {
	snap := RepositorySnapshot{
		LabResults: []repository.LabResult{{ID: "l1", TestName: "potassium", AbnormalFlag: "critical_high"}},
	}
	findings := detectCritical(snap, "en")
	if len(findings) != 1 || findings[0].Severity != "critical" {
		t.Fatalf("expected 1 critical finding, got %+v", findings)
	}
}

func TestDetectCriticalIgnoresNormalFlag(t *testing.T) {
	snap := RepositorySnapshot{
		LabResults: []repository.LabResult{{ID: "l1", TestName: "potassium", AbnormalFlag: "normal"}},
	}
	findings := detectCritical(snap, "en")
	if len(findings) != 0 {
		t.Fatalf("expected no findings for a normal flag, got %+v", findings)
	}
}

func TestNaturalKeyIsOrderIndependent(t *testing.T) {
	a := naturalKey("conflict", "x", "y")
	b := naturalKey("conflict", "y", "x")
	if a != b {
		t.Fatalf("expected natural key to be order-independent, got %q vs %q", a, b)
	}
}
