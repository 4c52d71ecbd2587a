package structure

import "testing"

func TestToMedicationEntitiesDefaultsStatusActive(t *testing.T) {
	out := ToMedicationEntities("doc-1", []MedicationEntity{{GenericName: "amoxicillin", Dose: "250mg"}})
	if len(out) != 1 {
		t.Fatalf("expected one medication, got %d", len(out))
	}
	if out[0].Medication.Status != "active" {
		t.Fatalf("expected default status active, got %q", out[0].Medication.Status)
	}
	if out[0].Medication.DocumentID != "doc-1" {
		t.Fatalf("expected document id propagated, got %q", out[0].Medication.DocumentID)
	}
}

func TestToClinicalEntitiesDefaultsLabFlagNormal(t *testing.T) {
	out := ToClinicalEntities("doc-1", ExtractedEntities{LabResults: []LabResultEntity{{TestName: "cbc"}}})
	if len(out.LabResults) != 1 || out.LabResults[0].LabResult.AbnormalFlag != "normal" {
		t.Fatalf("expected default abnormal_flag normal, got %+v", out.LabResults)
	}
}

func TestToClinicalEntitiesAppointmentDefaultsStatusScheduled(t *testing.T) {
	out := ToClinicalEntities("doc-1", ExtractedEntities{Appointments: []AppointmentEntity{{Professional: "Dr. Lee"}}})
	if len(out.Appointments) != 1 || out.Appointments[0].Appointment.Status != "scheduled" {
		t.Fatalf("expected default status scheduled, got %+v", out.Appointments)
	}
}

func TestParseDateAcceptsISODate(t *testing.T) {
	d := parseDate("2024-03-15")
	if d == nil {
		t.Fatal("expected a parsed date")
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if parseDate("not a date") != nil {
		t.Fatal("expected nil for unparseable date")
	}
}
