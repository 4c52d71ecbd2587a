package structure

import "testing"

func TestParseResponseExtractsMedication(t *testing.T) {
	raw := `Here is what I found:
	{"medications": [{"generic_name": "lisinopril", "dose": "10mg", "confidence": 0.9}], "diagnoses": []}
	That's everything.`
	entities := ParseResponse(raw)
	if len(entities.Medications) != 1 || entities.Medications[0].GenericName != "lisinopril" {
		t.Fatalf("expected one lisinopril medication, got %+v", entities.Medications)
	}
}

func TestParseResponseNoJSONReturnsEmpty(t *testing.T) {
	entities := ParseResponse("I could not find any structured information.")
	if len(entities.Medications) != 0 || len(entities.Diagnoses) != 0 {
		t.Fatalf("expected empty entities, got %+v", entities)
	}
}

func TestExtractJSONObjectIgnoresBracesInStrings(t *testing.T) {
	raw := `{"diagnoses": [{"name": "note with a } brace inside", "confidence": 0.5}]}`
	got := extractJSONObject(raw)
	if got != raw {
		t.Fatalf("expected full object back, got %q", got)
	}
}
