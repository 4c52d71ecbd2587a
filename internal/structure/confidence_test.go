package structure

import "testing"

func TestComputeConfidenceFallsWithWarnings(t *testing.T) {
	e := ExtractedEntities{Medications: []MedicationEntity{{GenericName: "metformin", Confidence: 0.9}}}
	clean := ComputeConfidence(e, nil, 1.0)
	warned := ComputeConfidence(e, []string{"w1", "w2"}, 1.0)
	if warned >= clean {
		t.Fatalf("expected confidence to fall with warnings: clean=%f warned=%f", clean, warned)
	}
}

func TestComputeConfidenceEmptyEntitiesZeroPerEntity(t *testing.T) {
	c := ComputeConfidence(ExtractedEntities{}, nil, 1.0)
	if c <= 0 {
		t.Fatalf("expected grounding term alone to keep confidence positive, got %f", c)
	}
}

func TestComputeConfidenceClampedToUnitRange(t *testing.T) {
	e := ExtractedEntities{Medications: []MedicationEntity{{GenericName: "x", Confidence: 1.0}}}
	c := ComputeConfidence(e, nil, 1.0)
	if c > 1.0 || c < 0 {
		t.Fatalf("expected confidence in [0,1], got %f", c)
	}
}
