package chatextract

import (
	"testing"
	"time"
)

func conversationMessages() []ConversationMessage {
	return []ConversationMessage{
		{ID: "m1", Role: "patient", Content: "I've had a sharp headache in my forehead for two days"},
		{ID: "m2", Role: "assistant", Content: "Does anything make it worse?"},
		{ID: "m3", Role: "patient", Content: "Bright light makes it worse"},
	}
}

func TestVerifyGroundedItem(t *testing.T) {
	v := NewSemanticVerifier(10)
	input := ExtractionInput{Messages: conversationMessages(), ConversationDate: time.Now(), Domain: DomainSymptom}
	items := []ExtractedItem{{
		Domain: DomainSymptom,
		Data: map[string]any{
			"specific":    "headache",
			"body_region": "forehead",
			"character":   "sharp",
		},
	}}

	result := v.Verify(items, input)
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 verified item, got %d", len(result.Items))
	}
	if result.Items[0].Grounding != GroundingGrounded {
		t.Errorf("expected grounded, got %v", result.Items[0].Grounding)
	}
	if result.Items[0].Confidence < 0.8 {
		t.Errorf("expected high confidence, got %f", result.Items[0].Confidence)
	}
}

func TestVerifyUngroundedItem(t *testing.T) {
	v := NewSemanticVerifier(10)
	input := ExtractionInput{Messages: conversationMessages(), ConversationDate: time.Now(), Domain: DomainSymptom}
	items := []ExtractedItem{{
		Domain: DomainSymptom,
		Data: map[string]any{
			"specific":    "chest pain",
			"body_region": "chest",
		},
	}}

	result := v.Verify(items, input)
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 verified item, got %d", len(result.Items))
	}
	if result.Items[0].Grounding != GroundingUngrounded {
		t.Errorf("expected ungrounded, got %v", result.Items[0].Grounding)
	}
}

func TestVerifyRejectsUnreasonableDate(t *testing.T) {
	v := NewSemanticVerifier(10)
	convDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	input := ExtractionInput{Messages: conversationMessages(), ConversationDate: convDate, Domain: DomainSymptom}
	items := []ExtractedItem{{
		Domain: DomainSymptom,
		Data: map[string]any{
			"specific":   "headache",
			"onset_hint": "2019-01-01",
		},
	}}

	result := v.Verify(items, input)
	if len(result.Items) != 0 {
		t.Fatalf("expected the item to be dropped for an unreasonable date, got %d", len(result.Items))
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning for the rejected date")
	}
}

func TestVerifyCapsItemsPerDomain(t *testing.T) {
	v := NewSemanticVerifier(2)
	input := ExtractionInput{Messages: conversationMessages(), ConversationDate: time.Now(), Domain: DomainSymptom}
	items := []ExtractedItem{
		{Domain: DomainSymptom, Data: map[string]any{"specific": "headache"}},
		{Domain: DomainSymptom, Data: map[string]any{"specific": "forehead"}},
		{Domain: DomainSymptom, Data: map[string]any{"specific": "sharp"}},
	}

	result := v.Verify(items, input)
	if len(result.Items) != 2 {
		t.Fatalf("expected items to be capped at 2, got %d", len(result.Items))
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning about the item cap")
	}
}

func TestVerifyEmptyItemIsUngrounded(t *testing.T) {
	v := NewSemanticVerifier(10)
	input := ExtractionInput{Messages: conversationMessages(), ConversationDate: time.Now(), Domain: DomainSymptom}
	items := []ExtractedItem{{Domain: DomainSymptom, Data: map[string]any{}}}

	result := v.Verify(items, input)
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if result.Items[0].Grounding != GroundingUngrounded {
		t.Errorf("expected ungrounded for an empty item, got %v", result.Items[0].Grounding)
	}
}
