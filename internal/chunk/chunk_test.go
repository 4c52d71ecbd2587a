package chunk

import (
	"context"
	"strings"
	"testing"
)

func TestSplitBasic(t *testing.T) {
	md := "# Visit Summary\n\nPatient presented with mild headache and fatigue over the past three days.\n\n## Vitals\n\nBlood pressure 120/80, heart rate 72 bpm, temperature normal."
	c := New(512, 5, 0.2)
	chunks, err := c.Split(context.Background(), md, "doc-1")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, ch := range chunks {
		if ch.DocumentID != "doc-1" {
			t.Fatalf("chunk %d: wrong document id", i)
		}
		if ch.Index != i {
			t.Fatalf("chunk %d: index mismatch got %d", i, ch.Index)
		}
		if ch.ContentHash == "" {
			t.Fatalf("chunk %d: missing content hash", i)
		}
	}
}

func TestSplitEmptyErrors(t *testing.T) {
	c := New(512, 40, 0.2)
	if _, err := c.Split(context.Background(), "   \n\n  ", "doc-1"); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestSplitRespectsMaxTokens(t *testing.T) {
	longPara := strings.Repeat("word ", 2000)
	c := New(50, 5, 0.2)
	chunks, err := c.Split(context.Background(), longPara, "doc-2")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the long paragraph to split into multiple chunks, got %d", len(chunks))
	}
}

func TestSectionTitleCarriesForward(t *testing.T) {
	md := "# Lab Results\n\nGlucose 95 mg/dL, within normal range."
	c := New(512, 1, 0.2)
	chunks, err := c.Split(context.Background(), md, "doc-3")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) == 0 || chunks[0].SectionTitle != "Lab Results" {
		t.Fatalf("expected section title 'Lab Results', got %+v", chunks)
	}
}
