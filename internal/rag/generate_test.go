package rag

import (
	"context"
	"testing"

	"github.com/ktiyab/coheara/internal/safety"
)

func TestGenerateNoContextReturnsOutOfBounds(t *testing.T) {
	g := &Generator{confidenceGate: 0.30}
	resp, err := g.Generate(context.Background(), "what medications am I on", Retrieved{}, GenerateOpts{Lang: "en"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Boundary != BoundaryOutOfBounds {
		t.Fatalf("expected OutOfBounds boundary, got %v", resp.Boundary)
	}
	if resp.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %f", resp.Confidence)
	}
	if len(resp.Citations) != 0 {
		t.Fatalf("expected no citations, got %v", resp.Citations)
	}
}

func TestGenerateEscalationReplaceBypassesModel(t *testing.T) {
	g := &Generator{confidenceGate: 0.30}
	age := 1 // 1 month old
	resp, err := g.Generate(context.Background(), "my baby has a fever", Retrieved{}, GenerateOpts{AgeMonths: &age, Lang: "en"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !resp.Escalated || resp.EscalationRuleID != "PED-001" {
		t.Fatalf("expected PED-001 escalation, got %+v", resp)
	}
	if resp.Confidence != 1.0 {
		t.Fatalf("expected full confidence on an escalation response, got %f", resp.Confidence)
	}
}

func TestComputeConfidenceOutOfBoundsCapped(t *testing.T) {
	c := computeConfidence(BoundaryOutOfBounds, 3, 5, 0.9)
	if c > 0.2 {
		t.Fatalf("expected OutOfBounds confidence capped at 0.2, got %f", c)
	}
}

func TestComputeConfidenceCoverageFallback(t *testing.T) {
	c := computeConfidence(BoundaryUnderstanding, 2, 4, 0)
	if c <= 0.4 || c > 1.0 {
		t.Fatalf("expected coverage-derived confidence in (0.4, 1.0], got %f", c)
	}
}

func TestParseResponseFallsBackOnInvalidJSON(t *testing.T) {
	parsed := parseResponse("not json at all")
	if parsed.Boundary != BoundaryOutOfBounds {
		t.Fatalf("expected malformed output to default to OutOfBounds, got %v", parsed.Boundary)
	}
	if parsed.Answer != "not json at all" {
		t.Fatalf("expected raw text preserved as answer, got %q", parsed.Answer)
	}
}

func TestParseResponseStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"answer\": \"hello\", \"boundary_check\": \"Understanding\", \"confidence\": 0.8}\n```"
	parsed := parseResponse(raw)
	if parsed.Answer != "hello" || parsed.Boundary != BoundaryUnderstanding {
		t.Fatalf("expected fenced JSON to parse cleanly, got %+v", parsed)
	}
}

func TestApplyEscalationPrependsWarning(t *testing.T) {
	resp := &RagResponse{Answer: "base answer"}
	escalation := &safety.EscalationResult{RuleID: "PED-007", Action: safety.ActionPrependWarning, Message: "see a doctor promptly"}
	applyEscalation(resp, escalation, true)
	if resp.Answer == "base answer" {
		t.Fatal("expected the warning to be prepended")
	}
	if !resp.Escalated || resp.EscalationRuleID != "PED-007" {
		t.Fatalf("expected escalation metadata set, got %+v", resp)
	}
}
