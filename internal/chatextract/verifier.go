package chatextract

import (
	"fmt"
	"strings"
	"time"
)

// SemanticVerifier checks extracted items against their source conversation
// text before they become pending review items: token-overlap grounding,
// date reasonableness, and an entity-count ceiling per domain.
type SemanticVerifier struct {
	maxItemsPerDomain int
}

func NewSemanticVerifier(maxItemsPerDomain int) *SemanticVerifier {
	return &SemanticVerifier{maxItemsPerDomain: maxItemsPerDomain}
}

// Verify checks a batch of extracted items from a single conversation,
// all belonging to one domain, against the conversation's own messages.
func (v *SemanticVerifier) Verify(items []ExtractedItem, input ExtractionInput) VerificationResult {
	sourceText := buildSourceText(input.Messages)
	var verified []VerifiedItem
	var warnings []string

	itemsToCheck := items
	if len(items) > v.maxItemsPerDomain {
		warnings = append(warnings, fmt.Sprintf("too many items (%d) for domain, keeping first %d", len(items), v.maxItemsPerDomain))
		itemsToCheck = items[:v.maxItemsPerDomain]
	}

	for _, item := range itemsToCheck {
		grounding := v.assessGrounding(item, sourceText)
		if !checkDateReasonableness(item, input.ConversationDate) {
			warnings = append(warnings, "item has unreasonable date (>1 year from conversation)")
			continue
		}
		confidence := computeConfidence(grounding, item)
		verified = append(verified, VerifiedItem{Item: item, Grounding: grounding, Confidence: confidence})
	}

	return VerificationResult{Items: verified, Warnings: warnings}
}

func buildSourceText(messages []ConversationMessage) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = strings.ToLower(m.Content)
	}
	return strings.Join(parts, " ")
}

// assessGrounding measures how many of an item's key terms appear in the
// conversation's own text: >=70% grounded, >=30% partial, else ungrounded.
// An item with no extractable key terms at all is always ungrounded.
func (v *SemanticVerifier) assessGrounding(item ExtractedItem, sourceText string) Grounding {
	terms := extractKeyTerms(item)
	if len(terms) == 0 {
		return GroundingUngrounded
	}

	matched := 0
	for _, term := range terms {
		if strings.Contains(sourceText, strings.ToLower(term)) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(terms))

	switch {
	case ratio >= 0.7:
		return GroundingGrounded
	case ratio >= 0.3:
		return GroundingPartial
	default:
		return GroundingUngrounded
	}
}

// extractKeyTerms pulls the fields worth checking for grounding, per domain.
func extractKeyTerms(item ExtractedItem) []string {
	var terms []string
	add := func(key string) {
		if s, ok := item.Data[key].(string); ok && s != "" {
			terms = append(terms, s)
		}
	}
	switch item.Domain {
	case DomainSymptom:
		add("specific")
		add("body_region")
		add("character")
	case DomainMedication:
		add("name")
		add("dose")
	case DomainAppointment:
		add("professional_name")
		add("specialty")
	}
	return terms
}

// dateHintFields are the extracted-data keys that might carry a date the
// conversation implies; a hinted date more than a year from the
// conversation's own date is treated as an extraction hallucination.
var dateHintFields = []string{"onset_hint", "start_date_hint", "date_hint"}

func checkDateReasonableness(item ExtractedItem, conversationDate time.Time) bool {
	for _, field := range dateHintFields {
		s, ok := item.Data[field].(string)
		if !ok || s == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			continue
		}
		diff := t.Sub(conversationDate)
		if diff < 0 {
			diff = -diff
		}
		if diff > 365*24*time.Hour {
			return false
		}
	}
	return true
}

// computeConfidence scores a verified item: a grounding-based floor, plus a
// small bonus for how complete the extracted data is and whether the item
// cites source messages at all, capped at 1.0.
func computeConfidence(grounding Grounding, item ExtractedItem) float64 {
	var base float64
	switch grounding {
	case GroundingGrounded:
		base = 0.8
	case GroundingPartial:
		base = 0.5
	default:
		base = 0.2
	}

	total := len(item.Data)
	nonNull := 0
	for _, v := range item.Data {
		if v != nil {
			nonNull++
		}
	}
	completeness := 0.0
	if total > 0 {
		completeness = float64(nonNull) / float64(total)
	}

	score := base + completeness*0.15
	if len(item.SourceMessageIndices) > 0 {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
