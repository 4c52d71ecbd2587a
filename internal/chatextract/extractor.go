package chatextract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ktiyab/coheara/internal/cherr"
)

// LLM is the minimal surface a DomainExtractor needs: one blocking
// generation call with separate system and user prompts.
type LLM interface {
	Generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// DomainExtractor builds a domain-specific prompt and decodes the model's
// JSON response into items for verification; ParseResponse does no further
// validation of the items.
type DomainExtractor interface {
	Domain() Domain
	BuildPrompt(input ExtractionInput) string
	ParseResponse(raw string) ([]ExtractedItem, error)
}

// extractionSystemPrompt is the system prompt every domain extractor sends:
// it asks for valid JSON output only.
const extractionSystemPrompt = "You are a medical health information extractor. Output valid JSON only."

func transcript(messages []ConversationMessage) string {
	var b strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i, m.Role, m.Content)
	}
	return b.String()
}

// parseItemArray decodes a JSON array of domain payload objects into
// ExtractedItems. SourceMessageIndices is left empty here; the runner fills
// it in once it has the conversation's messages in hand (AssignSourceMessages).
func parseItemArray(raw string, domain Domain) ([]ExtractedItem, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, cherr.Wrap(cherr.KindFormat, "chatextract.parseItemArray: model did not return a JSON array", "", false, err)
	}
	items := make([]ExtractedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ExtractedItem{Domain: domain, Data: row})
	}
	return items, nil
}

// AssignSourceMessages fills in SourceMessageIndices for each item: every
// message whose text contains one of the item's own string field values.
// A cheap stand-in for the model's own source-message citation, which a
// terse extraction prompt can't reliably be expected to emit itself.
func AssignSourceMessages(items []ExtractedItem, messages []ConversationMessage) {
	for i := range items {
		items[i].SourceMessageIndices = matchingMessageIndices(items[i].Data, messages)
	}
}

func matchingMessageIndices(data map[string]any, messages []ConversationMessage) []int {
	var indices []int
	for i, m := range messages {
		lower := strings.ToLower(m.Content)
		for _, v := range data {
			if s, ok := v.(string); ok && s != "" && strings.Contains(lower, strings.ToLower(s)) {
				indices = append(indices, i)
				break
			}
		}
	}
	return indices
}

// SymptomExtractor extracts symptom mentions from patient turns.
type SymptomExtractor struct{}

func (SymptomExtractor) Domain() Domain { return DomainSymptom }

func (SymptomExtractor) BuildPrompt(input ExtractionInput) string {
	return fmt.Sprintf(`Read this conversation and list any symptoms the patient describes experiencing.
Conversation (date %s):
%s

Return a JSON array of objects with fields: category, specific, severity_hint (1-5),
onset_hint (YYYY-MM-DD or empty), body_region, character, duration, timing_pattern, notes.
If no symptoms are described, return [].`, input.ConversationDate.Format("2006-01-02"), transcript(input.Messages))
}

func (SymptomExtractor) ParseResponse(raw string) ([]ExtractedItem, error) {
	return parseItemArray(raw, DomainSymptom)
}

// MedicationExtractor extracts medication mentions from patient turns.
type MedicationExtractor struct{}

func (MedicationExtractor) Domain() Domain { return DomainMedication }

func (MedicationExtractor) BuildPrompt(input ExtractionInput) string {
	return fmt.Sprintf(`Read this conversation and list any medications the patient mentions taking, starting, or stopping.
Conversation (date %s):
%s

Return a JSON array of objects with fields: name, brand_name, dose, frequency, route,
start_date_hint (YYYY-MM-DD or empty), reason, instructions, is_otc (bool).
If no medications are mentioned, return [].`, input.ConversationDate.Format("2006-01-02"), transcript(input.Messages))
}

func (MedicationExtractor) ParseResponse(raw string) ([]ExtractedItem, error) {
	return parseItemArray(raw, DomainMedication)
}

// AppointmentExtractor extracts appointment mentions from patient turns.
type AppointmentExtractor struct{}

func (AppointmentExtractor) Domain() Domain { return DomainAppointment }

func (AppointmentExtractor) BuildPrompt(input ExtractionInput) string {
	return fmt.Sprintf(`Read this conversation and list any medical appointments the patient mentions having had or scheduled.
Conversation (date %s):
%s

Return a JSON array of objects with fields: professional_name, specialty, institution,
date_hint (YYYY-MM-DD).
If no appointments are mentioned, return [].`, input.ConversationDate.Format("2006-01-02"), transcript(input.Messages))
}

func (AppointmentExtractor) ParseResponse(raw string) ([]ExtractedItem, error) {
	return parseItemArray(raw, DomainAppointment)
}
