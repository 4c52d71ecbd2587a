package chatextract

import "strings"

// domainKeywords are the patient-message cues that flag a conversation as
// worth extracting for a given domain. Kept simple and English-first,
// mirroring the keyword-list style internal/safety uses for its own
// en/fr/de escalation matching.
var domainKeywords = map[Domain][]string{
	DomainSymptom: {
		"hurt", "pain", "ache", "feel", "felt", "symptom", "nausea", "dizzy",
		"fever", "rash", "swelling", "cough", "fatigue", "tired",
	},
	DomainMedication: {
		"taking", "took", "dose", "mg", "pill", "medication", "medicine",
		"prescribed", "prescription", "stopped taking", "started taking",
	},
	DomainAppointment: {
		"appointment", "doctor", "visit", "scheduled", "see a", "follow-up",
		"follow up", "specialist", "clinic",
	},
}

// Analyzer judges which domains a conversation's patient messages touch.
// A conversation with no domain-relevant patient turns is pure Q&A and
// skips extraction entirely — extraction only runs on conversations that
// plausibly contain new facts.
type Analyzer struct{}

func NewAnalyzer() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Analyze(conversation ConversationBatch) Analysis {
	found := map[Domain]bool{}
	for _, msg := range conversation.Messages {
		if msg.Role != "patient" {
			continue
		}
		lower := strings.ToLower(msg.Content)
		for domain, keywords := range domainKeywords {
			if found[domain] {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					found[domain] = true
					break
				}
			}
		}
	}

	if len(found) == 0 {
		return Analysis{IsPureQA: true}
	}

	// Stable order: symptom, medication, appointment, matching the order
	// domainKeywords' source order lists them.
	var domains []DomainMatch
	for _, d := range []Domain{DomainSymptom, DomainMedication, DomainAppointment} {
		if found[d] {
			domains = append(domains, DomainMatch{Domain: d})
		}
	}
	return Analysis{Domains: domains}
}

// BuildInput assembles a DomainExtractor's prompt input for one matched
// domain from the full conversation and patient context.
func BuildInput(conversation ConversationBatch, match DomainMatch, patientContext PatientContext) ExtractionInput {
	return ExtractionInput{
		ConversationID:   conversation.ID,
		Messages:         conversation.Messages,
		ConversationDate: conversation.LastMessageAt,
		PatientContext:   patientContext,
		Domain:           match.Domain,
	}
}
