package rag

import "strings"

// keyword sets drive the lexical classifier; kept small and explicit rather
// than a model call, matching spec.md's "lexical heuristics" requirement.
var (
	timelineKeywords   = []string{"when", "timeline", "history", "since when", "how long", "over time"}
	symptomKeywords    = []string{"symptom", "feel", "feeling", "pain", "ache", "hurts", "experiencing"}
	medicationKeywords = []string{"medication", "medicine", "dose", "dosage", "prescription", "drug", "pill", "taking"}
	factualKeywords    = []string{"what is", "what are", "is my", "do i have", "diagnosed with", "allergic to"}
)

// Classify assigns a QueryType from lexical heuristics over the raw query
// text. Ties favor the first matching category in this order: Medication,
// Symptom, Timeline, Factual, General.
func Classify(query string) QueryType {
	q := strings.ToLower(query)
	if anyKeyword(q, medicationKeywords) {
		return QueryMedication
	}
	if anyKeyword(q, symptomKeywords) {
		return QuerySymptom
	}
	if anyKeyword(q, timelineKeywords) {
		return QueryTimeline
	}
	if anyKeyword(q, factualKeywords) {
		return QueryFactual
	}
	return QueryGeneral
}

func anyKeyword(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
