package structure

import (
	"regexp"
	"strings"
)

// injectionPatterns match entity names a hostile document planted to try
// to leak instructions into downstream prompts once entities are echoed
// back into, e.g., a RAG context block.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*system\s*:`),
	regexp.MustCompile(`(?i)ignore\s+previous`),
	regexp.MustCompile(`(?i)</document>`),
	regexp.MustCompile(`(?i)</instructions>`),
}

var digitPattern = regexp.MustCompile(`\d`)

// ValidationResult is what Validate found while cleaning entities — it
// mutates the entities in place (stripping/flagging) and reports why.
type ValidationResult struct {
	Warnings []string
}

// Validate runs every validation rule from spec.md §4.9 step 5, always —
// regardless of how much the structuring model is otherwise trusted.
// Entities are mutated in place: injected ones and medications with no
// name are removed (nameless entities of other domains are kept),
// suspicious ones are kept but flagged via a warning.
func Validate(e *ExtractedEntities, lowOCR bool, knownAllergens []string) ValidationResult {
	var warnings []string

	e.Medications = filterInjected(e.Medications, func(m MedicationEntity) string { return m.GenericName + " " + m.BrandName }, &warnings)
	e.Diagnoses = filterInjected(e.Diagnoses, func(d DiagnosisEntity) string { return d.Name }, &warnings)
	e.Allergies = filterInjected(e.Allergies, func(a AllergyEntity) string { return a.Allergen }, &warnings)
	e.Procedures = filterInjected(e.Procedures, func(p ProcedureEntity) string { return p.Name }, &warnings)
	e.Symptoms = filterInjected(e.Symptoms, func(s SymptomEntity) string { return s.Description }, &warnings)

	var kept []MedicationEntity
	for _, m := range e.Medications {
		if strings.TrimSpace(m.GenericName) == "" {
			warnings = append(warnings, "dropped a medication with no name")
			continue
		}
		if m.Dose != "" && !digitPattern.MatchString(m.Dose) {
			warnings = append(warnings, "medication dose \""+m.Dose+"\" for "+m.GenericName+" has no digit; kept but flagged as suspicious")
		}
		kept = append(kept, m)
	}
	e.Medications = kept

	var labResults []LabResultEntity
	for _, l := range e.LabResults {
		if labFlagInconsistent(l) {
			warnings = append(warnings, "lab result \""+l.TestName+"\" abnormal_flag does not match its value against the reference range")
		}
		labResults = append(labResults, l)
	}
	e.LabResults = labResults

	if len(knownAllergens) > 0 {
		for _, m := range e.Medications {
			for _, allergen := range knownAllergens {
				if allergen == "" {
					continue
				}
				if strings.Contains(strings.ToLower(m.GenericName), strings.ToLower(allergen)) {
					warnings = append(warnings, "medication \""+m.GenericName+"\" may conflict with a known allergy to \""+allergen+"\"")
				}
			}
		}
	}

	if lowOCR {
		warnings = append(warnings, "low OCR confidence: entity fields may contain character-recognition errors")
	}

	return ValidationResult{Warnings: warnings}
}

func isInjected(name string) bool {
	for _, p := range injectionPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

func filterInjected[T any](items []T, nameOf func(T) string, warnings *[]string) []T {
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if isInjected(nameOf(item)) {
			*warnings = append(*warnings, "dropped an entity whose name matched an injection pattern")
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// labFlagInconsistent reports whether a lab result's abnormal_flag
// disagrees with its numeric value relative to its own reference range.
func labFlagInconsistent(l LabResultEntity) bool {
	if l.Value == nil || l.ReferenceRangeLow == nil || l.ReferenceRangeHigh == nil {
		return false
	}
	v, lo, hi := *l.Value, *l.ReferenceRangeLow, *l.ReferenceRangeHigh
	inRange := v >= lo && v <= hi
	flag := strings.ToLower(l.AbnormalFlag)
	switch flag {
	case "", "normal":
		return !inRange
	case "low", "critical_low":
		return v >= lo
	case "high", "critical_high":
		return v <= hi
	default:
		return false
	}
}
