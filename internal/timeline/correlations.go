package timeline

import (
	"context"
	"fmt"
)

// temporalWindowDays mirrors the coherence package's symptom-correlation
// window: a symptom onset within this many days of a medication change is
// surfaced as a possible correlation, never a claim of causation.
const temporalWindowDays = 14

// detectAllCorrelations runs the heuristic temporal pass plus the explicit
// fetch, then deduplicates entries that both passes would otherwise report
// twice for the same (source, target) pair.
func (a *Assembler) detectAllCorrelations(ctx context.Context, events []Event) ([]Correlation, error) {
	temporal := detectTemporalCorrelations(events)
	explicit, err := a.fetchExplicitCorrelations(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("timeline.detectAllCorrelations: %w", err)
	}
	return dedupeCorrelations(append(temporal, explicit...)), nil
}

// detectTemporalCorrelations is a pure function over an already-assembled
// event list: for every symptom, it looks back for the nearest preceding
// medication start or dose change inside the window.
func detectTemporalCorrelations(events []Event) []Correlation {
	var medStarts, doseChanges, symptoms []Event
	for _, e := range events {
		switch e.Type {
		case EventMedicationStart:
			medStarts = append(medStarts, e)
		case EventMedicationDoseChange:
			doseChanges = append(doseChanges, e)
		case EventSymptom:
			symptoms = append(symptoms, e)
		}
	}

	var out []Correlation
	for _, s := range symptoms {
		if best, ok := nearestWithin(s, medStarts); ok {
			days := int(s.Date.Sub(best.Date).Hours() / 24)
			out = append(out, Correlation{
				SourceID: best.ID, TargetID: s.ID,
				Type:        CorrelationSymptomAfterMedicationStart,
				Description: fmt.Sprintf("%s appeared %d day(s) after %s", s.Title, days, best.Title),
			})
		}
		if best, ok := nearestWithin(s, doseChanges); ok {
			days := int(s.Date.Sub(best.Date).Hours() / 24)
			out = append(out, Correlation{
				SourceID: best.ID, TargetID: s.ID,
				Type:        CorrelationSymptomAfterDoseChange,
				Description: fmt.Sprintf("%s appeared %d day(s) after %s", s.Title, days, best.Title),
			})
		}
	}
	return out
}

// nearestWithin returns the candidate event closest before symptom s and
// within the temporal window, or false if none qualify.
func nearestWithin(s Event, candidates []Event) (Event, bool) {
	var best Event
	found := false
	for _, c := range candidates {
		if s.Date.Before(c.Date) {
			continue
		}
		days := s.Date.Sub(c.Date).Hours() / 24
		if days > temporalWindowDays {
			continue
		}
		if !found || c.Date.After(best.Date) {
			best = c
			found = true
		}
	}
	return best, found
}

// fetchExplicitCorrelations reports links recorded at extraction time. The
// current symptom schema carries no related-medication reference, so this
// is a documented no-op until that column exists; it is kept as its own
// function (rather than removed) to preserve the two-source shape
// detectAllCorrelations' deduplication step depends on.
func (a *Assembler) fetchExplicitCorrelations(ctx context.Context, events []Event) ([]Correlation, error) {
	_ = events
	var out []Correlation
	return out, nil
}

func dedupeCorrelations(in []Correlation) []Correlation {
	seen := make(map[[2]string]bool, len(in))
	var out []Correlation
	for _, c := range in {
		key := [2]string{c.SourceID, c.TargetID}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
