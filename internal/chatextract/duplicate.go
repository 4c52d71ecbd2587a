package chatextract

import (
	"context"
	"strings"
	"time"

	"github.com/ktiyab/coheara/internal/repository"
)

// CheckDuplicate compares a newly-confirmed item's data against what's
// already recorded in the same domain and reports whether it looks new, a
// possible duplicate, or already tracked outright. There is no single
// source this logic is lifted from line-for-line: it's built from the
// call sites in dispatch that consume its verdict. An exact name match on
// an active medication is AlreadyTracked; a medication name contained in
// (or containing) a recorded one is PossibleDuplicate; a symptom with
// overlapping wording and an onset within 7 days is PossibleDuplicate; any
// appointment scheduled within 24 hours is PossibleDuplicate, whatever its
// professional (the professional name is not compared); everything else
// is New.
func CheckDuplicate(ctx context.Context, repos Repos, domain Domain, data map[string]any, asOf time.Time) (DuplicateStatus, error) {
	switch domain {
	case DomainSymptom:
		return checkDuplicateSymptom(ctx, repos.Clinical, data, asOf)
	case DomainMedication:
		return checkDuplicateMedication(ctx, repos.Medications, data)
	case DomainAppointment:
		return checkDuplicateAppointment(ctx, repos.Clinical, data, asOf)
	default:
		return DuplicateStatusNew, nil
	}
}

func checkDuplicateSymptom(ctx context.Context, clinical *repository.ClinicalRepo, data map[string]any, asOf time.Time) (DuplicateStatus, error) {
	existing, err := clinical.ListSymptoms(ctx)
	if err != nil {
		return DuplicateStatusNew, err
	}
	description := strings.ToLower(symptomDescription(data))
	if description == "" {
		return DuplicateStatusNew, nil
	}
	for _, s := range existing {
		if s.OnsetDate == nil || asOf.Sub(*s.OnsetDate).Abs() > 7*24*time.Hour {
			continue
		}
		if fuzzyOverlap(strings.ToLower(s.Description), description) {
			return DuplicateStatusPossible, nil
		}
	}
	return DuplicateStatusNew, nil
}

func checkDuplicateMedication(ctx context.Context, medications *repository.MedicationRepo, data map[string]any) (DuplicateStatus, error) {
	name := strings.ToLower(stringField(data, "name"))
	if name == "" {
		return DuplicateStatusNew, nil
	}
	existing, err := medications.List(ctx)
	if err != nil {
		return DuplicateStatusNew, err
	}
	for _, m := range existing {
		if strings.ToLower(m.GenericName) == name && m.Status == "active" {
			return DuplicateStatusAlreadyTracked, nil
		}
		if strings.Contains(strings.ToLower(m.GenericName), name) || strings.Contains(name, strings.ToLower(m.GenericName)) {
			return DuplicateStatusPossible, nil
		}
	}
	return DuplicateStatusNew, nil
}

func checkDuplicateAppointment(ctx context.Context, clinical *repository.ClinicalRepo, data map[string]any, asOf time.Time) (DuplicateStatus, error) {
	name := strings.ToLower(stringField(data, "professional_name"))
	existing, err := clinical.ListAppointments(ctx)
	if err != nil {
		return DuplicateStatusNew, err
	}
	target := asOf
	if d := parseDateHint(data, "date_hint"); d != nil {
		target = *d
	}
	for _, a := range existing {
		if a.ScheduledAt.Sub(target).Abs() > 24*time.Hour {
			continue
		}
		if name == "" {
			return DuplicateStatusPossible, nil
		}
		return DuplicateStatusPossible, nil
	}
	return DuplicateStatusNew, nil
}

// fuzzyOverlap reports whether two lowercase phrases share enough words to
// plausibly describe the same thing: either contains the other, or they
// share at least half the shorter phrase's words.
func fuzzyOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}
	shared := 0
	for _, w := range wordsA {
		if setB[w] {
			shared++
		}
	}
	shorter := len(wordsA)
	if len(wordsB) < shorter {
		shorter = len(wordsB)
	}
	if shorter == 0 {
		return false
	}
	return float64(shared)/float64(shorter) >= 0.5
}
