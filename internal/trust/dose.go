package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/repository"
)

// PlausibilityResult classifies a dose against the bundled reference range.
type PlausibilityResult string

const (
	PlausibilityPlausible         PlausibilityResult = "plausible"
	PlausibilityLowDose           PlausibilityResult = "low_dose"
	PlausibilityHighDose          PlausibilityResult = "high_dose"
	PlausibilityVeryHighDose      PlausibilityResult = "very_high_dose"
	PlausibilityUnknownMedication PlausibilityResult = "unknown_medication"
)

// DoseCheck is the result of cross-referencing one dose against the bundled
// reference table.
type DoseCheck struct {
	GenericName  string
	DoseMg       float64
	Plausibility PlausibilityResult
	Reference    *repository.DoseReference
}

// AliasResolver resolves a brand name to its generic equivalent. Callers
// supply their own function, or nil when alias resolution isn't needed
// (coherence.CoherenceReferenceData.genericFor is unexported and cannot be
// passed from outside that package).
type AliasResolver func(name string) string

// CheckDosePlausibility converts value/unit to milligrams, resolves name via
// resolve (nil means no alias resolution), and compares the result against
// the bundled dose_references row for that generic name.
func CheckDosePlausibility(ctx context.Context, prefs *repository.PrefsRepo, resolve AliasResolver, name string, value float64, unit string) (DoseCheck, error) {
	generic := name
	if resolve != nil {
		generic = resolve(name)
	}
	doseMg := ConvertToMg(value, unit)

	ref, err := prefs.GetDoseReference(ctx, generic)
	if err != nil {
		if errors.Is(err, cherr.ErrNotFound) {
			return DoseCheck{GenericName: generic, DoseMg: doseMg, Plausibility: PlausibilityUnknownMedication}, nil
		}
		return DoseCheck{}, fmt.Errorf("trust.CheckDosePlausibility: %w", err)
	}

	check := DoseCheck{GenericName: generic, DoseMg: doseMg, Reference: ref}
	switch {
	case ref.AbsoluteMaxMg != nil && doseMg > *ref.AbsoluteMaxMg*5:
		check.Plausibility = PlausibilityVeryHighDose
	case ref.AbsoluteMaxMg != nil && doseMg > *ref.AbsoluteMaxMg:
		check.Plausibility = PlausibilityHighDose
	case ref.TypicalMinMg != nil && doseMg < *ref.TypicalMinMg:
		check.Plausibility = PlausibilityLowDose
	default:
		check.Plausibility = PlausibilityPlausible
	}
	return check, nil
}

// ConvertToMg normalizes a dose value expressed in g, mg, mcg/ug/µg to
// milligrams. An unrecognized unit is assumed to already be milligrams.
func ConvertToMg(value float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "g":
		return value * 1000
	case "mg":
		return value
	case "mcg", "ug", "µg":
		return value / 1000
	default:
		return value
	}
}
