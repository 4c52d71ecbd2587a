package coherence

import (
	"strings"

	"github.com/ktiyab/coheara/internal/repository"
)

// MedicationAlias links a generic and brand name, and optionally an
// allergy cross-reactivity family (e.g. "penicillin") used by the allergy
// detector to catch a prescription from the same drug family as a known
// allergen rather than only an exact name match.
type MedicationAlias struct {
	Generic string
	Brand   string
	Family  string
}

// CoherenceReferenceData bundles the reference tables detectors consult
// beyond the patient's own records: medication aliasing and dose ranges.
type CoherenceReferenceData struct {
	Aliases        []MedicationAlias
	DoseReferences map[string]repository.DoseReference // keyed by lower(generic name)
}

// genericFor resolves a medication name (generic or brand) to its generic
// name via the alias table, falling back to the name itself.
func (ref CoherenceReferenceData) genericFor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range ref.Aliases {
		if strings.ToLower(a.Generic) == name || strings.ToLower(a.Brand) == name {
			return strings.ToLower(a.Generic)
		}
	}
	return name
}

// familyFor returns the allergy cross-reactivity family for a medication
// name, or "" if none is known.
func (ref CoherenceReferenceData) familyFor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range ref.Aliases {
		if strings.ToLower(a.Generic) == name || strings.ToLower(a.Brand) == name {
			return strings.ToLower(a.Family)
		}
	}
	return ""
}

func (ref CoherenceReferenceData) doseReference(generic string) (repository.DoseReference, bool) {
	d, ok := ref.DoseReferences[strings.ToLower(strings.TrimSpace(generic))]
	return d, ok
}
