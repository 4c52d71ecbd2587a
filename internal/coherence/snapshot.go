// Package coherence runs a set of detectors over the full clinical record
// looking for conflicts, gaps, and drift between entries that were extracted
// from different documents at different times — the kind of cross-document
// inconsistency a single extraction pass can never see.
package coherence

import "github.com/ktiyab/coheara/internal/repository"

// RepositorySnapshot is the full set of clinical rows a scan runs over. It
// is assembled once per scan so every detector sees a consistent view.
type RepositorySnapshot struct {
	Medications         []repository.Medication
	Diagnoses           []repository.Diagnosis
	LabResults          []repository.LabResult
	Allergies           []repository.Allergy
	Symptoms            []repository.Symptom
	Procedures          []repository.Procedure
	Professionals       []repository.Professional
	DoseChanges         []repository.DoseChange
	CompoundIngredients []repository.CompoundIngredient
	DismissedAlertKeys  map[string]bool
}

// professionalByID returns a lookup table for resolving a *string
// professional ID down to a display name.
func (s RepositorySnapshot) professionalByID() map[string]repository.Professional {
	out := make(map[string]repository.Professional, len(s.Professionals))
	for _, p := range s.Professionals {
		out[p.ID] = p
	}
	return out
}
