package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/coherence"
	"github.com/ktiyab/coheara/internal/repository"
)

// buildSnapshot reads every entity table a coherence scan runs over, plus
// the set of already-dismissed natural keys so a dismissed finding is never
// even offered back to the detectors.
func buildSnapshot(ctx context.Context, db *repository.DB) (coherence.RepositorySnapshot, error) {
	medications, err := repository.NewMedicationRepo(db).List(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	diagnoses, err := repository.NewClinicalRepo(db).ListDiagnoses(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	labResults, err := repository.NewClinicalRepo(db).ListLabResults(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	allergies, err := repository.NewClinicalRepo(db).ListAllergies(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	symptoms, err := repository.NewClinicalRepo(db).ListSymptoms(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	procedures, err := repository.NewClinicalRepo(db).ListProcedures(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	professionals, err := repository.NewProfessionalRepo(db).List(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	doseChanges, err := repository.NewMedicationRepo(db).ListDoseChanges(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	compounds, err := repository.NewMedicationRepo(db).ListCompoundIngredients(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}
	dismissed, err := repository.NewAlertRepo(db).DismissedNaturalKeys(ctx)
	if err != nil {
		return coherence.RepositorySnapshot{}, err
	}

	return coherence.RepositorySnapshot{
		Medications: medications, Diagnoses: diagnoses, LabResults: labResults,
		Allergies: allergies, Symptoms: symptoms, Procedures: procedures,
		Professionals: professionals, DoseChanges: doseChanges, CompoundIngredients: compounds,
		DismissedAlertKeys: dismissed,
	}, nil
}

// buildReferenceData loads the bundled dose-reference table into the
// generic-name-keyed lookup detectors consult; no medication-alias bundle
// ships yet, so aliasing degrades to exact-name matching.
func buildReferenceData(ctx context.Context, db *repository.DB) (coherence.CoherenceReferenceData, error) {
	refs, err := repository.NewPrefsRepo(db).ListDoseReferences(ctx)
	if err != nil {
		return coherence.CoherenceReferenceData{}, err
	}
	byGeneric := make(map[string]repository.DoseReference, len(refs))
	for _, d := range refs {
		byGeneric[strings.ToLower(strings.TrimSpace(d.GenericName))] = d
	}
	return coherence.CoherenceReferenceData{DoseReferences: byGeneric}, nil
}

// handleScanCoherence runs a full-corpus coherence scan on demand, in
// addition to the periodic background sweep; useful right after a bulk
// import when a patient wants an immediate check.
func (s *Server) handleScanCoherence(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	snap, err := buildSnapshot(r.Context(), db)
	if err != nil {
		WriteError(w, err)
		return
	}
	ref, err := buildReferenceData(r.Context(), db)
	if err != nil {
		WriteError(w, err)
		return
	}
	engine := coherence.NewEngine(repository.NewAlertRepo(db), "en")
	alerts, err := engine.AnalyzeFull(r.Context(), snap, ref)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	alerts, err := repository.NewAlertRepo(db).ListActive(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

type dismissAlertRequest struct {
	Reason string `json:"reason"`
}

// handleRequestAlertDismissal begins the two-step dismissal spec.md
// requires for a critical finding: the first call only records the
// request, the second (handleConfirmAlertDismissal) finalizes it.
func (s *Server) handleRequestAlertDismissal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	alertID := chi.URLParam(r, "alertID")
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := repository.NewAlertRepo(db).RequestDismissal(r.Context(), alertID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleConfirmAlertDismissal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	alertID := chi.URLParam(r, "alertID")
	var req dismissAlertRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Reason == "" {
		WriteError(w, cherr.New(cherr.KindValidation, "httpapi: a dismissal reason is required", "", false))
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := repository.NewAlertRepo(db).ConfirmDismissal(r.Context(), alertID, req.Reason); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
