package httpapi

import (
	"net/http"

	"github.com/ktiyab/coheara/internal/repository"
	"github.com/ktiyab/coheara/internal/timeline"
)

// handleGetTimeline assembles the full chronological, correlated timeline
// across every entity table. Filtering by event type, professional, or date
// range is left to a future query-parameter pass; today it always returns
// the unfiltered corpus view.
func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	assembler := timeline.NewAssembler(
		repository.NewDocumentRepo(db),
		repository.NewProfessionalRepo(db),
		repository.NewMedicationRepo(db),
		repository.NewClinicalRepo(db),
		repository.NewAlertRepo(db),
	)
	data, err := assembler.Assemble(r.Context(), timeline.Filter{})
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
