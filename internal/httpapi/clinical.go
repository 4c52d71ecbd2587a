package httpapi

import (
	"net/http"

	"github.com/ktiyab/coheara/internal/repository"
)

func (s *Server) handleListSymptoms(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	rows, err := repository.NewClinicalRepo(db).ListSymptoms(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleListMedications(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	rows, err := repository.NewMedicationRepo(db).List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	rows, err := repository.NewClinicalRepo(db).ListAppointments(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
