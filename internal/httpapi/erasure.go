package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ktiyab/coheara/internal/trust"
)

type eraseProfileRequest struct {
	ConfirmationText string `json:"confirmation_text"`
	Password         string `json:"password"`
}

func (s *Server) handleEraseProfile(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	var req eraseProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := trust.EraseProfileData(r.Context(), s.cfg.ProfileRoot, s.app, trust.ErasureRequest{
		ProfileID:        profileID,
		ConfirmationText: req.ConfirmationText,
		Password:         req.Password,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	if sess, ok := s.getSession(profileID); ok {
		_ = sess.Close()
		s.dropSession(profileID)
	}
	writeJSON(w, http.StatusOK, result)
}
