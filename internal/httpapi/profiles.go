package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ktiyab/coheara/internal/ca"
	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/profile"
)

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return cherr.Wrap(cherr.KindValidation, "httpapi: malformed request body", "check the request JSON", false, err)
	}
	return nil
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := profile.ListProfiles(s.cfg.ProfileRoot)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

type createProfileRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type createProfileResponse struct {
	ProfileID      string `json:"profile_id"`
	RecoveryPhrase string `json:"recovery_phrase"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	sess, recovery, err := profile.CreateProfile(r.Context(), s.cfg.ProfileRoot, req.Name, req.Password, profile.CreateOptions{})
	if err != nil {
		WriteError(w, err)
		return
	}
	s.putSession(sess.ProfileID.String(), sess)
	if err := s.adoptSessionTLSIdentity(r.Context(), sess); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createProfileResponse{ProfileID: sess.ProfileID.String(), RecoveryPhrase: recovery})
}

type openSessionRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		WriteError(w, cherr.New(cherr.KindValidation, err.Error(), "", false))
		return
	}
	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	sess, err := profile.OpenProfile(r.Context(), s.cfg.ProfileRoot, id, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	s.putSession(id.String(), sess)
	if err := s.adoptSessionTLSIdentity(r.Context(), sess); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"profile_id": id.String()})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	sess, ok := s.getSession(profileID)
	if !ok {
		WriteError(w, cherr.New(cherr.KindValidation, "httpapi: no open session for this profile", "open the profile first", false))
		return
	}
	if err := sess.Close(); err != nil {
		WriteError(w, err)
		return
	}
	s.dropSession(profileID)
	w.WriteHeader(http.StatusNoContent)
}

// adoptSessionTLSIdentity loads-or-generates sess's local CA and switches
// the server's HTTPS identity to a cert freshly issued under it, so a
// mobile companion paired against this profile's CA trusts whatever the
// listener now presents.
func (s *Server) adoptSessionTLSIdentity(ctx context.Context, sess *profile.Session) error {
	db, err := sess.DB()
	if err != nil {
		return err
	}
	return s.adoptSessionCA(ctx, db, sess.Key())
}

// handleMobileTrustProfile returns the open profile's local CA certificate
// as an iOS .mobileconfig so a companion device can install it as a
// trusted root before pairing over HTTPS.
func (s *Server) handleMobileTrustProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}
	bundle, err := loadOrGenerateCA(r.Context(), db, sess.Key())
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-apple-aspen-config")
	w.WriteHeader(http.StatusOK)
	w.Write(ca.MobileConfig(bundle.CertDER))
}

// sessionOrError resolves the open session for a {profileID} path param,
// writing the error response itself on failure. Handlers that need the
// session should bail out immediately when ok is false.
func (s *Server) sessionOrError(w http.ResponseWriter, r *http.Request) (*profile.Session, bool) {
	profileID := chi.URLParam(r, "profileID")
	sess, ok := s.getSession(profileID)
	if !ok {
		WriteError(w, cherr.New(cherr.KindValidation, "httpapi: no open session for this profile", "open the profile before accessing its data", false))
		return nil, false
	}
	return sess, true
}
