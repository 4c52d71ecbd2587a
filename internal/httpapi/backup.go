package httpapi

import (
	"net/http"
	"path/filepath"

	"github.com/ktiyab/coheara/internal/backup"
	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/repository"
)

type createBackupRequest struct {
	ArchivePath string `json:"archive_path"`
	Password    string `json:"password"`
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	var req createBackupRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	db, err := sess.DB()
	if err != nil {
		WriteError(w, err)
		return
	}

	profileDir := filepath.Join(s.cfg.ProfileRoot, sess.ProfileID.String())
	createReq := backup.CreateRequest{
		ProfileDir:  profileDir,
		ProfileName: sess.ProfileID.String(),
		ArchivePath: req.ArchivePath,
		Password:    req.Password,
	}
	if err := backup.CreateBackup(r.Context(), repository.NewDocumentRepo(db), createReq); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handlePreviewBackup(w http.ResponseWriter, r *http.Request) {
	archivePath := r.URL.Query().Get("archive_path")
	if archivePath == "" {
		WriteError(w, cherr.New(cherr.KindValidation, "httpapi: archive_path is required", "", false))
		return
	}
	preview, err := backup.PreviewBackup(archivePath)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

type restoreBackupRequest struct {
	ArchivePath string `json:"archive_path"`
	Password    string `json:"password"`
	TargetDir   string `json:"target_dir"`
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req restoreBackupRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := backup.RestoreBackup(req.ArchivePath, req.Password, req.TargetDir); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
