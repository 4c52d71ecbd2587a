package httpapi

import (
	"net/http"

	"github.com/ktiyab/coheara/internal/cherr"
)

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.llm.ListModels(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

type showModelRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleShowModel(w http.ResponseWriter, r *http.Request) {
	var req showModelRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	info, err := s.llm.ShowModel(r.Context(), req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type deleteModelRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	var req deleteModelRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Name == "" {
		WriteError(w, cherr.New(cherr.KindValidation, "httpapi: model name is required", "", false))
		return
	}
	if err := s.llm.DeleteModel(r.Context(), req.Name); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
