package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medhirweb/salespipe/internal/model"
)

func (s *Server) listStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.store.ListStages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if stages == nil {
		stages = []model.Stage{}
	}
	writeJSON(w, http.StatusOK, stages)
}

func (s *Server) createStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key      string `json:"key"`
		Name     string `json:"name"`
		Color    string `json:"color"`
		FormType string `json:"form_type"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" || req.Name == "" {
		writeErrorStatus(w, http.StatusBadRequest, "key and name are required")
		return
	}
	formType, err := model.ParseFormType(req.FormType)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	stage, err := s.store.CreateStage(r.Context(), model.Stage{
		Key:      req.Key,
		Name:     req.Name,
		Color:    req.Color,
		FormType: formType,
		Position: req.Position,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stage)
}

func (s *Server) deleteStage(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStage(r.Context(), chi.URLParam(r, "stageID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
