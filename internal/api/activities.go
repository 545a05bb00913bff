package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medhirweb/salespipe/internal/model"
)

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.store.ListActivities(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	var req struct {
		Type       string    `json:"type"`
		Title      string    `json:"title"`
		DueDate    time.Time `json:"due_date"`
		Attachment string    `json:"attachment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.DueDate.IsZero() {
		writeErrorStatus(w, http.StatusBadRequest, "title and due_date are required")
		return
	}

	// Activities belong to an existing lead.
	if _, err := s.store.GetLead(r.Context(), leadID); err != nil {
		writeError(w, err)
		return
	}

	activity, err := s.store.CreateActivity(r.Context(), model.Activity{
		LeadID:     leadID,
		Type:       req.Type,
		Title:      req.Title,
		DueDate:    req.DueDate,
		Attachment: req.Attachment,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.AppendLog(r.Context(), model.ActivityLog{
		LeadID:     leadID,
		ActivityID: activity.ID,
		Action:     model.ActionActivityCreated,
		Metadata:   map[string]any{"title": activity.Title},
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (s *Server) updateActivity(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "activityID")

	existing, err := s.store.GetActivity(r.Context(), activityID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Type       *string    `json:"type"`
		Title      *string    `json:"title"`
		DueDate    *time.Time `json:"due_date"`
		Attachment *string    `json:"attachment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Type != nil {
		existing.Type = *req.Type
	}
	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.DueDate != nil {
		existing.DueDate = *req.DueDate
	}
	if req.Attachment != nil {
		existing.Attachment = *req.Attachment
	}

	if err := s.store.UpdateActivity(r.Context(), *existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) completeActivity(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "activityID")

	activity, err := s.store.GetActivity(r.Context(), activityID)
	if err != nil {
		writeError(w, err)
		return
	}

	entry := model.ActivityLog{
		LeadID:     activity.LeadID,
		ActivityID: activityID,
		Action:     model.ActionActivityDone,
		Metadata:   map[string]any{"title": activity.Title},
	}
	if err := s.store.CompleteActivity(r.Context(), activityID, entry); err != nil {
		writeError(w, err)
		return
	}

	refreshed, err := s.store.GetActivity(r.Context(), activityID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshed)
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	activityID := chi.URLParam(r, "activityID")

	activity, err := s.store.GetActivity(r.Context(), activityID)
	if err != nil {
		writeError(w, err)
		return
	}

	entry := model.ActivityLog{
		LeadID:     activity.LeadID,
		ActivityID: activityID,
		Action:     model.ActionActivityDeleted,
		Metadata:   map[string]any{"title": activity.Title},
	}
	if err := s.store.DeleteActivity(r.Context(), activityID, entry); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listActivityLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListLogs(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []model.ActivityLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
