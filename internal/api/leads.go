package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/store"
	"github.com/medhirweb/salespipe/internal/transition"
	"github.com/medhirweb/salespipe/internal/upload"
)

const maxMultipartMemory = 8 << 20

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LeadFilter{
		StageID:             q.Get("stage_id"),
		Status:              model.LeadStatus(q.Get("status")),
		AssignSalesPersonID: q.Get("assign_sales_person_emp_id"),
	}

	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                string `json:"name"`
		ContactNumber       string `json:"contact_number"`
		Email               string `json:"email"`
		StageID             string `json:"stage_id"`
		AssignSalesPersonID string `json:"assign_sales_person_emp_id"`
		AssignDesignerID    string `json:"assign_designer_emp_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.StageID == "" {
		writeErrorStatus(w, http.StatusBadRequest, "name and stage_id are required")
		return
	}

	// The initial stage must exist; a lead can never point at nothing.
	if _, err := s.store.GetStage(r.Context(), req.StageID); err != nil {
		writeError(w, err)
		return
	}

	lead, err := s.store.CreateLead(r.Context(), model.Lead{
		Name:                req.Name,
		ContactNumber:       req.ContactNumber,
		Email:               req.Email,
		StageID:             req.StageID,
		AssignSalesPersonID: req.AssignSalesPersonID,
		AssignDesignerID:    req.AssignDesignerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.store.GetLead(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	var upd model.LeadUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.store.UpdateLeadFields(r.Context(), leadID, upd); err != nil {
		writeError(w, err)
		return
	}

	lead, err := s.store.GetLead(r.Context(), leadID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// moveLead is the direct stage-transition entry point. Stages gated by a
// side-effect form answer 409 naming the form instead of mutating.
func (s *Server) moveLead(w http.ResponseWriter, r *http.Request) {
	decision, err := s.orch.Request(r.Context(), chi.URLParam(r, "leadID"), chi.URLParam(r, "stageID"))
	if err != nil {
		writeError(w, err)
		return
	}

	if decision.Outcome == transition.OutcomeFormRequired {
		writeJSON(w, http.StatusConflict, decision)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) markLost(w http.ResponseWriter, r *http.Request) {
	s.markOutcome(w, r, s.orch.SubmitLost)
}

func (s *Server) markJunk(w http.ResponseWriter, r *http.Request) {
	s.markOutcome(w, r, s.orch.SubmitJunk)
}

func (s *Server) markOutcome(w http.ResponseWriter, r *http.Request, submit func(ctx context.Context, leadID string, sub transition.ReasonSubmission) (*model.Lead, error)) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lead, err := submit(r.Context(), chi.URLParam(r, "leadID"), transition.ReasonSubmission{Reason: req.Reason})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// freezeLead accepts the multipart freeze form: a leadData JSON part plus the
// payment proof file.
func (s *Server) freezeLead(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var data struct {
		FreezingAmount      string `json:"freezingAmount"`
		FreezingPaymentDate string `json:"freezingPaymentDate"`
		FreezingPaymentMode string `json:"freezingPaymentMode"`
	}
	if raw := r.FormValue("leadData"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "invalid leadData JSON")
			return
		}
	}

	sub := transition.FreezeSubmission{
		Amount:      data.FreezingAmount,
		PaymentMode: data.FreezingPaymentMode,
	}
	if data.FreezingPaymentDate != "" {
		d, err := time.Parse("2006-01-02", data.FreezingPaymentDate)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "freezingPaymentDate must be YYYY-MM-DD")
			return
		}
		sub.PaymentDate = d
	}

	proof, cleanup, ok := formFile(r, "freezingAmountProofFile")
	if ok {
		defer cleanup()
		sub.Proof = *proof
	}

	lead, err := s.orch.SubmitFreeze(r.Context(), chi.URLParam(r, "leadID"), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// convertLead accepts the multipart conversion form: a leadData JSON part
// plus up to two optional files.
func (s *Server) convertLead(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var data struct {
		FinalQuotation  float64 `json:"finalQuotation"`
		SignupAmount    float64 `json:"signupAmount"`
		PaymentDate     string  `json:"paymentDate"`
		PaymentMode     string  `json:"paymentMode"`
		PANNumber       string  `json:"panNumber"`
		ProjectTimeline string  `json:"projectTimeline"`
		Discount        float64 `json:"discount"`
	}
	if raw := r.FormValue("leadData"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "invalid leadData JSON")
			return
		}
	}

	sub := transition.ConversionSubmission{
		FinalQuotation:  data.FinalQuotation,
		SignupAmount:    data.SignupAmount,
		PaymentMode:     data.PaymentMode,
		PANNumber:       data.PANNumber,
		ProjectTimeline: data.ProjectTimeline,
		Discount:        data.Discount,
	}
	if data.PaymentDate != "" {
		d, err := time.Parse("2006-01-02", data.PaymentDate)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "paymentDate must be YYYY-MM-DD")
			return
		}
		sub.PaymentDate = &d
	}

	if f, cleanup, ok := formFile(r, "paymentDetailsFile"); ok {
		defer cleanup()
		sub.PaymentProof = f
	}
	if f, cleanup, ok := formFile(r, "bookingFormFile"); ok {
		defer cleanup()
		sub.BookingForm = f
	}

	lead, err := s.orch.SubmitConversion(r.Context(), chi.URLParam(r, "leadID"), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func formFile(r *http.Request, field string) (*upload.File, func(), bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, false
	}
	return &upload.File{Name: header.Filename, Content: file}, func() { file.Close() }, true
}
