// Package transition implements the stage-transition workflow. Every surface
// that changes a lead's stage (board drop, reason forms, freeze, conversion)
// goes through the Orchestrator; there is no second mutation path.
package transition

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/notify"
	"github.com/medhirweb/salespipe/internal/store"
	"github.com/medhirweb/salespipe/internal/upload"
)

// Outcome classifies the result of a transition request.
type Outcome string

const (
	// OutcomeApplied means the stage mutation was committed and the lead refetched.
	OutcomeApplied Outcome = "applied"
	// OutcomeFormRequired means no mutation happened; the named form must be
	// submitted first.
	OutcomeFormRequired Outcome = "form_required"
)

// Decision is the orchestrator's answer to a transition request.
type Decision struct {
	Outcome  Outcome        `json:"outcome"`
	FormType model.FormType `json:"form_type,omitempty"`
	Lead     *model.Lead    `json:"lead,omitempty"`
}

// Orchestrator applies stage transitions. Within one transition the mutation
// always completes before the refetch is issued, and exactly one notification
// is emitted, success or failure. Any error leaves the lead unchanged.
type Orchestrator struct {
	store    store.Store
	uploads  *upload.FileStore
	notifier notify.Notifier
}

// New creates an Orchestrator.
func New(st store.Store, uploads *upload.FileStore, notifier notify.Notifier) *Orchestrator {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Orchestrator{store: st, uploads: uploads, notifier: notifier}
}

// Request asks to move a lead into the given stage. If the stage's form type
// requires a side-effect form, no mutation happens and the decision names the
// form; otherwise the move is applied directly.
func (o *Orchestrator) Request(ctx context.Context, leadID, stageID string) (*Decision, error) {
	lead, err := o.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	stage, err := o.store.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}

	if stage.FormType.RequiresForm() {
		return &Decision{Outcome: OutcomeFormRequired, FormType: stage.FormType}, nil
	}

	entry := model.ActivityLog{
		LeadID: leadID,
		Action: model.ActionStageChanged,
		Metadata: map[string]any{
			"from_stage": lead.StageID,
			"to_stage":   stage.ID,
			"stage_key":  stage.Key,
		},
	}
	refreshed, err := o.apply(ctx, leadID, string(model.ActionStageChanged), func() error {
		return o.store.MoveLeadToStage(ctx, leadID, stage.ID, entry)
	})
	if err != nil {
		return nil, err
	}
	return &Decision{Outcome: OutcomeApplied, Lead: refreshed}, nil
}

// SubmitLost marks a lead lost with the given reason and moves it to the
// pipeline's lost stage.
func (o *Orchestrator) SubmitLost(ctx context.Context, leadID string, sub ReasonSubmission) (*model.Lead, error) {
	return o.submitOutcome(ctx, leadID, sub, model.FormLost, model.LeadStatusLost, model.ActionMarkedLost)
}

// SubmitJunk marks a lead junk with the given reason and moves it to the
// pipeline's junk stage.
func (o *Orchestrator) SubmitJunk(ctx context.Context, leadID string, sub ReasonSubmission) (*model.Lead, error) {
	return o.submitOutcome(ctx, leadID, sub, model.FormJunk, model.LeadStatusJunk, model.ActionMarkedJunk)
}

func (o *Orchestrator) submitOutcome(ctx context.Context, leadID string, sub ReasonSubmission, form model.FormType, status model.LeadStatus, action model.LogAction) (*model.Lead, error) {
	if err := sub.Validate(); err != nil {
		o.rejected(ctx, leadID, string(action), err)
		return nil, err
	}

	stage, err := o.stageForForm(ctx, form)
	if err != nil {
		o.rejected(ctx, leadID, string(action), err)
		return nil, err
	}

	reason := strings.TrimSpace(sub.Reason)
	entry := model.ActivityLog{
		LeadID: leadID,
		Action: action,
		Metadata: map[string]any{
			"reason":   reason,
			"to_stage": stage.ID,
		},
	}
	return o.apply(ctx, leadID, string(action), func() error {
		return o.store.SetLeadOutcome(ctx, leadID, stage.ID, status, reason, entry)
	})
}

// SubmitFreeze validates the freeze form, stores the proof file, and moves the
// lead to the stage with the well-known freeze key. If the database write
// fails the stored proof is removed again.
func (o *Orchestrator) SubmitFreeze(ctx context.Context, leadID string, sub FreezeSubmission) (*model.Lead, error) {
	action := string(model.ActionLeadFrozen)
	if err := sub.Validate(time.Now().UTC()); err != nil {
		o.rejected(ctx, leadID, action, err)
		return nil, err
	}

	stage, err := o.store.GetStageByKey(ctx, model.StageKeyFreeze)
	if err != nil {
		o.rejected(ctx, leadID, action, err)
		return nil, err
	}

	proofPath, err := o.uploads.Save(leadID, sub.Proof)
	if err != nil {
		o.rejected(ctx, leadID, action, err)
		return nil, err
	}

	mode, _ := model.ParsePaymentMode(sub.PaymentMode)
	details := model.FreezeDetails{
		Amount:      strings.TrimSpace(sub.Amount),
		PaymentDate: sub.PaymentDate,
		PaymentMode: mode,
		ProofPath:   proofPath,
	}
	entry := model.ActivityLog{
		LeadID: leadID,
		Action: model.ActionLeadFrozen,
		Metadata: map[string]any{
			"freezing_amount": details.Amount,
			"payment_mode":    string(mode),
			"to_stage":        stage.ID,
		},
	}

	lead, err := o.apply(ctx, leadID, action, func() error {
		return o.store.FreezeLead(ctx, leadID, stage.ID, details, entry)
	})
	if err != nil {
		if rmErr := o.uploads.Remove(proofPath); rmErr != nil {
			zap.L().Warn("transition: orphaned freeze proof", zap.String("path", proofPath), zap.Error(rmErr))
		}
		return nil, err
	}
	return lead, nil
}

// SubmitConversion validates the conversion form, stores any uploads, and
// converts the lead. Uploads are compensated (removed) if the field update
// fails, so a half-converted lead cannot persist.
func (o *Orchestrator) SubmitConversion(ctx context.Context, leadID string, sub ConversionSubmission) (*model.Lead, error) {
	action := string(model.ActionConverted)
	if err := sub.Validate(); err != nil {
		o.rejected(ctx, leadID, action, err)
		return nil, err
	}

	stage, err := o.stageForForm(ctx, model.FormConverted)
	if err != nil {
		o.rejected(ctx, leadID, action, err)
		return nil, err
	}

	var stored []string
	cleanup := func() {
		for _, p := range stored {
			if rmErr := o.uploads.Remove(p); rmErr != nil {
				zap.L().Warn("transition: orphaned conversion upload", zap.String("path", p), zap.Error(rmErr))
			}
		}
	}

	details := model.ConversionDetails{
		FinalQuotation:  sub.FinalQuotation,
		SignupAmount:    sub.SignupAmount,
		PaymentDate:     sub.PaymentDate,
		PANNumber:       sub.PANNumber,
		ProjectTimeline: sub.ProjectTimeline,
		Discount:        sub.Discount,
	}
	if sub.PaymentMode != "" {
		details.PaymentMode, _ = model.ParsePaymentMode(sub.PaymentMode)
	}

	if sub.PaymentProof != nil {
		path, err := o.uploads.Save(leadID, *sub.PaymentProof)
		if err != nil {
			o.rejected(ctx, leadID, action, err)
			return nil, err
		}
		stored = append(stored, path)
		details.PaymentProof = path
	}
	if sub.BookingForm != nil {
		path, err := o.uploads.Save(leadID, *sub.BookingForm)
		if err != nil {
			cleanup()
			o.rejected(ctx, leadID, action, err)
			return nil, err
		}
		stored = append(stored, path)
		details.BookingForm = path
	}

	entry := model.ActivityLog{
		LeadID: leadID,
		Action: model.ActionConverted,
		Metadata: map[string]any{
			"final_quotation": strconv.FormatFloat(sub.FinalQuotation, 'f', -1, 64),
			"signup_amount":   strconv.FormatFloat(sub.SignupAmount, 'f', -1, 64),
			"to_stage":        stage.ID,
		},
	}

	lead, err := o.apply(ctx, leadID, action, func() error {
		return o.store.ConvertLead(ctx, leadID, stage.ID, details, entry)
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	return lead, nil
}

// apply runs the mutation, then the refetch, strictly in that order, and
// emits the single per-transition notification.
func (o *Orchestrator) apply(ctx context.Context, leadID, action string, mutate func() error) (*model.Lead, error) {
	if err := mutate(); err != nil {
		o.notifier.Notify(ctx, notify.Event{
			Level:   notify.LevelError,
			Action:  action,
			LeadID:  leadID,
			Message: "transition failed",
			Details: map[string]any{"error": err.Error()},
		})
		return nil, err
	}

	lead, err := o.store.GetLead(ctx, leadID)
	if err != nil {
		// The mutation committed; only the refetch failed.
		o.notifier.Notify(ctx, notify.Event{
			Level:   notify.LevelError,
			Action:  action,
			LeadID:  leadID,
			Message: "transition applied but refetch failed",
			Details: map[string]any{"error": err.Error()},
		})
		return nil, eris.Wrapf(err, "transition: refetch lead %s", leadID)
	}

	o.notifier.Notify(ctx, notify.Event{
		Level:   notify.LevelSuccess,
		Action:  action,
		LeadID:  leadID,
		Message: "transition applied",
		Details: map[string]any{"stage_id": lead.StageID, "status": string(lead.Status)},
	})
	return lead, nil
}

// rejected emits the single failure notification for a transition that never
// reached the store.
func (o *Orchestrator) rejected(ctx context.Context, leadID, action string, err error) {
	o.notifier.Notify(ctx, notify.Event{
		Level:   notify.LevelError,
		Action:  action,
		LeadID:  leadID,
		Message: "transition rejected",
		Details: map[string]any{"error": err.Error()},
	})
}

// stageForForm resolves the pipeline stage gated by the given form type.
// A missing stage is a reported not-found error, never a silent no-op.
func (o *Orchestrator) stageForForm(ctx context.Context, form model.FormType) (*model.Stage, error) {
	stages, err := o.store.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	for i := range stages {
		if stages[i].FormType == form {
			return &stages[i], nil
		}
	}
	return nil, eris.Wrapf(store.ErrNotFound, "transition: no stage with form type %s", form)
}
