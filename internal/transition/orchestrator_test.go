package transition

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/notify"
	"github.com/medhirweb/salespipe/internal/store"
	"github.com/medhirweb/salespipe/internal/upload"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *mockStore, *spyNotifier, afero.Fs) {
	t.Helper()
	st := &mockStore{}
	spy := &spyNotifier{}
	fs := afero.NewMemMapFs()
	uploads := upload.NewWithFs(fs, "uploads", 10<<20)
	return New(st, uploads, spy), st, spy, fs
}

func entryMatcher() any {
	return mock.AnythingOfType("model.ActivityLog")
}

func TestRequest_PlainStage_AppliesMove(t *testing.T) {
	orch, st, spy, _ := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-a", Status: model.LeadStatusActive}, nil).Once()
	st.On("GetStage", ctx, "stage-b").
		Return(&model.Stage{ID: "stage-b", Key: "negotiation", FormType: model.FormNone}, nil)
	st.On("MoveLeadToStage", ctx, "lead-1", "stage-b", entryMatcher()).Return(nil)
	// Refetch after the mutation commits.
	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-b", Status: model.LeadStatusActive}, nil).Once()

	decision, err := orch.Request(ctx, "lead-1", "stage-b")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, decision.Outcome)
	require.NotNil(t, decision.Lead)
	assert.Equal(t, "stage-b", decision.Lead.StageID)

	events := spy.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.LevelSuccess, events[0].Level)
	assert.Equal(t, "lead-1", events[0].LeadID)

	st.AssertNumberOfCalls(t, "MoveLeadToStage", 1)
	st.AssertExpectations(t)
}

func TestRequest_FormGatedStage_NoMutation(t *testing.T) {
	orch, st, spy, _ := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-a"}, nil)
	st.On("GetStage", ctx, "stage-lost").
		Return(&model.Stage{ID: "stage-lost", Key: "lost", FormType: model.FormLost}, nil)

	decision, err := orch.Request(ctx, "lead-1", "stage-lost")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFormRequired, decision.Outcome)
	assert.Equal(t, model.FormLost, decision.FormType)
	assert.Nil(t, decision.Lead)

	// A deferred transition mutates nothing and notifies nothing.
	st.AssertNotCalled(t, "MoveLeadToStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, spy.Events())
}

func TestRequest_LeadNotFound(t *testing.T) {
	orch, st, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("GetLead", ctx, "ghost").Return(nil, store.ErrNotFound)

	_, err := orch.Request(ctx, "ghost", "stage-b")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRequest_RoundTrip(t *testing.T) {
	orch, st, spy, _ := newTestOrchestrator(t)
	ctx := context.Background()

	stageA := &model.Stage{ID: "stage-a", Key: "new", FormType: model.FormNone}
	stageB := &model.Stage{ID: "stage-b", Key: "contacted", FormType: model.FormNone}
	st.On("GetStage", ctx, "stage-a").Return(stageA, nil)
	st.On("GetStage", ctx, "stage-b").Return(stageB, nil)
	st.On("MoveLeadToStage", ctx, "lead-1", mock.Anything, entryMatcher()).Return(nil)

	// A -> B
	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-a"}, nil).Once()
	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-b"}, nil).Once()
	// B -> A
	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-b"}, nil).Once()
	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-a"}, nil).Once()

	d1, err := orch.Request(ctx, "lead-1", "stage-b")
	require.NoError(t, err)
	assert.Equal(t, "stage-b", d1.Lead.StageID)

	d2, err := orch.Request(ctx, "lead-1", "stage-a")
	require.NoError(t, err)
	assert.Equal(t, "stage-a", d2.Lead.StageID)

	st.AssertNumberOfCalls(t, "MoveLeadToStage", 2)
	assert.Len(t, spy.Events(), 2)
}

func TestSubmitLost_SetsOutcomeAndReason(t *testing.T) {
	orch, st, spy, _ := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("ListStages", ctx).Return([]model.Stage{
		{ID: "stage-new", Key: "new", FormType: model.FormNone},
		{ID: "stage-lost", Key: "lost", FormType: model.FormLost},
	}, nil)
	st.On("SetLeadOutcome", ctx, "lead-1", "stage-lost", model.LeadStatusLost, "Budget constraints", entryMatcher()).
		Return(nil)
	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-lost", Status: model.LeadStatusLost, ReasonForLost: "Budget constraints"}, nil)

	lead, err := orch.SubmitLost(ctx, "lead-1", ReasonSubmission{Reason: "  Budget constraints  "})
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusLost, lead.Status)
	assert.Equal(t, "Budget constraints", lead.ReasonForLost)

	events := spy.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.LevelSuccess, events[0].Level)
	st.AssertExpectations(t)
}

func TestSubmitJunk_EmptyReason_Rejected(t *testing.T) {
	orch, st, spy, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := orch.SubmitJunk(ctx, "lead-1", ReasonSubmission{Reason: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	// Rejected before any store access, with exactly one failure notification.
	st.AssertNotCalled(t, "SetLeadOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "ListStages", mock.Anything)
	events := spy.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.LevelError, events[0].Level)
}

func TestSubmitLost_NoLostStage_NotFound(t *testing.T) {
	orch, st, spy, _ := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("ListStages", ctx).Return([]model.Stage{
		{ID: "stage-new", Key: "new", FormType: model.FormNone},
	}, nil)

	_, err := orch.SubmitLost(ctx, "lead-1", ReasonSubmission{Reason: "no budget"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.Len(t, spy.Events(), 1)
	assert.Equal(t, notify.LevelError, spy.Events()[0].Level)
}

func TestSubmitFreeze_HappyPath(t *testing.T) {
	orch, st, spy, fs := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("GetStageByKey", ctx, model.StageKeyFreeze).
		Return(&model.Stage{ID: "stage-frz", Key: "freeze", FormType: model.FormNone}, nil)
	st.On("FreezeLead", ctx, "lead-1", "stage-frz", mock.AnythingOfType("model.FreezeDetails"), entryMatcher()).
		Return(nil)
	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-frz", Status: model.LeadStatusFrozen, IsFrozen: true}, nil)

	lead, err := orch.SubmitFreeze(ctx, "lead-1", FreezeSubmission{
		Amount:      "50000",
		PaymentDate: time.Now().UTC().Add(-24 * time.Hour),
		PaymentMode: "upi",
		Proof:       upload.File{Name: "receipt.pdf", Content: strings.NewReader("%PDF-1.4")},
	})
	require.NoError(t, err)
	assert.True(t, lead.IsFrozen)
	assert.Equal(t, model.LeadStatusFrozen, lead.Status)

	// Proof file persisted under the lead's upload directory.
	paths, err := afero.Glob(fs, "uploads/lead-1/*receipt.pdf")
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	require.Len(t, spy.Events(), 1)
	assert.Equal(t, notify.LevelSuccess, spy.Events()[0].Level)
	st.AssertExpectations(t)
}

func TestSubmitFreeze_ValidationFailure_NoStoreCalls(t *testing.T) {
	orch, st, spy, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := orch.SubmitFreeze(ctx, "lead-1", FreezeSubmission{
		Amount:      "",
		PaymentMode: "upi",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "freezing_amount")

	st.AssertNotCalled(t, "GetStageByKey", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "FreezeLead", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	events := spy.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.LevelError, events[0].Level)
}

func TestSubmitFreeze_StoreFailure_RemovesProof(t *testing.T) {
	orch, st, spy, fs := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("GetStageByKey", ctx, model.StageKeyFreeze).
		Return(&model.Stage{ID: "stage-frz", Key: "freeze"}, nil)
	st.On("FreezeLead", ctx, "lead-1", "stage-frz", mock.AnythingOfType("model.FreezeDetails"), entryMatcher()).
		Return(errors.New("db down"))

	_, err := orch.SubmitFreeze(ctx, "lead-1", FreezeSubmission{
		Amount:      "50000",
		PaymentDate: time.Now().UTC().Add(-time.Hour),
		PaymentMode: "cash",
		Proof:       upload.File{Name: "receipt.jpg", Content: strings.NewReader("jpeg")},
	})
	require.Error(t, err)

	// Compensation removes the stored proof so no orphan remains.
	paths, globErr := afero.Glob(fs, "uploads/lead-1/*")
	require.NoError(t, globErr)
	assert.Empty(t, paths)

	require.Len(t, spy.Events(), 1)
	assert.Equal(t, notify.LevelError, spy.Events()[0].Level)
}

func TestSubmitConversion_HappyPath(t *testing.T) {
	orch, st, spy, fs := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("ListStages", ctx).Return([]model.Stage{
		{ID: "stage-new", Key: "new", FormType: model.FormNone},
		{ID: "stage-conv", Key: "converted", FormType: model.FormConverted},
	}, nil)
	st.On("ConvertLead", ctx, "lead-1", "stage-conv", mock.AnythingOfType("model.ConversionDetails"), entryMatcher()).
		Return(nil)
	st.On("GetLead", ctx, "lead-1").
		Return(&model.Lead{ID: "lead-1", StageID: "stage-conv", Status: model.LeadStatusConverted}, nil)

	lead, err := orch.SubmitConversion(ctx, "lead-1", ConversionSubmission{
		FinalQuotation: 250000,
		SignupAmount:   50000,
		PaymentMode:    "bank_transfer",
		PANNumber:      "ABCDE1234F",
		PaymentProof:   &upload.File{Name: "payment.png", Content: strings.NewReader("png")},
		BookingForm:    &upload.File{Name: "booking.docx", Content: strings.NewReader("docx")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusConverted, lead.Status)

	paths, err := afero.Glob(fs, "uploads/lead-1/*")
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	require.Len(t, spy.Events(), 1)
	assert.Equal(t, notify.LevelSuccess, spy.Events()[0].Level)
	st.AssertExpectations(t)
}

func TestSubmitConversion_StoreFailure_RemovesUploads(t *testing.T) {
	orch, st, _, fs := newTestOrchestrator(t)
	ctx := context.Background()

	st.On("ListStages", ctx).Return([]model.Stage{
		{ID: "stage-conv", Key: "converted", FormType: model.FormConverted},
	}, nil)
	st.On("ConvertLead", ctx, "lead-1", "stage-conv", mock.AnythingOfType("model.ConversionDetails"), entryMatcher()).
		Return(errors.New("db down"))

	_, err := orch.SubmitConversion(ctx, "lead-1", ConversionSubmission{
		FinalQuotation: 100000,
		SignupAmount:   10000,
		PaymentProof:   &upload.File{Name: "payment.pdf", Content: strings.NewReader("pdf")},
	})
	require.Error(t, err)

	paths, globErr := afero.Glob(fs, "uploads/lead-1/*")
	require.NoError(t, globErr)
	assert.Empty(t, paths)
}

func TestSubmitConversion_InvalidAmounts(t *testing.T) {
	orch, st, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := orch.SubmitConversion(ctx, "lead-1", ConversionSubmission{
		FinalQuotation: 0,
		SignupAmount:   5000,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	st.AssertNotCalled(t, "ConvertLead", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
