package store

import (
	"context"
	"errors"
	"time"

	"github.com/medhirweb/salespipe/internal/model"
)

// Sentinel errors. Store implementations wrap these so callers can classify
// failures with errors.Is instead of ignoring lookup misses.
var (
	// ErrNotFound is returned when a stage, lead, or activity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStageInUse is returned when deleting a stage that still has leads.
	ErrStageInUse = errors.New("stage has leads attached")
	// ErrDuplicateKey is returned when creating a stage with a taken key.
	ErrDuplicateKey = errors.New("stage key already exists")
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	StageID             string           `json:"stage_id,omitempty"`
	Status              model.LeadStatus `json:"status,omitempty"`
	AssignSalesPersonID string           `json:"assign_sales_person_emp_id,omitempty"`
	Limit               int              `json:"limit,omitempty"`
	Offset              int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the pipeline workflow.
//
// The transition methods (MoveLeadToStage, SetLeadOutcome, FreezeLead,
// ConvertLead) apply the lead mutation and append the audit-log entry in a
// single transaction: either both are committed or the lead is left unchanged.
type Store interface {
	// Stages
	CreateStage(ctx context.Context, stage model.Stage) (*model.Stage, error)
	ListStages(ctx context.Context) ([]model.Stage, error)
	GetStage(ctx context.Context, stageID string) (*model.Stage, error)
	GetStageByKey(ctx context.Context, key string) (*model.Stage, error)
	DeleteStage(ctx context.Context, stageID string) error

	// Leads
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	UpdateLeadFields(ctx context.Context, leadID string, upd model.LeadUpdate) error

	// Transitions
	MoveLeadToStage(ctx context.Context, leadID, stageID string, entry model.ActivityLog) error
	SetLeadOutcome(ctx context.Context, leadID, stageID string, status model.LeadStatus, reason string, entry model.ActivityLog) error
	FreezeLead(ctx context.Context, leadID, stageID string, details model.FreezeDetails, entry model.ActivityLog) error
	ConvertLead(ctx context.Context, leadID, stageID string, details model.ConversionDetails, entry model.ActivityLog) error

	// Activities
	CreateActivity(ctx context.Context, activity model.Activity) (*model.Activity, error)
	GetActivity(ctx context.Context, activityID string) (*model.Activity, error)
	UpdateActivity(ctx context.Context, activity model.Activity) error
	CompleteActivity(ctx context.Context, activityID string, entry model.ActivityLog) error
	DeleteActivity(ctx context.Context, activityID string, entry model.ActivityLog) error
	ListActivities(ctx context.Context, leadID string) ([]model.Activity, error)
	ListOverdueActivities(ctx context.Context, asOf time.Time) ([]model.Activity, error)

	// Audit log
	AppendLog(ctx context.Context, entry model.ActivityLog) error
	ListLogs(ctx context.Context, leadID string) ([]model.ActivityLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
