package model

import "time"

// LogAction identifies the kind of audit record.
type LogAction string

const (
	ActionStageChanged     LogAction = "stage_changed"
	ActionLeadFrozen       LogAction = "lead_frozen"
	ActionMarkedJunk       LogAction = "marked_junk"
	ActionMarkedLost       LogAction = "marked_lost"
	ActionConverted        LogAction = "converted"
	ActionActivityCreated  LogAction = "activity_created"
	ActionActivityDone     LogAction = "activity_done"
	ActionActivityDeleted  LogAction = "activity_deleted"
)

// ActivityLog is an append-only audit record written whenever a stage change,
// activity completion, or activity deletion occurs. Clients only ever read it.
type ActivityLog struct {
	ID         string         `json:"id"`
	LeadID     string         `json:"lead_id"`
	ActivityID string         `json:"activity_id,omitempty"`
	Action     LogAction      `json:"action"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
