package model

import "time"

// ActivityStatus represents the completion state of an activity.
type ActivityStatus string

const (
	ActivityStatusPending ActivityStatus = "pending"
	ActivityStatusDone    ActivityStatus = "done"
)

// Activity is a scheduled task owned by a lead. Completed activities feed the
// read-only timeline.
type Activity struct {
	ID         string         `json:"id"`
	LeadID     string         `json:"lead_id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	DueDate    time.Time      `json:"due_date"`
	Status     ActivityStatus `json:"status"`
	Attachment string         `json:"attachment,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Overdue reports whether a pending activity is past its due date.
func (a Activity) Overdue(now time.Time) bool {
	return a.Status == ActivityStatusPending && a.DueDate.Before(now)
}
