package model

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// FormType selects which side-effect form gates entry into a stage.
type FormType string

const (
	FormNone      FormType = "none"
	FormLost      FormType = "lost"
	FormJunk      FormType = "junk"
	FormConverted FormType = "converted"
)

// ParseFormType validates a form type string. An empty string means FormNone.
func ParseFormType(s string) (FormType, error) {
	switch FormType(s) {
	case "", FormNone:
		return FormNone, nil
	case FormLost, FormJunk, FormConverted:
		return FormType(s), nil
	default:
		return "", eris.Errorf("unknown form type: %q", s)
	}
}

// RequiresForm reports whether a transition into a stage with this form type
// must be deferred behind a side-effect form.
func (f FormType) RequiresForm() bool {
	return f != FormNone && f != ""
}

// Well-known stage keys. Stages are resolved by stable key, never by
// display-name matching.
const (
	StageKeyFreeze = "freeze"
)

// Stage is a named position in the sales pipeline a lead can occupy.
type Stage struct {
	ID        string    `json:"stage_id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	FormType  FormType  `json:"form_type"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// SortStages orders stages by position, then key for a stable tie-break.
func SortStages(stages []Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].Position != stages[j].Position {
			return stages[i].Position < stages[j].Position
		}
		return stages[i].Key < stages[j].Key
	})
}
