package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormType(t *testing.T) {
	tests := []struct {
		in      string
		want    FormType
		wantErr bool
	}{
		{"", FormNone, false},
		{"none", FormNone, false},
		{"lost", FormLost, false},
		{"junk", FormJunk, false},
		{"converted", FormConverted, false},
		{"frozen", "", true},
		{"LOST", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormType_RequiresForm(t *testing.T) {
	assert.False(t, FormNone.RequiresForm())
	assert.False(t, FormType("").RequiresForm())
	assert.True(t, FormLost.RequiresForm())
	assert.True(t, FormJunk.RequiresForm())
	assert.True(t, FormConverted.RequiresForm())
}

func TestParsePaymentMode(t *testing.T) {
	for _, mode := range []string{"cash", "cheque", "upi", "card", "bank_transfer", "online"} {
		got, err := ParsePaymentMode(mode)
		require.NoError(t, err)
		assert.Equal(t, PaymentMode(mode), got)
	}

	_, err := ParsePaymentMode("crypto")
	assert.Error(t, err)
	_, err = ParsePaymentMode("")
	assert.Error(t, err)
}

func TestSortStages(t *testing.T) {
	stages := []Stage{
		{Key: "negotiation", Position: 2},
		{Key: "contacted", Position: 1},
		{Key: "b-stage", Position: 1},
		{Key: "new", Position: 0},
	}
	SortStages(stages)

	keys := make([]string, len(stages))
	for i, s := range stages {
		keys[i] = s.Key
	}
	// Position first, key as tie-break.
	assert.Equal(t, []string{"new", "b-stage", "contacted", "negotiation"}, keys)
}

func TestActivity_Overdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	pendingLate := Activity{Status: ActivityStatusPending, DueDate: now.Add(-time.Hour)}
	pendingFuture := Activity{Status: ActivityStatusPending, DueDate: now.Add(time.Hour)}
	doneLate := Activity{Status: ActivityStatusDone, DueDate: now.Add(-time.Hour)}

	assert.True(t, pendingLate.Overdue(now))
	assert.False(t, pendingFuture.Overdue(now))
	assert.False(t, doneLate.Overdue(now))
}
