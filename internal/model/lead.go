package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// LeadStatus represents the workflow state of a lead.
type LeadStatus string

const (
	LeadStatusActive    LeadStatus = "Active"
	LeadStatusFrozen    LeadStatus = "Frozen"
	LeadStatusJunk      LeadStatus = "Junk"
	LeadStatusLost      LeadStatus = "Lost"
	LeadStatusConverted LeadStatus = "Converted"
)

// PaymentMode enumerates the accepted payment channels.
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeCheque       PaymentMode = "cheque"
	PaymentModeUPI          PaymentMode = "upi"
	PaymentModeCard         PaymentMode = "card"
	PaymentModeBankTransfer PaymentMode = "bank_transfer"
	PaymentModeOnline       PaymentMode = "online"
)

// ParsePaymentMode validates a payment mode string.
func ParsePaymentMode(s string) (PaymentMode, error) {
	switch PaymentMode(s) {
	case PaymentModeCash, PaymentModeCheque, PaymentModeUPI,
		PaymentModeCard, PaymentModeBankTransfer, PaymentModeOnline:
		return PaymentMode(s), nil
	default:
		return "", eris.Errorf("unknown payment mode: %q", s)
	}
}

// Lead is a sales prospect tracked through the pipeline. A lead belongs to
// exactly one stage at a time; stage and status change only through the
// transition workflow.
type Lead struct {
	ID                  string     `json:"lead_id"`
	Name                string     `json:"name"`
	ContactNumber       string     `json:"contact_number,omitempty"`
	Email               string     `json:"email,omitempty"`
	StageID             string     `json:"stage_id"`
	Status              LeadStatus `json:"status"`
	ReasonForJunk       string     `json:"reason_for_junk,omitempty"`
	ReasonForLost       string     `json:"reason_for_lost,omitempty"`
	AssignSalesPersonID string     `json:"assign_sales_person_emp_id,omitempty"`
	AssignDesignerID    string     `json:"assign_designer_emp_id,omitempty"`
	IsFrozen            bool       `json:"is_freeze"`

	Freeze     *FreezeDetails     `json:"freeze,omitempty"`
	Conversion *ConversionDetails `json:"conversion,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FreezeDetails holds the payment evidence collected by the freeze form.
type FreezeDetails struct {
	Amount      string      `json:"freezing_amount"`
	PaymentDate time.Time   `json:"freezing_payment_date"`
	PaymentMode PaymentMode `json:"freezing_payment_mode"`
	ProofPath   string      `json:"proof_path"`
}

// ConversionDetails holds the financials collected by the conversion form.
type ConversionDetails struct {
	FinalQuotation  float64     `json:"final_quotation"`
	SignupAmount    float64     `json:"signup_amount"`
	PaymentDate     *time.Time  `json:"payment_date,omitempty"`
	PaymentMode     PaymentMode `json:"payment_mode,omitempty"`
	PANNumber       string      `json:"pan_number,omitempty"`
	ProjectTimeline string      `json:"project_timeline,omitempty"`
	Discount        float64     `json:"discount,omitempty"`
	PaymentProof    string      `json:"payment_proof_path,omitempty"`
	BookingForm     string      `json:"booking_form_path,omitempty"`
}

// LeadUpdate carries optional field changes for a generic lead update.
// Nil fields are left untouched.
type LeadUpdate struct {
	Name                *string `json:"name,omitempty"`
	ContactNumber       *string `json:"contact_number,omitempty"`
	Email               *string `json:"email,omitempty"`
	AssignSalesPersonID *string `json:"assign_sales_person_emp_id,omitempty"`
	AssignDesignerID    *string `json:"assign_designer_emp_id,omitempty"`
}
