package transition

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/upload"
)

// ErrValidation marks a submission rejected before any store call was made.
// Callers classify it with errors.Is.
var ErrValidation = errors.New("validation failed")

// FreezeSubmission carries the freeze form payload.
type FreezeSubmission struct {
	Amount      string
	PaymentDate time.Time
	PaymentMode string
	Proof       upload.File
}

// Validate checks the four required freeze fields. The payment date may not
// be in the future.
func (f FreezeSubmission) Validate(now time.Time) error {
	var missing []string
	if strings.TrimSpace(f.Amount) == "" {
		missing = append(missing, "freezing_amount")
	}
	if f.PaymentDate.IsZero() {
		missing = append(missing, "freezing_payment_date")
	}
	if f.PaymentMode == "" {
		missing = append(missing, "freezing_payment_mode")
	}
	if f.Proof.Name == "" || f.Proof.Content == nil {
		missing = append(missing, "proof_file")
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(f.Amount), 64)
	if err != nil || amount <= 0 {
		return eris.Wrapf(ErrValidation, "freezing_amount must be a positive number, got %q", f.Amount)
	}
	if f.PaymentDate.After(now) {
		return eris.Wrap(ErrValidation, "freezing_payment_date cannot be in the future")
	}
	if _, err := model.ParsePaymentMode(f.PaymentMode); err != nil {
		return eris.Wrapf(ErrValidation, "invalid freezing_payment_mode %q", f.PaymentMode)
	}
	if !upload.Allowed(f.Proof.Name) {
		return eris.Wrapf(ErrValidation, "proof file type not allowed: %s", f.Proof.Name)
	}
	return nil
}

// ReasonSubmission carries the junk or lost form payload.
type ReasonSubmission struct {
	Reason string
}

// Validate requires a non-empty reason. The trimmed reason is stored verbatim.
func (r ReasonSubmission) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return eris.Wrap(ErrValidation, "reason is required")
	}
	return nil
}

// ConversionSubmission carries the conversion form payload. The two file
// uploads are optional.
type ConversionSubmission struct {
	FinalQuotation  float64
	SignupAmount    float64
	PaymentDate     *time.Time
	PaymentMode     string
	PANNumber       string
	ProjectTimeline string
	Discount        float64

	PaymentProof *upload.File
	BookingForm  *upload.File
}

// Validate checks the required financials and any supplied optional fields.
func (c ConversionSubmission) Validate() error {
	if c.FinalQuotation <= 0 {
		return eris.Wrap(ErrValidation, "final_quotation must be a positive number")
	}
	if c.SignupAmount <= 0 {
		return eris.Wrap(ErrValidation, "signup_amount must be a positive number")
	}
	if c.PaymentMode != "" {
		if _, err := model.ParsePaymentMode(c.PaymentMode); err != nil {
			return eris.Wrapf(ErrValidation, "invalid payment_mode %q", c.PaymentMode)
		}
	}
	if c.Discount < 0 {
		return eris.Wrap(ErrValidation, "discount cannot be negative")
	}
	if c.PaymentProof != nil && !upload.Allowed(c.PaymentProof.Name) {
		return eris.Wrapf(ErrValidation, "payment proof file type not allowed: %s", c.PaymentProof.Name)
	}
	if c.BookingForm != nil && !upload.Allowed(c.BookingForm.Name) {
		return eris.Wrapf(ErrValidation, "booking form file type not allowed: %s", c.BookingForm.Name)
	}
	return nil
}
