package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/lifecycle"
	"github.com/garyjia/expense-claims/pkg/utils"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"
)

// Payload field names as they appear on the wire
const (
	FieldProjectID           = "ProjectID"
	FieldCurrencyID          = "CurrencyID"
	FieldExpenseDate         = "ExpenseDate"
	FieldAmount              = "Amount"
	FieldPurpose             = "Purpose"
	FieldStatus              = "Status"
	FieldChargeToDefaultDept = "ChargeToDefaultDept"
	FieldAlternativeDeptCode = "AlternativeDeptCode"
	FieldInvoice             = "invoice"
)

// InvoiceFile is an uploaded invoice attached to a create request
type InvoiceFile struct {
	Filename string
	Content  []byte
}

// ClaimPayload carries raw client values. A nil field was absent from the
// request. EmployeeID and ClaimID have no field and so can never be set.
type ClaimPayload struct {
	ProjectID           *string
	CurrencyID          *string
	ExpenseDate         *string
	Amount              *string
	Purpose             *string
	Status              *string
	ChargeToDefaultDept *string
	AlternativeDeptCode *string
	Invoice             *InvoiceFile
}

// claimFields holds parsed payload values; nil means "keep current"
type claimFields struct {
	projectID           *int64
	currencyID          *string
	expenseDate         *time.Time
	amount              *decimal.Decimal
	purpose             *string
	status              *string
	chargeToDefaultDept *bool
	alternativeDeptCode *string
}

// checkRequired returns a MissingFieldError for the first absent create field
func (p *ClaimPayload) checkRequired() error {
	required := []struct {
		name  string
		value *string
	}{
		{FieldProjectID, p.ProjectID},
		{FieldCurrencyID, p.CurrencyID},
		{FieldExpenseDate, p.ExpenseDate},
		{FieldAmount, p.Amount},
		{FieldPurpose, p.Purpose},
		{FieldStatus, p.Status},
	}

	for _, f := range required {
		if f.value == nil {
			return &lifecycle.MissingFieldError{Field: f.name}
		}
	}
	return nil
}

// parse validates every present field and converts it. Nothing is returned
// unless all present fields are valid.
func (p *ClaimPayload) parse() (*claimFields, error) {
	rules := []struct {
		name  string
		value *string
		rules []validation.Rule
	}{
		{FieldProjectID, p.ProjectID, []validation.Rule{validation.Required, is.Int}},
		{FieldCurrencyID, p.CurrencyID, []validation.Rule{validation.Required, utils.CurrencyCode}},
		{FieldExpenseDate, p.ExpenseDate, []validation.Rule{validation.Required, validation.Date(entity.ExpenseDateLayout)}},
		{FieldAmount, p.Amount, []validation.Rule{validation.Required, utils.NonNegativeAmount}},
		{FieldPurpose, p.Purpose, []validation.Rule{validation.Required, validation.Length(1, 500)}},
		{FieldStatus, p.Status, []validation.Rule{validation.Required, validation.Length(1, 20)}},
		{FieldAlternativeDeptCode, p.AlternativeDeptCode, []validation.Rule{validation.Length(0, 50)}},
	}

	for _, r := range rules {
		if r.value == nil {
			continue
		}
		if err := validation.Validate(strings.TrimSpace(*r.value), r.rules...); err != nil {
			return nil, lifecycle.NewValidationError(r.name, "%s", err.Error())
		}
	}

	fields := &claimFields{}

	if p.ProjectID != nil {
		id, err := strconv.ParseInt(strings.TrimSpace(*p.ProjectID), 10, 64)
		if err != nil {
			return nil, lifecycle.NewValidationError(FieldProjectID, "must be an integer")
		}
		fields.projectID = &id
	}
	if p.CurrencyID != nil {
		code := strings.ToUpper(strings.TrimSpace(*p.CurrencyID))
		fields.currencyID = &code
	}
	if p.ExpenseDate != nil {
		date, err := time.Parse(entity.ExpenseDateLayout, strings.TrimSpace(*p.ExpenseDate))
		if err != nil {
			return nil, lifecycle.NewValidationError(FieldExpenseDate, "must be a valid date")
		}
		fields.expenseDate = &date
	}
	if p.Amount != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*p.Amount))
		if err != nil {
			return nil, lifecycle.NewValidationError(FieldAmount, "must be a decimal number")
		}
		amount = amount.Round(2)
		fields.amount = &amount
	}
	if p.Purpose != nil {
		purpose := utils.SanitizeString(*p.Purpose)
		fields.purpose = &purpose
	}
	if p.Status != nil {
		status := *p.Status
		fields.status = &status
	}
	if p.ChargeToDefaultDept != nil {
		charge := isTruthy(*p.ChargeToDefaultDept)
		fields.chargeToDefaultDept = &charge
	}
	if p.AlternativeDeptCode != nil {
		code := strings.TrimSpace(*p.AlternativeDeptCode)
		fields.alternativeDeptCode = &code
	}

	return fields, nil
}

// apply copies present fields onto claim
func (f *claimFields) apply(claim *entity.ExpenseClaim) {
	if f.projectID != nil {
		claim.ProjectID = *f.projectID
	}
	if f.currencyID != nil {
		claim.CurrencyID = *f.currencyID
	}
	if f.expenseDate != nil {
		claim.ExpenseDate = *f.expenseDate
	}
	if f.amount != nil {
		claim.Amount = *f.amount
	}
	if f.purpose != nil {
		claim.Purpose = *f.purpose
	}
	if f.status != nil {
		claim.Status = *f.status
	}
	if f.chargeToDefaultDept != nil {
		claim.ChargeToDefaultDept = *f.chargeToDefaultDept
	}
	if f.alternativeDeptCode != nil {
		claim.AlternativeDeptCode = *f.alternativeDeptCode
	}
}

// isTruthy accepts "true" in any case. Everything else is false.
func isTruthy(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}
