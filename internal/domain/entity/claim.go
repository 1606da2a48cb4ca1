package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseClaim is a reimbursement request owned by exactly one employee
type ExpenseClaim struct {
	ClaimID             int64           `json:"ClaimID"`
	ProjectID           int64           `json:"ProjectID"`
	EmployeeID          int64           `json:"EmployeeID"`
	CurrencyID          string          `json:"CurrencyID"`
	ExpenseDate         time.Time       `json:"ExpenseDate"`
	Amount              decimal.Decimal `json:"Amount"`
	Purpose             string          `json:"Purpose"`
	ChargeToDefaultDept bool            `json:"ChargeToDefaultDept"`
	AlternativeDeptCode string          `json:"AlternativeDeptCode"`
	Status              string          `json:"Status"`
	LastEditedClaimDate time.Time       `json:"LastEditedClaimDate"`
}

// ClaimWithCurrency is a claim joined with its currency row
type ClaimWithCurrency struct {
	ExpenseClaim
	Currency Currency
}
