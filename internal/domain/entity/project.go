package entity

import "github.com/shopspring/decimal"

// Project is a lookup record referenced by claims
type Project struct {
	ProjectID     int64           `json:"ProjectID"`
	EmployeeID    *int64          `json:"EmployeeID,omitempty"`
	ProjectName   string          `json:"ProjectName"`
	ProjectStatus string          `json:"ProjectStatus"`
	ProjectBudget decimal.Decimal `json:"ProjectBudget"`
	ProjectLeadID *int64          `json:"ProjectLeadID,omitempty"`
}

// Currency is a lookup record. ExchangeRate is stored but never applied.
type Currency struct {
	CurrencyID   string   `json:"CurrencyID"`
	ExchangeRate *float64 `json:"ExchangeRate,omitempty"`
}
