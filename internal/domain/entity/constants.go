package entity

// Canonical claim statuses. Stored values may differ in case.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusApproved = "approved"
	ClaimStatusRejected = "rejected"
)

// RoleUser is the single role carried in session tokens
const RoleUser = "ROLE_USER"

// ExpenseDateLayout is the wire and storage format of ExpenseDate
const ExpenseDateLayout = "2006-01-02"
