package port

import (
	"context"
	"errors"

	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// Lookups return (nil, nil) when the row does not exist.

// ErrConflict is returned by Create when the row collides with an existing
// key or references a missing one
var ErrConflict = errors.New("conflicting record")

// EmployeeRepository defines persistence operations for Employee
type EmployeeRepository interface {
	Create(ctx context.Context, employee *entity.Employee) error
	GetByID(ctx context.Context, id int64) (*entity.Employee, error)
}

// DepartmentRepository defines persistence operations for Department
type DepartmentRepository interface {
	Upsert(ctx context.Context, department *entity.Department) error
	GetByCode(ctx context.Context, code string) (*entity.Department, error)
}

// ProjectRepository defines persistence operations for Project
type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	GetByID(ctx context.Context, id int64) (*entity.Project, error)
}

// CurrencyRepository defines lookups on the Currency reference table
type CurrencyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Currency, error)
	List(ctx context.Context) ([]*entity.Currency, error)
}

// ClaimRepository defines persistence operations for ExpenseClaim
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.ExpenseClaim) error

	// GetForOwner retrieves a claim only when employeeID owns it
	GetForOwner(ctx context.Context, claimID, employeeID int64) (*entity.ExpenseClaim, error)

	// ListByEmployee returns every claim owned by employeeID joined with its currency
	ListByEmployee(ctx context.Context, employeeID int64) ([]*entity.ClaimWithCurrency, error)

	// Update overwrites all mutable columns. EmployeeID is never written.
	Update(ctx context.Context, claim *entity.ExpenseClaim) error

	Delete(ctx context.Context, id int64) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
