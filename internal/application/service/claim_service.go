package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/lifecycle"
)

// DashboardEntry is one claim as shown on the dashboard
type DashboardEntry struct {
	ClaimID     int64   `json:"ClaimID"`
	ProjectID   int64   `json:"ProjectID"`
	Currency    string  `json:"Currency"`
	Amount      float64 `json:"Amount"`
	Status      string  `json:"Status"`
	ExpenseDate string  `json:"ExpenseDate"`
	Purpose     string  `json:"Purpose"`
}

// Dashboard groups an employee's claims by canonical status. Buckets are
// never nil.
type Dashboard struct {
	Pending  []DashboardEntry `json:"pending"`
	Approved []DashboardEntry `json:"approved"`
	Rejected []DashboardEntry `json:"rejected"`
}

// ClaimConfig controls creation policy
type ClaimConfig struct {
	// ForcePendingOnCreate ignores the client status on create
	ForcePendingOnCreate bool
}

// ClaimService applies the claim lifecycle rules for an authenticated employee
type ClaimService interface {
	ListDashboard(ctx context.Context, employeeID int64) (*Dashboard, error)
	CreateClaim(ctx context.Context, employeeID int64, payload *ClaimPayload) (int64, error)
	UpdateClaim(ctx context.Context, employeeID, claimID int64, payload *ClaimPayload) error
	DeleteClaim(ctx context.Context, employeeID, claimID int64) error
	ExportStatement(ctx context.Context, employeeID int64, w io.Writer) error
}

// ClaimDependencies groups the collaborators of ClaimService
type ClaimDependencies struct {
	Employees  port.EmployeeRepository
	Projects   port.ProjectRepository
	Currencies port.CurrencyRepository
	Claims     port.ClaimRepository
	TxManager  port.TransactionManager
	Invoices   port.InvoiceStorage
	Statements port.StatementWriter
}

type claimServiceImpl struct {
	employees  port.EmployeeRepository
	projects   port.ProjectRepository
	currencies port.CurrencyRepository
	claims     port.ClaimRepository
	txManager  port.TransactionManager
	invoices   port.InvoiceStorage
	statements port.StatementWriter
	cfg        ClaimConfig
	logger     Logger
	now        func() time.Time
}

// NewClaimService creates a new ClaimService
func NewClaimService(deps ClaimDependencies, cfg ClaimConfig, logger Logger) ClaimService {
	return &claimServiceImpl{
		employees:  deps.Employees,
		projects:   deps.Projects,
		currencies: deps.Currencies,
		claims:     deps.Claims,
		txManager:  deps.TxManager,
		invoices:   deps.Invoices,
		statements: deps.Statements,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// ListDashboard buckets the employee's claims by case-insensitive status.
// Claims with any other status are left out.
func (s *claimServiceImpl) ListDashboard(ctx context.Context, employeeID int64) (*Dashboard, error) {
	if _, err := s.requireEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	claims, err := s.claims.ListByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Error("Failed to list claims", "error", err, "employee_id", employeeID)
		return nil, fmt.Errorf("%w: list claims: %v", lifecycle.ErrPersistence, err)
	}

	dashboard, skipped := buildDashboard(claims)
	if len(skipped) > 0 {
		s.logger.Error("Claims with unrepresentable amounts left off dashboard",
			"employee_id", employeeID, "claim_ids", skipped)
	}
	return dashboard, nil
}

// buildDashboard groups claims by canonical status. Claims whose amount does
// not fit a finite float64 are returned as skipped IDs instead of entries.
func buildDashboard(claims []*entity.ClaimWithCurrency) (*Dashboard, []int64) {
	dashboard := &Dashboard{
		Pending:  []DashboardEntry{},
		Approved: []DashboardEntry{},
		Rejected: []DashboardEntry{},
	}
	var skipped []int64

	for _, c := range claims {
		status, ok := lifecycle.Canonical(c.Status)
		if !ok {
			continue
		}

		amount, _ := c.Amount.Float64()
		if math.IsInf(amount, 0) || math.IsNaN(amount) {
			skipped = append(skipped, c.ClaimID)
			continue
		}
		entry := DashboardEntry{
			ClaimID:     c.ClaimID,
			ProjectID:   c.ProjectID,
			Currency:    c.Currency.CurrencyID,
			Amount:      amount,
			Status:      c.Status,
			ExpenseDate: c.ExpenseDate.Format(entity.ExpenseDateLayout),
			Purpose:     c.Purpose,
		}

		switch status {
		case lifecycle.StatusPending:
			dashboard.Pending = append(dashboard.Pending, entry)
		case lifecycle.StatusApproved:
			dashboard.Approved = append(dashboard.Approved, entry)
		case lifecycle.StatusRejected:
			dashboard.Rejected = append(dashboard.Rejected, entry)
		}
	}

	return dashboard, skipped
}

// CreateClaim stores a new claim owned by employeeID and returns its ID
func (s *claimServiceImpl) CreateClaim(ctx context.Context, employeeID int64, payload *ClaimPayload) (int64, error) {
	if payload == nil {
		payload = &ClaimPayload{}
	}
	if err := payload.checkRequired(); err != nil {
		return 0, err
	}

	fields, err := payload.parse()
	if err != nil {
		return 0, err
	}

	if payload.Invoice != nil {
		if s.invoices == nil || !s.invoices.Allowed(payload.Invoice.Filename) {
			return 0, lifecycle.NewValidationError(FieldInvoice, "file type not allowed")
		}
	}

	claim := &entity.ExpenseClaim{EmployeeID: employeeID}
	fields.apply(claim)
	if s.cfg.ForcePendingOnCreate {
		claim.Status = entity.ClaimStatusPending
	}
	claim.LastEditedClaimDate = s.now().UTC()

	invoiceSaved := false
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.checkReferences(txCtx, fields); err != nil {
			return err
		}

		if err := s.claims.Create(txCtx, claim); err != nil {
			return fmt.Errorf("%w: create claim: %v", lifecycle.ErrPersistence, err)
		}

		if payload.Invoice != nil {
			if _, err := s.invoices.Save(txCtx, claim.ClaimID, payload.Invoice.Filename, payload.Invoice.Content); err != nil {
				return fmt.Errorf("%w: save invoice: %v", lifecycle.ErrPersistence, err)
			}
			invoiceSaved = true
		}

		return nil
	})

	if err != nil {
		if invoiceSaved {
			s.removeInvoices(ctx, claim.ClaimID)
		}
		if !lifecycle.IsValidation(err) {
			s.logger.Error("Failed to create claim", "error", err, "employee_id", employeeID)
		}
		return 0, err
	}

	s.logger.Info("Claim created", "claim_id", claim.ClaimID, "employee_id", employeeID, "status", claim.Status)
	return claim.ClaimID, nil
}

// UpdateClaim applies the present payload fields to a mutable claim owned by
// employeeID. LastEditedClaimDate always advances.
func (s *claimServiceImpl) UpdateClaim(ctx context.Context, employeeID, claimID int64, payload *ClaimPayload) error {
	if payload == nil {
		payload = &ClaimPayload{}
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := s.loadMutable(txCtx, employeeID, claimID)
		if err != nil {
			return err
		}

		fields, err := payload.parse()
		if err != nil {
			return err
		}
		if err := s.checkReferences(txCtx, fields); err != nil {
			return err
		}

		fields.apply(claim)
		claim.LastEditedClaimDate = lifecycle.NextEditTime(claim.LastEditedClaimDate, s.now().UTC())

		if err := s.claims.Update(txCtx, claim); err != nil {
			return fmt.Errorf("%w: update claim: %v", lifecycle.ErrPersistence, err)
		}
		return nil
	})

	if err != nil {
		s.logOperationError("Failed to update claim", err, employeeID, claimID)
		return err
	}

	s.logger.Info("Claim updated", "claim_id", claimID, "employee_id", employeeID)
	return nil
}

// DeleteClaim removes a mutable claim owned by employeeID together with its invoices
func (s *claimServiceImpl) DeleteClaim(ctx context.Context, employeeID, claimID int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.loadMutable(txCtx, employeeID, claimID); err != nil {
			return err
		}

		if err := s.claims.Delete(txCtx, claimID); err != nil {
			return fmt.Errorf("%w: delete claim: %v", lifecycle.ErrPersistence, err)
		}
		return nil
	})

	if err != nil {
		s.logOperationError("Failed to delete claim", err, employeeID, claimID)
		return err
	}

	s.removeInvoices(ctx, claimID)
	s.logger.Info("Claim deleted", "claim_id", claimID, "employee_id", employeeID)
	return nil
}

// ExportStatement writes a statement of every claim owned by employeeID
func (s *claimServiceImpl) ExportStatement(ctx context.Context, employeeID int64, w io.Writer) error {
	employee, err := s.requireEmployee(ctx, employeeID)
	if err != nil {
		return err
	}

	claims, err := s.claims.ListByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Error("Failed to list claims for statement", "error", err, "employee_id", employeeID)
		return fmt.Errorf("%w: list claims: %v", lifecycle.ErrPersistence, err)
	}

	if err := s.statements.Write(w, employee, claims); err != nil {
		s.logger.Error("Failed to write statement", "error", err, "employee_id", employeeID)
		return fmt.Errorf("write statement: %w", err)
	}
	return nil
}

func (s *claimServiceImpl) requireEmployee(ctx context.Context, employeeID int64) (*entity.Employee, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		s.logger.Error("Failed to load employee", "error", err, "employee_id", employeeID)
		return nil, fmt.Errorf("%w: load employee: %v", lifecycle.ErrPersistence, err)
	}
	if employee == nil {
		return nil, lifecycle.ErrUserNotFound
	}
	return employee, nil
}

// loadMutable returns the claim only when employeeID owns it and its status
// still permits mutation.
func (s *claimServiceImpl) loadMutable(ctx context.Context, employeeID, claimID int64) (*entity.ExpenseClaim, error) {
	claim, err := s.claims.GetForOwner(ctx, claimID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("%w: load claim: %v", lifecycle.ErrPersistence, err)
	}
	if claim == nil {
		return nil, lifecycle.ErrNotFoundOrUnauthorized
	}
	if err := lifecycle.CheckMutable(claim.Status); err != nil {
		return nil, err
	}
	return claim, nil
}

// checkReferences verifies that referenced project and currency rows exist
func (s *claimServiceImpl) checkReferences(ctx context.Context, fields *claimFields) error {
	if fields.projectID != nil {
		project, err := s.projects.GetByID(ctx, *fields.projectID)
		if err != nil {
			return fmt.Errorf("%w: load project: %v", lifecycle.ErrPersistence, err)
		}
		if project == nil {
			return lifecycle.NewValidationError(FieldProjectID, "project %d does not exist", *fields.projectID)
		}
	}

	if fields.currencyID != nil {
		currency, err := s.currencies.GetByID(ctx, *fields.currencyID)
		if err != nil {
			return fmt.Errorf("%w: load currency: %v", lifecycle.ErrPersistence, err)
		}
		if currency == nil {
			return lifecycle.NewValidationError(FieldCurrencyID, "currency %s does not exist", *fields.currencyID)
		}
	}

	return nil
}

func (s *claimServiceImpl) removeInvoices(ctx context.Context, claimID int64) {
	if s.invoices == nil {
		return
	}
	if err := s.invoices.DeleteClaim(ctx, claimID); err != nil {
		s.logger.Error("Failed to remove invoices", "error", err, "claim_id", claimID)
	}
}

// logOperationError logs only unexpected failures; rule violations are
// reported to the caller.
func (s *claimServiceImpl) logOperationError(msg string, err error, employeeID, claimID int64) {
	if lifecycle.IsValidation(err) ||
		errors.Is(err, lifecycle.ErrNotFoundOrUnauthorized) ||
		errors.Is(err, lifecycle.ErrImmutable) {
		return
	}
	s.logger.Error(msg, "error", err, "employee_id", employeeID, "claim_id", claimID)
}
