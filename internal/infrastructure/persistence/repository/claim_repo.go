package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const claimColumns = `
	c.claim_id, c.project_id, c.employee_id, c.currency_id, c.expense_date,
	c.amount, c.purpose, c.charge_to_default_dept, c.alternative_dept_code,
	c.status, c.last_edited_claim_date
`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new expense claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a claim and assigns its ClaimID
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.ExpenseClaim) error {
	query := `
		INSERT INTO expense_claims (
			project_id, employee_id, currency_id, expense_date, amount, purpose,
			charge_to_default_dept, alternative_dept_code, status, last_edited_claim_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		claim.ProjectID,
		claim.EmployeeID,
		claim.CurrencyID,
		claim.ExpenseDate.Format(entity.ExpenseDateLayout),
		claim.Amount.StringFixed(2),
		claim.Purpose,
		claim.ChargeToDefaultDept,
		claim.AlternativeDeptCode,
		claim.Status,
		claim.LastEditedClaimDate.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.Int64("employee_id", claim.EmployeeID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	claim.ClaimID = id
	return nil
}

// GetForOwner retrieves a claim only when it belongs to employeeID
func (r *ClaimRepository) GetForOwner(ctx context.Context, claimID, employeeID int64) (*entity.ExpenseClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM expense_claims c WHERE c.claim_id = ? AND c.employee_id = ?`

	claim, err := scanClaim(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, claimID, employeeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim for owner",
			zap.Int64("claim_id", claimID),
			zap.Int64("employee_id", employeeID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// ListByEmployee returns the employee's claims joined with their currency
func (r *ClaimRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]*entity.ClaimWithCurrency, error) {
	query := `
		SELECT ` + claimColumns + `, cur.currency_id, cur.exchange_rate
		FROM expense_claims c
		JOIN currencies cur ON cur.currency_id = c.currency_id
		WHERE c.employee_id = ?
		ORDER BY c.claim_id
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, employeeID)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := []*entity.ClaimWithCurrency{}
	for rows.Next() {
		var item entity.ClaimWithCurrency
		var amount string
		var rate sql.NullFloat64

		err := rows.Scan(
			&item.ClaimID,
			&item.ProjectID,
			&item.EmployeeID,
			&item.CurrencyID,
			&item.ExpenseDate,
			&amount,
			&item.Purpose,
			&item.ChargeToDefaultDept,
			&item.AlternativeDeptCode,
			&item.Status,
			&item.LastEditedClaimDate,
			&item.Currency.CurrencyID,
			&rate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}

		if item.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q of claim %d: %w", amount, item.ClaimID, err)
		}
		if rate.Valid {
			v := rate.Float64
			item.Currency.ExchangeRate = &v
		}

		claims = append(claims, &item)
	}

	return claims, rows.Err()
}

// Update overwrites the mutable columns of a claim. employee_id is not
// part of the statement, so ownership cannot change here.
func (r *ClaimRepository) Update(ctx context.Context, claim *entity.ExpenseClaim) error {
	query := `
		UPDATE expense_claims SET
			project_id = ?, currency_id = ?, expense_date = ?, amount = ?, purpose = ?,
			charge_to_default_dept = ?, alternative_dept_code = ?, status = ?,
			last_edited_claim_date = ?
		WHERE claim_id = ?
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		claim.ProjectID,
		claim.CurrencyID,
		claim.ExpenseDate.Format(entity.ExpenseDateLayout),
		claim.Amount.StringFixed(2),
		claim.Purpose,
		claim.ChargeToDefaultDept,
		claim.AlternativeDeptCode,
		claim.Status,
		claim.LastEditedClaimDate.UTC(),
		claim.ClaimID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.Int64("claim_id", claim.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}

	return expectOneRow(result, claim.ClaimID)
}

// Delete permanently removes a claim
func (r *ClaimRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM expense_claims WHERE claim_id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete claim", zap.Int64("claim_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete claim: %w", err)
	}

	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, claimID int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("claim %d: expected 1 row affected, got %d", claimID, n)
	}
	return nil
}

func scanClaim(row *sql.Row) (*entity.ExpenseClaim, error) {
	var claim entity.ExpenseClaim
	var amount string

	err := row.Scan(
		&claim.ClaimID,
		&claim.ProjectID,
		&claim.EmployeeID,
		&claim.CurrencyID,
		&claim.ExpenseDate,
		&amount,
		&claim.Purpose,
		&claim.ChargeToDefaultDept,
		&claim.AlternativeDeptCode,
		&claim.Status,
		&claim.LastEditedClaimDate,
	)
	if err != nil {
		return nil, err
	}

	if claim.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	return &claim, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
