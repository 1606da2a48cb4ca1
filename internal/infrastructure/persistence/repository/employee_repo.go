package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-claims/pkg/database"
	"go.uber.org/zap"
)

// EmployeeRepository implements port.EmployeeRepository
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) port.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an employee. EmployeeID is caller-assigned when non-zero.
func (r *EmployeeRepository) Create(ctx context.Context, employee *entity.Employee) error {
	query := `
		INSERT INTO employees (
			employee_id, supervisor_id, department_code, password_hash,
			first_name, last_name, bank_account_number
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var id interface{}
	if employee.EmployeeID != 0 {
		id = employee.EmployeeID
	}

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		id,
		nullInt64(employee.SupervisorID),
		nullString(employee.DepartmentCode),
		employee.PasswordHash,
		employee.FirstName,
		employee.LastName,
		employee.BankAccountNumber,
	)
	if err != nil {
		if database.IsConstraint(err) {
			return fmt.Errorf("%w: employee %d: %v", port.ErrConflict, employee.EmployeeID, err)
		}
		r.logger.Error("Failed to create employee", zap.Error(err))
		return fmt.Errorf("failed to create employee: %w", err)
	}

	if employee.EmployeeID == 0 {
		lastID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		employee.EmployeeID = lastID
	}

	return nil
}

// GetByID retrieves an employee by identifier
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	query := `
		SELECT employee_id, supervisor_id, department_code, password_hash,
			first_name, last_name, bank_account_number
		FROM employees
		WHERE employee_id = ?
	`

	var employee entity.Employee
	var supervisorID sql.NullInt64
	var departmentCode sql.NullString

	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&employee.EmployeeID,
		&supervisorID,
		&departmentCode,
		&employee.PasswordHash,
		&employee.FirstName,
		&employee.LastName,
		&employee.BankAccountNumber,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get employee by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	employee.SupervisorID = int64Ptr(supervisorID)
	if departmentCode.Valid {
		employee.DepartmentCode = &departmentCode.String
	}

	return &employee, nil
}

var _ port.EmployeeRepository = (*EmployeeRepository)(nil)
