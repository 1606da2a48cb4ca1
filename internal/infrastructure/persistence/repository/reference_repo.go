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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepartmentRepository implements port.DepartmentRepository
type DepartmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB, logger *zap.Logger) port.DepartmentRepository {
	return &DepartmentRepository{db: db, logger: logger}
}

// Upsert inserts a department or renames an existing one
func (r *DepartmentRepository) Upsert(ctx context.Context, department *entity.Department) error {
	query := `
		INSERT INTO departments (department_code, department_name) VALUES (?, ?)
		ON CONFLICT(department_code) DO UPDATE SET department_name = excluded.department_name
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, department.DepartmentCode, department.DepartmentName)
	if err != nil {
		r.logger.Error("Failed to upsert department", zap.String("code", department.DepartmentCode), zap.Error(err))
		return fmt.Errorf("failed to upsert department: %w", err)
	}
	return nil
}

// GetByCode retrieves a department by code
func (r *DepartmentRepository) GetByCode(ctx context.Context, code string) (*entity.Department, error) {
	var department entity.Department
	var name sql.NullString

	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT department_code, department_name FROM departments WHERE department_code = ?`, code,
	).Scan(&department.DepartmentCode, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	department.DepartmentName = name.String
	return &department, nil
}

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) port.ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

// Create inserts a project. ProjectID is caller-assigned when non-zero.
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	query := `
		INSERT INTO projects (
			project_id, employee_id, project_name, project_status, project_budget, project_lead_id
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	var id interface{}
	if project.ProjectID != 0 {
		id = project.ProjectID
	}

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		id,
		nullInt64(project.EmployeeID),
		project.ProjectName,
		project.ProjectStatus,
		project.ProjectBudget.StringFixed(2),
		nullInt64(project.ProjectLeadID),
	)
	if err != nil {
		if database.IsConstraint(err) {
			return fmt.Errorf("%w: project %d: %v", port.ErrConflict, project.ProjectID, err)
		}
		r.logger.Error("Failed to create project", zap.Error(err))
		return fmt.Errorf("failed to create project: %w", err)
	}

	if project.ProjectID == 0 {
		lastID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		project.ProjectID = lastID
	}
	return nil
}

// GetByID retrieves a project by identifier
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	query := `
		SELECT project_id, employee_id, project_name, project_status, project_budget, project_lead_id
		FROM projects
		WHERE project_id = ?
	`

	var project entity.Project
	var ownerID, leadID sql.NullInt64
	var budget string

	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&project.ProjectID,
		&ownerID,
		&project.ProjectName,
		&project.ProjectStatus,
		&budget,
		&leadID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get project by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	project.ProjectBudget, err = decimal.NewFromString(budget)
	if err != nil {
		return nil, fmt.Errorf("failed to parse project budget %q: %w", budget, err)
	}
	project.EmployeeID = int64Ptr(ownerID)
	project.ProjectLeadID = int64Ptr(leadID)

	return &project, nil
}

// CurrencyRepository implements port.CurrencyRepository
type CurrencyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCurrencyRepository creates a new currency repository
func NewCurrencyRepository(db *sql.DB, logger *zap.Logger) port.CurrencyRepository {
	return &CurrencyRepository{db: db, logger: logger}
}

// GetByID retrieves a currency by its three-letter code
func (r *CurrencyRepository) GetByID(ctx context.Context, id string) (*entity.Currency, error) {
	var currency entity.Currency
	var rate sql.NullFloat64

	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT currency_id, exchange_rate FROM currencies WHERE currency_id = ?`, id,
	).Scan(&currency.CurrencyID, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get currency", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get currency: %w", err)
	}

	if rate.Valid {
		currency.ExchangeRate = &rate.Float64
	}
	return &currency, nil
}

// List returns all currencies ordered by code
func (r *CurrencyRepository) List(ctx context.Context) ([]*entity.Currency, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx,
		`SELECT currency_id, exchange_rate FROM currencies ORDER BY currency_id`)
	if err != nil {
		r.logger.Error("Failed to list currencies", zap.Error(err))
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	defer rows.Close()

	currencies := []*entity.Currency{}
	for rows.Next() {
		var currency entity.Currency
		var rate sql.NullFloat64
		if err := rows.Scan(&currency.CurrencyID, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		if rate.Valid {
			v := rate.Float64
			currency.ExchangeRate = &v
		}
		currencies = append(currencies, &currency)
	}

	return currencies, rows.Err()
}

var (
	_ port.DepartmentRepository = (*DepartmentRepository)(nil)
	_ port.ProjectRepository    = (*ProjectRepository)(nil)
	_ port.CurrencyRepository   = (*CurrencyRepository)(nil)
)
