package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-claims/migrations"
	"github.com/garyjia/expense-claims/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testStore struct {
	db          *database.DB
	tx          *sqlite.DB
	employees   *EmployeeRepository
	departments *DepartmentRepository
	projects    *ProjectRepository
	currencies  *CurrencyRepository
	claims      *ClaimRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "claims.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.NewMigrator(db, logger).RunMigrations(context.Background(), migrations.FS)
	require.NoError(t, err)

	return &testStore{
		db:          db,
		tx:          sqlite.NewDB(db.DB, logger),
		employees:   NewEmployeeRepository(db.DB, logger).(*EmployeeRepository),
		departments: NewDepartmentRepository(db.DB, logger).(*DepartmentRepository),
		projects:    NewProjectRepository(db.DB, logger).(*ProjectRepository),
		currencies:  NewCurrencyRepository(db.DB, logger).(*CurrencyRepository),
		claims:      NewClaimRepository(db.DB, logger).(*ClaimRepository),
	}
}

func (s *testStore) seedEmployee(t *testing.T, id int64, firstName string) *entity.Employee {
	t.Helper()
	employee := &entity.Employee{
		EmployeeID:   id,
		PasswordHash: "hash",
		FirstName:    firstName,
		LastName:     "Tester",
	}
	require.NoError(t, s.employees.Create(context.Background(), employee))
	return employee
}

func (s *testStore) seedProject(t *testing.T, id int64, owner int64) *entity.Project {
	t.Helper()
	project := &entity.Project{
		ProjectID:     id,
		EmployeeID:    &owner,
		ProjectName:   "Apollo",
		ProjectStatus: "active",
		ProjectBudget: decimal.RequireFromString("5000.00"),
		ProjectLeadID: &owner,
	}
	require.NoError(t, s.projects.Create(context.Background(), project))
	return project
}
