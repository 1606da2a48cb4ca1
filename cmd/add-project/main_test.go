package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/container"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

func startContainer(t *testing.T) *container.Container {
	t.Helper()
	dir := t.TempDir()

	cfg := container.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "claims.db")
	cfg.Database.MaxOpenConns = 1
	cfg.Auth.SigningKey = []byte("0123456789abcdef")
	cfg.Auth.BcryptCost = 4
	cfg.Storage.UploadFolder = filepath.Join(dir, "uploads")

	c, err := container.NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAddProject(t *testing.T) {
	ctx := context.Background()
	c := startContainer(t)

	require.NoError(t, c.Repositories().Employee.Create(ctx, &entity.Employee{EmployeeID: 42, FirstName: "Ada"}))

	project, err := addProject(ctx, c, projectInput{
		ID:      5,
		Name:    " Apollo ",
		Status:  "active",
		Budget:  "1500.456",
		OwnerID: 42,
		LeadID:  42,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), project.ProjectID)

	stored, err := c.Repositories().Project.GetByID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Apollo", stored.ProjectName)
	assert.Equal(t, "1500.46", stored.ProjectBudget.StringFixed(2))
	require.NotNil(t, stored.ProjectLeadID)
	assert.Equal(t, int64(42), *stored.ProjectLeadID)

	claimID, err := c.Services().Claim.CreateClaim(ctx, 42, &service.ClaimPayload{
		ProjectID:   strPtr("5"),
		CurrencyID:  strPtr("USD"),
		ExpenseDate: strPtr("2024-01-05"),
		Amount:      strPtr("25.40"),
		Purpose:     strPtr("Taxi"),
		Status:      strPtr("pending"),
	})
	require.NoError(t, err)

	dashboard, err := c.Services().Claim.ListDashboard(ctx, 42)
	require.NoError(t, err)
	require.Len(t, dashboard.Pending, 1)
	assert.Equal(t, claimID, dashboard.Pending[0].ClaimID)
	assert.Equal(t, int64(5), dashboard.Pending[0].ProjectID)
}

func TestAddProject_AssignsID(t *testing.T) {
	ctx := context.Background()
	c := startContainer(t)

	first, err := addProject(ctx, c, projectInput{Name: "Apollo"})
	require.NoError(t, err)
	second, err := addProject(ctx, c, projectInput{Name: "Gemini"})
	require.NoError(t, err)

	assert.NotZero(t, first.ProjectID)
	assert.NotEqual(t, first.ProjectID, second.ProjectID)
	assert.True(t, first.ProjectBudget.IsZero())
}

func TestAddProject_Rejections(t *testing.T) {
	ctx := context.Background()
	c := startContainer(t)

	_, err := addProject(ctx, c, projectInput{ID: 1, Name: "  "})
	assert.Error(t, err)
	_, err = addProject(ctx, c, projectInput{ID: 1, Name: "Apollo", Budget: "-10"})
	assert.Error(t, err)
	_, err = addProject(ctx, c, projectInput{ID: 1, Name: "Apollo", Budget: "lots"})
	assert.Error(t, err)

	project, err := c.Repositories().Project.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, project)

	_, err = addProject(ctx, c, projectInput{ID: 1, Name: "Apollo"})
	require.NoError(t, err)
	_, err = addProject(ctx, c, projectInput{ID: 1, Name: "Apollo"})
	assert.ErrorIs(t, err, port.ErrConflict)
	_, err = addProject(ctx, c, projectInput{ID: 2, Name: "Gemini", LeadID: 99})
	assert.ErrorIs(t, err, port.ErrConflict)
}

func strPtr(s string) *string { return &s }
