package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/lifecycle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claimFixture struct {
	svc        *claimServiceImpl
	claims     *mockClaimRepo
	invoices   *mockInvoiceStorage
	statements *mockStatementWriter
	logger     *mockLogger
	clock      time.Time
}

func newClaimFixture(cfg ClaimConfig) *claimFixture {
	f := &claimFixture{
		claims:     newMockClaimRepo(),
		invoices:   newMockInvoiceStorage(),
		statements: &mockStatementWriter{},
		logger:     &mockLogger{},
		clock:      time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}

	svc := NewClaimService(ClaimDependencies{
		Employees: newMockEmployeeRepo(
			&entity.Employee{EmployeeID: 42, FirstName: "Ada"},
			&entity.Employee{EmployeeID: 7, FirstName: "Bob"},
		),
		Projects:   &mockProjectRepo{ids: map[int64]bool{1: true, 2: true}},
		Currencies: &mockCurrencyRepo{codes: map[string]bool{"USD": true, "EUR": true}},
		Claims:     f.claims,
		TxManager:  &mockTxManager{},
		Invoices:   f.invoices,
		Statements: f.statements,
	}, cfg, f.logger).(*claimServiceImpl)
	svc.now = func() time.Time { return f.clock }
	f.svc = svc

	return f
}

func taxiPayload() *ClaimPayload {
	return &ClaimPayload{
		ProjectID:   strPtr("1"),
		CurrencyID:  strPtr("USD"),
		ExpenseDate: strPtr("2024-01-05"),
		Amount:      strPtr("100.00"),
		Purpose:     strPtr("Taxi"),
		Status:      strPtr("pending"),
	}
}

func storedClaim(id, owner int64, status string) entity.ExpenseClaim {
	return entity.ExpenseClaim{
		ClaimID:             id,
		ProjectID:           1,
		EmployeeID:          owner,
		CurrencyID:          "USD",
		ExpenseDate:         time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Amount:              decimal.RequireFromString("10.00"),
		Purpose:             "Lunch",
		Status:              status,
		LastEditedClaimDate: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
	}
}

func TestClaimService_CreateClaim(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()

	id, err := f.svc.CreateClaim(ctx, 42, taxiPayload())
	require.NoError(t, err)

	stored, err := f.claims.lookup(id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(42), stored.EmployeeID)
	assert.Equal(t, int64(1), stored.ProjectID)
	assert.Equal(t, "USD", stored.CurrencyID)
	assert.Equal(t, "2024-01-05", stored.ExpenseDate.Format(entity.ExpenseDateLayout))
	assert.True(t, decimal.RequireFromString("100").Equal(stored.Amount))
	assert.Equal(t, "Taxi", stored.Purpose)
	assert.Equal(t, "pending", stored.Status)
	assert.False(t, stored.ChargeToDefaultDept)
	assert.Equal(t, "", stored.AlternativeDeptCode)
	assert.True(t, f.clock.Equal(stored.LastEditedClaimDate))
}

func TestClaimService_CreateClaimMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		clear func(p *ClaimPayload)
		field string
	}{
		{"project", func(p *ClaimPayload) { p.ProjectID = nil }, FieldProjectID},
		{"currency", func(p *ClaimPayload) { p.CurrencyID = nil }, FieldCurrencyID},
		{"date", func(p *ClaimPayload) { p.ExpenseDate = nil }, FieldExpenseDate},
		{"amount", func(p *ClaimPayload) { p.Amount = nil }, FieldAmount},
		{"purpose", func(p *ClaimPayload) { p.Purpose = nil }, FieldPurpose},
		{"status", func(p *ClaimPayload) { p.Status = nil }, FieldStatus},
		{"first missing wins", func(p *ClaimPayload) { p.Status = nil; p.CurrencyID = nil }, FieldCurrencyID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClaimFixture(ClaimConfig{})
			payload := taxiPayload()
			tt.clear(payload)

			_, err := f.svc.CreateClaim(context.Background(), 42, payload)

			var missing *lifecycle.MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field, missing.Field)
			assert.Equal(t, "Missing field: "+tt.field, err.Error())
			assert.Empty(t, f.claims.claims)
		})
	}
}

func TestClaimService_CreateClaimValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *ClaimPayload)
		field  string
	}{
		{"bad date", func(p *ClaimPayload) { p.ExpenseDate = strPtr("05/01/2024") }, FieldExpenseDate},
		{"bad amount", func(p *ClaimPayload) { p.Amount = strPtr("ten") }, FieldAmount},
		{"negative amount", func(p *ClaimPayload) { p.Amount = strPtr("-1") }, FieldAmount},
		{"bad currency", func(p *ClaimPayload) { p.CurrencyID = strPtr("DOLLAR") }, FieldCurrencyID},
		{"unknown currency", func(p *ClaimPayload) { p.CurrencyID = strPtr("XYZ") }, FieldCurrencyID},
		{"non numeric project", func(p *ClaimPayload) { p.ProjectID = strPtr("one") }, FieldProjectID},
		{"unknown project", func(p *ClaimPayload) { p.ProjectID = strPtr("99") }, FieldProjectID},
		{"blank purpose", func(p *ClaimPayload) { p.Purpose = strPtr("  ") }, FieldPurpose},
		{"long dept code", func(p *ClaimPayload) { p.AlternativeDeptCode = strPtr(strings.Repeat("X", 51)) }, FieldAlternativeDeptCode},
		{"amount too large", func(p *ClaimPayload) { p.Amount = strPtr("1" + strings.Repeat("0", 400)) }, FieldAmount},
		{"amount beyond cents column", func(p *ClaimPayload) { p.Amount = strPtr("100000000.00") }, FieldAmount},
		{"bad invoice type", func(p *ClaimPayload) { p.Invoice = &InvoiceFile{Filename: "x.exe"} }, FieldInvoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClaimFixture(ClaimConfig{})
			payload := taxiPayload()
			tt.modify(payload)

			_, err := f.svc.CreateClaim(context.Background(), 42, payload)

			var invalid *lifecycle.ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
			assert.Empty(t, f.claims.claims)
			assert.Empty(t, f.logger.errors)
		})
	}
}

func TestClaimService_CreateClaimOptionalFields(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()

	payload := taxiPayload()
	payload.Amount = strPtr("12.345")
	payload.CurrencyID = strPtr("eur")
	payload.ChargeToDefaultDept = strPtr("TRUE")
	payload.AlternativeDeptCode = strPtr("FIN")
	payload.Status = strPtr("Rejected")

	id, err := f.svc.CreateClaim(ctx, 42, payload)
	require.NoError(t, err)

	stored, _ := f.claims.lookup(id)
	assert.Equal(t, "12.35", stored.Amount.StringFixed(2))
	assert.Equal(t, "EUR", stored.CurrencyID)
	assert.True(t, stored.ChargeToDefaultDept)
	assert.Equal(t, "FIN", stored.AlternativeDeptCode)
	assert.Equal(t, "Rejected", stored.Status)
}

func TestClaimService_CreateClaimForcePending(t *testing.T) {
	f := newClaimFixture(ClaimConfig{ForcePendingOnCreate: true})
	ctx := context.Background()

	payload := taxiPayload()
	payload.Status = strPtr("approved")

	id, err := f.svc.CreateClaim(ctx, 42, payload)
	require.NoError(t, err)

	stored, _ := f.claims.lookup(id)
	assert.Equal(t, entity.ClaimStatusPending, stored.Status)
}

func TestClaimService_CreateClaimWithInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("stores invoice", func(t *testing.T) {
		f := newClaimFixture(ClaimConfig{})
		payload := taxiPayload()
		payload.Invoice = &InvoiceFile{Filename: "receipt.pdf", Content: []byte("%PDF")}

		id, err := f.svc.CreateClaim(ctx, 42, payload)
		require.NoError(t, err)
		assert.Equal(t, "receipt.pdf", f.invoices.saved[id])
	})

	t.Run("invoice failure aborts", func(t *testing.T) {
		f := newClaimFixture(ClaimConfig{})
		f.invoices.saveErr = errors.New("disk full")
		payload := taxiPayload()
		payload.Invoice = &InvoiceFile{Filename: "receipt.pdf", Content: []byte("%PDF")}

		_, err := f.svc.CreateClaim(ctx, 42, payload)
		assert.ErrorIs(t, err, lifecycle.ErrPersistence)
	})

	t.Run("failed commit removes invoice", func(t *testing.T) {
		f := newClaimFixture(ClaimConfig{})
		f.svc.txManager = &mockTxManager{
			withTransactionFunc: func(ctx context.Context, fn func(ctx context.Context) error) error {
				if err := fn(ctx); err != nil {
					return err
				}
				return errors.New("commit failed")
			},
		}
		payload := taxiPayload()
		payload.Invoice = &InvoiceFile{Filename: "receipt.pdf", Content: []byte("%PDF")}

		_, err := f.svc.CreateClaim(ctx, 42, payload)
		require.Error(t, err)
		assert.Empty(t, f.invoices.saved)
		assert.Equal(t, []int64{1}, f.invoices.deleted)
	})
}

func TestClaimService_CreateClaimPersistenceError(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	f.claims.createErr = errors.New("FOREIGN KEY constraint failed")

	_, err := f.svc.CreateClaim(context.Background(), 42, taxiPayload())
	assert.ErrorIs(t, err, lifecycle.ErrPersistence)
	assert.NotEmpty(t, f.logger.errors)
}

func TestClaimService_UpdateClaim(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		stored  entity.ExpenseClaim
		actor   int64
		payload *ClaimPayload
		wantErr error
	}{
		{"pending owner", storedClaim(1, 42, "pending"), 42, &ClaimPayload{Status: strPtr("approved")}, nil},
		{"rejected owner mixed case", storedClaim(1, 42, "REJECTED"), 42, &ClaimPayload{Purpose: strPtr("Dinner")}, nil},
		{"approved is immutable", storedClaim(1, 42, "Approved"), 42, &ClaimPayload{Purpose: strPtr("Dinner")}, lifecycle.ErrImmutable},
		{"unknown status is immutable", storedClaim(1, 42, "draft"), 42, &ClaimPayload{}, lifecycle.ErrImmutable},
		{"other owner", storedClaim(1, 42, "pending"), 7, &ClaimPayload{Purpose: strPtr("Dinner")}, lifecycle.ErrNotFoundOrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClaimFixture(ClaimConfig{})
			f.claims.put(tt.stored)

			err := f.svc.UpdateClaim(ctx, tt.actor, tt.stored.ClaimID, tt.payload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, f.claims.updates)
				assert.Empty(t, f.logger.errors)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, f.claims.updates)
		})
	}
}

func TestClaimService_UpdateClaimMissing(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})

	err := f.svc.UpdateClaim(context.Background(), 42, 999, &ClaimPayload{})
	assert.ErrorIs(t, err, lifecycle.ErrNotFoundOrUnauthorized)
}

func TestClaimService_UpdateClaimPartial(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()
	original := storedClaim(1, 42, "pending")
	f.claims.put(original)

	err := f.svc.UpdateClaim(ctx, 42, 1, &ClaimPayload{
		Amount:              strPtr("55.5"),
		ChargeToDefaultDept: strPtr("true"),
	})
	require.NoError(t, err)

	updated, _ := f.claims.lookup(1)
	assert.Equal(t, "55.50", updated.Amount.StringFixed(2))
	assert.True(t, updated.ChargeToDefaultDept)
	assert.Equal(t, original.Purpose, updated.Purpose)
	assert.Equal(t, original.ProjectID, updated.ProjectID)
	assert.Equal(t, original.CurrencyID, updated.CurrencyID)
	assert.Equal(t, original.Status, updated.Status)
	assert.Equal(t, int64(42), updated.EmployeeID)
}

func TestClaimService_UpdateClaimEmptyPayloadAdvancesTimestamp(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()
	original := storedClaim(1, 42, "pending")
	f.claims.put(original)

	require.NoError(t, f.svc.UpdateClaim(ctx, 42, 1, &ClaimPayload{}))

	updated, _ := f.claims.lookup(1)
	assert.True(t, f.clock.Equal(updated.LastEditedClaimDate))

	updated.LastEditedClaimDate = original.LastEditedClaimDate
	assert.Equal(t, original, *updated)
}

func TestClaimService_UpdateClaimTimestampNeverMovesBack(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()
	future := storedClaim(1, 42, "pending")
	future.LastEditedClaimDate = f.clock.Add(time.Hour)
	f.claims.put(future)

	require.NoError(t, f.svc.UpdateClaim(ctx, 42, 1, nil))

	updated, _ := f.claims.lookup(1)
	assert.True(t, future.LastEditedClaimDate.Equal(updated.LastEditedClaimDate))
}

func TestClaimService_UpdateClaimInvalidAppliesNothing(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()
	original := storedClaim(1, 42, "pending")
	f.claims.put(original)

	err := f.svc.UpdateClaim(ctx, 42, 1, &ClaimPayload{
		Purpose:     strPtr("Dinner"),
		ExpenseDate: strPtr("not-a-date"),
	})

	var invalid *lifecycle.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, FieldExpenseDate, invalid.Field)

	stored, _ := f.claims.lookup(1)
	assert.Equal(t, original, *stored)
}

func TestClaimService_DeleteClaim(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		stored  entity.ExpenseClaim
		actor   int64
		wantErr error
	}{
		{"pending owner", storedClaim(1, 42, "Pending"), 42, nil},
		{"rejected owner", storedClaim(1, 42, "rejected"), 42, nil},
		{"approved", storedClaim(1, 42, "approved"), 42, lifecycle.ErrImmutable},
		{"other owner", storedClaim(1, 42, "pending"), 7, lifecycle.ErrNotFoundOrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClaimFixture(ClaimConfig{})
			f.claims.put(tt.stored)

			err := f.svc.DeleteClaim(ctx, tt.actor, tt.stored.ClaimID)
			stored, _ := f.claims.lookup(tt.stored.ClaimID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotNil(t, stored)
				assert.Empty(t, f.invoices.deleted)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, stored)
			assert.Equal(t, []int64{tt.stored.ClaimID}, f.invoices.deleted)
		})
	}
}

func TestClaimService_ListDashboard(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()

	f.claims.put(storedClaim(1, 42, "pending"))
	f.claims.put(storedClaim(2, 42, "APPROVED"))
	f.claims.put(storedClaim(3, 42, "Rejected"))
	f.claims.put(storedClaim(4, 42, "draft"))
	f.claims.put(storedClaim(5, 7, "pending"))

	dashboard, err := f.svc.ListDashboard(ctx, 42)
	require.NoError(t, err)

	require.Len(t, dashboard.Pending, 1)
	require.Len(t, dashboard.Approved, 1)
	require.Len(t, dashboard.Rejected, 1)
	assert.Equal(t, int64(1), dashboard.Pending[0].ClaimID)
	assert.Equal(t, "APPROVED", dashboard.Approved[0].Status)
	assert.Equal(t, DashboardEntry{
		ClaimID:     3,
		ProjectID:   1,
		Currency:    "USD",
		Amount:      10,
		Status:      "Rejected",
		ExpenseDate: "2024-01-05",
		Purpose:     "Lunch",
	}, dashboard.Rejected[0])
}

func TestClaimService_ListDashboardSkipsUnrepresentableAmount(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})

	huge := storedClaim(1, 42, "pending")
	huge.Amount = decimal.RequireFromString("1" + strings.Repeat("0", 400))
	f.claims.put(huge)
	f.claims.put(storedClaim(2, 42, "pending"))

	dashboard, err := f.svc.ListDashboard(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, dashboard.Pending, 1)
	assert.Equal(t, int64(2), dashboard.Pending[0].ClaimID)
	assert.Len(t, f.logger.errors, 1)

	_, err = json.Marshal(dashboard)
	assert.NoError(t, err)
}

func TestClaimService_ListDashboardEmpty(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})

	dashboard, err := f.svc.ListDashboard(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, dashboard.Pending)
	assert.NotNil(t, dashboard.Approved)
	assert.NotNil(t, dashboard.Rejected)
	assert.Empty(t, dashboard.Pending)
}

func TestClaimService_ListDashboardErrors(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()

	_, err := f.svc.ListDashboard(ctx, 999)
	assert.ErrorIs(t, err, lifecycle.ErrUserNotFound)

	f.claims.listErr = errors.New("disk I/O error")
	_, err = f.svc.ListDashboard(ctx, 42)
	assert.ErrorIs(t, err, lifecycle.ErrPersistence)
}

func TestClaimService_ExportStatement(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()
	f.claims.put(storedClaim(1, 42, "pending"))
	f.claims.put(storedClaim(2, 42, "draft"))
	f.claims.put(storedClaim(3, 7, "pending"))

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportStatement(ctx, 42, &buf))

	assert.Equal(t, "xlsx", buf.String())
	assert.Equal(t, int64(42), f.statements.employee.EmployeeID)
	assert.Len(t, f.statements.claims, 2)

	err := f.svc.ExportStatement(ctx, 999, &buf)
	assert.ErrorIs(t, err, lifecycle.ErrUserNotFound)
}

// Scenario: create as 42, approve, delete refused, dashboard shows approved only
func TestClaimService_LifecycleScenario(t *testing.T) {
	f := newClaimFixture(ClaimConfig{})
	ctx := context.Background()

	id, err := f.svc.CreateClaim(ctx, 42, taxiPayload())
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateClaim(ctx, 42, id, &ClaimPayload{Status: strPtr("approved")}))

	err = f.svc.DeleteClaim(ctx, 42, id)
	assert.ErrorIs(t, err, lifecycle.ErrImmutable)

	dashboard, err := f.svc.ListDashboard(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, dashboard.Pending)
	assert.Empty(t, dashboard.Rejected)
	require.Len(t, dashboard.Approved, 1)
	assert.Equal(t, id, dashboard.Approved[0].ClaimID)
	assert.Equal(t, 100.0, dashboard.Approved[0].Amount)
}
