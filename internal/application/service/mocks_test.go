package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/auth"
	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// Mock repositories

type mockEmployeeRepo struct {
	employees  map[int64]*entity.Employee
	getByIDErr error
}

func newMockEmployeeRepo(employees ...*entity.Employee) *mockEmployeeRepo {
	m := &mockEmployeeRepo{employees: make(map[int64]*entity.Employee)}
	for _, e := range employees {
		m.employees[e.EmployeeID] = e
	}
	return m
}

func (m *mockEmployeeRepo) Create(ctx context.Context, employee *entity.Employee) error {
	m.employees[employee.EmployeeID] = employee
	return nil
}

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	return m.employees[id], nil
}

type mockProjectRepo struct {
	ids map[int64]bool
}

func (m *mockProjectRepo) Create(ctx context.Context, project *entity.Project) error {
	m.ids[project.ProjectID] = true
	return nil
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	if !m.ids[id] {
		return nil, nil
	}
	return &entity.Project{ProjectID: id}, nil
}

type mockCurrencyRepo struct {
	codes map[string]bool
}

func (m *mockCurrencyRepo) GetByID(ctx context.Context, id string) (*entity.Currency, error) {
	if !m.codes[id] {
		return nil, nil
	}
	return &entity.Currency{CurrencyID: id}, nil
}

func (m *mockCurrencyRepo) List(ctx context.Context) ([]*entity.Currency, error) {
	list := make([]*entity.Currency, 0, len(m.codes))
	for code := range m.codes {
		list = append(list, &entity.Currency{CurrencyID: code})
	}
	return list, nil
}

// mockClaimRepo keeps claims in memory and copies on every read and write
type mockClaimRepo struct {
	mu        sync.Mutex
	claims    map[int64]entity.ExpenseClaim
	nextID    int64
	createErr error
	updateErr error
	listErr   error
	updates   int
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{claims: make(map[int64]entity.ExpenseClaim)}
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.ExpenseClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	claim.ClaimID = m.nextID
	m.claims[claim.ClaimID] = *claim
	return nil
}

// lookup reads a claim regardless of owner
func (m *mockClaimRepo) lookup(id int64) (*entity.ExpenseClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockClaimRepo) GetForOwner(ctx context.Context, claimID, employeeID int64) (*entity.ExpenseClaim, error) {
	c, err := m.lookup(claimID)
	if err != nil || c == nil || c.EmployeeID != employeeID {
		return nil, err
	}
	return c, nil
}

func (m *mockClaimRepo) ListByEmployee(ctx context.Context, employeeID int64) ([]*entity.ClaimWithCurrency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	list := []*entity.ClaimWithCurrency{}
	for _, c := range m.claims {
		if c.EmployeeID == employeeID {
			list = append(list, &entity.ClaimWithCurrency{
				ExpenseClaim: c,
				Currency:     entity.Currency{CurrencyID: c.CurrencyID},
			})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ClaimID < list[j].ClaimID })
	return list, nil
}

func (m *mockClaimRepo) Update(ctx context.Context, claim *entity.ExpenseClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.claims[claim.ClaimID]
	if !ok {
		return errors.New("no rows affected")
	}
	updated := *claim
	updated.EmployeeID = existing.EmployeeID
	m.claims[claim.ClaimID] = updated
	m.updates++
	return nil
}

func (m *mockClaimRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[id]; !ok {
		return errors.New("no rows affected")
	}
	delete(m.claims, id)
	return nil
}

func (m *mockClaimRepo) put(claim entity.ExpenseClaim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.ClaimID] = claim
	if claim.ClaimID > m.nextID {
		m.nextID = claim.ClaimID
	}
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockInvoiceStorage struct {
	saved   map[int64]string
	deleted []int64
	saveErr error
}

func newMockInvoiceStorage() *mockInvoiceStorage {
	return &mockInvoiceStorage{saved: make(map[int64]string)}
}

func (m *mockInvoiceStorage) Allowed(filename string) bool {
	return len(filename) > 4 && filename[len(filename)-4:] == ".pdf"
}

func (m *mockInvoiceStorage) Save(ctx context.Context, claimID int64, filename string, content []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved[claimID] = filename
	return "/uploads/" + filename, nil
}

func (m *mockInvoiceStorage) DeleteClaim(ctx context.Context, claimID int64) error {
	delete(m.saved, claimID)
	m.deleted = append(m.deleted, claimID)
	return nil
}

type mockStatementWriter struct {
	employee *entity.Employee
	claims   []*entity.ClaimWithCurrency
}

func (m *mockStatementWriter) Write(w io.Writer, employee *entity.Employee, claims []*entity.ClaimWithCurrency) error {
	m.employee = employee
	m.claims = claims
	_, err := w.Write([]byte("xlsx"))
	return err
}

// Mock auth collaborators

type mockTokenService struct {
	issued []string
}

func (m *mockTokenService) Issue(subject string) (*port.SessionToken, error) {
	m.issued = append(m.issued, subject)
	return &port.SessionToken{
		Raw:       "token-for-" + subject,
		ID:        "jti-" + subject,
		Subject:   subject,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (m *mockTokenService) Validate(raw string) (*port.SessionToken, error) {
	const prefix = "token-for-"
	if len(raw) <= len(prefix) || raw[:len(prefix)] != prefix {
		return nil, auth.ErrUnauthorized
	}
	subject := raw[len(prefix):]
	return &port.SessionToken{
		Raw:       raw,
		ID:        "jti-" + subject,
		Subject:   subject,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

// mockHasher treats "hash:<password>" as the hash of password
type mockHasher struct {
	compares int
}

func (m *mockHasher) Hash(password string) (string, error) {
	return "hash:" + password, nil
}

func (m *mockHasher) Compare(hash, password string) error {
	m.compares++
	if hash != "hash:"+password {
		return auth.ErrInvalidCredentials
	}
	return nil
}

type mockRevocationList struct {
	revoked map[string]time.Time
}

func (m *mockRevocationList) Revoke(tokenID string, expiresAt time.Time) {
	m.revoked[tokenID] = expiresAt
}

func (m *mockRevocationList) IsRevoked(tokenID string) bool {
	_, ok := m.revoked[tokenID]
	return ok
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func strPtr(s string) *string { return &s }
