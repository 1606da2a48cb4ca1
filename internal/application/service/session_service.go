package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/auth"
	validation "github.com/go-ozzo/ozzo-validation"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LoginRequest is the credential pair posted to the login endpoint
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Session is the result of a successful login
type Session struct {
	Token    *port.SessionToken
	Greeting string
}

// SessionConfig controls logout behavior
type SessionConfig struct {
	RevokeOnLogout bool
}

// SessionService authenticates employees and resolves token subjects
type SessionService interface {
	Authenticate(ctx context.Context, req LoginRequest) (*Session, error)
	Subject(ctx context.Context, rawToken string) (int64, error)
	EndSession(ctx context.Context, rawToken string) error
}

type sessionServiceImpl struct {
	employees port.EmployeeRepository
	tokens    port.TokenService
	hasher    port.PasswordHasher
	revoked   port.RevocationList
	cfg       SessionConfig
	logger    Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewSessionService creates a new SessionService. revoked may be nil when
// logout never revokes.
func NewSessionService(
	employees port.EmployeeRepository,
	tokens port.TokenService,
	hasher port.PasswordHasher,
	revoked port.RevocationList,
	cfg SessionConfig,
	logger Logger,
) SessionService {
	return &sessionServiceImpl{
		employees: employees,
		tokens:    tokens,
		hasher:    hasher,
		revoked:   revoked,
		cfg:       cfg,
		logger:    logger,
	}
}

// Authenticate verifies the credential pair and issues a session token.
// Every failure mode returns auth.ErrInvalidCredentials.
func (s *sessionServiceImpl) Authenticate(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	employeeID, err := strconv.ParseInt(strings.TrimSpace(req.Username), 10, 64)
	if err != nil {
		s.burnCompare(req.Password)
		return nil, auth.ErrInvalidCredentials
	}

	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		s.logger.Error("Failed to load employee for login", "error", err, "employee_id", employeeID)
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if employee == nil {
		s.burnCompare(req.Password)
		return nil, auth.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(employee.PasswordHash, req.Password); err != nil {
		s.logger.Info("Login rejected", "employee_id", employeeID)
		return nil, auth.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(strconv.FormatInt(employee.EmployeeID, 10))
	if err != nil {
		s.logger.Error("Failed to issue token", "error", err, "employee_id", employeeID)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("Login succeeded", "employee_id", employeeID, "token_id", token.ID)
	return &Session{
		Token:    token,
		Greeting: fmt.Sprintf("Welcome, %s!", employee.FirstName),
	}, nil
}

// Subject validates rawToken and returns the employee identifier it asserts
func (s *sessionServiceImpl) Subject(ctx context.Context, rawToken string) (int64, error) {
	token, err := s.tokens.Validate(rawToken)
	if err != nil {
		return 0, err
	}

	employeeID, err := strconv.ParseInt(token.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject is not an employee id", auth.ErrUnauthorized)
	}
	return employeeID, nil
}

// EndSession always succeeds. With RevokeOnLogout a valid token is added to
// the revoked set until it expires.
func (s *sessionServiceImpl) EndSession(ctx context.Context, rawToken string) error {
	if !s.cfg.RevokeOnLogout || s.revoked == nil || rawToken == "" {
		return nil
	}

	token, err := s.tokens.Validate(rawToken)
	if err != nil {
		return nil
	}

	s.revoked.Revoke(token.ID, token.ExpiresAt)
	s.logger.Info("Session revoked", "subject", token.Subject, "token_id", token.ID)
	return nil
}

// burnCompare runs a comparison against a throwaway hash so unknown
// identifiers take as long as wrong passwords.
func (s *sessionServiceImpl) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Error("Failed to prepare dummy hash", "error", err)
			return
		}
		s.dummyHash = hash
	})

	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}
