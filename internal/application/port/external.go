package port

import (
	"io"
	"time"

	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// SessionToken is a signed identity assertion handed to the client
type SessionToken struct {
	Raw       string
	ID        string
	Subject   string
	ExpiresAt time.Time
}

// TokenService mints and verifies session tokens
type TokenService interface {
	Issue(subject string) (*SessionToken, error)
	Validate(raw string) (*SessionToken, error)
}

// PasswordHasher verifies a plaintext credential against a stored hash
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// RevocationList records tokens ended before their natural expiry
type RevocationList interface {
	Revoke(tokenID string, expiresAt time.Time)
	IsRevoked(tokenID string) bool
}

// StatementWriter renders a claim statement document
type StatementWriter interface {
	Write(w io.Writer, employee *entity.Employee, claims []*entity.ClaimWithCurrency) error
}
