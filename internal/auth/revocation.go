package auth

import (
	"sync"
	"time"

	"github.com/garyjia/expense-claims/internal/application/port"
)

// RevokedTokens is an in-memory revoked-token set keyed by token ID. An
// entry lives until the token would have expired anyway.
type RevokedTokens struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewRevokedTokens creates an empty revoked-token set
func NewRevokedTokens() *RevokedTokens {
	return &RevokedTokens{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke records tokenID until expiresAt and drops entries that have expired
func (r *RevokedTokens) Revoke(tokenID string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.entries {
		if !exp.After(now) {
			delete(r.entries, id)
		}
	}

	if expiresAt.After(now) {
		r.entries[tokenID] = expiresAt
	}
}

// IsRevoked reports whether tokenID is revoked and not yet expired
func (r *RevokedTokens) IsRevoked(tokenID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.entries[tokenID]
	return ok && exp.After(r.now())
}

// Len returns the number of tracked entries
func (r *RevokedTokens) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var _ port.RevocationList = (*RevokedTokens)(nil)
