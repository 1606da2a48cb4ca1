// Package lifecycle holds the claim state rules: which statuses exist, which
// of them still allow mutation, and how the edit timestamp advances.
package lifecycle

import (
	"strings"
	"time"

	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// Status is a canonical (lower-case) claim status
type Status string

const (
	StatusPending  Status = entity.ClaimStatusPending
	StatusApproved Status = entity.ClaimStatusApproved
	StatusRejected Status = entity.ClaimStatusRejected
)

var canonicalStatuses = map[Status]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusRejected: true,
}

// mutableStatuses permit update and delete. Approved is terminal.
var mutableStatuses = map[Status]bool{
	StatusPending:  true,
	StatusRejected: true,
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the canonical statuses
func (s Status) IsValid() bool {
	return canonicalStatuses[s]
}

// IsMutable reports whether a claim in this status may be updated or deleted
func (s Status) IsMutable() bool {
	return mutableStatuses[s]
}

// Canonical folds a stored status to its canonical form. ok is false for
// values outside the three known statuses.
func Canonical(raw string) (Status, bool) {
	s := Status(strings.ToLower(raw))
	return s, s.IsValid()
}

// CheckMutable returns ErrImmutable unless raw is pending or rejected,
// compared case-insensitively.
func CheckMutable(raw string) error {
	if s, _ := Canonical(raw); s.IsMutable() {
		return nil
	}
	return ErrImmutable
}

// NextEditTime returns the LastEditedClaimDate to store on a successful
// write. It never moves backwards relative to previous.
func NextEditTime(previous, now time.Time) time.Time {
	if now.Before(previous) {
		return previous
	}
	return now
}
