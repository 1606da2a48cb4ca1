package port

import "context"

// InvoiceStorage keeps invoice files submitted with claims
type InvoiceStorage interface {
	// Allowed reports whether filename has a permitted extension
	Allowed(filename string) bool

	// Save stores content for claimID and returns the stored path
	Save(ctx context.Context, claimID int64, filename string, content []byte) (string, error)

	// DeleteClaim removes every file stored for claimID
	DeleteClaim(ctx context.Context, claimID int64) error
}
