package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyjia/expense-claims/internal/application/port"
	"go.uber.org/zap"
)

// DefaultAllowedExtensions are the invoice file types accepted with a claim
var DefaultAllowedExtensions = []string{"png", "jpg", "jpeg", "pdf"}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// LocalInvoiceStorage implements port.InvoiceStorage on the local filesystem.
// Files live under <baseDir>/claim-<id>/.
type LocalInvoiceStorage struct {
	baseDir    string
	extensions map[string]bool
	logger     *zap.Logger
}

// NewLocalInvoiceStorage creates storage rooted at baseDir. An empty
// extension list means DefaultAllowedExtensions.
func NewLocalInvoiceStorage(baseDir string, extensions []string, logger *zap.Logger) *LocalInvoiceStorage {
	if len(extensions) == 0 {
		extensions = DefaultAllowedExtensions
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &LocalInvoiceStorage{
		baseDir:    baseDir,
		extensions: allowed,
		logger:     logger,
	}
}

// Allowed reports whether filename has an accepted extension (case-insensitive)
func (s *LocalInvoiceStorage) Allowed(filename string) bool {
	ext := extension(filename)
	return ext != "" && s.extensions[ext]
}

// Save writes content for claimID and returns the stored path
func (s *LocalInvoiceStorage) Save(ctx context.Context, claimID int64, filename string, content []byte) (string, error) {
	if !s.Allowed(filename) {
		return "", fmt.Errorf("file type not allowed: %s", filename)
	}

	base := SanitizeName(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "invoice"
	}
	fullPath := filepath.Join(s.claimDir(claimID), base+"."+extension(filename))

	if err := s.ValidatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create invoice directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write invoice",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Invoice saved",
		zap.Int64("claim_id", claimID),
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// DeleteClaim removes every invoice stored for claimID. Missing directories are not an error.
func (s *LocalInvoiceStorage) DeleteClaim(ctx context.Context, claimID int64) error {
	dir := s.claimDir(claimID)
	if err := s.ValidatePath(dir); err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove invoices for claim %d: %w", claimID, err)
	}
	return nil
}

// ValidatePath checks that the path is safe and within baseDir
func (s *LocalInvoiceStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}

func (s *LocalInvoiceStorage) claimDir(claimID int64) string {
	return filepath.Join(s.baseDir, "claim-"+strconv.FormatInt(claimID, 10))
}

// SanitizeName keeps only alphanumerics, hyphens and underscores
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	return unsafeNameChars.ReplaceAllString(name, "")
}

func extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

var _ port.InvoiceStorage = (*LocalInvoiceStorage)(nil)
