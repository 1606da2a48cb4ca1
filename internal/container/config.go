// Package container provides dependency injection and lifecycle management
// for the expense claims service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Session token and credential configuration
	Auth AuthConfig

	// Claim lifecycle policy
	Claims ClaimsConfig

	// Invoice storage configuration
	Storage StorageConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout bounds how long a writer waits for the SQLite lock
	BusyTimeout time.Duration

	// AutoMigrate applies embedded migrations on start
	AutoMigrate bool
}

// AuthConfig holds token signing and hashing settings.
type AuthConfig struct {
	// SigningKey is the HMAC key for session tokens
	SigningKey []byte

	// Issuer is written to and required in every token
	Issuer string

	// TokenTTL is the lifetime of an issued token
	TokenTTL time.Duration

	// BcryptCost is the work factor for credential hashes
	BcryptCost int

	// RevokeOnLogout invalidates tokens presented to logout
	RevokeOnLogout bool
}

// ClaimsConfig holds claim lifecycle settings.
type ClaimsConfig struct {
	ForcePendingOnCreate bool
}

// StorageConfig holds invoice storage settings.
type StorageConfig struct {
	// UploadFolder is the base directory for invoices
	UploadFolder string

	// AllowedExtensions lists accepted invoice file types
	AllowedExtensions []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/claims.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Auth: AuthConfig{
			Issuer:     "expense-claims",
			TokenTTL:   time.Hour,
			BcryptCost: 10,
		},
		Storage: StorageConfig{
			UploadFolder:      "uploads/invoices",
			AllowedExtensions: []string{"png", "jpg", "jpeg", "pdf"},
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	// Validate database configuration
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate auth configuration
	if len(c.Auth.SigningKey) == 0 {
		return fmt.Errorf("auth signing key is required")
	}

	// Validate storage configuration
	if c.Storage.UploadFolder == "" {
		return fmt.Errorf("storage.upload_folder is required")
	}

	return nil
}
