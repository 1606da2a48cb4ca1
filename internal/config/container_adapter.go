package config

import (
	"github.com/garyjia/expense-claims/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		Auth: container.AuthConfig{
			SigningKey:     []byte(c.Auth.JWTSecretKey),
			Issuer:         c.Auth.Issuer,
			TokenTTL:       c.Auth.TokenTTL,
			BcryptCost:     c.Auth.BcryptCost,
			RevokeOnLogout: c.Auth.RevokeOnLogout,
		},
		Claims: container.ClaimsConfig{
			ForcePendingOnCreate: c.Claims.ForcePendingOnCreate,
		},
		Storage: container.StorageConfig{
			UploadFolder:      c.Storage.UploadFolder,
			AllowedExtensions: c.Storage.AllowedExtensions,
		},
	}
}
