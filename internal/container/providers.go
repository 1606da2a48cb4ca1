package container

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/auth"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-claims/internal/infrastructure/storage"
	"github.com/garyjia/expense-claims/internal/statement"
	"github.com/garyjia/expense-claims/migrations"
	"github.com/garyjia/expense-claims/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// AuthBundle holds session token and credential components.
type AuthBundle struct {
	Tokens  port.TokenService
	Hasher  port.PasswordHasher
	Revoked *auth.RevokedTokens
}

// StorageBundle holds storage-related components.
type StorageBundle struct {
	Invoices   port.InvoiceStorage
	Statements port.StatementWriter
}

// ProvideDatabase opens the database and creates the transaction manager.
// Embedded migrations run when AutoMigrate is set.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		migrator := database.NewMigrator(db, logger)
		if _, err := migrator.RunMigrations(ctx, migrations.FS); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
// Returns RepositoryBundle containing all repository implementations.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Employee:   repository.NewEmployeeRepository(db.DB, logger),
		Department: repository.NewDepartmentRepository(db.DB, logger),
		Project:    repository.NewProjectRepository(db.DB, logger),
		Currency:   repository.NewCurrencyRepository(db.DB, logger),
		Claim:      repository.NewClaimRepository(db.DB, logger),
	}, nil
}

// ProvideAuth creates the token service, password hasher and revoked set.
func ProvideAuth(cfg *AuthConfig) (*AuthBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}

	bundle := &AuthBundle{
		Hasher: auth.NewBcryptHasher(cfg.BcryptCost),
	}

	var revocations port.RevocationList
	if cfg.RevokeOnLogout {
		bundle.Revoked = auth.NewRevokedTokens()
		revocations = bundle.Revoked
	}

	bundle.Tokens = auth.NewTokenService(auth.TokenServiceConfig{
		SigningKey: cfg.SigningKey,
		Issuer:     cfg.Issuer,
		TTL:        cfg.TokenTTL,
	}, revocations)

	return bundle, nil
}

// ProvideStorage creates invoice storage and the statement writer.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &StorageBundle{
		Invoices:   storage.NewLocalInvoiceStorage(cfg.UploadFolder, cfg.AllowedExtensions, logger),
		Statements: statement.NewExcelWriter(logger),
	}, nil
}

// ServiceDeps holds dependencies needed by application services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Auth      *AuthBundle
	Storage   *StorageBundle
	AuthCfg   *AuthConfig
	ClaimsCfg *ClaimsConfig
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.TxManager == nil || deps.Auth == nil || deps.Storage == nil {
		return nil, fmt.Errorf("repositories, transaction manager, auth and storage are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	sessionCfg := service.SessionConfig{}
	if deps.AuthCfg != nil {
		sessionCfg.RevokeOnLogout = deps.AuthCfg.RevokeOnLogout
	}
	claimCfg := service.ClaimConfig{}
	if deps.ClaimsCfg != nil {
		claimCfg.ForcePendingOnCreate = deps.ClaimsCfg.ForcePendingOnCreate
	}

	var revocations port.RevocationList
	if deps.Auth.Revoked != nil {
		revocations = deps.Auth.Revoked
	}

	return &ServiceBundle{
		Session: service.NewSessionService(
			deps.Repos.Employee,
			deps.Auth.Tokens,
			deps.Auth.Hasher,
			revocations,
			sessionCfg,
			serviceLogger,
		),
		Claim: service.NewClaimService(service.ClaimDependencies{
			Employees:  deps.Repos.Employee,
			Projects:   deps.Repos.Project,
			Currencies: deps.Repos.Currency,
			Claims:     deps.Repos.Claim,
			TxManager:  deps.TxManager,
			Invoices:   deps.Storage.Invoices,
			Statements: deps.Storage.Statements,
		}, claimCfg, serviceLogger),
	}, nil
}
