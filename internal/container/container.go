package container

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-claims/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Auth and storage
	auth    *AuthBundle
	storage *StorageBundle

	// Application
	services *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Employee   port.EmployeeRepository
	Department port.DepartmentRepository
	Project    port.ProjectRepository
	Currency   port.CurrencyRepository
	Claim      port.ClaimRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Session service.SessionService
	Claim   service.ClaimService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Auth (tokens, hashing, revoked set)
// 3. Storage (invoices, statements)
// 4. Application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize auth
	authBundle, err := ProvideAuth(&c.config.Auth)
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize auth: %w", err)
	}
	c.auth = authBundle
	c.logger.Info("Auth initialized", zap.Bool("revoke_on_logout", c.config.Auth.RevokeOnLogout))

	// Step 3: Initialize storage
	storageBundle, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = storageBundle
	c.logger.Info("Storage initialized", zap.String("upload_folder", c.config.Storage.UploadFolder))

	// Step 4: Initialize application services
	services, err := ProvideServices(&ServiceDeps{
		Repos:     c.repositories,
		TxManager: c.db,
		Auth:      c.auth,
		Storage:   c.storage,
		AuthCfg:   &c.config.Auth,
		ClaimsCfg: &c.config.Claims,
		Logger:    c.logger,
	})
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	// Services, storage and auth hold no resources
	err := c.closeDatabase()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.database != nil {
		if err := c.database.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = c.describeDatabase(ctx)
		}
	} else {
		status.Components["database"] = notInitialized()
		status.Overall = false
	}

	// Check repositories
	if c.repositories != nil {
		status.Components["repositories"] = ComponentHealth{Healthy: true}

		currencies := c.describeCurrencies(ctx)
		status.Components["currencies"] = currencies
		if !currencies.Healthy {
			status.Overall = false
		}
	} else {
		status.Components["repositories"] = notInitialized()
		status.Overall = false
	}

	// Check services
	if c.services != nil {
		status.Components["services"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["services"] = notInitialized()
		status.Overall = false
	}

	// Revoked set is optional
	if c.auth != nil && c.auth.Revoked != nil {
		status.Components["revoked_tokens"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("entries: %d", c.auth.Revoked.Len()),
		}
	}

	return status
}

// describeDatabase reports the SQLite library and schema versions
func (c *Container) describeDatabase(ctx context.Context) ComponentHealth {
	version, err := c.database.Version(ctx)
	if err != nil {
		return ComponentHealth{Healthy: false, Message: err.Error()}
	}
	schema, err := database.NewMigrator(c.database, c.logger).CurrentVersion(ctx)
	if err != nil {
		return ComponentHealth{Healthy: false, Message: err.Error()}
	}
	return ComponentHealth{
		Healthy: true,
		Message: fmt.Sprintf("sqlite %s, schema version %d", version, schema),
	}
}

// describeCurrencies reports the currency lookup table. Claims cannot be
// created while it is empty.
func (c *Container) describeCurrencies(ctx context.Context) ComponentHealth {
	currencies, err := c.repositories.Currency.List(ctx)
	if err != nil {
		return ComponentHealth{Healthy: false, Message: err.Error()}
	}
	if len(currencies) == 0 {
		return ComponentHealth{Healthy: false, Message: "no currencies configured"}
	}
	codes := make([]string, 0, len(currencies))
	for _, cur := range currencies {
		codes = append(codes, cur.CurrencyID)
	}
	return ComponentHealth{
		Healthy: true,
		Message: fmt.Sprintf("configured: %s", strings.Join(codes, ",")),
	}
}

func notInitialized() ComponentHealth {
	return ComponentHealth{Healthy: false, Message: "not initialized"}
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.database, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) closeDatabase() error {
	if c.database == nil {
		return nil
	}
	err := c.database.Close()
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	} else {
		c.logger.Info("Database closed")
	}
	c.database = nil
	return err
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Auth returns the token and credential components.
func (c *Container) Auth() *AuthBundle {
	return c.auth
}

// Storage returns the invoice and statement components.
func (c *Container) Storage() *StorageBundle {
	return c.storage
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// NewServiceLogger adapts logger for packages that take service.Logger.
func NewServiceLogger(logger *zap.Logger) service.Logger {
	return &zapLoggerAdapter{logger: logger}
}

// convertToZapFields converts key-value pairs to zap fields.
// Values implementing error are logged with zap.Error semantics.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
