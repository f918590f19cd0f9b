package database

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// Module owns the shared gorm connection. Other modules receive it through
// DB() after this module has started.
type Module struct {
	cfg    Config
	db     *gorm.DB
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new database module.
func NewModule(cfg Config, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "database"
}

// Start opens the connection and migrates the schema.
func (m *Module) Start(_ context.Context) error {
	db, err := Open(m.cfg)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		closeDB(db)
		return err
	}
	m.db = db

	m.logger.Info("Database ready", "driver", m.driver())
	return nil
}

// Stop closes the underlying connection pool.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		closeDB(m.db)
		m.db = nil
	}
	m.logger.Info("Database closed")
	return nil
}

// DB returns the shared connection, or nil before Start.
func (m *Module) DB() *gorm.DB {
	return m.db
}

// Health pings the database.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	stats := sqlDB.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver":           m.driver(),
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
		},
	}
}

func (m *Module) driver() string {
	if m.cfg.Driver == "" {
		return DriverSQLite
	}
	return m.cfg.Driver
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
