// Package datastore opens and migrates the relational store that holds
// allocation counters, identifier snapshots and the label index.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// Manager defines the interface for database lifecycle operations.
type Manager interface {
	// Initialize creates or upgrades the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Dialect returns the backend name: sqlite, mysql or postgres.
	Dialect() string
	// TablePrefix returns the prefix prepended to every table name.
	TablePrefix() string
	// Path returns the database location for display (never includes credentials).
	Path() string
	// Ping checks that the database answers.
	Ping(ctx context.Context) error
	// Close closes the database connection.
	Close() error
	// Delete drops all tables (and for SQLite removes the database file).
	Delete() error
}

// NewManager opens the database selected by settings.Type.
func NewManager(settings *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	switch settings.Type {
	case conf.DatabaseSQLite, "":
		return NewSQLiteManager(settings, log)
	case conf.DatabaseMySQL:
		return NewMySQLManager(settings, log)
	case conf.DatabasePostgres:
		return NewPostgresManager(settings, log)
	default:
		return nil, validationError(fmt.Sprintf("unsupported database type %q", settings.Type), "database.type", settings.Type)
	}
}

// gormConfig builds the shared GORM configuration. TranslateError maps
// driver unique violations to gorm.ErrDuplicatedKey.
func gormConfig(settings *conf.DatabaseSettings, log logger.Logger) *gorm.Config {
	level := gormlogger.Warn
	if settings.Debug {
		level = gormlogger.Info
	}

	var gl gormlogger.Interface
	if log == nil {
		gl = gormlogger.Default.LogMode(gormlogger.Silent)
	} else {
		gl = logger.NewGormLoggerAdapter(log, settings.SlowQueryThreshold).LogMode(level)
	}

	return &gorm.Config{
		Logger:         gl,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// baseManager carries the state and behaviour shared by all backends.
type baseManager struct {
	db          *gorm.DB
	dialect     string
	tablePrefix string
	location    string
}

func (m *baseManager) DB() *gorm.DB {
	return m.db
}

func (m *baseManager) Dialect() string {
	return m.dialect
}

func (m *baseManager) TablePrefix() string {
	return m.tablePrefix
}

func (m *baseManager) Path() string {
	return m.location
}

// Initialize migrates every entity into its (prefixed) table.
func (m *baseManager) Initialize() error {
	models := entities.Models()
	names := entities.TableNames()

	for i, model := range models {
		table := m.tablePrefix + names[i]
		if err := m.db.Table(table).AutoMigrate(model); err != nil {
			return dbError(err, "migrate", errors.PriorityCritical, "table", table, "dialect", m.dialect)
		}
	}
	return nil
}

func (m *baseManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping", errors.PriorityHigh, "dialect", m.dialect)
	}
	return nil
}

func (m *baseManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// dropTables drops tables in reverse migration order.
func (m *baseManager) dropTables() error {
	names := entities.TableNames()
	for i := len(names) - 1; i >= 0; i-- {
		table := m.tablePrefix + names[i]
		if err := m.db.Migrator().DropTable(table); err != nil {
			return dbError(err, "drop_table", errors.PriorityHigh, "table", table)
		}
	}
	return nil
}
