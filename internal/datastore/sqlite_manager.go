package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// SQLiteManager handles the embedded SQLite database.
type SQLiteManager struct {
	baseManager
	dbPath string
}

// NewSQLiteManager opens (creating if needed) the SQLite database at settings.SQLite.Path.
//
// Writers are serialized through a single connection and transactions start
// with BEGIN IMMEDIATE, so the counter upsert never races another writer
// inside this process and waits on the busy timeout across processes.
func NewSQLiteManager(settings *conf.DatabaseSettings, log logger.Logger) (*SQLiteManager, error) {
	dbPath := settings.SQLite.Path
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, dbError(err, "create_data_dir", errors.PriorityCritical, "path", dir)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON&_txlock=immediate", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(settings, log))
	if err != nil {
		return nil, dbError(err, "open", errors.PriorityCritical, "dialect", conf.DatabaseSQLite, "path", dbPath)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteManager{
		baseManager: baseManager{
			db:          db,
			dialect:     conf.DatabaseSQLite,
			tablePrefix: settings.TablePrefix,
			location:    dbPath,
		},
		dbPath: dbPath,
	}, nil
}

// Delete closes the database and removes the file with its WAL and SHM companions.
func (m *SQLiteManager) Delete() error {
	if err := m.Close(); err != nil {
		return fmt.Errorf("failed to close database before deletion: %w", err)
	}

	if err := os.Remove(m.dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + suffix)
	}

	return nil
}

// Exists checks if the database file exists.
func (m *SQLiteManager) Exists() bool {
	_, err := os.Stat(m.dbPath)
	return err == nil
}
