package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore"
)

// setupTestDB opens a migrated SQLite database with the given table prefix.
func setupTestDB(t *testing.T, prefix string) *gorm.DB {
	t.Helper()

	mgr, err := datastore.NewSQLiteManager(&conf.DatabaseSettings{
		Type:        conf.DatabaseSQLite,
		TablePrefix: prefix,
		SQLite:      conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "repository.db")},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	require.NoError(t, mgr.Initialize())
	return mgr.DB()
}

func ptr[T any](v T) *T {
	return &v
}
