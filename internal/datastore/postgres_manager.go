package datastore

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// PostgresManager handles a PostgreSQL database through the pgx driver.
type PostgresManager struct {
	baseManager
}

// postgresDSN builds a key/value DSN, quoting values that contain spaces or quotes.
func postgresDSN(settings *conf.PostgresSettings) string {
	quote := func(v string) string {
		if v == "" || strings.ContainsAny(v, ` '\`) {
			v = strings.ReplaceAll(v, `\`, `\\`)
			v = strings.ReplaceAll(v, `'`, `\'`)
			return "'" + v + "'"
		}
		return v
	}

	parts := []string{
		"host=" + quote(settings.Host),
		fmt.Sprintf("port=%d", settings.Port),
		"dbname=" + quote(settings.Database),
		"sslmode=" + quote(settings.SSLMode),
		"TimeZone=UTC",
	}
	if settings.Username != "" {
		parts = append(parts, "user="+quote(settings.Username))
	}
	if settings.Password != "" {
		parts = append(parts, "password="+quote(settings.Password))
	}
	return strings.Join(parts, " ")
}

// NewPostgresManager connects to PostgreSQL and configures the connection pool.
func NewPostgresManager(settings *conf.DatabaseSettings, log logger.Logger) (*PostgresManager, error) {
	db, err := gorm.Open(postgres.Open(postgresDSN(&settings.Postgres)), gormConfig(settings, log))
	if err != nil {
		return nil, dbError(err, "open", errors.PriorityCritical,
			"dialect", conf.DatabasePostgres, "host", settings.Postgres.Host)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return &PostgresManager{
		baseManager: baseManager{
			db:          db,
			dialect:     conf.DatabasePostgres,
			tablePrefix: settings.TablePrefix,
			location:    fmt.Sprintf("%s:%d/%s", settings.Postgres.Host, settings.Postgres.Port, settings.Postgres.Database),
		},
	}, nil
}

// Delete drops all tables owned by this manager.
func (m *PostgresManager) Delete() error {
	return m.dropTables()
}
