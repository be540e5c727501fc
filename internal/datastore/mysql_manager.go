package datastore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/errors"
	"github.com/fieldarchive/unitlabel/internal/logger"
)

// Connection pool settings shared by the networked backends.
const (
	maxIdleConns    = 10
	maxOpenConns    = 100
	connMaxLifetime = time.Hour
	dialTimeout     = 10 * time.Second
)

// MySQLManager handles a MySQL or MariaDB database.
type MySQLManager struct {
	baseManager
}

// mysqlDSN builds the DSN with mysql.Config so credentials are escaped correctly.
func mysqlDSN(settings *conf.MySQLSettings) string {
	cfg := mysql.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = settings.Host + ":" + strconv.Itoa(settings.Port)
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Timeout = dialTimeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// NewMySQLManager connects to MySQL and configures the connection pool.
func NewMySQLManager(settings *conf.DatabaseSettings, log logger.Logger) (*MySQLManager, error) {
	db, err := gorm.Open(gormmysql.Open(mysqlDSN(&settings.MySQL)), gormConfig(settings, log))
	if err != nil {
		return nil, dbError(err, "open", errors.PriorityCritical,
			"dialect", conf.DatabaseMySQL, "host", settings.MySQL.Host)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return &MySQLManager{
		baseManager: baseManager{
			db:          db,
			dialect:     conf.DatabaseMySQL,
			tablePrefix: settings.TablePrefix,
			location:    fmt.Sprintf("%s:%d/%s", settings.MySQL.Host, settings.MySQL.Port, settings.MySQL.Database),
		},
	}, nil
}

// Delete drops all tables owned by this manager.
func (m *MySQLManager) Delete() error {
	return m.dropTables()
}
