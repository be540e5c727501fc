// Package conf loads unitlabel settings from config.yaml, environment
// variables and built-in defaults.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fieldarchive/unitlabel/internal/logger"
)

// Database backends
const (
	DatabaseSQLite   = "sqlite"
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
)

// Settings is the root configuration structure
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Database    DatabaseSettings     `yaml:"database" mapstructure:"database"`
	Identifiers IdentifierSettings   `yaml:"identifiers" mapstructure:"identifiers"`
	Allocation  AllocationSettings   `yaml:"allocation" mapstructure:"allocation"`
	Concepts    ConceptSettings      `yaml:"concepts" mapstructure:"concepts"`
	Server      ServerSettings       `yaml:"server" mapstructure:"server"`
	Logging     logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Telemetry   TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`
}

// DatabaseSettings selects and configures the relational store
type DatabaseSettings struct {
	Type               string           `yaml:"type" mapstructure:"type"`                 // sqlite, mysql or postgres
	TablePrefix        string           `yaml:"table_prefix" mapstructure:"table_prefix"` // prepended to every table name
	Debug              bool             `yaml:"debug" mapstructure:"debug"`               // log every SQL statement
	SlowQueryThreshold time.Duration    `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	SQLite             SQLiteSettings   `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL              MySQLSettings    `yaml:"mysql" mapstructure:"mysql"`
	Postgres           PostgresSettings `yaml:"postgres" mapstructure:"postgres"`
}

// SQLiteSettings configures the embedded SQLite store
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings configures a MySQL or MariaDB store
type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// PostgresSettings configures a PostgreSQL store
type PostgresSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

// IdentifierSettings controls how labels are rendered
type IdentifierSettings struct {
	DefaultPadLength int         `yaml:"default_pad_length" mapstructure:"default_pad_length"`
	Separator        string      `yaml:"separator" mapstructure:"separator"` // between parent label and child number
	DefaultPrefix    string      `yaml:"default_prefix" mapstructure:"default_prefix"`
	ScopeRules       []ScopeRule `yaml:"scope_rules" mapstructure:"scope_rules"`
}

// ScopeRule overrides prefix and padding for a scope type, or for one unit
// of that type when ScopeID is set. Unit specific rules win.
type ScopeRule struct {
	ScopeType string `yaml:"scope_type" mapstructure:"scope_type"`
	ScopeID   string `yaml:"scope_id" mapstructure:"scope_id"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	PadLength int    `yaml:"pad_length" mapstructure:"pad_length"`
}

// AllocationSettings bounds the retry loops around the counter store
type AllocationSettings struct {
	StoreRetries     int           `yaml:"store_retries" mapstructure:"store_retries"`
	StoreBackoff     time.Duration `yaml:"store_backoff" mapstructure:"store_backoff"`
	CollisionRetries int           `yaml:"collision_retries" mapstructure:"collision_retries"`
}

// ConceptSettings configures where concept types are resolved
type ConceptSettings struct {
	Types          []ConceptTypeSettings `yaml:"types" mapstructure:"types"`
	File           string                `yaml:"file" mapstructure:"file"`             // YAML registry file
	RemoteURL      string                `yaml:"remote_url" mapstructure:"remote_url"` // thesaurus service base URL
	CacheTTL       time.Duration         `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	RequestTimeout time.Duration         `yaml:"request_timeout" mapstructure:"request_timeout"`
	RateLimit      float64               `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 for unlimited
	RateBurst      int                   `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// ConceptTypeSettings declares one concept type inline
type ConceptTypeSettings struct {
	ID    string `yaml:"id" mapstructure:"id"`
	Key   string `yaml:"key" mapstructure:"key"`
	Label string `yaml:"label" mapstructure:"label"`
	Code  string `yaml:"code" mapstructure:"code"`
}

// ServerSettings configures the HTTP API
type ServerSettings struct {
	Listen          string        `yaml:"listen" mapstructure:"listen"`
	Metrics         bool          `yaml:"metrics" mapstructure:"metrics"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// TelemetrySettings configures optional Sentry error reporting
type TelemetrySettings struct {
	SentryDSN   string `yaml:"sentry_dsn" mapstructure:"sentry_dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// Load reads the configuration file, environment variables and defaults.
// An empty configFile searches the default config paths; a missing file
// there is not an error and defaults apply.
func Load(configFile string) (*Settings, error) {
	v := viper.New()

	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "unitlabel"))
	}
	return append(paths, "/etc/unitlabel")
}

// ScopeRuleFor returns the most specific rule for the scope, if any
func (s *IdentifierSettings) ScopeRuleFor(scopeType, scopeID string) (ScopeRule, bool) {
	var typeRule *ScopeRule
	for i := range s.ScopeRules {
		r := &s.ScopeRules[i]
		if !strings.EqualFold(r.ScopeType, scopeType) {
			continue
		}
		if r.ScopeID == scopeID {
			return *r, true
		}
		if r.ScopeID == "" && typeRule == nil {
			typeRule = r
		}
	}
	if typeRule != nil {
		return *typeRule, true
	}
	return ScopeRule{}, false
}
