// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "UNITLABEL_DEBUG", validateEnvBool},

		// Database
		{"database.type", "UNITLABEL_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.table_prefix", "UNITLABEL_DATABASE_TABLE_PREFIX", nil},
		{"database.debug", "UNITLABEL_DATABASE_DEBUG", validateEnvBool},
		{"database.sqlite.path", "UNITLABEL_DATABASE_SQLITE_PATH", nil},
		{"database.mysql.host", "UNITLABEL_DATABASE_MYSQL_HOST", nil},
		{"database.mysql.port", "UNITLABEL_DATABASE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "UNITLABEL_DATABASE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "UNITLABEL_DATABASE_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "UNITLABEL_DATABASE_MYSQL_DATABASE", nil},
		{"database.postgres.host", "UNITLABEL_DATABASE_POSTGRES_HOST", nil},
		{"database.postgres.port", "UNITLABEL_DATABASE_POSTGRES_PORT", validateEnvPort},
		{"database.postgres.username", "UNITLABEL_DATABASE_POSTGRES_USERNAME", nil},
		{"database.postgres.password", "UNITLABEL_DATABASE_POSTGRES_PASSWORD", nil},
		{"database.postgres.database", "UNITLABEL_DATABASE_POSTGRES_DATABASE", nil},
		{"database.postgres.sslmode", "UNITLABEL_DATABASE_POSTGRES_SSLMODE", nil},

		// Identifiers and allocation
		{"identifiers.default_pad_length", "UNITLABEL_IDENTIFIERS_DEFAULT_PAD_LENGTH", validateEnvPadLength},
		{"identifiers.separator", "UNITLABEL_IDENTIFIERS_SEPARATOR", nil},
		{"identifiers.default_prefix", "UNITLABEL_IDENTIFIERS_DEFAULT_PREFIX", nil},
		{"allocation.collision_retries", "UNITLABEL_ALLOCATION_COLLISION_RETRIES", validateEnvNonNegativeInt},

		// Concepts
		{"concepts.file", "UNITLABEL_CONCEPTS_FILE", nil},
		{"concepts.remote_url", "UNITLABEL_CONCEPTS_REMOTE_URL", validateEnvURL},

		// Server, logging, telemetry
		{"server.listen", "UNITLABEL_SERVER_LISTEN", nil},
		{"logging.default_level", "UNITLABEL_LOG_LEVEL", validateEnvLogLevel},
		{"telemetry.sentry_dsn", "UNITLABEL_SENTRY_DSN", nil},
	}
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars(v)
}

// bindEnvVars binds every known variable and validates the ones that are set
func bindEnvVars(v *viper.Viper) error {
	var problems []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue, ok := os.LookupEnv(binding.EnvVar); ok && envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case DatabaseSQLite, DatabaseMySQL, DatabasePostgres:
		return nil
	default:
		return fmt.Errorf("must be one of %s, %s, %s", DatabaseSQLite, DatabaseMySQL, DatabasePostgres)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateEnvPadLength(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < MinPadLength || n > MaxPadLength {
		return fmt.Errorf("pad length must be between %d and %d", MinPadLength, MaxPadLength)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
}
