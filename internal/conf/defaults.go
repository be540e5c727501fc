// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPadLength        = 3
	DefaultSeparator        = "-"
	DefaultStoreRetries     = 3
	DefaultStoreBackoff     = 50 * time.Millisecond
	DefaultCollisionRetries = 5
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("database.type", DatabaseSQLite)
	v.SetDefault("database.table_prefix", "")
	v.SetDefault("database.debug", false)
	v.SetDefault("database.slow_query_threshold", 200*time.Millisecond)
	v.SetDefault("database.sqlite.path", "unitlabel.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "unitlabel")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "unitlabel")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("identifiers.default_pad_length", DefaultPadLength)
	v.SetDefault("identifiers.separator", DefaultSeparator)
	v.SetDefault("identifiers.default_prefix", "")

	v.SetDefault("allocation.store_retries", DefaultStoreRetries)
	v.SetDefault("allocation.store_backoff", DefaultStoreBackoff)
	v.SetDefault("allocation.collision_retries", DefaultCollisionRetries)

	v.SetDefault("concepts.file", "")
	v.SetDefault("concepts.remote_url", "")
	v.SetDefault("concepts.cache_ttl", 10*time.Minute)
	v.SetDefault("concepts.request_timeout", 5*time.Second)
	v.SetDefault("concepts.rate_limit", 0)
	v.SetDefault("concepts.rate_burst", 5)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/unitlabel.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("telemetry.sentry_dsn", "")
	v.SetDefault("telemetry.environment", "production")
}
