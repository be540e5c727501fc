// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// Pad length bounds. 18 digits still fit every int64 sequence value.
const (
	MinPadLength = 1
	MaxPadLength = 18
)

// Scope types understood by scope rules
var validScopeTypes = map[string]bool{
	"spatial_unit":   true,
	"action_unit":    true,
	"recording_unit": true,
}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings normalizes and validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateIdentifierSettings(&settings.Identifiers); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateAllocationSettings(&settings.Allocation); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateConceptSettings(&settings.Concepts); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	settings.Type = strings.ToLower(strings.TrimSpace(settings.Type))

	switch settings.Type {
	case DatabaseSQLite:
		if settings.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for sqlite")
		}
	case DatabaseMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return fmt.Errorf("database.mysql.host and database.mysql.database are required for mysql")
		}
	case DatabasePostgres:
		if settings.Postgres.Host == "" || settings.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.host and database.postgres.database are required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.type %q", settings.Type)
	}

	return nil
}

func validateIdentifierSettings(settings *IdentifierSettings) error {
	if settings.DefaultPadLength < MinPadLength || settings.DefaultPadLength > MaxPadLength {
		return fmt.Errorf("identifiers.default_pad_length must be between %d and %d", MinPadLength, MaxPadLength)
	}

	if settings.Separator == "" {
		return fmt.Errorf("identifiers.separator must not be empty")
	}

	for i := range settings.ScopeRules {
		rule := &settings.ScopeRules[i]
		rule.ScopeType = strings.ToLower(strings.TrimSpace(rule.ScopeType))
		if !validScopeTypes[rule.ScopeType] {
			return fmt.Errorf("identifiers.scope_rules[%d]: unknown scope_type %q", i, rule.ScopeType)
		}
		if rule.PadLength != 0 && (rule.PadLength < MinPadLength || rule.PadLength > MaxPadLength) {
			return fmt.Errorf("identifiers.scope_rules[%d]: pad_length must be between %d and %d", i, MinPadLength, MaxPadLength)
		}
	}

	return nil
}

func validateAllocationSettings(settings *AllocationSettings) error {
	if settings.StoreRetries < 1 {
		return fmt.Errorf("allocation.store_retries must be at least 1")
	}
	if settings.StoreBackoff < 0 {
		return fmt.Errorf("allocation.store_backoff must not be negative")
	}
	if settings.CollisionRetries < 0 {
		return fmt.Errorf("allocation.collision_retries must not be negative")
	}
	return nil
}

func validateConceptSettings(settings *ConceptSettings) error {
	keys := make(map[string]bool, len(settings.Types))
	ids := make(map[string]bool, len(settings.Types))

	for i, ct := range settings.Types {
		if ct.ID == "" || ct.Key == "" {
			return fmt.Errorf("concepts.types[%d]: id and key are required", i)
		}
		if keys[ct.Key] {
			return fmt.Errorf("concepts.types[%d]: duplicate key %q", i, ct.Key)
		}
		if ids[ct.ID] {
			return fmt.Errorf("concepts.types[%d]: duplicate id %q", i, ct.ID)
		}
		keys[ct.Key] = true
		ids[ct.ID] = true
	}

	if settings.RemoteURL != "" {
		if err := validateEnvURL(settings.RemoteURL); err != nil {
			return fmt.Errorf("concepts.remote_url: %w", err)
		}
	}

	if settings.RateLimit < 0 {
		return fmt.Errorf("concepts.rate_limit must not be negative, got %v", settings.RateLimit)
	}

	return nil
}
