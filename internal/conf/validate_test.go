package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Database: DatabaseSettings{
			Type:   DatabaseSQLite,
			SQLite: SQLiteSettings{Path: "units.db"},
		},
		Identifiers: IdentifierSettings{
			DefaultPadLength: DefaultPadLength,
			Separator:        DefaultSeparator,
		},
		Allocation: AllocationSettings{
			StoreRetries:     DefaultStoreRetries,
			StoreBackoff:     DefaultStoreBackoff,
			CollisionRetries: DefaultCollisionRetries,
		},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(s *Settings)
		wantError string
	}{
		{
			name:   "valid defaults",
			mutate: func(s *Settings) {},
		},
		{
			name:      "unsupported database",
			mutate:    func(s *Settings) { s.Database.Type = "mongodb" },
			wantError: "unsupported database.type",
		},
		{
			name:      "mysql without host",
			mutate:    func(s *Settings) { s.Database.Type = DatabaseMySQL },
			wantError: "database.mysql.host",
		},
		{
			name: "postgres configured",
			mutate: func(s *Settings) {
				s.Database.Type = DatabasePostgres
				s.Database.Postgres = PostgresSettings{Host: "db", Database: "units"}
			},
		},
		{
			name:      "pad length too wide",
			mutate:    func(s *Settings) { s.Identifiers.DefaultPadLength = 19 },
			wantError: "default_pad_length",
		},
		{
			name:      "empty separator",
			mutate:    func(s *Settings) { s.Identifiers.Separator = "" },
			wantError: "separator",
		},
		{
			name: "unknown scope type in rule",
			mutate: func(s *Settings) {
				s.Identifiers.ScopeRules = []ScopeRule{{ScopeType: "trench", Prefix: "T"}}
			},
			wantError: "unknown scope_type",
		},
		{
			name:      "no store retries",
			mutate:    func(s *Settings) { s.Allocation.StoreRetries = 0 },
			wantError: "store_retries",
		},
		{
			name:      "negative backoff",
			mutate:    func(s *Settings) { s.Allocation.StoreBackoff = -time.Second },
			wantError: "store_backoff",
		},
		{
			name: "duplicate concept key",
			mutate: func(s *Settings) {
				s.Concepts.Types = []ConceptTypeSettings{
					{ID: "a", Key: "structure"},
					{ID: "b", Key: "structure"},
				}
			},
			wantError: "duplicate key",
		},
		{
			name:      "concept without id",
			mutate:    func(s *Settings) { s.Concepts.Types = []ConceptTypeSettings{{Key: "structure"}} },
			wantError: "id and key are required",
		},
		{
			name:      "negative concept rate limit",
			mutate:    func(s *Settings) { s.Concepts.RateLimit = -1 },
			wantError: "rate_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantError == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestValidateSettings_NormalizesCase(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Database.Type = " SQLite "
	s.Identifiers.ScopeRules = []ScopeRule{{ScopeType: "Spatial_Unit", Prefix: "US"}}

	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, DatabaseSQLite, s.Database.Type)
	assert.Equal(t, "spatial_unit", s.Identifiers.ScopeRules[0].ScopeType)
}
