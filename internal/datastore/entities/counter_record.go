package entities

import "time"

// Scope types. A counter, snapshot or label index entry is always scoped to
// exactly one unit of one of these types.
const (
	ScopeSpatialUnit   = "spatial_unit"
	ScopeActionUnit    = "action_unit"
	ScopeRecordingUnit = "recording_unit"
)

// CounterRecord holds the last issued sequence value for one
// (scope type, scope id, concept type id) identity.
// LastValue is 0 when the row was created only to carry a FormatLength.
type CounterRecord struct {
	ScopeType     string    `gorm:"primaryKey;size:32" json:"scope_type"`
	ScopeID       string    `gorm:"primaryKey;size:191" json:"scope_id"`
	ConceptTypeID string    `gorm:"primaryKey;size:191" json:"concept_type_id"`
	LastValue     int64     `gorm:"not null" json:"last_value"`
	FormatLength  *int      `json:"format_length,omitempty"` // nil means use configured padding
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (CounterRecord) TableName() string {
	return "counter_records"
}

// NextValue is the value the next allocation for this identity will return.
func (c *CounterRecord) NextValue() int64 {
	return c.LastValue + 1
}
