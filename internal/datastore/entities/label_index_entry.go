package entities

import "time"

// Label index entry sources
const (
	LabelSourceManual    = "manual"    // entered with a recording unit at creation time
	LabelSourceImport    = "import"    // registered by a legacy import, no recording unit yet
	LabelSourceAllocated = "allocated" // rendered from a counter value
)

// LabelIndexEntry marks a label as taken within one concept type and scope
// context. New allocations skip any counter value whose rendered label is
// already present here.
type LabelIndexEntry struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ConceptTypeID   string    `gorm:"size:191;not null;uniqueIndex:idx_label_index_identity" json:"concept_type_id"`
	ScopeContext    string    `gorm:"size:191;not null;uniqueIndex:idx_label_index_identity" json:"scope_context"`
	LabelText       string    `gorm:"size:191;not null;uniqueIndex:idx_label_index_identity" json:"label_text"`
	Source          string    `gorm:"size:16;not null" json:"source"`
	RecordingUnitID *string   `gorm:"size:191" json:"recording_unit_id,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (LabelIndexEntry) TableName() string {
	return "label_index_entries"
}

// ScopeContext builds the "<scope type>:<scope id>" namespace key.
func ScopeContext(scopeType, scopeID string) string {
	return scopeType + ":" + scopeID
}
