package entities

import "time"

// Snapshot origins
const (
	OriginAllocated = "allocated" // label derived from a counter value
	OriginLegacy    = "legacy"    // manually entered label, counter value still consumed
	OriginRestored  = "restored"  // overwritten by a history restore
)

// IdentifierSnapshot records the inputs that produced a recording unit's
// label. It is written once at allocation time and afterwards changed only
// by an explicit restore; format changes never regenerate it.
type IdentifierSnapshot struct {
	RecordingUnitID           string    `gorm:"primaryKey;size:191" json:"recording_unit_id" yaml:"recording_unit_id"`
	Label                     string    `gorm:"size:255;not null" json:"label" yaml:"label"`
	SequenceNumber            int64     `gorm:"not null" json:"sequence_number" yaml:"sequence_number"`
	ScopeType                 string    `gorm:"size:32;not null;index:idx_identifier_snapshots_scope" json:"scope_type" yaml:"scope_type"`
	ScopeID                   string    `gorm:"size:191;not null;index:idx_identifier_snapshots_scope" json:"scope_id" yaml:"scope_id"`
	UnitConceptTypeID         *string   `gorm:"size:191" json:"unit_concept_type_id,omitempty" yaml:"unit_concept_type_id,omitempty"`
	ParentRecordingUnitID     *string   `gorm:"size:191;index" json:"parent_recording_unit_id,omitempty" yaml:"parent_recording_unit_id,omitempty"`
	ParentSequenceNumber      *int64    `json:"parent_sequence_number,omitempty" yaml:"parent_sequence_number,omitempty"`
	ParentConceptTypeID       *string   `gorm:"size:191" json:"parent_concept_type_id,omitempty" yaml:"parent_concept_type_id,omitempty"`
	SpatialUnitSequenceNumber *int64    `json:"spatial_unit_sequence_number,omitempty" yaml:"spatial_unit_sequence_number,omitempty"`
	ActionUnitIdentifierText  *string   `gorm:"size:255" json:"action_unit_identifier_text,omitempty" yaml:"action_unit_identifier_text,omitempty"`
	FormatLength              int       `gorm:"not null" json:"format_length" yaml:"format_length"`
	Origin                    string    `gorm:"size:16;not null" json:"origin" yaml:"origin"`
	CreatedAt                 time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"updated_at,omitempty"`
}

// TableName returns the table name for GORM.
func (IdentifierSnapshot) TableName() string {
	return "identifier_snapshots"
}

// ScopeContext returns the label index namespace this snapshot was numbered in.
func (s *IdentifierSnapshot) ScopeContext() string {
	return ScopeContext(s.ScopeType, s.ScopeID)
}
