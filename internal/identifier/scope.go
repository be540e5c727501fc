package identifier

import (
	"strings"

	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
)

// Scope is the context a sequence is numbered in: a RootScope or a NestedScope.
type Scope interface {
	// Type is the scope type stored with counters and snapshots.
	Type() string
	// ID is the opaque identifier of the owning unit.
	ID() string
	isScope()
}

// RootKind is the kind of unit a root-level recording unit belongs to.
type RootKind string

const (
	SpatialUnit RootKind = entities.ScopeSpatialUnit
	ActionUnit  RootKind = entities.ScopeActionUnit
)

// RootScope numbers recording units directly under a spatial or action unit.
type RootScope struct {
	Kind   RootKind
	UnitID string
}

func (s RootScope) Type() string { return string(s.Kind) }
func (s RootScope) ID() string   { return s.UnitID }
func (RootScope) isScope()       {}

// NestedScope numbers recording units under a parent recording unit.
type NestedScope struct {
	ParentRecordingUnitID string
}

func (NestedScope) Type() string { return entities.ScopeRecordingUnit }
func (s NestedScope) ID() string { return s.ParentRecordingUnitID }
func (NestedScope) isScope()     {}

// ScopeDescriptor is the request form of a scope: exactly one field must be set.
type ScopeDescriptor struct {
	SpatialUnitID         string `json:"spatial_unit_id,omitempty" yaml:"spatial_unit_id,omitempty"`
	ActionUnitID          string `json:"action_unit_id,omitempty" yaml:"action_unit_id,omitempty"`
	ParentRecordingUnitID string `json:"parent_recording_unit_id,omitempty" yaml:"parent_recording_unit_id,omitempty"`
}

// Resolve turns the descriptor into a Scope. Supplying none, or more than
// one, of the unit ids is an InvalidScope error.
func (d ScopeDescriptor) Resolve() (Scope, error) {
	spatial := strings.TrimSpace(d.SpatialUnitID)
	action := strings.TrimSpace(d.ActionUnitID)
	parent := strings.TrimSpace(d.ParentRecordingUnitID)

	set := 0
	for _, v := range []string{spatial, action, parent} {
		if v != "" {
			set++
		}
	}

	switch {
	case set == 0:
		return nil, invalidScope("no scope given: set a spatial unit, an action unit or a parent recording unit")
	case set > 1:
		return nil, invalidScope("ambiguous scope: exactly one of spatial unit, action unit or parent recording unit must be set")
	case parent != "":
		return NestedScope{ParentRecordingUnitID: parent}, nil
	case spatial != "":
		return RootScope{Kind: SpatialUnit, UnitID: spatial}, nil
	default:
		return RootScope{Kind: ActionUnit, UnitID: action}, nil
	}
}

// scopeContext is the label index namespace of a scope.
func scopeContext(s Scope) string {
	return entities.ScopeContext(s.Type(), s.ID())
}
