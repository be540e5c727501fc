// Package entities defines the GORM models for the identifier allocation tables.
//
// # Tables
//
//   - CounterRecord: one row per (scope type, scope id, concept type id); the
//     last issued sequence value. Rows are never deleted.
//   - IdentifierSnapshot: the inputs that produced a recording unit's label,
//     one row per recording unit.
//   - LabelIndexEntry: every label in use, whether allocated from a counter,
//     entered manually or imported; unique per (concept type, scope context,
//     label text).
//
// Entities reference each other by opaque string identifiers only; there are
// no GORM associations between them.
package entities
