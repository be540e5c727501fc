// Package repository provides the storage operations used by the
// identifier allocation engine: counters, identifier snapshots and the
// label index.
//
// # Table Naming
//
// Every repository takes the configured table prefix and queries
// prefix + Entity{}.TableName() explicitly through db.Table(). Entities
// have no GORM associations, so Preload and Joins are never needed.
//
// # Counters
//
// CounterRepository.NextValue is a single upsert-and-increment statement
// followed by a read of the row inside the same transaction. The first
// call for an identity inserts last_value = 1; later calls update
// last_value = last_value + 1. There is no check-then-act window, and the
// database row lock serializes callers of the same identity while
// different identities never contend.
//
// # Error Handling
//
// Repositories return the sentinel errors in errors.go (ErrSnapshotNotFound,
// ErrLabelExists, ...) instead of leaking GORM errors. Driver errors are
// wrapped with datastore.DBError and stay reachable through errors.As.
//
// # Thread Safety
//
// All repository methods are safe for concurrent use.
package repository
