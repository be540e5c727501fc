package entities

// Models lists every model managed by the datastore, in migration order.
func Models() []any {
	return []any{
		&CounterRecord{},
		&IdentifierSnapshot{},
		&LabelIndexEntry{},
	}
}

// TableNames lists the base table names, in migration order.
func TableNames() []string {
	return []string{
		CounterRecord{}.TableName(),
		IdentifierSnapshot{}.TableName(),
		LabelIndexEntry{}.TableName(),
	}
}
