package metrics

// Operation label values.
const (
	OpAllocate        = "allocate"
	OpPreview         = "preview"
	OpRegisterLabel   = "register_label"
	OpGetSnapshot     = "get_snapshot"
	OpRestoreSnapshot = "restore_snapshot"
	OpSetFormatLength = "set_format_length"
	OpListCounters    = "list_counters"
	OpListSnapshots   = "list_snapshots"
	OpListLabels      = "list_labels"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket parameters.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketFactor2 is the exponential growth factor.
	BucketFactor2 = 2
	// BucketCount15 gives 1ms to ~16s with BucketStart1ms.
	BucketCount15 = 15
)
