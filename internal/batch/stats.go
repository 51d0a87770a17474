package batch

// Stats contains statistics from a batch extraction.
type Stats struct {
	// Processed is the number of entries written to the sink.
	Processed int

	// Skipped is the number of entries the sink declined.
	Skipped int

	// Bytes is the content size of all processed entries.
	Bytes uint64
}
