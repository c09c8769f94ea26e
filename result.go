package streamforwarder

import "fmt"

// BatchResult is the outcome of one ProcessBatch call.
type BatchResult struct {
	Processed int
	// Delivered, Filtered and Skipped count (record, destination) pairs. Skipped pairs did not match the
	// destination's event names; Filtered pairs were rejected by the message filter. Failed counts failed
	// publishes plus records that could not be serialized.
	Delivered int
	Filtered  int
	Skipped   int
	Failed    int
	// Err aggregates every serialization and delivery failure of the batch.
	Err error
}

func (r *BatchResult) Succeeded() bool {
	return r.Err == nil
}

func (r *BatchResult) Message() string {
	return fmt.Sprintf("Successfully processed %d records.", r.Processed)
}
