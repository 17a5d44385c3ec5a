package domain

import "github.com/google/uuid"

// Batch is an ordered group of records captured atomically by a single drain.
// Once created it is immutable and owned by exactly one worker; the batch id
// ties dispatch and discard log lines to the same drain.
type Batch struct {
	// ID identifies the batch in logs and events.
	ID string

	// Records holds the drained records in enqueue order.
	Records []*Record
}

// NewBatch wraps drained records into a batch with a fresh id. The slice is
// taken over by the batch and must not be reused by the caller.
func NewBatch(records []*Record) *Batch {
	return &Batch{
		ID:      uuid.NewString(),
		Records: records,
	}
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	return len(b.Records)
}

// Empty returns true if the batch has no records.
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}
