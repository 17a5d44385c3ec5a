package app

import (
	"context"
	"sync"

	"github.com/bft-labs/logship/internal/domain"
)

// RecordBuffer is the bounded FIFO between producers and the dispatcher.
// Producers block while it is full, which is how backpressure propagates to
// the submitting caller. A buffered channel carries the records, so arrival
// order is preserved through the drain.
type RecordBuffer struct {
	ch        chan *domain.Record
	done      chan struct{}
	closeOnce sync.Once
}

func NewRecordBuffer(capacity int) *RecordBuffer {
	return &RecordBuffer{
		ch:   make(chan *domain.Record, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue appends one record, blocking while the buffer is full. The boolean
// reports whether this enqueue left the buffer at capacity, which is the
// producer's cue to wake the dispatcher. Enqueue fails with ErrShutdown once
// Close has been called, unblocking any producer parked on a full buffer.
func (b *RecordBuffer) Enqueue(ctx context.Context, rec *domain.Record) (bool, error) {
	select {
	case <-b.done:
		return false, domain.ErrShutdown
	default:
	}
	select {
	case b.ch <- rec:
		return len(b.ch) == cap(b.ch), nil
	case <-b.done:
		return false, domain.ErrShutdown
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// DrainAll removes and returns everything buffered at the time of the call,
// oldest first. It never blocks: the snapshot is the channel length on entry,
// and records enqueued during the drain stay behind for the next one. Only
// the dispatcher goroutine may call it, so the snapshot cannot be raced by a
// second drainer.
func (b *RecordBuffer) DrainAll() []*domain.Record {
	n := len(b.ch)
	if n == 0 {
		return nil
	}
	out := make([]*domain.Record, 0, n)
	for i := 0; i < n; i++ {
		select {
		case rec := <-b.ch:
			out = append(out, rec)
		default:
			return out
		}
	}
	return out
}

// Close rejects further enqueues and releases producers blocked on a full
// buffer. Records already buffered stay readable through DrainAll.
func (b *RecordBuffer) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Len reports how many records are currently buffered.
func (b *RecordBuffer) Len() int {
	return len(b.ch)
}
