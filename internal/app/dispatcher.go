package app

import (
	"context"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/pkg/log"
)

// Dispatcher owns the drain cycle: a single goroutine alternates between
// waiting for a wake signal and flushing whatever the buffer holds into a
// batch for the worker pool.
type Dispatcher struct {
	buffer *RecordBuffer
	pool   *WorkerPool
	wake   chan struct{}
	logger log.Logger
}

func NewDispatcher(buffer *RecordBuffer, pool *WorkerPool, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		buffer: buffer,
		pool:   pool,
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Wake nudges the dispatcher to drain. The signal channel holds one token,
// so wakes arriving while a drain is busy coalesce into a single pending
// drain instead of queueing. A signal is never lost: either the dispatcher
// is parked and consumes it, or a token is already waiting for it.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run is the dispatch loop. It exits when ctx is cancelled, logging and
// abandoning whatever is still buffered: undispatched records are not
// flushed on shutdown.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Debug("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			if n := d.buffer.Len(); n > 0 {
				d.logger.Warn("discarding buffered records on shutdown",
					log.Int("records", n))
			}
			d.logger.Debug("dispatcher stopped")
			return ctx.Err()
		case <-d.wake:
			d.drainOnce(ctx)
		}
	}
}

// drainOnce snapshots the buffer and hands the result to the worker pool.
// A wake that finds nothing buffered is a no-op, which makes stale or
// spurious signals harmless.
func (d *Dispatcher) drainOnce(ctx context.Context) {
	records := d.buffer.DrainAll()
	if len(records) == 0 {
		return
	}
	batch := domain.NewBatch(records)
	d.logger.Debug("drained records into batch",
		log.String("batch_id", batch.ID),
		log.Int("records", batch.Size()))
	if !d.pool.Dispatch(ctx, batch) {
		d.logger.Warn("shutdown while waiting for a send slot, discarding batch",
			log.String("batch_id", batch.ID),
			log.Int("records", batch.Size()))
	}
}
