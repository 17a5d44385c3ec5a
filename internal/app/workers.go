package app

import (
	"context"
	"time"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// SendObserver receives the outcome of every batch send. Callbacks run on
// the worker goroutine, so implementations must not block.
type SendObserver interface {
	OnSendSuccess(recordCount, bytesSent int, duration time.Duration)
	OnSendError(err error, recordCount int)
}

// WorkerTracker registers send goroutines with the shutdown sequence so it
// can wait for them to finish.
type WorkerTracker interface {
	AddWorker()
	WorkerDone()
}

// WorkerPool bounds how many batch sends run at once. Admission takes one of
// a fixed set of permits; the permit is returned when the send finishes,
// success or failure, so a failed send can never leak a connection slot.
type WorkerPool struct {
	sender   ports.BatchSender
	permits  chan struct{}
	tracker  WorkerTracker
	observer SendObserver
	logger   log.Logger
}

func NewWorkerPool(size int, sender ports.BatchSender, tracker WorkerTracker, observer SendObserver, logger log.Logger) *WorkerPool {
	return &WorkerPool{
		sender:   sender,
		permits:  make(chan struct{}, size),
		tracker:  tracker,
		observer: observer,
		logger:   logger,
	}
}

// Dispatch blocks until a permit frees up, then runs the send on its own
// goroutine and returns true. It returns false without sending when ctx is
// cancelled first; the caller owns reporting the dropped batch. The send
// itself is detached from ctx: a shutdown that interrupts admission must not
// abort a transfer already in flight, the sender's timeouts bound those.
func (p *WorkerPool) Dispatch(ctx context.Context, batch *domain.Batch) bool {
	select {
	case p.permits <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	p.tracker.AddWorker()
	go func() {
		defer p.tracker.WorkerDone()
		defer func() { <-p.permits }()
		p.send(context.WithoutCancel(ctx), batch)
	}()
	return true
}

func (p *WorkerPool) send(ctx context.Context, batch *domain.Batch) {
	start := time.Now()
	bytes, err := p.sender.Send(ctx, batch)
	if err != nil {
		p.logger.Error("batch send failed, discarding",
			log.String("batch_id", batch.ID),
			log.Int("records", batch.Size()),
			log.Err(err))
		if p.observer != nil {
			p.observer.OnSendError(err, batch.Size())
		}
		return
	}
	took := time.Since(start)
	p.logger.Info("batch sent",
		log.String("batch_id", batch.ID),
		log.Int("records", batch.Size()),
		log.Int("bytes", bytes),
		log.Duration("took", took))
	if p.observer != nil {
		p.observer.OnSendSuccess(batch.Size(), bytes, took)
	}
}
