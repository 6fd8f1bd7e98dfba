package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDispatcherClosed is returned by Submit once shutdown has begun.
	ErrDispatcherClosed = errors.New("print dispatcher is shut down")
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("print queue is full")
)

// OrderPrinter runs an orchestration for one order.
type OrderPrinter interface {
	PrintOrderBills(ctx context.Context, order *entity.Order, source string) *PrintOutcome
}

// PrintJob is one background orchestration request.
type PrintJob struct {
	Order  *entity.Order
	Source string
}

// PrintJobError reports a background run that left bills unprinted.
type PrintJobError struct {
	OrderID       uuid.UUID
	BillsFailed   []uuid.UUID
	TicketsFailed int
}

func (e *PrintJobError) Error() string {
	return fmt.Sprintf("order %s: %d ticket(s) failed, %d bill(s) left unprinted",
		e.OrderID, e.TicketsFailed, len(e.BillsFailed))
}

// PrintDispatcher runs print jobs on a fixed pool of workers, detached from
// the request that queued them. Failures go to an error channel drained
// into the log.
type PrintDispatcher struct {
	printer OrderPrinter
	workers int
	jobs    chan PrintJob
	errs    chan error
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPrintDispatcher creates a dispatcher with the given pool and queue sizes.
func NewPrintDispatcher(p OrderPrinter, workers, queueSize int, logger *zap.Logger) *PrintDispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &PrintDispatcher{
		printer: p,
		workers: workers,
		jobs:    make(chan PrintJob, queueSize),
		errs:    make(chan error, workers),
		logger:  logger,
	}
}

// Submit queues a job without blocking.
func (d *PrintDispatcher) Submit(job PrintJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes jobs until ctx is done, then stops accepting new jobs and
// finishes everything already queued before returning.
func (d *PrintDispatcher) Run(ctx context.Context) error {
	var workers errgroup.Group
	for i := 0; i < d.workers; i++ {
		workers.Go(func() error {
			for job := range d.jobs {
				d.handle(job)
			}
			return nil
		})
	}

	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		for err := range d.errs {
			d.logger.Error("background print failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	d.mu.Lock()
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.logger.Info("print dispatcher draining", zap.Int("queued", len(d.jobs)))
	err := workers.Wait()
	close(d.errs)
	<-sinkDone
	return err
}

func (d *PrintDispatcher) handle(job PrintJob) {
	// Jobs outlive the request and the server context.
	out := d.printer.PrintOrderBills(context.Background(), job.Order, job.Source)
	if out.AllSucceeded {
		return
	}
	d.errs <- &PrintJobError{
		OrderID:       job.Order.ID,
		BillsFailed:   out.BillsFailed,
		TicketsFailed: out.TicketsFailed,
	}
}
