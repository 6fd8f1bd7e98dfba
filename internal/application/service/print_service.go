package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"github.com/sangkips/canteen-kiosk/pkg/apperror"
	"github.com/sangkips/canteen-kiosk/pkg/printer"
	"github.com/sangkips/canteen-kiosk/pkg/retry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Print sources recorded on results and events.
const (
	PrintSourceSettlement = "settlement"
	PrintSourceBackground = "background"
	PrintSourceRetry      = "retry"
)

// BillPrintRecorder persists bill printedness.
type BillPrintRecorder interface {
	MarkBillPrinted(ctx context.Context, billID uuid.UUID, printedAt time.Time) error
}

// PrintEventPublisher receives a notification after each bill is walked.
type PrintEventPublisher interface {
	PublishPrintEvent(event PrintEvent)
}

// PrintEvent reports the outcome of printing one bill.
type PrintEvent struct {
	Type           string    `json:"type"`
	OrderID        uuid.UUID `json:"order_id"`
	BillID         uuid.UUID `json:"bill_id"`
	UnitID         uuid.UUID `json:"unit_id"`
	Printed        bool      `json:"printed"`
	TicketsPrinted int       `json:"tickets_printed"`
	TicketsFailed  int       `json:"tickets_failed"`
	Source         string    `json:"source"`
	At             time.Time `json:"at"`
}

const testTicketProduct = "Test Item"

// Print event types.
const (
	EventBillPrinted = "bill_printed"
	EventBillFailed  = "bill_print_failed"
)

// PrintConfig holds the retry budget and pacing of an orchestration run.
type PrintConfig struct {
	CharWidth      int
	MaxAttempts    int
	RetryDelay     time.Duration
	PingAttempts   int
	SameProductGap time.Duration
	ProductGap     time.Duration
	BillGap        time.Duration
	Location       *time.Location
}

// DefaultPrintConfig returns the production retry budget and pacing.
func DefaultPrintConfig() PrintConfig {
	return PrintConfig{
		CharWidth:      printer.DefaultCharWidth,
		MaxAttempts:    3,
		RetryDelay:     time.Second,
		PingAttempts:   1,
		SameProductGap: 500 * time.Millisecond,
		ProductGap:     300 * time.Millisecond,
		BillGap:        300 * time.Millisecond,
		Location:       indiaStandardTime,
	}
}

// TicketResult is the outcome of one ticket.
type TicketResult struct {
	BillID      uuid.UUID `json:"bill_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Copy        int       `json:"copy"`
	Attempts    int       `json:"attempts"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
}

// PrintOutcome aggregates the ticket results of an orchestration run.
type PrintOutcome struct {
	Results        []TicketResult `json:"results"`
	AllSucceeded   bool           `json:"all_succeeded"`
	TicketsPrinted int            `json:"tickets_printed"`
	TicketsFailed  int            `json:"tickets_failed"`
	BillsPrinted   []uuid.UUID    `json:"bills_printed"`
	BillsFailed    []uuid.UUID    `json:"bills_failed"`
}

func newPrintOutcome() *PrintOutcome {
	return &PrintOutcome{
		Results:      []TicketResult{},
		AllSucceeded: true,
		BillsPrinted: []uuid.UUID{},
		BillsFailed:  []uuid.UUID{},
	}
}

// PrintService walks an order's bills, prints one ticket per unit of each
// item and records which bills printed in full.
type PrintService struct {
	transport printer.Transport
	bills     BillPrintRecorder
	events    PrintEventPublisher
	composer  *TicketComposer
	cfg       PrintConfig
	sleep     retry.SleepFunc
	now       func() time.Time
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

// NewPrintService creates a print orchestrator. events may be nil.
func NewPrintService(
	transport printer.Transport,
	bills BillPrintRecorder,
	events PrintEventPublisher,
	cfg PrintConfig,
	logger *zap.Logger,
) *PrintService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.PingAttempts < 1 {
		cfg.PingAttempts = 1
	}
	return &PrintService{
		transport: transport,
		bills:     bills,
		events:    events,
		composer:  NewTicketComposer(cfg.CharWidth, transport.Logo(), cfg.Location),
		cfg:       cfg,
		sleep:     retry.Sleep,
		now:       time.Now,
		logger:    logger,
		locks:     make(map[uuid.UUID]*orderLock),
	}
}

// SetSleep replaces the pause used for retries and pacing.
func (s *PrintService) SetSleep(fn retry.SleepFunc) {
	s.sleep = fn
}

// SetClock replaces the clock used for ticket and printed timestamps.
func (s *PrintService) SetClock(now func() time.Time) {
	s.now = now
}

// PrintOrderBills prints every bill of order in sequence. The order must be
// loaded with its unit, bills and items. Printer errors never escape; they
// are reported per ticket in the outcome.
func (s *PrintService) PrintOrderBills(ctx context.Context, order *entity.Order, source string) *PrintOutcome {
	unlock := s.lockOrder(order.ID)
	defer unlock()

	out := newPrintOutcome()
	for i := range order.DayBills {
		if i > 0 {
			s.pause(ctx, s.cfg.BillGap)
		}
		s.printBill(ctx, order, &order.DayBills[i], source, out)
	}

	s.logger.Info("order print run finished",
		zap.String("order_id", order.ID.String()),
		zap.String("source", source),
		zap.Int("tickets_printed", out.TicketsPrinted),
		zap.Int("tickets_failed", out.TicketsFailed),
		zap.Bool("all_succeeded", out.AllSucceeded),
	)
	return out
}

// RetryBill reprints a single bill of order with the same retry and pacing
// rules. An already printed bill is printed again in full.
func (s *PrintService) RetryBill(ctx context.Context, order *entity.Order, billID uuid.UUID) (*PrintOutcome, error) {
	var bill *entity.OrderDayBill
	for i := range order.DayBills {
		if order.DayBills[i].ID == billID {
			bill = &order.DayBills[i]
			break
		}
	}
	if bill == nil {
		return nil, apperror.ErrBillNotFound
	}

	unlock := s.lockOrder(order.ID)
	defer unlock()

	out := newPrintOutcome()
	s.printBill(ctx, order, bill, PrintSourceRetry, out)
	return out, nil
}

// Ping checks the printer at addr and returns the round trip time.
func (s *PrintService) Ping(ctx context.Context, addr printer.Address) (time.Duration, error) {
	if addr.IsZero() {
		return 0, printer.ErrNoAddress
	}

	policy := retry.Policy{
		MaxAttempts: s.cfg.PingAttempts,
		Delay:       s.cfg.RetryDelay,
		Sleep:       s.sleep,
	}

	start := time.Now()
	_, err := policy.Do(ctx, func(ctx context.Context) error {
		return s.transport.Ping(ctx, addr)
	})
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Warn("printer ping failed",
			zap.String("printer", addr.String()),
			zap.String("kind", failureKind(err)),
			zap.Error(err),
		)
		return elapsed, err
	}
	return elapsed, nil
}

// TestPrint sends one sample ticket for unitName to addr under the normal
// retry policy. A printer failure is reported in the result, not as an error.
func (s *PrintService) TestPrint(ctx context.Context, addr printer.Address, unitName string) (*TicketResult, error) {
	if addr.IsZero() {
		return nil, printer.ErrNoAddress
	}

	now := s.now()
	ticket := &entity.Ticket{
		UnitName:    unitName,
		BillDate:    now.In(s.composer.loc),
		ProductName: testTicketProduct,
		Quantity:    1,
		Amount:      decimal.Zero,
		PaymentMode: enum.PaymentModeCash.Label(),
		Total:       decimal.Zero,
		PrintedAt:   now,
		Copy:        1,
	}

	result := &TicketResult{ProductName: ticket.ProductName, Copy: ticket.Copy}
	attempts, err := s.sendTicket(ctx, addr, ticket)
	result.Attempts = attempts
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Success = true
	return result, nil
}

func (s *PrintService) printBill(ctx context.Context, order *entity.Order, bill *entity.OrderDayBill, source string, out *PrintOutcome) {
	addr := bill.PrinterAddress()
	tickets := TicketsForBill(order, bill, s.now())
	printed, failed := 0, 0

	for i := range tickets {
		t := &tickets[i]
		if i > 0 {
			if t.Copy > 1 {
				s.pause(ctx, s.cfg.SameProductGap)
			} else {
				s.pause(ctx, s.cfg.ProductGap)
			}
		}

		result := TicketResult{
			BillID:      bill.ID,
			ProductID:   t.ProductID,
			ProductName: t.ProductName,
			Copy:        t.Copy,
		}

		var err error
		if addr.IsZero() {
			err = printer.ErrNoAddress
		} else {
			result.Attempts, err = s.sendTicket(ctx, addr, t)
		}

		if err != nil {
			result.Error = err.Error()
			failed++
		} else {
			result.Success = true
			printed++
		}
		out.Results = append(out.Results, result)
	}

	out.TicketsPrinted += printed
	out.TicketsFailed += failed

	complete := failed == 0
	if complete {
		at := s.now()
		if err := s.bills.MarkBillPrinted(ctx, bill.ID, at); err != nil {
			s.logger.Error("failed to mark bill printed",
				zap.String("bill_id", bill.ID.String()),
				zap.Error(err),
			)
			complete = false
		} else if !bill.IsPrinted {
			bill.IsPrinted = true
			bill.PrintedAt = &at
		}
	}

	if complete {
		out.BillsPrinted = append(out.BillsPrinted, bill.ID)
	} else {
		out.AllSucceeded = false
		out.BillsFailed = append(out.BillsFailed, bill.ID)
		s.logger.Warn("bill left unprinted",
			zap.String("order_id", order.ID.String()),
			zap.String("bill_id", bill.ID.String()),
			zap.Int("tickets_failed", failed),
			zap.Int("tickets", len(tickets)),
		)
	}

	s.publish(order, bill, source, complete, printed, failed)
}

func (s *PrintService) sendTicket(ctx context.Context, addr printer.Address, t *entity.Ticket) (int, error) {
	policy := retry.Policy{
		MaxAttempts: s.cfg.MaxAttempts,
		Delay:       s.cfg.RetryDelay,
		Sleep:       s.sleep,
		OnFailure: func(attempt int, err error) {
			s.logger.Warn("ticket print attempt failed",
				zap.String("bill_id", t.BillID.String()),
				zap.String("product", t.ProductName),
				zap.Int("copy", t.Copy),
				zap.Int("attempt", attempt),
				zap.String("kind", failureKind(err)),
				zap.Error(err),
			)
		},
	}

	return policy.Do(ctx, func(ctx context.Context) error {
		t.PrintedAt = s.now()
		return s.transport.Send(ctx, addr, s.composer.Compose(t))
	})
}

func (s *PrintService) publish(order *entity.Order, bill *entity.OrderDayBill, source string, printed bool, ok, failed int) {
	if s.events == nil {
		return
	}
	event := PrintEvent{
		Type:           EventBillFailed,
		OrderID:        order.ID,
		BillID:         bill.ID,
		UnitID:         order.UnitID,
		Printed:        printed,
		TicketsPrinted: ok,
		TicketsFailed:  failed,
		Source:         source,
		At:             s.now(),
	}
	if printed {
		event.Type = EventBillPrinted
	}
	s.events.PublishPrintEvent(event)
}

func (s *PrintService) pause(ctx context.Context, d time.Duration) {
	if err := s.sleep(ctx, d); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("print pacing interrupted", zap.Error(err))
	}
}

// lockOrder serializes orchestration runs for one order.
func (s *PrintService) lockOrder(id uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &orderLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func failureKind(err error) string {
	switch {
	case printer.IsTimeout(err):
		return "timeout"
	case errors.Is(err, printer.ErrUnreachable):
		return "unreachable"
	case errors.Is(err, printer.ErrNoAddress):
		return "not_configured"
	}
	return "other"
}
