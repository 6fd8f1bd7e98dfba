package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"github.com/sangkips/canteen-kiosk/internal/infrastructure/payment"
	"github.com/sangkips/canteen-kiosk/pkg/printer"
	"github.com/shopspring/decimal"
)

var errPaperJam = errors.New("paper jam")

// fakeTransport records every job. fail decides the outcome of the n-th
// Send call, counted from zero.
type fakeTransport struct {
	mu      sync.Mutex
	sent    [][]byte
	calls   int
	fail    func(n int) error
	pings   int
	pingErr error

	active    int
	maxActive int
	hold      time.Duration
}

func (f *fakeTransport) Send(ctx context.Context, addr printer.Address, data []byte) error {
	f.mu.Lock()
	n := f.calls
	f.calls++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	if f.hold > 0 {
		time.Sleep(f.hold)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	if f.fail != nil {
		if err := f.fail(n); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Ping(ctx context.Context, addr printer.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeTransport) Logo() *printer.Raster {
	return nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) setFail(fn func(n int) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fn
}

func alwaysFail(int) error { return errPaperJam }

// fakeBills records MarkBillPrinted calls.
type fakeBills struct {
	mu     sync.Mutex
	marked map[uuid.UUID]time.Time
	err    error
}

func newFakeBills() *fakeBills {
	return &fakeBills{marked: make(map[uuid.UUID]time.Time)}
}

func (f *fakeBills) MarkBillPrinted(ctx context.Context, billID uuid.UUID, printedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.marked[billID] = printedAt
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []PrintEvent
}

func (f *fakeEvents) PublishPrintEvent(event PrintEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

// pauseRecorder replaces sleeping with bookkeeping.
type pauseRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (p *pauseRecorder) sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses = append(p.pauses, d)
	return nil
}

type fakeGateway struct {
	mu      sync.Mutex
	charges []string
	err     error
}

func (g *fakeGateway) CreateCharge(ctx context.Context, amountMinor int64, currency, receipt string) (*payment.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.charges = append(g.charges, receipt)
	return &payment.Charge{ID: "order_test_123", Amount: amountMinor, Currency: currency, KeyID: "rzp_test"}, nil
}

func (g *fakeGateway) VerifySignature(chargeOrderID, paymentID, signature string) bool {
	return chargeOrderID == "order_test_123" && signature == "good"
}

// fakeJobs collects background print jobs instead of running them.
type fakeJobs struct {
	mu   sync.Mutex
	jobs []PrintJob
	err  error
}

func (f *fakeJobs) Submit(job PrintJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeJobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type itemSpec struct {
	name  string
	price string
	qty   int
}

// newOrderFixture builds an in-memory order with one bill per entry of days.
func newOrderFixture(mode enum.PaymentMode, host string, days ...[]itemSpec) *entity.Order {
	order := &entity.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		UnitID:        uuid.New(),
		PaymentMode:   mode,
		PaymentStatus: enum.PaymentStatusPaid,
	}
	order.Unit = &entity.Unit{ID: order.UnitID, Name: "Main Canteen", PrinterHost: host, PrinterPort: 9100}

	total := decimal.Zero
	for i, items := range days {
		bill := entity.OrderDayBill{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			BillDate:            time.Date(2024, 3, 6+i, 0, 0, 0, 0, time.UTC),
			PrinterHostSnapshot: host,
			PrinterPortSnapshot: 9100,
		}
		for n, spec := range items {
			price := decimal.RequireFromString(spec.price)
			productID := uuid.New()
			bill.Items = append(bill.Items, entity.OrderItem{
				ID:        uuid.New(),
				DayBillID: bill.ID,
				ProductID: productID,
				LineNo:    n + 1,
				Quantity:  spec.qty,
				UnitPrice: price,
				LineTotal: price.Mul(decimal.NewFromInt(int64(spec.qty))),
				Product:   &entity.Product{ID: productID, Name: spec.name, Price: price},
			})
		}
		bill.Amount = bill.ItemsTotal()
		total = total.Add(bill.Amount)
		order.DayBills = append(order.DayBills, bill)
	}
	order.TotalAmount = total
	return order
}
