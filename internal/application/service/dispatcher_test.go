package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type stubOrderPrinter struct {
	mu      sync.Mutex
	printed []*entity.Order
	fail    bool
	block   chan struct{}
}

func (p *stubOrderPrinter) PrintOrderBills(ctx context.Context, order *entity.Order, source string) *PrintOutcome {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.printed = append(p.printed, order)
	p.mu.Unlock()

	out := newPrintOutcome()
	if p.fail {
		out.AllSucceeded = false
		out.TicketsFailed = 1
		out.BillsFailed = append(out.BillsFailed, order.DayBills[0].ID)
	}
	return out
}

func (p *stubOrderPrinter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.printed)
}

func TestDispatcherDrainsQueueOnShutdown(t *testing.T) {
	p := &stubOrderPrinter{}
	d := NewPrintDispatcher(p, 2, 8, zaptest.NewLogger(t))

	for i := 0; i < 5; i++ {
		order := newOrderFixture(enum.PaymentModeUPI, "10.0.0.5", []itemSpec{{"Tea", "10", 1}})
		if err := d.Submit(PrintJob{Order: order, Source: PrintSourceBackground}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if p.count() != 5 {
		t.Fatalf("printed %d orders, want 5", p.count())
	}
	order := newOrderFixture(enum.PaymentModeUPI, "10.0.0.5", []itemSpec{{"Tea", "10", 1}})
	if err := d.Submit(PrintJob{Order: order}); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("Submit() after shutdown error = %v", err)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewPrintDispatcher(&stubOrderPrinter{}, 1, 1, zap.NewNop())
	order := newOrderFixture(enum.PaymentModeUPI, "10.0.0.5", []itemSpec{{"Tea", "10", 1}})

	if err := d.Submit(PrintJob{Order: order}); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if err := d.Submit(PrintJob{Order: order}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Submit() error = %v, want ErrQueueFull", err)
	}
}

func TestDispatcherLogsFailedJobs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := &stubOrderPrinter{fail: true, block: make(chan struct{})}
	d := NewPrintDispatcher(p, 1, 4, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	order := newOrderFixture(enum.PaymentModeUPI, "10.0.0.5", []itemSpec{{"Tea", "10", 1}})
	if err := d.Submit(PrintJob{Order: order, Source: PrintSourceBackground}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	close(p.block)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	entries := logs.FilterMessage("background print failed").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d failures, want 1", len(entries))
	}
	msg, _ := entries[0].ContextMap()["error"].(string)
	if !strings.Contains(msg, order.ID.String()) || !strings.Contains(msg, "1 bill(s) left unprinted") {
		t.Fatalf("failure log error = %q", msg)
	}
}
