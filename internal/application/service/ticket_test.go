package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"github.com/sangkips/canteen-kiosk/pkg/printer"
	"github.com/shopspring/decimal"
)

func TestTicketsForBill(t *testing.T) {
	order := newOrderFixture(enum.PaymentModeCash, "10.0.0.5",
		[]itemSpec{{"Veg Puff", "20", 3}, {"Tea", "10", 1}},
	)
	bill := &order.DayBills[0]
	now := time.Date(2024, 3, 5, 8, 30, 15, 0, time.UTC)

	tickets := TicketsForBill(order, bill, now)
	if len(tickets) != 4 {
		t.Fatalf("len(tickets) = %d, want 4", len(tickets))
	}

	wantCopies := []int{1, 2, 3, 1}
	wantNames := []string{"Veg Puff", "Veg Puff", "Veg Puff", "Tea"}
	for i, tk := range tickets {
		if tk.Copy != wantCopies[i] || tk.ProductName != wantNames[i] {
			t.Fatalf("ticket %d = %s copy %d", i, tk.ProductName, tk.Copy)
		}
		if tk.Quantity != 1 {
			t.Fatalf("ticket %d quantity = %d, want 1", i, tk.Quantity)
		}
		if !tk.Amount.Equal(tk.Total) {
			t.Fatalf("ticket %d amount %s != total %s", i, tk.Amount, tk.Total)
		}
		if tk.PaymentMode != "Paid by Cash" || tk.UnitName != "Main Canteen" {
			t.Fatalf("ticket %d header = %q / %q", i, tk.PaymentMode, tk.UnitName)
		}
	}
	if !tickets[0].Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("amount = %s, want unit price 20", tickets[0].Amount)
	}
}

func TestTicketsForBillMissingProduct(t *testing.T) {
	order := newOrderFixture(enum.PaymentModeFree, "10.0.0.5", []itemSpec{{"Idli", "25", 1}})
	order.Unit = nil
	order.DayBills[0].Items[0].Product = nil

	tickets := TicketsForBill(order, &order.DayBills[0], time.Now())
	if tickets[0].ProductName != "Product" || tickets[0].UnitName != "" {
		t.Fatalf("ticket = %+v", tickets[0])
	}
}

func TestComposeTicket(t *testing.T) {
	orderID := uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	billID := uuid.MustParse("9a8b7c6d-0000-4000-8000-000000000001")
	ticket := &entity.Ticket{
		OrderID:     orderID,
		BillID:      billID,
		UnitName:    "Main Canteen",
		BillDate:    time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		ProductName: "Veg Puff",
		Quantity:    1,
		Amount:      decimal.NewFromInt(20),
		PaymentMode: "Free Meals",
		Total:       decimal.NewFromInt(20),
		PrintedAt:   time.Date(2024, 3, 5, 8, 30, 15, 0, time.UTC),
	}

	out := NewTicketComposer(0, nil, nil).Compose(ticket)

	if !bytes.HasPrefix(out, []byte{printer.ESC, '@', printer.ESC, '!', 0x00}) {
		t.Fatalf("stream does not start with init and font A: % x", out[:5])
	}
	if !bytes.HasSuffix(out, []byte{printer.ESC, 'd', 1, printer.GS, 'V', 0x41, 0x03}) {
		t.Fatalf("stream does not end with feed and cut: % x", out[len(out)-7:])
	}

	text := string(out)
	want := []string{
		"Main Canteen\n",
		strings.Repeat("-", 32) + "\n",
		"Txn:1B4E28BA  Bill:9A8B7C6D\n",
		"Date:6/3/2024\n",
		"Veg Puff x 1            Rs 20.00\n",
		"Payment Mode: Free Meals\n",
		"Total: Rs 20.00\n",
		"Print Time: 5/3/2024, 2:00:15 pm\n",
	}
	last := -1
	for _, w := range want {
		idx := strings.Index(text, w)
		if idx < 0 {
			t.Fatalf("missing %q in ticket:\n%s", w, text)
		}
		if idx < last {
			t.Fatalf("%q out of order", w)
		}
		last = idx
	}

	bold := []byte{printer.ESC, 'E', 1, 'T', 'o', 't', 'a', 'l'}
	if !bytes.Contains(out, bold) {
		t.Fatal("total is not bold")
	}
	if bytes.Contains(out, []byte{printer.GS, 'v', '0'}) {
		t.Fatal("bitmap painted without a logo")
	}
}

func TestComposeTicketWithLogo(t *testing.T) {
	logo := &printer.Raster{WidthBytes: 1, Height: 1, Data: []byte{0x80}}
	ticket := &entity.Ticket{ProductName: "Tea", Quantity: 1, PrintedAt: time.Now()}

	out := NewTicketComposer(32, logo, time.UTC).Compose(ticket)
	paint := append([]byte{printer.ESC, 'a', 1}, logo.Header()...)
	paint = append(paint, 0x80, printer.LF)
	if !bytes.Contains(out, paint) {
		t.Fatal("logo not painted centered")
	}
	if strings.Contains(string(out), "\x1ba\x01\n") {
		t.Fatal("empty unit name printed")
	}
}

func TestLoadLocation(t *testing.T) {
	if LoadLocation("") != indiaStandardTime {
		t.Fatal("empty zone should fall back to IST")
	}
	if LoadLocation("Not/AZone") != indiaStandardTime {
		t.Fatal("unknown zone should fall back to IST")
	}
}
