package service

import (
	"strconv"
	"time"

	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/pkg/printer"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
)

const (
	billDateLayout  = "2/1/2006"
	printTimeLayout = "2/1/2006, 3:04:05 pm"
)

// indiaStandardTime is used when the zone database is unavailable
var indiaStandardTime = time.FixedZone("IST", 5*60*60+30*60)

// LoadLocation resolves the zone printed on tickets, falling back to IST.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return indiaStandardTime
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return indiaStandardTime
	}
	return loc
}

// TicketComposer renders tickets into ESC/POS command streams.
type TicketComposer struct {
	width int
	logo  *printer.Raster
	loc   *time.Location
}

// NewTicketComposer creates a composer. logo may be nil.
func NewTicketComposer(width int, logo *printer.Raster, loc *time.Location) *TicketComposer {
	if width <= 0 {
		width = printer.DefaultCharWidth
	}
	if loc == nil {
		loc = indiaStandardTime
	}
	return &TicketComposer{width: width, logo: logo, loc: loc}
}

// Compose builds the full command stream for one ticket.
func (c *TicketComposer) Compose(t *entity.Ticket) []byte {
	doc := printer.NewDocument(c.width).FontA()

	if c.logo != nil {
		doc.SetAlign(printer.AlignCenter).
			Bitmap(c.logo).
			LineFeed()
	}

	if name := printer.Sanitize(t.UnitName); name != "" {
		doc.SetAlign(printer.AlignCenter).Text(name)
	}

	doc.SetAlign(printer.AlignLeft).
		Rule().
		TextF("Txn:%s  Bill:%s", utils.ShortID(t.OrderID), utils.ShortID(t.BillID)).
		TextF("Date:%s", t.BillDate.Format(billDateLayout)).
		Rule().
		Columns(
			printer.Sanitize(t.ProductName)+" x "+strconv.Itoa(t.Quantity),
			"Rs "+t.Amount.StringFixed(2),
		).
		Rule().
		TextF("Payment Mode: %s", t.PaymentMode).
		SetBold(true).
		TextF("Total: Rs %s", t.Total.StringFixed(2)).
		SetBold(false).
		TextF("Print Time: %s", t.PrintedAt.In(c.loc).Format(printTimeLayout)).
		FeedLines(1).
		Cut()

	return doc.Bytes()
}

// TicketsForBill expands a bill into one single-quantity ticket per unit of
// each item, in item order.
func TicketsForBill(order *entity.Order, bill *entity.OrderDayBill, now time.Time) []entity.Ticket {
	unitName := ""
	if order.Unit != nil {
		unitName = order.Unit.Name
	}

	var tickets []entity.Ticket
	for _, item := range bill.Items {
		for copyNo := 1; copyNo <= item.Quantity; copyNo++ {
			tickets = append(tickets, entity.Ticket{
				OrderID:     order.ID,
				BillID:      bill.ID,
				UnitName:    unitName,
				BillDate:    bill.BillDate,
				ProductID:   item.ProductID,
				ProductName: item.ProductName(),
				Quantity:    1,
				Amount:      item.UnitPrice,
				PaymentMode: order.PaymentMode.Label(),
				Total:       item.UnitPrice,
				PrintedAt:   now,
				Copy:        copyNo,
			})
		}
	}
	return tickets
}
