package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ticket is a value object for one printed slip: a single unit of one
// product from one day bill. It is composed at print time and never stored.
type Ticket struct {
	OrderID     uuid.UUID       `json:"order_id"`
	BillID      uuid.UUID       `json:"bill_id"`
	UnitName    string          `json:"unit_name"`
	BillDate    time.Time       `json:"bill_date"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode string          `json:"payment_mode"`
	Total       decimal.Decimal `json:"total"`
	PrintedAt   time.Time       `json:"printed_at"`
	Copy        int             `json:"copy"`
}
