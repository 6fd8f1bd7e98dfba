package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"github.com/sangkips/canteen-kiosk/pkg/printer"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is one checkout covering one or more days
type Order struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	UserID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	UnitID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"unit_id"`
	PaymentMode    enum.PaymentMode   `gorm:"size:20;not null;default:'PENDING';index" json:"payment_mode"`
	PaymentStatus  enum.PaymentStatus `gorm:"size:20;not null;default:'PENDING';index" json:"payment_status"`
	TotalAmount    decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	RemoteOrderRef *string            `gorm:"size:100;index" json:"remote_order_ref,omitempty"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`

	// Relationships
	Unit     *Unit          `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	DayBills []OrderDayBill `gorm:"foreignKey:OrderID" json:"day_bills,omitempty"`
}

// BeforeCreate generates a UUID before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsOwnedBy reports whether userID placed the order
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// OrderDayBill is one calendar day of an order and the unit of printing
type OrderDayBill struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	BillDate            time.Time       `gorm:"type:date;not null;index" json:"bill_date"`
	Amount              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	IsPrinted           bool            `gorm:"default:false;index" json:"is_printed"`
	PrintedAt           *time.Time      `json:"printed_at,omitempty"`
	PrinterHostSnapshot string          `gorm:"size:255" json:"printer_host_snapshot"`
	PrinterPortSnapshot int             `json:"printer_port_snapshot"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	// Relationships
	Order *Order      `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Items []OrderItem `gorm:"foreignKey:DayBillID" json:"items,omitempty"`
}

// BeforeCreate generates a UUID before creating a new day bill
func (b *OrderDayBill) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the OrderDayBill model
func (OrderDayBill) TableName() string {
	return "order_day_bills"
}

// PrinterAddress returns the printer endpoint captured when the bill was created
func (b *OrderDayBill) PrinterAddress() printer.Address {
	return printer.Address{Host: b.PrinterHostSnapshot, Port: b.PrinterPortSnapshot}
}

// ItemsTotal sums the frozen line totals of the bill's items
func (b *OrderDayBill) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// OrderItem is one product line within a day bill
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	DayBillID uuid.UUID       `gorm:"type:uuid;not null;index" json:"day_bill_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	LineNo    int             `gorm:"not null;default:0" json:"line_no"` // position in the order request, from 1
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`

	// Relationships
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// BeforeCreate generates a UUID before creating a new order item
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// ProductName returns the product's name, or a placeholder when it was not loaded
func (i *OrderItem) ProductName() string {
	if i.Product != nil && i.Product.Name != "" {
		return i.Product.Name
	}
	return "Product"
}
