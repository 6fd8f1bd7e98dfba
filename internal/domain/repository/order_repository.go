package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"github.com/sangkips/canteen-kiosk/pkg/pagination"
)

// ErrStaleTransition is returned when a conditional payment update finds the
// order no longer in the expected state.
var ErrStaleTransition = errors.New("order payment state changed")

// ErrRecordNotFound is returned by mutations whose target row does not exist.
var ErrRecordNotFound = errors.New("record not found")

// OrderRepository defines the interface for order, day bill and item data operations
type OrderRepository interface {
	// CreateWithBills stores the order, its day bills and their items in one transaction
	CreateWithBills(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	// GetWithBills loads the order with its unit, bills, items and products
	GetWithBills(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	// GetBill loads a bill with its items, products and owning order
	GetBill(ctx context.Context, id uuid.UUID) (*entity.OrderDayBill, error)
	// UpdatePayment commits the payment mode and status; it fails with
	// ErrStaleTransition if the order is no longer at fromStatus.
	UpdatePayment(ctx context.Context, id uuid.UUID, fromStatus enum.PaymentStatus, mode enum.PaymentMode, status enum.PaymentStatus) error
	// SetRemoteRef records the payment gateway order and moves the order into mode
	SetRemoteRef(ctx context.Context, id uuid.UUID, mode enum.PaymentMode, ref string) error
	// MarkBillPrinted sets the printed flag and timestamp; it never clears them
	MarkBillPrinted(ctx context.Context, billID uuid.UUID, printedAt time.Time) error
	ListBills(ctx context.Context, params *BillFilterParams) ([]entity.OrderDayBill, int64, error)
	// DeleteBill removes a bill and its items, and the order once it has no bills left.
	// It reports whether the order was removed.
	DeleteBill(ctx context.Context, billID uuid.UUID) (orderDeleted bool, err error)
	// DeleteBills removes every bill matching params, ignoring pagination, with
	// their items and any order left without bills. It returns the bill count.
	DeleteBills(ctx context.Context, params *BillFilterParams) (int64, error)
	// DeletePending removes a PENDING order with all its bills and items.
	// It fails with ErrStaleTransition if the order is no longer PENDING.
	DeletePending(ctx context.Context, id uuid.UUID) error
}

// BillFilterParams contains filtering parameters for bill log queries
type BillFilterParams struct {
	Pagination  *pagination.PaginationParams
	Printed     *bool
	UnitID      *uuid.UUID
	PaymentMode *enum.PaymentMode
	StartDate   *time.Time
	EndDate     *time.Time
}
