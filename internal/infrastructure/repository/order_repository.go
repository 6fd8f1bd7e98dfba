package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	domainRepo "github.com/sangkips/canteen-kiosk/internal/domain/repository"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) domainRepo.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateWithBills(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Unit").Create(order).Error
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return findByID[entity.Order](ctx, r.db, id)
}

func (r *orderRepository) GetWithBills(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Unit", IncludeDeleted).
		Preload("DayBills", func(db *gorm.DB) *gorm.DB {
			return db.Order("bill_date ASC, created_at ASC")
		}).
		Preload("DayBills.Items", ItemsInLineOrder).
		Preload("DayBills.Items.Product", IncludeDeleted).
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) GetBill(ctx context.Context, id uuid.UUID) (*entity.OrderDayBill, error) {
	var bill entity.OrderDayBill
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Unit", IncludeDeleted).
		Preload("Items", ItemsInLineOrder).
		Preload("Items.Product", IncludeDeleted).
		First(&bill, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &bill, err
}

func (r *orderRepository) UpdatePayment(ctx context.Context, id uuid.UUID, fromStatus enum.PaymentStatus, mode enum.PaymentMode, status enum.PaymentStatus) error {
	now := time.Now()
	updates := map[string]interface{}{
		"payment_mode":   mode,
		"payment_status": status,
		"updated_at":     now,
	}
	if status == enum.PaymentStatusPaid {
		updates["paid_at"] = now
	}

	result := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND payment_status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepo.ErrStaleTransition
	}
	return nil
}

func (r *orderRepository) SetRemoteRef(ctx context.Context, id uuid.UUID, mode enum.PaymentMode, ref string) error {
	result := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND payment_status = ?", id, enum.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_mode":     mode,
			"remote_order_ref": ref,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainRepo.ErrStaleTransition
	}
	return nil
}

func (r *orderRepository) MarkBillPrinted(ctx context.Context, billID uuid.UUID, printedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.OrderDayBill{}).
		Where("id = ? AND is_printed = ?", billID, false).
		Updates(map[string]interface{}{
			"is_printed": true,
			"printed_at": printedAt,
			"updated_at": time.Now(),
		}).Error
}

func (r *orderRepository) ListBills(ctx context.Context, params *domainRepo.BillFilterParams) ([]entity.OrderDayBill, int64, error) {
	var bills []entity.OrderDayBill
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.OrderDayBill{}).
		Joins("JOIN orders ON orders.id = order_day_bills.order_id").
		Scopes(billFilter(params))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(Paginate(params.Pagination)).
		Select("order_day_bills.*").
		Preload("Order").
		Preload("Order.Unit", IncludeDeleted).
		Preload("Items", ItemsInLineOrder).
		Preload("Items.Product", IncludeDeleted).
		Order("order_day_bills.bill_date DESC, order_day_bills.created_at DESC").
		Find(&bills).Error

	return bills, total, err
}

// billFilter applies the bill log filters, pagination aside. The query must
// join orders.
func billFilter(params *domainRepo.BillFilterParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Scopes(BillDateBetween(params.StartDate, params.EndDate), OrderUnitScope(params.UnitID))
		if params.Printed != nil {
			db = db.Where("order_day_bills.is_printed = ?", *params.Printed)
		}
		if params.PaymentMode != nil {
			db = db.Where("orders.payment_mode = ?", *params.PaymentMode)
		}
		return db
	}
}

func (r *orderRepository) DeleteBills(ctx context.Context, params *domainRepo.BillFilterParams) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bills []entity.OrderDayBill
		if err := tx.Model(&entity.OrderDayBill{}).
			Joins("JOIN orders ON orders.id = order_day_bills.order_id").
			Scopes(billFilter(params)).
			Select("order_day_bills.id", "order_day_bills.order_id").
			Find(&bills).Error; err != nil {
			return err
		}
		if len(bills) == 0 {
			return nil
		}

		billIDs := make([]uuid.UUID, 0, len(bills))
		seen := make(map[uuid.UUID]bool)
		var orderIDs []uuid.UUID
		for _, bill := range bills {
			billIDs = append(billIDs, bill.ID)
			if !seen[bill.OrderID] {
				seen[bill.OrderID] = true
				orderIDs = append(orderIDs, bill.OrderID)
			}
		}

		if err := tx.Where("day_bill_id IN ?", billIDs).Delete(&entity.OrderItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", billIDs).Delete(&entity.OrderDayBill{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected

		remaining := tx.Model(&entity.OrderDayBill{}).Select("order_id").Where("order_id IN ?", orderIDs)
		return tx.Where("id IN ? AND id NOT IN (?)", orderIDs, remaining).Delete(&entity.Order{}).Error
	})
	return deleted, err
}

func (r *orderRepository) DeleteBill(ctx context.Context, billID uuid.UUID) (bool, error) {
	orderDeleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bill entity.OrderDayBill
		if err := tx.Select("id", "order_id").First(&bill, "id = ?", billID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainRepo.ErrRecordNotFound
			}
			return err
		}

		if err := tx.Where("day_bill_id = ?", bill.ID).Delete(&entity.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.OrderDayBill{}, "id = ?", bill.ID).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&entity.OrderDayBill{}).Where("order_id = ?", bill.OrderID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.Delete(&entity.Order{}, "id = ?", bill.OrderID).Error; err != nil {
				return err
			}
			orderDeleted = true
		}
		return nil
	})
	return orderDeleted, err
}

func (r *orderRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order entity.Order
		if err := tx.Select("id", "payment_status").First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainRepo.ErrRecordNotFound
			}
			return err
		}
		if order.PaymentStatus != enum.PaymentStatusPending {
			return domainRepo.ErrStaleTransition
		}

		billIDs := tx.Model(&entity.OrderDayBill{}).Select("id").Where("order_id = ?", id)
		if err := tx.Where("day_bill_id IN (?)", billIDs).Delete(&entity.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&entity.OrderDayBill{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND payment_status = ?", id, enum.PaymentStatusPending).Delete(&entity.Order{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainRepo.ErrStaleTransition
		}
		return nil
	})
}
