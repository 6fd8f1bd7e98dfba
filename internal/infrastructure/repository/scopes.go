package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/pkg/pagination"
	"gorm.io/gorm"
)

// Paginate returns a GORM scope applying offset and limit from params
func Paginate(params *pagination.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params == nil {
			return db
		}
		params.Validate()
		return db.Offset(params.Offset()).Limit(params.PerPage)
	}
}

// BillDateBetween returns a GORM scope filtering day bills by an inclusive
// date range. Either bound may be nil.
func BillDateBetween(start, end *time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if start != nil {
			db = db.Where("order_day_bills.bill_date >= ?", *start)
		}
		if end != nil {
			db = db.Where("order_day_bills.bill_date <= ?", *end)
		}
		return db
	}
}

// OrderUnitScope returns a GORM scope limiting joined orders to one unit.
// A nil unit leaves the query unfiltered.
func OrderUnitScope(unitID *uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if unitID == nil {
			return db
		}
		return db.Where("orders.unit_id = ?", *unitID)
	}
}

// ItemsInLineOrder orders bill items as they were requested. Items of one
// bill share a creation timestamp, so id breaks any remaining tie.
func ItemsInLineOrder(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC, id ASC")
}

// IncludeDeleted preloads soft-deleted rows too, so old bills keep their
// product and unit names.
func IncludeDeleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
