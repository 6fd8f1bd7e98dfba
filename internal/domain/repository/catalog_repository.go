package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
)

// ProductRepository reads the menu a unit sells from
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByIDs loads every listed product in one query, including inactive
	// ones. Callers decide what an inactive product means.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error)
}

// UnitRepository reads canteen units and their printer endpoints
type UnitRepository interface {
	Create(ctx context.Context, unit *entity.Unit) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Unit, error)
}
