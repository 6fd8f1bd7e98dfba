package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
)

// IdempotencyRepository stores replayable responses
type IdempotencyRepository interface {
	// GetByKey returns the unexpired response cached for key on endpoint, or nil
	GetByKey(ctx context.Context, key string, userID uuid.UUID, endpoint string) (*entity.IdempotencyKey, error)
	Create(ctx context.Context, ikey *entity.IdempotencyKey) error
	// DeleteExpired removes expired keys and reports how many were removed
	DeleteExpired(ctx context.Context) (int64, error)
}
