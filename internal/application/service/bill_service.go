package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/repository"
	"github.com/sangkips/canteen-kiosk/pkg/apperror"
	"github.com/sangkips/canteen-kiosk/pkg/pagination"
	"go.uber.org/zap"
)

// BillService serves the operator bill log
type BillService struct {
	orderRepo repository.OrderRepository
	logger    *zap.Logger
}

// NewBillService creates a new bill service
func NewBillService(orderRepo repository.OrderRepository, logger *zap.Logger) *BillService {
	return &BillService{orderRepo: orderRepo, logger: logger}
}

// ListBills pages bills matching params, newest bill date first
func (s *BillService) ListBills(ctx context.Context, params *repository.BillFilterParams) (*pagination.PaginatedResult[entity.OrderDayBill], error) {
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	bills, total, err := s.orderRepo.ListBills(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return pagination.NewPaginatedResult(bills, params.Pagination, total), nil
}

// GetBill returns one bill with its order and items
func (s *BillService) GetBill(ctx context.Context, id uuid.UUID) (*entity.OrderDayBill, error) {
	bill, err := s.orderRepo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, apperror.ErrBillNotFound
	}
	return bill, nil
}

// DeleteBill removes a bill and its items, and its order once empty.
// It reports whether the order was removed too.
func (s *BillService) DeleteBill(ctx context.Context, id uuid.UUID) (bool, error) {
	orderDeleted, err := s.orderRepo.DeleteBill(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return false, apperror.ErrBillNotFound
		}
		return false, fmt.Errorf("delete bill: %w", err)
	}

	s.logger.Info("bill deleted",
		zap.String("bill_id", id.String()),
		zap.Bool("order_deleted", orderDeleted),
	)
	return orderDeleted, nil
}

// DeleteBills removes every bill matching the filters of params, and the
// orders they empty. It returns how many bills were removed.
func (s *BillService) DeleteBills(ctx context.Context, params *repository.BillFilterParams) (int64, error) {
	deleted, err := s.orderRepo.DeleteBills(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("delete bills: %w", err)
	}

	s.logger.Info("bills deleted", zap.Int64("deleted", deleted))
	return deleted, nil
}
