package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"github.com/sangkips/canteen-kiosk/internal/domain/repository"
	"github.com/sangkips/canteen-kiosk/internal/infrastructure/payment"
	"github.com/sangkips/canteen-kiosk/pkg/apperror"
	"github.com/sangkips/canteen-kiosk/pkg/printer"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID uuid.UUID
	Role   string
	UnitID *uuid.UUID
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == utils.RoleAdmin
}

// CanAccess reports whether the actor may act on order
func (a Actor) CanAccess(order *entity.Order) bool {
	return a.IsAdmin() || order.IsOwnedBy(a.UserID)
}

// TicketPrinter is the print orchestrator as seen by the lifecycle controller
type TicketPrinter interface {
	OrderPrinter
	RetryBill(ctx context.Context, order *entity.Order, billID uuid.UUID) (*PrintOutcome, error)
	Ping(ctx context.Context, addr printer.Address) (time.Duration, error)
	TestPrint(ctx context.Context, addr printer.Address, unitName string) (*TicketResult, error)
}

// JobSubmitter queues background print jobs
type JobSubmitter interface {
	Submit(job PrintJob) error
}

// OrderService owns orders and their payment transitions, and decides when
// tickets are printed for each payment mode.
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	unitRepo    repository.UnitRepository
	printer     TicketPrinter
	jobs        JobSubmitter
	gateway     payment.Gateway
	currency    string
	logger      *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	unitRepo repository.UnitRepository,
	tickets TicketPrinter,
	jobs JobSubmitter,
	gateway payment.Gateway,
	currency string,
	logger *zap.Logger,
) *OrderService {
	if currency == "" {
		currency = "INR"
	}
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		unitRepo:    unitRepo,
		printer:     tickets,
		jobs:        jobs,
		gateway:     gateway,
		currency:    currency,
		logger:      logger,
	}
}

// OrderItemInput is one product line requested for every selected day
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput represents the create order input
type CreateOrderInput struct {
	// UnitID is honoured for admins only; other actors order at their own unit.
	UnitID      *uuid.UUID
	Items       []OrderItemInput
	Dates       []time.Time
	PaymentMode enum.PaymentMode
}

// SettlementResult is the outcome of a payment transition
type SettlementResult struct {
	Order *entity.Order
	// Print is set when tickets were printed before returning.
	Print *PrintOutcome
	// Dispatch queues background printing. The caller invokes it after the
	// response has been sent. It is nil when nothing is printed later.
	Dispatch func()
}

// CreateOrder stores an order with one bill per selected date
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, input *CreateOrderInput) (*entity.Order, error) {
	unitID := actor.UnitID
	if actor.IsAdmin() && input.UnitID != nil {
		unitID = input.UnitID
	}
	if unitID == nil {
		return nil, apperror.NewBadRequestError("User is not assigned to a unit")
	}

	mode := input.PaymentMode
	if mode == "" {
		mode = enum.PaymentModePending
	}
	if !mode.IsValid() {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "payment_mode", Message: fmt.Sprintf("invalid payment mode %q", mode)},
		})
	}

	if fieldErrors := validateOrderInput(input); len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	unit, err := s.unitRepo.GetByID(ctx, *unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil || !unit.IsActive {
		return nil, apperror.ErrUnitNotFound
	}

	productIDs := make([]uuid.UUID, 0, len(input.Items))
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[uuid.UUID]*entity.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	var invalid []apperror.FieldError
	for i, item := range input.Items {
		field := fmt.Sprintf("items[%d].product_id", i)
		product, ok := productMap[item.ProductID]
		switch {
		case !ok:
			invalid = append(invalid, apperror.FieldError{Field: field, Message: "product not found"})
		case !product.IsActive:
			invalid = append(invalid, apperror.FieldError{Field: field, Message: "product is inactive"})
		case product.UnitID != unit.ID:
			invalid = append(invalid, apperror.FieldError{Field: field, Message: "product belongs to another unit"})
		}
	}
	if len(invalid) > 0 {
		return nil, apperror.NewInvalidProductSelection(invalid)
	}

	dates := append([]time.Time(nil), input.Dates...)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	total := decimal.Zero
	bills := make([]entity.OrderDayBill, 0, len(dates))
	for _, date := range dates {
		bill := entity.OrderDayBill{
			BillDate:            date,
			PrinterHostSnapshot: unit.PrinterHost,
			PrinterPortSnapshot: unit.PrinterPort,
			Items:               make([]entity.OrderItem, 0, len(input.Items)),
		}
		for i, item := range input.Items {
			price := productMap[item.ProductID].Price
			bill.Items = append(bill.Items, entity.OrderItem{
				ProductID: item.ProductID,
				LineNo:    i + 1,
				Quantity:  item.Quantity,
				UnitPrice: price,
				LineTotal: price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			})
		}
		bill.Amount = bill.ItemsTotal()
		total = total.Add(bill.Amount)
		bills = append(bills, bill)
	}

	order := &entity.Order{
		UserID:        actor.UserID,
		UnitID:        unit.ID,
		PaymentMode:   mode,
		PaymentStatus: enum.InitialStatus(mode),
		TotalAmount:   total,
		DayBills:      bills,
	}
	if order.PaymentStatus == enum.PaymentStatusPaid {
		now := time.Now()
		order.PaidAt = &now
	}

	if err := s.orderRepo.CreateWithBills(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.Unit = unit

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("unit_id", unit.ID.String()),
		zap.String("payment_mode", mode.String()),
		zap.Int("bills", len(bills)),
		zap.String("total", total.StringFixed(2)),
	)
	return order, nil
}

func validateOrderInput(input *CreateOrderInput) []apperror.FieldError {
	var errs []apperror.FieldError
	if len(input.Items) == 0 {
		errs = append(errs, apperror.FieldError{Field: "items", Message: "at least one product must be selected"})
	}
	for i, item := range input.Items {
		if item.Quantity < 1 {
			errs = append(errs, apperror.FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be at least 1"})
		}
	}
	if len(input.Dates) == 0 {
		errs = append(errs, apperror.FieldError{Field: "selected_dates", Message: "at least one date must be selected"})
	}
	days := make(map[string]bool, len(input.Dates))
	for _, d := range input.Dates {
		key := d.Format("2006-01-02")
		if days[key] {
			errs = append(errs, apperror.FieldError{Field: "selected_dates", Message: "duplicate date " + key})
		}
		days[key] = true
	}
	return errs
}

// GetOrder returns an order with its bills
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*entity.Order, error) {
	return s.loadOrder(ctx, actor, id)
}

// PayCash settles an order as cash and prints its tickets before returning
func (s *OrderService) PayCash(ctx context.Context, actor Actor, id uuid.UUID) (*SettlementResult, error) {
	return s.settle(ctx, actor, id, enum.PaymentModeCash)
}

// PayFree settles an order as a free meal and prints its tickets before returning
func (s *OrderService) PayFree(ctx context.Context, actor Actor, id uuid.UUID) (*SettlementResult, error) {
	return s.settle(ctx, actor, id, enum.PaymentModeFree)
}

// PayGuest settles an order as a guest order. Nothing is printed.
func (s *OrderService) PayGuest(ctx context.Context, actor Actor, id uuid.UUID) (*SettlementResult, error) {
	return s.settle(ctx, actor, id, enum.PaymentModeGuest)
}

// settle commits (mode, PAID) and then prints according to the mode's timing.
func (s *OrderService) settle(ctx context.Context, actor Actor, id uuid.UUID, mode enum.PaymentMode) (*SettlementResult, error) {
	order, err := s.loadOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.settleOrder(ctx, order, mode)
}

func (s *OrderService) settleOrder(ctx context.Context, order *entity.Order, mode enum.PaymentMode) (*SettlementResult, error) {
	if err := s.commit(ctx, order, mode, enum.PaymentStatusPaid); err != nil {
		return nil, err
	}

	result := &SettlementResult{Order: order}
	switch mode.PrintTiming() {
	case enum.PrintAfterCommit:
		// PAID is durable; a client disconnect must not stop the tickets.
		result.Print = s.printer.PrintOrderBills(context.WithoutCancel(ctx), order, PrintSourceSettlement)
	case enum.PrintAfterResponse:
		result.Dispatch = s.dispatcher(order)
	}
	return result, nil
}

// CreateRemoteCharge creates a gateway order for the order total and moves
// the order into UPI mode.
func (s *OrderService) CreateRemoteCharge(ctx context.Context, actor Actor, id uuid.UUID) (*payment.Charge, error) {
	order, err := s.loadOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := enum.ValidateSettlement(order.PaymentMode, order.PaymentStatus, enum.PaymentModeUPI, enum.PaymentStatusPaid); err != nil {
		return nil, apperror.NewConflictError(err.Error())
	}
	if s.gateway == nil {
		return nil, apperror.ErrPaymentGatewayUnconfigured
	}

	amount := order.TotalAmount.Shift(2).Round(0).IntPart()
	charge, err := s.gateway.CreateCharge(ctx, amount, s.currency, utils.GenerateReceiptNo("order", order.ID))
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, apperror.ErrPaymentGatewayUnconfigured
		}
		return nil, fmt.Errorf("create remote charge: %w", err)
	}

	if err := s.orderRepo.SetRemoteRef(ctx, order.ID, enum.PaymentModeUPI, charge.ID); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return nil, apperror.ErrInvalidTransition
		}
		return nil, fmt.Errorf("store remote charge: %w", err)
	}

	s.logger.Info("remote charge created",
		zap.String("order_id", order.ID.String()),
		zap.String("charge_id", charge.ID),
		zap.Int64("amount", charge.Amount),
	)
	return charge, nil
}

// VerifyAndSettle checks the gateway signature. A bad signature marks the
// order FAILED and returns ErrPaymentVerificationFailed; a good one commits
// PAID and returns a Dispatch that prints in the background.
func (s *OrderService) VerifyAndSettle(ctx context.Context, actor Actor, id uuid.UUID, paymentID, signature string) (*SettlementResult, error) {
	order, err := s.loadOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if order.RemoteOrderRef == nil || *order.RemoteOrderRef == "" {
		return nil, apperror.ErrRemoteChargeMissing
	}
	if err := enum.ValidateSettlement(order.PaymentMode, order.PaymentStatus, enum.PaymentModeUPI, enum.PaymentStatusPaid); err != nil {
		return nil, apperror.NewConflictError(err.Error())
	}
	if s.gateway == nil {
		return nil, apperror.ErrPaymentGatewayUnconfigured
	}

	if !s.gateway.VerifySignature(*order.RemoteOrderRef, paymentID, signature) {
		if err := s.commit(ctx, order, enum.PaymentModeUPI, enum.PaymentStatusFailed); err != nil {
			return nil, err
		}
		s.logger.Warn("payment verification failed",
			zap.String("order_id", order.ID.String()),
			zap.String("charge_id", *order.RemoteOrderRef),
			zap.String("payment_id", paymentID),
		)
		return &SettlementResult{Order: order}, apperror.ErrPaymentVerificationFailed
	}

	return s.settleOrder(ctx, order, enum.PaymentModeUPI)
}

// RetryPrint reprints one bill of a paid order
func (s *OrderService) RetryPrint(ctx context.Context, actor Actor, orderID, billID uuid.UUID) (*PrintOutcome, error) {
	order, err := s.loadOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMode == enum.PaymentModeGuest {
		return nil, apperror.ErrGuestNotPrintable
	}
	if order.PaymentStatus != enum.PaymentStatusPaid {
		return nil, apperror.NewBadRequestError("Only paid orders can be printed")
	}

	return s.printer.RetryBill(context.WithoutCancel(ctx), order, billID)
}

// DeletePendingOrder removes an unsettled order with its bills and items
func (s *OrderService) DeletePendingOrder(ctx context.Context, actor Actor, id uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return apperror.ErrOrderNotFound
	}
	if !actor.CanAccess(order) {
		return apperror.ErrAccessDenied
	}

	if err := s.orderRepo.DeletePending(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleTransition):
			return apperror.NewConflictError("Only pending orders can be deleted")
		case errors.Is(err, repository.ErrRecordNotFound):
			return apperror.ErrOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}

	s.logger.Info("pending order deleted", zap.String("order_id", id.String()))
	return nil
}

// PingResult reports a printer ping. A failed ping is not an error.
type PingResult struct {
	UnitID     uuid.UUID `json:"unit_id"`
	Printer    string    `json:"printer"`
	Reachable  bool      `json:"reachable"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// printerUnit resolves the unit whose printer an operation targets: the
// actor's own unit, or unitID for admins.
func (s *OrderService) printerUnit(ctx context.Context, actor Actor, unitID *uuid.UUID) (*entity.Unit, printer.Address, error) {
	target := actor.UnitID
	if actor.IsAdmin() && unitID != nil {
		target = unitID
	}
	if target == nil {
		return nil, printer.Address{}, apperror.NewBadRequestError("User is not assigned to a unit")
	}

	unit, err := s.unitRepo.GetByID(ctx, *target)
	if err != nil {
		return nil, printer.Address{}, err
	}
	if unit == nil {
		return nil, printer.Address{}, apperror.ErrUnitNotFound
	}
	if !unit.HasPrinter() {
		return nil, printer.Address{}, apperror.ErrPrinterNotConfigured
	}
	return unit, printer.Address{Host: unit.PrinterHost, Port: unit.PrinterPort}, nil
}

// PingPrinter pings the printer of the actor's unit, or of unitID for admins
func (s *OrderService) PingPrinter(ctx context.Context, actor Actor, unitID *uuid.UUID) (*PingResult, error) {
	unit, addr, err := s.printerUnit(ctx, actor, unitID)
	if err != nil {
		return nil, err
	}

	elapsed, err := s.printer.Ping(ctx, addr)
	result := &PingResult{
		UnitID:     unit.ID,
		Printer:    addr.String(),
		Reachable:  err == nil,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

// TestPrintResult reports a sample ticket sent to a unit's printer
type TestPrintResult struct {
	UnitID   uuid.UUID `json:"unit_id"`
	Printer  string    `json:"printer"`
	Printed  bool      `json:"printed"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
}

// TestPrint sends a sample ticket to the printer of unitID, or of the
// admin's own unit. Only admins may test print.
func (s *OrderService) TestPrint(ctx context.Context, actor Actor, unitID *uuid.UUID) (*TestPrintResult, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrAccessDenied
	}
	unit, addr, err := s.printerUnit(ctx, actor, unitID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.printer.TestPrint(ctx, addr, unit.Name)
	if err != nil {
		return nil, err
	}

	result := &TestPrintResult{
		UnitID:   unit.ID,
		Printer:  addr.String(),
		Printed:  ticket.Success,
		Attempts: ticket.Attempts,
		Error:    ticket.Error,
	}
	s.logger.Info("test print finished",
		zap.String("unit_id", unit.ID.String()),
		zap.String("printer", addr.String()),
		zap.Bool("printed", result.Printed),
		zap.Int("attempts", result.Attempts),
	)
	return result, nil
}

func (s *OrderService) loadOrder(ctx context.Context, actor Actor, id uuid.UUID) (*entity.Order, error) {
	order, err := s.orderRepo.GetWithBills(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound
	}
	if !actor.CanAccess(order) {
		return nil, apperror.ErrAccessDenied
	}
	return order, nil
}

// commit validates and persists a payment transition, then mirrors it on order.
func (s *OrderService) commit(ctx context.Context, order *entity.Order, mode enum.PaymentMode, status enum.PaymentStatus) error {
	if err := enum.ValidateSettlement(order.PaymentMode, order.PaymentStatus, mode, status); err != nil {
		return apperror.NewConflictError(err.Error())
	}

	if err := s.orderRepo.UpdatePayment(ctx, order.ID, order.PaymentStatus, mode, status); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return apperror.ErrInvalidTransition
		}
		return fmt.Errorf("commit payment: %w", err)
	}

	order.PaymentMode = mode
	order.PaymentStatus = status
	if status == enum.PaymentStatusPaid {
		now := time.Now()
		order.PaidAt = &now
	}

	s.logger.Info("order payment committed",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_mode", mode.String()),
		zap.String("payment_status", status.String()),
	)
	return nil
}

func (s *OrderService) dispatcher(order *entity.Order) func() {
	return func() {
		if s.jobs == nil {
			s.logger.Error("no print dispatcher; bills stay unprinted for retry", zap.String("order_id", order.ID.String()))
			return
		}
		if err := s.jobs.Submit(PrintJob{Order: order, Source: PrintSourceBackground}); err != nil {
			s.logger.Error("background print not queued; bills stay unprinted for retry",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		}
	}
}
