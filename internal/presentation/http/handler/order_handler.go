package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/application/service"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/dto/request"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/dto/response"
	"github.com/sangkips/canteen-kiosk/pkg/apperror"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create handles creating an order
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	dates := make([]time.Time, 0, len(req.SelectedDates))
	var fieldErrors []apperror.FieldError
	for i, raw := range req.SelectedDates {
		date, err := time.Parse(request.DateLayout, raw)
		if err != nil {
			fieldErrors = append(fieldErrors, apperror.FieldError{
				Field:   fmt.Sprintf("selected_dates[%d]", i),
				Message: "date must be in YYYY-MM-DD format",
			})
			continue
		}
		dates = append(dates, date)
	}
	if len(fieldErrors) > 0 {
		response.ValidationError(c, fieldErrors)
		return
	}

	items := make([]service.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actor, &service.CreateOrderInput{
		UnitID:      req.UnitID,
		Items:       items,
		Dates:       dates,
		PaymentMode: enum.PaymentMode(req.PaymentMode),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Order created successfully", order)
}

// Get handles getting a single order
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order retrieved successfully", order)
}

// PayCash settles an order as cash and prints its tickets before responding
func (h *OrderHandler) PayCash(c *gin.Context) {
	h.settle(c, h.orderService.PayCash, "Cash payment recorded")
}

// PayFree settles an order as free and prints its tickets before responding
func (h *OrderHandler) PayFree(c *gin.Context) {
	h.settle(c, h.orderService.PayFree, "Free order recorded")
}

// PayGuest settles an order as a guest order. Guest orders never print.
func (h *OrderHandler) PayGuest(c *gin.Context) {
	h.settle(c, h.orderService.PayGuest, "Guest order recorded")
}

type settleFunc func(ctx context.Context, actor service.Actor, id uuid.UUID) (*service.SettlementResult, error)

func (h *OrderHandler) settle(c *gin.Context, fn settleFunc, message string) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	result, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	data := gin.H{"order": result.Order}
	if result.Print != nil {
		data["print"] = result.Print
		if !result.Print.AllSucceeded {
			message += "; some tickets failed to print and can be retried"
		}
	}
	response.OK(c, message, data)
}

// Charge creates a remote payment order for the order total
func (h *OrderHandler) Charge(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	charge, err := h.orderService.CreateRemoteCharge(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment order created", charge)
}

// Verify checks the gateway signature and settles the order. Tickets print
// in the background once the response has been written.
func (h *OrderHandler) Verify(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	var req request.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.orderService.VerifyAndSettle(c.Request.Context(), actor, id, req.PaymentID, req.Signature)
	if err != nil {
		if errors.Is(err, apperror.ErrPaymentVerificationFailed) && result != nil {
			response.ErrorWithData(c, err, gin.H{"order": result.Order})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment verified", gin.H{"order": result.Order})
	c.Writer.Flush()

	if result.Dispatch != nil {
		result.Dispatch()
	}
}

// RetryPrint reprints one bill of a paid order
func (h *OrderHandler) RetryPrint(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "Invalid order ID")
		return
	}
	billID, ok := parseIDParam(c, "billId")
	if !ok {
		response.BadRequest(c, "Invalid bill ID")
		return
	}

	outcome, err := h.orderService.RetryPrint(c.Request.Context(), actor, orderID, billID)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Bill printed"
	if !outcome.AllSucceeded {
		message = "Some tickets failed to print"
	}
	response.OK(c, message, gin.H{"print": outcome})
}

// Delete removes a pending order
func (h *OrderHandler) Delete(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	if err := h.orderService.DeletePendingOrder(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order deleted successfully", nil)
}
