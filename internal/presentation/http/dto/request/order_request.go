package request

import "github.com/google/uuid"

// DateLayout is the wire format of selected dates and date filters
const DateLayout = "2006-01-02"

// OrderItemRequest is one product line of a create order request
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

// CreateOrderRequest represents an order creation request. Every item is
// ordered for every selected date.
type CreateOrderRequest struct {
	UnitID        *uuid.UUID         `json:"unit_id"`
	Items         []OrderItemRequest `json:"items" binding:"required,dive"`
	SelectedDates []string           `json:"selected_dates" binding:"required"`
	PaymentMode   string             `json:"payment_mode" binding:"omitempty,oneof=PENDING UPI CASH FREE GUEST"`
}

// VerifyPaymentRequest carries the gateway checkout callback fields
type VerifyPaymentRequest struct {
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}
