package apperror

import (
	"errors"
	"net/http"
)

// AppError carries the HTTP status a failure maps to
type AppError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError names the request field a validation failure belongs to
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func newError(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Order lifecycle errors
var (
	ErrOrderNotFound              = newError(http.StatusNotFound, "Order not found")
	ErrBillNotFound               = newError(http.StatusNotFound, "Bill not found")
	ErrUnitNotFound               = newError(http.StatusNotFound, "Unit not found")
	ErrAccessDenied               = newError(http.StatusForbidden, "Access denied")
	ErrPaymentVerificationFailed  = newError(http.StatusBadRequest, "Payment verification failed")
	ErrInvalidTransition          = newError(http.StatusConflict, "Order payment is already settled")
	ErrGuestNotPrintable          = newError(http.StatusBadRequest, "Cannot print guest orders")
	ErrRemoteChargeMissing        = newError(http.StatusBadRequest, "Remote payment order not found")
	ErrPrinterNotConfigured       = newError(http.StatusBadRequest, "Printer configuration not found for this unit")
	ErrPaymentGatewayUnconfigured = newError(http.StatusServiceUnavailable, "Payment gateway is not configured")
)

// NewValidationError reports malformed input field by field (422)
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewInvalidProductSelection reports products that are unknown, inactive or
// belong to another unit.
func NewInvalidProductSelection(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: "Some products are invalid or inactive",
		Errors:  fieldErrors,
	}
}

func NewConflictError(message string) *AppError {
	return newError(http.StatusConflict, message)
}

func NewBadRequestError(message string) *AppError {
	return newError(http.StatusBadRequest, message)
}

// GetAppError unwraps err to an AppError. Anything else is a 500 and its
// text is not exposed to the client.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return newError(http.StatusInternalServerError, "Internal server error")
}
