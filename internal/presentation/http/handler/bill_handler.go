package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/canteen-kiosk/internal/application/service"
	"github.com/sangkips/canteen-kiosk/internal/domain/enum"
	"github.com/sangkips/canteen-kiosk/internal/domain/repository"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/dto/request"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/dto/response"
	"github.com/sangkips/canteen-kiosk/pkg/pagination"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
)

// BillHandler serves the operator bill log
type BillHandler struct {
	billService *service.BillService
}

// NewBillHandler creates a new bill handler
func NewBillHandler(billService *service.BillService) *BillHandler {
	return &BillHandler{billService: billService}
}

// billFilterFrom converts bound query parameters into repository filters.
// Malformed optional values are ignored; binding has already rejected them.
func billFilterFrom(req *request.BillFilterRequest) *repository.BillFilterParams {
	params := &repository.BillFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    req.Page,
			PerPage: req.PerPage,
		},
		Printed: req.Printed,
	}

	if req.UnitID != "" {
		if unitID, err := utils.ParseUUID(req.UnitID); err == nil {
			params.UnitID = &unitID
		}
	}

	if req.PaymentMode != "" {
		mode := enum.PaymentMode(req.PaymentMode)
		params.PaymentMode = &mode
	}

	if req.StartDate != "" {
		if startDate, err := time.Parse(request.DateLayout, req.StartDate); err == nil {
			params.StartDate = &startDate
		}
	}

	if req.EndDate != "" {
		if endDate, err := time.Parse(request.DateLayout, req.EndDate); err == nil {
			params.EndDate = &endDate
		}
	}
	return params
}

// List handles listing day bills
func (h *BillHandler) List(c *gin.Context) {
	var req request.BillFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.billService.ListBills(c.Request.Context(), billFilterFrom(&req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, "Bills retrieved successfully", result)
}

// DeleteAll removes every bill matching the list filters. Paging is ignored.
func (h *BillHandler) DeleteAll(c *gin.Context) {
	var req request.BillFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	deleted, err := h.billService.DeleteBills(c.Request.Context(), billFilterFrom(&req))
	if err != nil {
		response.Error(c, err)
		return
	}

	message := fmt.Sprintf("Deleted %d bill(s)", deleted)
	if deleted == 0 {
		message = "No bills found to delete"
	}
	response.OK(c, message, gin.H{"deleted_count": deleted})
}

// Get handles getting a single bill
func (h *BillHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "Invalid bill ID")
		return
	}

	bill, err := h.billService.GetBill(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Bill retrieved successfully", bill)
}

// Delete removes a bill, and its order once no bills remain
func (h *BillHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "Invalid bill ID")
		return
	}

	orderDeleted, err := h.billService.DeleteBill(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Bill deleted successfully", gin.H{"order_deleted": orderDeleted})
}
