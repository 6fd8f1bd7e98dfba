package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/canteen-kiosk/internal/application/service"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/dto/response"
	"github.com/sangkips/canteen-kiosk/internal/presentation/websocket"
	"github.com/sangkips/canteen-kiosk/pkg/printer"
	"go.uber.org/zap"
)

// PrinterHandler handles printer-related HTTP requests.
type PrinterHandler struct {
	orderService     *service.OrderService
	hub              *websocket.Hub
	discoveryTimeout time.Duration
	logger           *zap.Logger
}

// NewPrinterHandler creates a new printer handler.
func NewPrinterHandler(orderService *service.OrderService, hub *websocket.Hub, discoveryTimeout time.Duration, logger *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		orderService:     orderService,
		hub:              hub,
		discoveryTimeout: discoveryTimeout,
		logger:           logger,
	}
}

// Ping checks the printer of the caller's unit. Admins may pass unit_id.
// An unreachable printer is reported in the body, not as an error status.
func (h *PrinterHandler) Ping(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	unitID, ok := optionalIDQuery(c, "unit_id")
	if !ok {
		response.BadRequest(c, "Invalid unit ID")
		return
	}

	result, err := h.orderService.PingPrinter(c.Request.Context(), actor, unitID)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Printer reachable"
	if !result.Reachable {
		message = "Printer unreachable"
	}
	response.OK(c, message, result)
}

// TestPrint sends a sample ticket to a unit's printer. unit_id defaults to
// the caller's unit. A failed print is reported in the body.
func (h *PrinterHandler) TestPrint(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	unitID, ok := optionalIDQuery(c, "unit_id")
	if !ok {
		response.BadRequest(c, "Invalid unit ID")
		return
	}

	result, err := h.orderService.TestPrint(c.Request.Context(), actor, unitID)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Test print sent"
	if !result.Printed {
		message = "Test print failed"
	}
	response.OK(c, message, result)
}

// Discover browses the local network for raw-port printers.
func (h *PrinterHandler) Discover(c *gin.Context) {
	printers, err := printer.Discover(c.Request.Context(), h.discoveryTimeout)
	if err != nil {
		h.logger.Error("printer discovery failed", zap.Error(err))
		response.InternalServerError(c, "Printer discovery failed")
		return
	}

	response.OK(c, "Printer discovery completed", gin.H{
		"printers": printers,
		"count":    len(printers),
	})
}

// Events streams print events to an operator console over a websocket.
func (h *PrinterHandler) Events(c *gin.Context) {
	h.hub.ServeWS(c)
}
