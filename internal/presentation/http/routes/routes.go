package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/canteen-kiosk/internal/config"
	domainRepo "github.com/sangkips/canteen-kiosk/internal/domain/repository"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/handler"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/middleware"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Order   *handler.OrderHandler
	Bill    *handler.BillHandler
	Printer *handler.PrinterHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	UnitRepo        domainRepo.UnitRepository
	RateLimiter     *middleware.UserRateLimiter
	Logger          *zap.Logger
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// API v1 routes (authentication required)
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTManager))
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}
	{
		registerOrderRoutes(v1, h, deps)
		registerPrinterRoutes(v1, h, deps)
		registerBillRoutes(v1, h)
	}

	return router
}

func registerOrderRoutes(v1 *gin.RouterGroup, h *Handlers, deps *Deps) {
	idempotency := middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo})

	orders := v1.Group("/orders")
	orders.Use(middleware.RequireUnit(deps.UnitRepo))
	{
		orders.POST("", idempotency, h.Order.Create)
		orders.GET("/:id", h.Order.Get)
		orders.DELETE("/:id", h.Order.Delete)
		orders.POST("/:id/pay-cash", idempotency, h.Order.PayCash)
		orders.POST("/:id/pay-free", idempotency, h.Order.PayFree)
		orders.POST("/:id/pay-guest", idempotency, h.Order.PayGuest)
		orders.POST("/:id/charge", h.Order.Charge)
		orders.POST("/:id/verify", h.Order.Verify)
		orders.POST("/:id/bills/:billId/print", h.Order.RetryPrint)
	}
}

func registerPrinterRoutes(v1 *gin.RouterGroup, h *Handlers, deps *Deps) {
	printer := v1.Group("/printer")
	{
		printer.GET("/ping", middleware.RequireUnit(deps.UnitRepo), h.Printer.Ping)

		admin := printer.Group("")
		admin.Use(middleware.RequireRole(utils.RoleAdmin))
		admin.POST("/test-print", h.Printer.TestPrint)
		admin.GET("/discover", h.Printer.Discover)
		admin.GET("/events", h.Printer.Events)
	}
}

func registerBillRoutes(v1 *gin.RouterGroup, h *Handlers) {
	bills := v1.Group("/bills")
	bills.Use(middleware.RequireRole(utils.RoleAdmin))
	{
		bills.GET("", h.Bill.List)
		bills.DELETE("", h.Bill.DeleteAll)
		bills.GET("/:id", h.Bill.Get)
		bills.DELETE("/:id", h.Bill.Delete)
	}
}
