package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/canteen-kiosk/internal/application/service"
	"github.com/sangkips/canteen-kiosk/internal/config"
	"github.com/sangkips/canteen-kiosk/internal/infrastructure/database"
	"github.com/sangkips/canteen-kiosk/internal/infrastructure/payment"
	"github.com/sangkips/canteen-kiosk/internal/infrastructure/repository"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/handler"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/middleware"
	"github.com/sangkips/canteen-kiosk/internal/presentation/http/routes"
	"github.com/sangkips/canteen-kiosk/internal/presentation/websocket"
	"github.com/sangkips/canteen-kiosk/pkg/logger"
	"github.com/sangkips/canteen-kiosk/pkg/printer"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.App.Env, cfg.App.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
		zlog.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewDB(&cfg.Database, cfg.App.Debug, zlog)
	if err != nil {
		return err
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db, zlog); err != nil {
		return err
	}

	// Seed default data
	if err := database.SeedDefaultData(db, &cfg.Seed, zlog); err != nil {
		zlog.Warn("failed to seed default data", zap.Error(err))
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours, cfg.JWT.Issuer)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Printer link and orchestration
	transport, err := printer.NewTransportFromConfig(cfg.Printer.Mode, printer.LinkConfig{
		PrintTimeout: cfg.Printer.PrintTimeout,
		PingTimeout:  cfg.Printer.PingTimeout,
		LogoPath:     cfg.Printer.LogoPath,
		DisableLogo:  cfg.Printer.DisableLogo,
	}, zlog)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(zlog.Named("events"))

	printService := service.NewPrintService(transport, orderRepo, hub, service.PrintConfig{
		CharWidth:      cfg.Printer.CharWidth,
		MaxAttempts:    cfg.Printer.MaxAttempts,
		RetryDelay:     cfg.Printer.RetryDelay,
		PingAttempts:   1,
		SameProductGap: cfg.Printer.SameProductGap,
		ProductGap:     cfg.Printer.ProductGap,
		BillGap:        cfg.Printer.BillGap,
		Location:       service.LoadLocation(cfg.Printer.Timezone),
	}, zlog.Named("print"))

	dispatcher := service.NewPrintDispatcher(printService, cfg.Printer.Workers, cfg.Printer.QueueSize, zlog.Named("dispatcher"))

	var gateway payment.Gateway
	if cfg.Razorpay.Enabled() {
		gateway = payment.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, zlog.Named("razorpay"))
	} else {
		zlog.Warn("razorpay credentials missing; UPI payments are disabled")
	}

	// Initialize services
	orderService := service.NewOrderService(orderRepo, productRepo, unitRepo, printService, dispatcher, gateway, cfg.Razorpay.Currency, zlog.Named("orders"))
	billService := service.NewBillService(orderRepo, zlog.Named("bills"))

	// Initialize handlers
	handlers := &routes.Handlers{
		Order:   handler.NewOrderHandler(orderService),
		Bill:    handler.NewBillHandler(billService),
		Printer: handler.NewPrinterHandler(orderService, hub, cfg.Printer.DiscoveryTimeout, zlog.Named("discovery")),
	}

	rateLimiter := middleware.NewUserRateLimiter(middleware.RateLimiterConfigFrom(cfg.RateLimit.Requests, cfg.RateLimit.Duration))

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		UnitRepo:        unitRepo,
		RateLimiter:     rateLimiter,
		Logger:          zlog,
	})

	// Get port from environment or use default
	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zlog.Info("starting server",
			zap.String("name", cfg.App.Name),
			zap.String("env", cfg.App.Env),
			zap.String("port", port),
			zap.String("printer_mode", cfg.Printer.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		zlog.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		return rateLimiter.Run(gctx)
	})

	g.Go(func() error {
		return middleware.PurgeExpiredKeys(gctx, idempotencyRepo, time.Hour, zlog)
	})

	return g.Wait()
}
