package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rishabhdev/roomio/config"
	"github.com/rishabhdev/roomio/internal/availability"
	"github.com/rishabhdev/roomio/internal/booking"
	"github.com/rishabhdev/roomio/internal/cancellation"
	"github.com/rishabhdev/roomio/internal/coupons"
	"github.com/rishabhdev/roomio/internal/gateway"
	"github.com/rishabhdev/roomio/internal/handlers"
	"github.com/rishabhdev/roomio/internal/middleware"
	"github.com/rishabhdev/roomio/internal/models"
	"github.com/rishabhdev/roomio/internal/notifications"
	"github.com/rishabhdev/roomio/internal/payments"
	"github.com/rishabhdev/roomio/internal/pricing"
	"github.com/rishabhdev/roomio/internal/schedule"
	"github.com/rishabhdev/roomio/internal/wallet"
	"github.com/sirupsen/logrus"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	gatewayCfg, err := config.LoadGatewayConfig()
	if err != nil {
		return fmt.Errorf("failed to load gateway config: %v", err)
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %v", err)
	}
	kafkaCfg, err := config.LoadKafkaConfig()
	if err != nil {
		return fmt.Errorf("failed to load kafka config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	logger := logrus.New()
	if os.Getenv("ENV") == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	gatewayClient := gateway.NewHTTPClient(gatewayCfg.BaseURL, gatewayCfg.ClientID, gatewayCfg.SecretKey)

	ledger := wallet.NewLedger(db, logger)
	outbox := notifications.NewQueue(db)
	calculator := pricing.NewCalculator(pricing.Settings{
		TaxPercent:  settings.TaxPercent,
		PlatformFee: settings.PlatformFee,
	})
	checker := availability.NewChecker(db)
	couponValidator := coupons.NewValidator(db)

	bookingSvc := booking.NewService(db, calculator, checker, couponValidator, outbox, cfg.JWTSecret, logger)
	paymentSvc := payments.NewService(db, gatewayClient, ledger, outbox, payments.Config{
		OrderTTL:        gatewayCfg.OrderTTL,
		Currency:        gatewayCfg.Currency,
		SignatureSecret: gatewayCfg.SignatureSecret,
	}, logger)
	resolver := cancellation.NewResolver(db, gatewayClient, ledger, outbox, cancellation.Settings{
		CancellationFeePercent: settings.CancellationFeePercent,
		NoShowFeePercent:       settings.NoShowFeePercent,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer, err := notifications.NewKafkaProducer(kafkaCfg.Brokers, kafkaCfg.Topic)
	if err != nil {
		logger.WithError(err).Warn("kafka unavailable, notification delivery disabled")
	} else {
		worker := &notifications.Worker{
			Store:       notifications.NewGormStore(db),
			Producer:    producer,
			Logger:      logger,
			Interval:    2 * time.Second,
			Backoff:     []time.Duration{5 * time.Second, 30 * time.Second, 2 * time.Minute, 10 * time.Minute},
			MaxAttempts: 5,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("notification worker stopped")
			}
		}()
	}

	sweeper := schedule.NewSweeper(db, resolver, logger, uuid.Nil, settings.NoShowBuffer, settings.SweepInterval)
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("no-show sweeper stopped")
		}
	}()

	r := gin.Default()
	r.Use(cors.Default())

	setupRoutes(r, cfg, &routeDeps{
		availability: handlers.NewAvailabilityHandler(db, checker),
		bookings:     handlers.NewBookingHandler(bookingSvc),
		paymentsH:    handlers.NewPaymentHandler(paymentSvc),
		walletH:      handlers.NewWalletHandler(ledger),
		cancellation: handlers.NewCancellationHandler(resolver),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

type routeDeps struct {
	availability *handlers.AvailabilityHandler
	bookings     *handlers.BookingHandler
	paymentsH    *handlers.PaymentHandler
	walletH      *handlers.WalletHandler
	cancellation *handlers.CancellationHandler
}

func setupRoutes(r *gin.Engine, cfg *config.Config, deps *routeDeps) {
	public := r.Group("/v1")
	{
		public.GET("/rooms/:roomId/availability", deps.availability.CheckAvailability)

		// Gateway callback authenticates with its own signature.
		public.POST("/payments/verify", deps.paymentsH.VerifyPayment)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		protected.POST("/bookings/quote", deps.bookings.ComputePrice)

		bookings := protected.Group("/bookings")
		{
			bookings.POST("", deps.bookings.CreateBooking)
			bookings.GET("", deps.bookings.ListMyBookings)
			bookings.GET("/:id", deps.bookings.GetBooking)
			bookings.GET("/:id/qr", deps.bookings.CheckInQR)
			bookings.POST("/:id/cancel", deps.cancellation.CancelBooking)
		}

		operator := protected.Group("")
		operator.Use(middleware.RequireRole(models.RoleHotel, models.RoleAdmin))
		{
			operator.POST("/bookings/check-in", deps.bookings.CheckIn)
			operator.POST("/bookings/:id/complete", deps.bookings.Complete)
		}

		paymentsGroup := protected.Group("/payments")
		{
			paymentsGroup.POST("/orders", deps.paymentsH.CreateOrder)
		}

		walletGroup := protected.Group("/wallet")
		{
			walletGroup.GET("", deps.walletH.GetBalance)
			walletGroup.GET("/transactions", deps.walletH.ListTransactions)
		}

		admin := protected.Group("")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/refunds/:id/process", deps.cancellation.ProcessRefund)
		}
	}
}
