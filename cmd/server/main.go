package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/cache"
	"github.com/venuebooking/booking-backend/internal/config"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/handlers"
	"github.com/venuebooking/booking-backend/internal/middleware"
	"github.com/venuebooking/booking-backend/internal/services"
	"github.com/venuebooking/booking-backend/pkg/jwt"
	"github.com/venuebooking/booking-backend/pkg/mq"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// stores groups the persistence dependencies for the selected driver
type stores struct {
	bookings services.BookingStore
	payments services.PaymentStore
	venues   services.VenueStore
	users    services.UserDirectory
	audit    services.AuditLogger
	health   handlers.Pinger
	close    func() error
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Venue Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer st.close()

	// Webhook delivery cache (optional)
	var dedup services.WebhookDeduplicator
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, webhook delivery cache disabled")
		} else {
			dedup = cache.NewWebhookDeliveryCache(rdb, cfg.Redis.WebhookDedupTTL)
			logger.Info("✓ Webhook delivery cache enabled")
		}
		cancel()
	}

	// Domain event publisher (optional)
	var events services.EventPublisher = mq.NoopPublisher{}
	if cfg.Messaging.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.Messaging.AMQPURL, cfg.Messaging.Exchange)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unreachable, domain events disabled")
		} else {
			defer publisher.Close()
			events = publisher
			logger.Infof("✓ Publishing domain events to exchange %s", cfg.Messaging.Exchange)
		}
	}

	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.APIURL,
		Timeout:   cfg.Razorpay.Timeout,
	}, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	reconciler := services.NewReconciler(st.bookings, st.payments, st.audit, events, logger)
	bookingService := services.NewBookingService(st.bookings, st.venues, st.audit, events, logger)
	overrideService := services.NewBookingOverrideService(st.bookings, st.audit, logger)
	paymentService := services.NewPaymentService(st.bookings, st.payments, reconciler, st.audit, logger)
	orderService := services.NewOrderService(
		st.bookings,
		st.payments,
		st.venues,
		st.users,
		gateway,
		gateway.KeyID(),
		cfg.Razorpay.DefaultCurrency,
		st.audit,
		logger,
	)
	verificationService := services.NewVerificationService(
		st.bookings,
		st.payments,
		gateway,
		reconciler,
		cfg.Razorpay.KeySecret,
		st.audit,
		logger,
	)
	refundService := services.NewRefundService(st.payments, gateway, reconciler, st.audit, logger)
	webhookService := services.NewWebhookService(
		st.payments,
		reconciler,
		dedup,
		cfg.Razorpay.WebhookSecret,
		st.audit,
		logger,
	)

	// Initialize and start cron service
	sweeper := services.NewStalePaymentSweeper(st.payments, cfg.Reconciliation.StalePaymentAfter, st.audit, logger)
	cronService := services.NewCronService(sweeper, time.Minute, logger)
	if err := cronService.Start(cfg.Reconciliation.StaleSweepSchedule); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - stale payment sweep enabled")

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	corsConfig.AllowMethods = cfg.CORS.AllowedMethods
	corsConfig.AllowHeaders = cfg.CORS.AllowedHeaders
	router.Use(cors.New(corsConfig))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	router.GET("/health", handlers.HealthCheck(st.health, version))

	handlers.RegisterRoutes(router, handlers.Handlers{
		Bookings: handlers.NewBookingHandler(bookingService, overrideService, logger),
		Payments: handlers.NewPaymentHandler(paymentService, logger),
		Razorpay: handlers.NewRazorpayHandler(orderService, verificationService, refundService, webhookService, logger),
	}, middleware.AuthMiddleware(jwtService, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

func openStores(cfg *config.Config, logger *logrus.Logger) (*stores, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		mem := database.NewMemoryStore()
		return &stores{
			bookings: mem,
			payments: mem,
			venues:   mem,
			users:    mem,
			audit:    mem,
			close:    func() error { return nil },
		}, nil
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB.DB, logger); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("✓ Database migrations applied")
	}

	return &stores{
		bookings: database.NewBookingRepository(db),
		payments: database.NewPaymentRepository(db),
		venues:   database.NewVenueRepository(db),
		users:    database.NewUserRepository(db),
		audit:    database.NewPaymentAuditRepository(db, logger),
		health:   db,
		close:    db.Close,
	}, nil
}
