package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"bahari-bites/internal/config"
	"bahari-bites/internal/handlers"
	"bahari-bites/internal/kafka"
	"bahari-bites/internal/logger"
	"bahari-bites/internal/middleware"
	"bahari-bites/internal/models"
	"bahari-bites/internal/mpesa"
	"bahari-bites/internal/notify"
	rediswrap "bahari-bites/internal/redis"
	"bahari-bites/internal/services"
	"bahari-bites/internal/storage"
)

// Global logger instance
var log *logger.Logger

func main() {
	log = logger.NewLogger()
	defer log.Close()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn("ENV", "Error loading .env file, using environment variables")
	}

	log.LogProcess("STARTUP", "Bahari Bites backend starting up...")
	log.Info("SYSTEM", "Initializing components...")

	// Load configuration
	cfg := config.Load()
	log.Info("CONFIG", "Configuration loaded successfully")

	log.LogProcess("DATABASE", "Initializing MySQL database...")
	store, err := storage.NewMySQLStore(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", "Failed to initialize MySQL: "+err.Error())
	}
	defer store.Close()
	log.LogDatabase("INIT", "mysql", "MySQL storage initialized successfully")

	// Initialize Kafka
	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MockMode, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer kafkaProducer.Close()
	log.LogKafka("INIT", "producer", "Kafka producer initialized successfully")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	locks := rediswrap.NewRedis(redisClient)
	log.LogProcess("SERVICE", "Redis connection configured")

	// Gateway client and notification sink
	gateway := mpesa.NewClient(cfg.Mpesa, log)
	log.LogProcess("MPESA", "M-Pesa gateway client initialized for "+cfg.Mpesa.BaseURL)

	notifier := notify.NewSink(cfg.SMS, cfg.Mail, log)

	// Initialize services
	paymentOrchestrator := services.NewPaymentOrchestrator(store, gateway, notifier, kafkaProducer, locks, log)
	orderService := services.NewOrderService(store, paymentOrchestrator, locks, log)
	reservationService := services.NewReservationService(store, paymentOrchestrator, log)
	accountService := services.NewAccountService(store, cfg.JWT, log)
	menuService := services.NewMenuService(store, log)
	log.LogProcess("SERVICE", "All services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accountService)
	menuHandler := handlers.NewMenuHandler(menuService)
	orderHandler := handlers.NewOrderHandler(orderService)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	paymentHandler := handlers.NewPaymentHandler(paymentOrchestrator, store)
	log.LogProcess("HANDLER", "All handlers initialized")

	// Start the payment event consumer that feeds the kitchen display and
	// analytics, unless Kafka runs in mock mode.
	if !cfg.Kafka.MockMode {
		kafkaConsumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			log.Fatal("KAFKA", "Failed to create Kafka consumer: "+err.Error())
		}
		defer kafkaConsumer.Close()
		log.LogKafka("INIT", "consumer", "Kafka consumer initialized successfully")

		go func() {
			log.LogKafka("START", "consumer", "Starting Kafka consumer goroutine")
			if err := kafkaConsumer.ConsumePaymentEvents(context.Background(), func(event *models.PaymentEvent) error {
				if event.Type == "payment.success" && event.Transaction != nil && event.Transaction.OrderID != 0 {
					log.LogKafka("KITCHEN", "payment-success",
						fmt.Sprintf("Order %d paid, dispatching kitchen ticket", event.Transaction.OrderID))
				}
				return nil
			}); err != nil {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	// Setup router
	router := setupRouter(store, authHandler, menuHandler, orderHandler, reservationHandler, paymentHandler, accountService)
	log.LogProcess("ROUTER", "HTTP router configured")

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on "+cfg.Server.Port)
		log.Info("STARTUP", "🚀 Bahari Bites is ready to accept requests!")
		log.Info("STARTUP", "📊 Health check available at: http://localhost"+cfg.Server.Port+"/health")
		log.Info("STARTUP", "🍽️ API available at: http://localhost"+cfg.Server.Port+"/api/v1")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("SHUTDOWN", "Server forced to shutdown: "+err.Error())
	}

	log.Info("SHUTDOWN", "✅ Bahari Bites shutdown completed successfully")
}

func setupRouter(
	store *storage.MySQLStore,
	authHandler *handlers.AuthHandler,
	menuHandler *handlers.MenuHandler,
	orderHandler *handlers.OrderHandler,
	reservationHandler *handlers.ReservationHandler,
	paymentHandler *handlers.PaymentHandler,
	accountService *services.AccountService,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(log))
	router.Use(middleware.SecurityHeaders(log))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := store.HealthCheck(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   "bahari-bites",
			"version":   "1.0.0",
		})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Public menu browsing
		menu := v1.Group("/menu")
		{
			menu.GET("", menuHandler.List)
			menu.GET("/:id", menuHandler.Get)
		}

		// The provider posts callbacks unauthenticated; the reference travels
		// in the query string.
		v1.POST("/payments/callback", paymentHandler.Callback)

		authed := v1.Group("")
		authed.Use(middleware.AuthRequired(accountService, log))
		{
			cart := authed.Group("/cart")
			{
				cart.GET("", orderHandler.ViewCart)
				cart.POST("/items", orderHandler.AddToCart)
				cart.DELETE("/items/:item_id", orderHandler.RemoveFromCart)
			}

			orders := authed.Group("/orders")
			{
				orders.POST("/checkout", orderHandler.Checkout)
				orders.GET("", orderHandler.List)
				orders.GET("/:id", orderHandler.Get)
			}

			reservations := authed.Group("/reservations")
			{
				reservations.POST("", reservationHandler.Book)
				reservations.GET("/:id", reservationHandler.Get)
				reservations.GET("/:id/qr", reservationHandler.QR)
			}

			staff := authed.Group("")
			staff.Use(middleware.StaffOnly(log))
			{
				staff.POST("/menu", menuHandler.Create)
				staff.PUT("/menu/:id", menuHandler.Update)
				staff.GET("/payments/:checkout_request_id", paymentHandler.GetTransaction)
				staff.POST("/payments/reverse", paymentHandler.Reverse)
			}
		}
	}

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
