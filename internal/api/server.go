package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/tarpmill/erp-api/internal/clients"
	"github.com/tarpmill/erp-api/internal/config"
	"github.com/tarpmill/erp-api/internal/database"
	"github.com/tarpmill/erp-api/internal/handlers"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/outbox"
	"github.com/tarpmill/erp-api/internal/repository"
	"github.com/tarpmill/erp-api/internal/service"
	"github.com/tarpmill/erp-api/pkg/kafka"
	"github.com/tarpmill/erp-api/pkg/logger"
	"github.com/tarpmill/erp-api/pkg/middleware"
	"github.com/tarpmill/erp-api/pkg/retry"
)

// Server wires the repositories, services, processors and HTTP routes
type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *mux.Router
	httpServer *http.Server
	db         *database.Database

	customerRepo   *repository.CustomerRepository
	productRepo    *repository.ProductRepository
	materialRepo   *repository.RawMaterialRepository
	orderRepo      *repository.OrderRepository
	dispatchRepo   *repository.DispatchRepository
	productionRepo *repository.ProductionRepository
	outboxRepo     *repository.OutboxRepository
	dlqRepo        *repository.DeadLetterRepository
	reportRepo     *repository.ReportRepository

	orderService      *service.OrderService
	dispatchService   *service.DispatchService
	inventoryService  *service.InventoryService
	productionService *service.ProductionService

	carrierClient       *clients.CarrierClient
	outboxProcessor     *outbox.Processor
	deadLetterProcessor *outbox.DeadLetterProcessor
	kafkaProducer       *kafka.Producer
	kafkaConsumer       *kafka.Consumer
	kafkaHandler        *outbox.KafkaHandler
	inventoryEvents     *handlers.InventoryEventsHandler
	rateLimiter         *middleware.RateLimiterMiddleware
}

// NewServer creates a new API server with the given configuration and logger
func NewServer(cfg *config.Config, log logger.Logger) *Server {
	r := mux.NewRouter()

	db, err := database.New(cfg, log)

	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		panic(err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		panic(err)
	}

	customerRepo := repository.NewCustomerRepository(db, log)
	productRepo := repository.NewProductRepository(db, log)
	materialRepo := repository.NewRawMaterialRepository(db, log)
	orderRepo := repository.NewOrderRepository(db, log)
	dispatchRepo := repository.NewDispatchRepository(db, log)
	productionRepo := repository.NewProductionRepository(db, log)
	outboxRepo := repository.NewOutboxRepository(db, log)
	dlqRepo := repository.NewDeadLetterRepository(db, log)
	reportRepo := repository.NewReportRepository(db, log)

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, log)

	if err != nil {
		log.Error("Failed to create Kafka producer", "error", err)
		panic(err)
	}

	carrierClient := clients.NewCarrierClient(cfg.Carrier.BaseURL, log)

	inventoryService := service.NewInventoryService(productRepo, materialRepo, outboxRepo, log)
	orderService := service.NewOrderService(orderRepo, customerRepo, productRepo, dispatchRepo, outboxRepo, log)
	dispatchService := service.NewDispatchService(dispatchRepo, orderRepo, productRepo, outboxRepo, carrierClient, log)
	productionService := service.NewProductionService(productionRepo, productRepo, materialRepo, orderRepo, inventoryService, log)

	outboxProcessor := outbox.NewProcessor(outboxRepo, dlqRepo, outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, log)

	deadLetterProcessor := outbox.NewDeadLetterProcessor(dlqRepo, log, &outbox.DeadLetterProcessorConfig{
		PollingInterval: 30 * time.Second,
		BatchSize:       5,
		MaxRetries:      5,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 1 * time.Second,
			MaxInterval:     2 * time.Minute,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	})

	// Domain events go to the events topic, stock alerts to the inventory
	// topic consumed below
	kafkaHandler := outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.EventsTopic, log)
	inventoryKafkaHandler := outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.InventoryTopic, log)

	for _, eventType := range []string{
		models.EventOrderCreated,
		models.EventOrderStatusChanged,
		models.EventDispatchCreated,
		models.EventDispatchStatusChanged,
	} {
		outboxProcessor.RegisterHandler(eventType, kafkaHandler)
		deadLetterProcessor.RegisterHandler(eventType, kafkaHandler)
	}

	for _, eventType := range []string{
		models.EventStockDrift,
		models.EventLowStock,
	} {
		outboxProcessor.RegisterHandler(eventType, inventoryKafkaHandler)
		deadLetterProcessor.RegisterHandler(eventType, inventoryKafkaHandler)
	}

	kafkaConsumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.InventoryTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, log)

	if err != nil {
		log.Error("Failed to create Kafka consumer", "error", err)
		panic(err)
	}

	inventoryEvents := handlers.NewInventoryEventsHandler(log)
	kafkaConsumer.RegisterHandler(cfg.Kafka.InventoryTopic, inventoryEvents)

	rateLimiter := middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
		GlobalMaxTokens:   cfg.Limits.GlobalMaxTokens,
		GlobalRefillRate:  cfg.Limits.GlobalRefillRate,
		IPMaxTokens:       cfg.Limits.IPMaxTokens,
		IPRefillRate:      cfg.Limits.IPRefillRate,
		TrustForwardedFor: true,
	}, log)

	server := &Server{
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:              log,
		config:              cfg,
		db:                  db,
		customerRepo:        customerRepo,
		productRepo:         productRepo,
		materialRepo:        materialRepo,
		orderRepo:           orderRepo,
		dispatchRepo:        dispatchRepo,
		productionRepo:      productionRepo,
		outboxRepo:          outboxRepo,
		dlqRepo:             dlqRepo,
		reportRepo:          reportRepo,
		orderService:        orderService,
		dispatchService:     dispatchService,
		inventoryService:    inventoryService,
		productionService:   productionService,
		carrierClient:       carrierClient,
		outboxProcessor:     outboxProcessor,
		deadLetterProcessor: deadLetterProcessor,
		kafkaProducer:       kafkaProducer,
		kafkaConsumer:       kafkaConsumer,
		kafkaHandler:        kafkaHandler,
		inventoryEvents:     inventoryEvents,
		rateLimiter:         rateLimiter,
	}

	server.setupRoutes()

	outboxProcessor.Start()
	deadLetterProcessor.Start()

	if err := kafkaConsumer.Start(); err != nil {
		log.Error("Failed to start Kafka consumer", "error", err)
		// Non-fatal, continue without the consumer
	}

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its background workers
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()
	s.deadLetterProcessor.Stop()
	s.rateLimiter.Stop()

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for the API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	// Customers
	api.HandleFunc("/customers", s.getCustomersHandler).Methods(http.MethodGet)
	api.HandleFunc("/customers", s.createCustomerHandler).Methods(http.MethodPost)
	api.HandleFunc("/customers/{id}", s.getCustomerHandler).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}", s.updateCustomerHandler).Methods(http.MethodPut)
	api.HandleFunc("/customers/{id}", s.deleteCustomerHandler).Methods(http.MethodDelete)

	// Orders
	api.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/book", s.getOrderBookHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.getOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.deleteOrderHandler).Methods(http.MethodDelete)
	api.HandleFunc("/orders/{id}/status", s.updateOrderStatusHandler).Methods(http.MethodPatch)

	// Dispatches
	api.HandleFunc("/dispatches", s.getDispatchesHandler).Methods(http.MethodGet)
	api.HandleFunc("/dispatches/today", s.getTodayDispatchesHandler).Methods(http.MethodGet)
	api.HandleFunc("/dispatches/{id}", s.getDispatchHandler).Methods(http.MethodGet)
	api.HandleFunc("/dispatches/{id}/status", s.updateDispatchStatusHandler).Methods(http.MethodPatch)
	api.HandleFunc("/dispatches/{id}/sync", s.syncDispatchHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/dispatch", s.createDispatchHandler).Methods(http.MethodPost)

	// Inventory
	api.HandleFunc("/products", s.getProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products", s.addProductHandler).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", s.getProductHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.updateProductHandler).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}/stock", s.adjustProductStockHandler).Methods(http.MethodPatch)
	api.HandleFunc("/raw-materials", s.getRawMaterialsHandler).Methods(http.MethodGet)
	api.HandleFunc("/raw-materials", s.addRawMaterialHandler).Methods(http.MethodPost)
	api.HandleFunc("/raw-materials/{id}", s.getRawMaterialHandler).Methods(http.MethodGet)
	api.HandleFunc("/raw-materials/{id}", s.updateRawMaterialHandler).Methods(http.MethodPut)
	api.HandleFunc("/raw-materials/{id}/stock", s.adjustMaterialStockHandler).Methods(http.MethodPatch)

	// Production
	api.HandleFunc("/production", s.getProductionScheduleHandler).Methods(http.MethodGet)
	api.HandleFunc("/production", s.createBatchHandler).Methods(http.MethodPost)
	api.HandleFunc("/production/{id}", s.getBatchHandler).Methods(http.MethodGet)
	api.HandleFunc("/production/{id}/status", s.updateBatchStatusHandler).Methods(http.MethodPatch)

	// Reports
	api.HandleFunc("/reports/dashboard", s.getDashboardHandler).Methods(http.MethodGet)
	api.HandleFunc("/reports/sales", s.getSalesReportHandler).Methods(http.MethodGet)
	api.HandleFunc("/reports/inventory", s.getInventoryReportHandler).Methods(http.MethodGet)

	// Admin API for monitoring and management
	admin := s.router.PathPrefix("/api/v1/admin").Subrouter()
	admin.HandleFunc("/dead-letters", s.getDeadLettersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/dead-letters/{id}/retry", s.retryDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/dead-letters/{id}/discard", s.discardDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/circuit-breakers", s.getCircuitBreakersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/rate-limits", s.getRateLimitsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/inventory-alerts", s.getInventoryAlertsHandler).Methods(http.MethodGet)
}

// loggingMiddleware logs every request after it is served
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
