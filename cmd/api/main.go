package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/careloop/appointment-engine/internal/adapters/cache"
	"github.com/careloop/appointment-engine/internal/adapters/database"
	"github.com/careloop/appointment-engine/internal/adapters/events"
	"github.com/careloop/appointment-engine/internal/adapters/providers/session"
	"github.com/careloop/appointment-engine/internal/api/handlers"
	"github.com/careloop/appointment-engine/internal/api/routes"
	"github.com/careloop/appointment-engine/internal/application/services"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	"github.com/careloop/appointment-engine/internal/infrastructure/clients/postgres"
	"github.com/careloop/appointment-engine/internal/infrastructure/clients/redis"
	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
	"github.com/careloop/appointment-engine/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("ENV"))

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			if err := otelruntime.Start(otelruntime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
				log.Printf("Warning: Failed to start runtime instrumentation: %v", err)
			}
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - caching and cross-instance events degrade gracefully
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize event bus for cross-instance calendar updates
	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	// Initialize adapters
	baseAvailabilityAdapter := database.NewAvailabilityAdapter(pgClient)

	var availabilityAdapter repositories.AvailabilityRepository
	if cacheProvider != nil {
		availabilityAdapter = database.NewCachedAvailabilityAdapter(baseAvailabilityAdapter, cacheProvider)
		log.Println("Availability adapter wrapped with caching layer")
	} else {
		availabilityAdapter = baseAvailabilityAdapter
		log.Println("Availability adapter running without cache (Redis unavailable)")
	}

	appointmentAdapter := database.NewAppointmentAdapter(pgClient)

	// Token verifier for the external session layer
	var verifier providers.TokenVerifier
	switch cfg.Session.Verifier {
	case "remote":
		verifier = session.NewRemoteVerifier(cfg.Session.Endpoint, cfg.Session.Timeout)
	default:
		log.Println("Warning: using mock token verifier; set SESSION_VERIFIER=remote in production")
		verifier = session.NewMockVerifier()
	}

	// Initialize services
	generator := services.NewSlotGenerator(services.WorkingHours{
		OpenHour:    cfg.Booking.OpenHour,
		CloseHour:   cfg.Booking.CloseHour,
		Granularity: cfg.Booking.Granularity,
	})

	availabilityService := services.NewAvailabilityService(availabilityAdapter, generator, cfg.Booking.DefaultTZ)

	cartService := services.NewCartService(availabilityAdapter, cfg.Booking.CartIdleTTL)
	cartService.StartJanitor(ctx, 5*time.Minute)

	bookingService := services.NewBookingService(appointmentAdapter, availabilityAdapter, cartService, cfg.Booking.SlotPrices)
	bookingService.SetMetrics(metrics)

	rescheduleService := services.NewRescheduleService(appointmentAdapter, availabilityAdapter)
	rescheduleService.SetMetrics(metrics)

	cancellationService := services.NewCancellationService(appointmentAdapter, availabilityAdapter, cfg.Booking.CancelCutoff)
	cancellationService.SetMetrics(metrics)

	queryService := services.NewScheduleQueryService(availabilityAdapter, appointmentAdapter)

	notificationService := services.NewNotificationService(sqlx.NewDb(pgClient.DB(), "postgres"))
	bookingService.SetNotificationService(notificationService)
	rescheduleService.SetNotificationService(notificationService)
	cancellationService.SetNotificationService(notificationService)

	if eventBus != nil {
		availabilityService.SetEventBus(eventBus)
		bookingService.SetEventBus(eventBus)
		rescheduleService.SetEventBus(eventBus)
		cancellationService.SetEventBus(eventBus)
		log.Println("Event bus configured for calendar services")
	}

	// Initialize cache invalidation service
	var cacheInvalidationService *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Printf("Warning: Failed to start cache invalidation service: %v", err)
		} else {
			log.Println("Cache invalidation service started successfully")
		}
	}

	// Materialize completed appointments on a schedule
	var sweeper *services.CompletionSweeper
	if cfg.Sweep.Enabled {
		sweeper = services.NewCompletionSweeper(appointmentAdapter, cfg.Sweep.CronSpec)
		if err := sweeper.Start(); err != nil {
			log.Printf("Warning: Failed to start completion sweeper: %v", err)
			sweeper = nil
		} else {
			log.Println("Completion sweeper started successfully")
		}
	}

	// Initialize handlers
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService, queryService)
	appointmentHandler := handlers.NewAppointmentHandler(bookingService, rescheduleService, cancellationService, queryService)
	cartHandler := handlers.NewCartHandler(cartService, bookingService)

	// Set up router
	router := routes.NewRouter(
		availabilityHandler,
		appointmentHandler,
		cartHandler,
		verifier,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}

	log.Println("Server stopped")
}
