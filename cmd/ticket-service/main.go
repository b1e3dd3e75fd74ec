package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"event-ticketing/internal/analytics"
	analytics_api "event-ticketing/internal/analytics/api"
	"event-ticketing/internal/clock"
	"event-ticketing/internal/config"
	"event-ticketing/internal/database"
	eventsdb "event-ticketing/internal/events/db"
	"event-ticketing/internal/events/event_api"
	events "event-ticketing/internal/events/service"
	"event-ticketing/internal/kafka"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/models"
	"event-ticketing/internal/sse"
	"event-ticketing/internal/stock"
	"event-ticketing/internal/tickets/codegen"
	ticketsdb "event-ticketing/internal/tickets/db"
	"event-ticketing/internal/tickets/qr"
	tickets "event-ticketing/internal/tickets/service"
	"event-ticketing/internal/tickets/ticket_api"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type serviceMetrics interface {
	tickets.Metrics
	events.Metrics
	requestObserver
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, cfg.Log.Service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting Ticket Service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := database.Prepare(ctx, bunDB, cfg.Database.Driver, log); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Schema preparation failed: %v", err))
	}

	eventDB := &eventsdb.DB{Bun: bunDB}
	ticketDB := &ticketsdb.DB{Bun: bunDB}
	clk := clock.NewSystem()

	var m serviceMetrics = metrics.Noop{}
	var metricsHandler http.Handler
	if cfg.Server.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		metricsHandler = promhttp.Handler()
		log.Info("METRICS", "Prometheus metrics exposed at /metrics")
	}

	var cache analytics.InsightsCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis at %s unreachable, insights are served uncached: %v", cfg.Redis.Addr, err))
			redisClient.Close()
		} else {
			defer redisClient.Close()
			cache = analytics.NewRedisCache(redisClient, cfg.Redis.InsightTTL)
			log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))
		}
	}
	insights := analytics.NewService(eventDB, ticketDB, cache, log)

	var publisher tickets.Publisher = kafka.PublisherFunc(func(ctx context.Context, e models.TicketEventDto) error {
		insights.HandleTicketEvent(ctx, e)
		return nil
	})
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.Tickets, cfg.Kafka.Topics.Events}
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, topics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		publisher = producer

		// one group across instances; each message invalidates the shared Redis entry once
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Tickets, cfg.Log.Service+"-insights", log)
		defer consumer.Close()
		go consumer.Start(ctx, insights.HandleTicketEvent)
		log.Info("KAFKA", "Kafka producer and insights consumer initialized")
	}

	emitter := sse.NewTicketEventEmitter()
	downstream := publisher
	publisher = kafka.PublisherFunc(func(ctx context.Context, e models.TicketEventDto) error {
		emitter.Emit(e)
		return downstream.Publish(ctx, e)
	})

	codes, err := codegen.NewGenerator(codegen.Options{
		Prefix:      cfg.Tickets.CodePrefix,
		Digits:      cfg.Tickets.CodeDigits,
		MaxAttempts: cfg.Tickets.MaxCodeAttempts,
	})
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Invalid ticket code settings: %v", err))
	}

	secret := cfg.Tickets.QRSecretKey
	if secret == "" {
		log.Warn("CONFIG", "QR_SECRET_KEY not set, QR tokens will not survive a restart")
		secret = uuid.NewString()
	}

	ledger := stock.NewLedger(eventDB, ticketDB, clk, log)
	ticketService := tickets.NewTicketService(ticketDB, eventDB, ledger, codes, publisher, m, qr.NewQRGenerator(secret), clk, log)
	eventService := events.NewEventService(eventDB, ticketDB, ledger, publisher, m, clk, log)

	var reset func(ctx context.Context) error
	if cfg.Server.AllowDatabaseReset {
		log.Warn("CONFIG", "Database reset endpoint is enabled")
		reset = eventService.ResetDatabase
	}

	r := newRouter(routerDeps{
		Events:         event_api.NewHandler(eventService, ticketService, log),
		Tickets:        ticket_api.NewHandler(ticketService, log),
		Insights:       analytics_api.NewHandler(insights, log),
		Stream:         sse.NewHandler(emitter, eventDB, log),
		Ping:           eventService.Ping,
		Reset:          reset,
		Observer:       m,
		MetricsHandler: metricsHandler,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Ticket Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Ticket Service shutdown complete")
	}
}
