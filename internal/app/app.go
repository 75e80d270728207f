package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/amadile/Shopping-site-sub001/internal/config"
	"github.com/amadile/Shopping-site-sub001/internal/event"
	handler "github.com/amadile/Shopping-site-sub001/internal/handler/http"
	"github.com/amadile/Shopping-site-sub001/internal/refund"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	"github.com/amadile/Shopping-site-sub001/internal/repository/memory"
	"github.com/amadile/Shopping-site-sub001/internal/repository/postgres"
	"github.com/amadile/Shopping-site-sub001/internal/scheduler"
	"github.com/amadile/Shopping-site-sub001/internal/service"
	"github.com/amadile/Shopping-site-sub001/migrations"
	"github.com/amadile/Shopping-site-sub001/pkg/auth"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
	"github.com/amadile/Shopping-site-sub001/pkg/health"
	"github.com/amadile/Shopping-site-sub001/pkg/httpclient"
	pkgkafka "github.com/amadile/Shopping-site-sub001/pkg/kafka"
	"github.com/amadile/Shopping-site-sub001/pkg/middleware"
	"github.com/amadile/Shopping-site-sub001/pkg/tracing"
)

const (
	serviceName         = "inventory"
	idempotencyTTL      = 24 * time.Hour
	consumerGroupPrefix = "inventory-service-"
)

// App wires together all dependencies and runs the inventory service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      map[string]*pkgkafka.Consumer
	scheduler      *scheduler.Scheduler
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	store, err := a.openStore(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Redis backs the scheduler locks and event idempotency. The service
	// keeps running without it: jobs then run unlocked and idempotency
	// falls back to process memory. The memory driver is single-instance and
	// skips Redis entirely.
	if cfg.StorageDriver != config.StorageDriverMemory {
		a.connectRedis(ctx, healthHandler)
	}

	publisher := a.openProducer(ctx, healthHandler)
	eventProducer := event.NewProducer(publisher, logger)

	// Build the dependency graph.
	inventoryService := service.NewInventoryService(store, eventProducer, logger, cfg.ReservationTTL(), cfg.SweepBatchSize)
	commissionService := service.NewCommissionService(store, eventProducer, logger)
	cancellationService := service.NewCancellationService(
		store, inventoryService, commissionService, a.refundProvider(), eventProducer, logger, cfg.CancellationStatsWindow(),
	)
	settlementService := service.NewSettlementService(store, inventoryService, commissionService, logger)

	if cfg.KafkaEnabled {
		a.buildConsumers(event.NewConsumer(settlementService, cancellationService, logger))
	}

	var locker gocron.Locker
	if a.redis != nil {
		locker = scheduler.NewRedisLocker(a.redis, "inventory:jobs", cfg.SweepInterval())
	}
	sched, err := scheduler.New(inventoryService, scheduler.Config{
		SweepInterval:   cfg.SweepInterval(),
		RetentionPeriod: cfg.ReservationRetention(),
	}, locker, logger)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	a.scheduler = sched

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment
	router := handler.NewRouter(handler.Services{
		Inventory:    inventoryService,
		Cancellation: cancellationService,
		Settlement:   settlementService,
		Commissions:  commissionService,
	}, healthHandler, auth.NewHS256Validator(cfg.JWTSecret).Validate, cors, logger, cfg.PprofAllowedCIDRs)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStore connects the configured storage driver.
func (a *App) openStore(ctx context.Context, healthHandler *health.Handler) (repository.Store, error) {
	cfg := a.cfg
	if cfg.StorageDriver == config.StorageDriverMemory {
		a.logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
		DSN:                cfg.PostgresDSN(),
		MaxConns:           cfg.DBMaxConns,
		MinConns:           cfg.DBMinConns,
		MaxConnLifetime:    time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime:    time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
		SlowQueryThreshold: time.Duration(cfg.SlowQueryThresholdMs) * time.Millisecond,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(pool, serviceName); err != nil {
		a.logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	a.pool = pool
	return postgres.NewStore(pool), nil
}

func (a *App) connectRedis(ctx context.Context, healthHandler *health.Handler) {
	client, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     net.JoinHostPort(a.cfg.RedisHost, strconv.Itoa(a.cfg.RedisPort)),
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if err != nil {
		a.logger.Warn("redis unavailable, job locks and event idempotency are process-local",
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.Info("connected to Redis", slog.String("host", a.cfg.RedisHost), slog.Int("port", a.cfg.RedisPort))
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	a.redis = client
}

// openProducer returns the Kafka producer, or a logging publisher when Kafka
// is disabled.
func (a *App) openProducer(ctx context.Context, healthHandler *health.Handler) pkgkafka.Publisher {
	if !a.cfg.KafkaEnabled {
		a.logger.Warn("kafka disabled, domain events are logged and dropped")
		return event.LogPublisher{Logger: a.logger}
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	if err := pingKafkaWithRetry(ctx, producer, a.logger); err != nil {
		a.logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))
	}
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	a.producer = producer
	return producer
}

func (a *App) refundProvider() refund.Provider {
	if a.cfg.RefundProvider != config.RefundProviderHTTP {
		return refund.NewStubProvider(a.logger)
	}

	clientCfg := httpclient.DefaultConfig("payment-refunds")
	clientCfg.Breaker.Timeout = time.Duration(a.cfg.RefundBreakerTimeoutSec) * time.Second
	clientCfg.Breaker.FailureRatio = a.cfg.RefundBreakerRatio
	clientCfg.Breaker.MinRequests = a.cfg.RefundBreakerMinReqs
	return refund.NewHTTPProvider(httpclient.New(clientCfg, a.logger), a.cfg.PaymentServiceURL, a.logger)
}

// buildConsumers subscribes the event handlers, each wrapped with the
// idempotency store and routed to the DLQ after retries.
func (a *App) buildConsumers(consumer *event.Consumer) {
	var store pkgkafka.IdempotencyStore
	if a.redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.redis, "inventory:events", idempotencyTTL)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	}

	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)
	handlers := map[string]pkgkafka.Handler{
		event.TopicPaymentSucceeded:     consumer.HandlePaymentSucceeded,
		event.TopicOrderCancelRequested: consumer.HandleOrderCancelRequested,
	}

	a.consumers = make(map[string]*pkgkafka.Consumer, len(handlers))
	for topic, h := range handlers {
		a.consumers[topic] = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  a.cfg.KafkaBrokers,
			GroupID:  consumerGroupPrefix + topic,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, pkgkafka.IdempotentHandler(store, h, a.logger), a.logger).WithDLQ(a.dlq)
	}
}

// Run starts the HTTP server, Kafka consumers and the scheduler, then blocks
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Start Kafka consumers.
	for topic, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s consumer: %w", topic, err)
			}
		}()
	}

	// Start the reservation jobs.
	a.scheduler.Start()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Scheduler (cancel and wait for running jobs)
// 3. Tracer (flush pending spans)
// 4. Kafka consumers, DLQ and producer
// 5. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Stop background jobs so no sweep runs against closed resources.
	if err := a.scheduler.Shutdown(); err != nil {
		a.logger.Error("scheduler shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 3. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4 and 5.
	errs = append(errs, a.closeResources()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() []error {
	var errs []error
	for topic, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("consumer close error", slog.String("topic", topic), slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := producer.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
