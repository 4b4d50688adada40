package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	appcart "github.com/storefront/backend/internal/application/cart"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	appevent "github.com/storefront/backend/internal/application/event"
	appinv "github.com/storefront/backend/internal/application/inventory"
	apployalty "github.com/storefront/backend/internal/application/loyalty"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const reconcileBatchSize = 100

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = tel.Logs.Bridge(log, cfg.Telemetry.ServiceName, zapcore.InfoLevel)

	log.Info("Starting storefront",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(log, cfg.Log.Level, cfg.Database.SlowQuery))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:          cfg.Database.DBName,
		SlowQueryThresh: cfg.Database.SlowQuery,
	}, log); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}
	if tel.Meter.IsEnabled() {
		if sqlDB, err := db.DB.DB(); err == nil {
			if _, err := telemetry.RegisterPoolMetrics(tel.Meter.Meter("storefront/db"), sqlDB); err != nil {
				log.Warn("Connection pool metrics unavailable", zap.Error(err))
			}
		}
	}
	log.Info("Database connected successfully")

	// Events: repositories write to the outbox inside their transactions, the
	// processor moves entries onto the in-process bus.
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithMaxRetries(cfg.Event.MaxRetries))
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	bus := event.NewInMemoryEventBus(log, event.WithAsyncTimeout(cfg.Event.PublishTimeout))

	// Repositories
	products := persistence.NewGormProductRepository(db.DB)
	carts := persistence.NewGormCartRepository(db.DB)
	coupons := persistence.NewGormCouponRepository(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB, outboxPublisher)
	returns := persistence.NewGormReturnRequestRepository(db.DB, outboxPublisher)
	intents := persistence.NewGormCheckoutIntentRepository(db.DB)
	accounts := persistence.NewGormLoyaltyRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	// One Redis connection backs idempotency keys, token revocation and rate
	// limiting; without it each falls back to process-local state.
	kv, err := cache.Open(ctx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to open key-value backend", zap.Error(err))
	}
	defer func() { _ = kv.Close() }()
	keys := kv.Keys
	redisClient := kv.Client

	var revocations auth.RevocationList = auth.NewInMemoryRevocationList()
	if redisClient != nil {
		revocations = auth.NewRedisRevocationList(redisClient)
	}

	var limiter middleware.Limiter
	if cfg.HTTP.RateLimit > 0 {
		if redisClient != nil {
			limiter = middleware.NewRedisRateLimiter(redisClient, cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
		} else {
			memLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
			defer memLimiter.Close()
			limiter = memLimiter
		}
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimit),
			zap.Duration("window", cfg.HTTP.RateWindow),
			zap.Bool("shared", redisClient != nil),
		)
	}

	checkoutMetrics, err := telemetry.NewCheckoutMetrics(tel.Meter.Meter("storefront/checkout"))
	if err != nil {
		log.Fatal("Failed to create checkout metrics", zap.Error(err))
	}

	// Services
	retry := appinv.RetryPolicy{Attempts: cfg.Checkout.MaxRetries, Backoff: cfg.Checkout.RetryBackoff}
	storeRetry := appinv.RetryPolicy{Attempts: cfg.Checkout.StoreWriteRetries, Backoff: cfg.Checkout.RetryBackoff}
	provisioning := appinv.Provisioning{
		Enabled:         cfg.Checkout.AutoProvisionInventory,
		DefaultQuantity: cfg.Checkout.DefaultProvisionQuantity,
	}
	tracker := inventory.NewReservationTracker()

	ledger := appinv.NewLedgerService(scope, tracker, appinv.LedgerConfig{
		Provisioning: provisioning,
		Retry:        retry,
		Hold:         cfg.Checkout.ReservationHold,
	}, log)
	ledger.SetMetrics(checkoutMetrics)

	engine := pricing.NewEngine(pricing.ShippingPolicy{
		FlatFee:               cfg.Pricing.ShippingFlatFee,
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
	}, pricing.DefaultPromotionTable(cfg.Pricing.FallbackDiscountPercent))

	cartService := appcart.NewService(carts, products, coupons, ledger, engine, cfg.Checkout.TaxRate, log)

	stockDeps := appcheckout.StockDeps{
		Scope:        scope,
		Tracker:      tracker,
		Products:     products,
		Provisioning: provisioning,
		Retry:        retry,
		StoreRetry:   storeRetry,
		Hold:         cfg.Checkout.ReservationHold,
		Metrics:      checkoutMetrics,
		Logger:       log,
	}
	checkoutService := appcheckout.NewService(appcheckout.Dependencies{
		Standard:  appcheckout.NewStandardCheckout(stockDeps),
		Fast:      appcheckout.NewFastCheckout(stockDeps),
		Products:  products,
		Orders:    orders,
		Carts:     carts,
		Coupons:   coupons,
		Intents:   intents,
		Keys:      keys,
		Holds:     ledger,
		Engine:    engine,
		Publisher: bus,
	}, appcheckout.Config{
		Timeout:             cfg.Checkout.Timeout,
		TaxRate:             cfg.Checkout.TaxRate,
		IdempotencyTTL:      cfg.Checkout.IdempotencyTTL,
		StoreRetry:          storeRetry,
		FastCheckoutEnabled: cfg.Checkout.FastCheckoutEnabled,
		PublishTimeout:      cfg.Event.PublishTimeout,
	}, log)
	checkoutService.SetMetrics(checkoutMetrics)

	orderService := apporder.NewOrderService(orders, products, ledger, storeRetry, log)
	returnService := apporder.NewReturnService(orders, returns, storeRetry, log)
	loyaltyService := apployalty.NewService(accounts, cfg.Loyalty.AmountPerPoint, storeRetry, log)
	outboxService := appevent.NewOutboxService(outboxRepo, log)

	dedupTTL := event.WithKeyTTL(cfg.Event.DedupTTL)
	// Event subscribers. Outbox delivery is at-least-once, so side effects are
	// wrapped in the idempotent handler.
	bus.Subscribe(event.NewIdempotentHandler(apployalty.NewOrderCompletedHandler(loyaltyService, log), keys, log, dedupTTL))
	bus.Subscribe(apporder.NewOrderCancelledAuditHandler(log))
	if cfg.Kafka.Enabled {
		forwarder := event.NewKafkaForwarder(event.NewKafkaWriter(cfg.Kafka), serializer, cfg.Kafka.WriteTimeout, log)
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Error("Error closing kafka writer", zap.Error(err))
			}
		}()
		bus.Subscribe(event.NewIdempotentHandler(forwarder, keys, log, dedupTTL))
		log.Info("Forwarding order events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfigFrom(cfg.Event), log)
	if cfg.Event.ProcessorEnabled {
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	// Background jobs
	jobs := scheduler.NewPeriodicScheduler(log)
	if cfg.Reservation.AutoReleaseEnabled {
		expiry := appinv.NewExpirationService(scope, retry, cfg.Reservation.BatchSize, log)
		expiry.SetMetrics(checkoutMetrics)
		mustRegister(log, jobs, scheduler.Job{
			Name:       "reservation-expiry",
			Interval:   cfg.Reservation.CheckInterval,
			RunOnStart: true,
			Run: labeled("reservation-expiry", func(ctx context.Context) error {
				_, err := expiry.ReleaseExpired(ctx)
				return err
			}),
		})
	}
	if cfg.Reconciliation.Enabled {
		reconciler := appcheckout.NewReconciler(intents, cfg.Reconciliation.StaleAfter, reconcileBatchSize, log)
		reconciler.SetMetrics(checkoutMetrics)
		mustRegister(log, jobs, scheduler.Job{
			Name:     "checkout-reconciliation",
			Interval: cfg.Reconciliation.ScanInterval,
			Run: labeled("checkout-reconciliation", func(ctx context.Context) error {
				_, err := reconciler.Scan(ctx)
				return err
			}),
		})
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start background jobs", zap.Error(err))
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	identity := middleware.IdentityConfig{
		JWT:          auth.NewJWTService(cfg.Auth),
		TrustHeaders: cfg.Auth.TrustIdentityHeaders,
		Logger:       log,
	}
	if cfg.Auth.RevocationEnabled {
		identity.Revocations = revocations
	}

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var meter *telemetry.MeterProvider
	if tel.Meter.IsEnabled() {
		meter = tel.Meter
	}
	httpEngine := router.New(router.EngineConfig{
		Logger:           log,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		CORSOrigins:      cfg.HTTP.CORSOrigins,
		MaxBodyBytes:     cfg.HTTP.MaxBodyBytes,
		Identity:         identity,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   tel.Tracer.IsEnabled(),
		Meter:            meter,
		ProfilingEnabled: tel.Profiler.IsEnabled(),
		Limiter:          limiter,
	}, router.Handlers{
		Checkout:  handler.NewCheckoutHandler(checkoutService),
		Cart:      handler.NewCartHandler(cartService),
		Orders:    handler.NewOrderHandler(orderService),
		Returns:   handler.NewReturnHandler(returnService),
		Inventory: handler.NewInventoryHandler(ledger),
		Loyalty:   handler.NewLoyaltyHandler(loyaltyService),
		Outbox:    handler.NewOutboxHandler(outboxService),
		Jobs:      handler.NewJobsHandler(jobs),
		Session:   handler.NewSessionHandler(revocations, cfg.Auth.RevocationTTL),
		System:    handler.NewSystemHandler(version, checks),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           httpEngine,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Stop taking requests first, then drain the work they started.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Warn("Background jobs did not stop in time", zap.Error(err))
	}
	checkoutService.Wait()
	if cfg.Event.ProcessorEnabled {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Warn("Outbox processor did not stop in time", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop in time", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}
	log.Info("Server exited")
}

func mustRegister(log *zap.Logger, jobs *scheduler.PeriodicScheduler, job scheduler.Job) {
	if err := jobs.Register(job); err != nil {
		log.Fatal("Failed to register background job", zap.String("job", job.Name), zap.Error(err))
	}
}

// labeled tags a job's CPU samples with its name in the profiler
func labeled(operation string, run func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) (err error) {
		telemetry.WithOperationLabels(ctx, operation, func(ctx context.Context) {
			err = run(ctx)
		})
		return err
	}
}
