package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appfulfillment "github.com/pantrychef/pantry/internal/application/fulfillment"
	appgrocery "github.com/pantrychef/pantry/internal/application/grocery"
	appmealplan "github.com/pantrychef/pantry/internal/application/mealplan"
	apprecipe "github.com/pantrychef/pantry/internal/application/recipe"
	domfulfillment "github.com/pantrychef/pantry/internal/domain/fulfillment"
	"github.com/pantrychef/pantry/internal/domain/grocery"
	"github.com/pantrychef/pantry/internal/domain/mealplan"
	"github.com/pantrychef/pantry/internal/domain/recipe"
	"github.com/pantrychef/pantry/internal/infrastructure/ai/openai"
	"github.com/pantrychef/pantry/internal/infrastructure/auth"
	"github.com/pantrychef/pantry/internal/infrastructure/config"
	"github.com/pantrychef/pantry/internal/infrastructure/id"
	"github.com/pantrychef/pantry/internal/infrastructure/lock"
	"github.com/pantrychef/pantry/internal/infrastructure/memory"
	infraobs "github.com/pantrychef/pantry/internal/infrastructure/observability"
	"github.com/pantrychef/pantry/internal/infrastructure/observability/oteltrace"
	"github.com/pantrychef/pantry/internal/infrastructure/observability/prometrics"
	"github.com/pantrychef/pantry/internal/infrastructure/observability/zaplogger"
	"github.com/pantrychef/pantry/internal/infrastructure/outbox"
	"github.com/pantrychef/pantry/internal/infrastructure/persistence/gormstore"
	"github.com/pantrychef/pantry/internal/infrastructure/ratelimit"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/pkg/logging"
	httppresentation "github.com/pantrychef/pantry/internal/presentation/http"
	workerpresentation "github.com/pantrychef/pantry/internal/presentation/worker"
)

type stores struct {
	groceries grocery.Repository
	recipes   recipe.Repository
	plans     mealplan.Repository
	uow       domfulfillment.UnitOfWork
	close     func() error
}

func main() {
	cfg, err := config.Load(os.Getenv("PANTRY_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// "pantry token <user-id>" prints a bearer token for local testing.
	if len(os.Args) == 3 && os.Args[1] == "token" {
		if err := printToken(cfg, os.Args[2]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	baseLogger, err := logging.NewLogger(cfg.App.Name, cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := zaplogger.New(logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := oteltrace.Setup(ctx, oteltrace.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			systemLogger.Error("tracer_shutdown_error", observability.F("error", err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	counters, histograms := prometrics.New(registry, "").Instruments()
	tel := infraobs.New(oteltrace.New(cfg.App.Name), zaplogger.New(baseLogger), counters, histograms)

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	locker, closeLocker, err := openLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLocker() }()

	verifier, err := auth.NewJWT(auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer, TTL: cfg.Auth.TokenTTL})
	if err != nil {
		return err
	}

	// In-process outbox; Kafka forwarding is optional.
	bus := outbox.NewBus(tel.Logger(), outbox.Options{
		QueueSize:      cfg.Events.QueueSize,
		Concurrency:    cfg.Events.Concurrency,
		HandlerTimeout: cfg.Events.HandlerTimeout,
	})
	subscriber := workerpresentation.Subscriber(bus, tel.Logger())

	if brokers := cfg.Events.Brokers(); len(brokers) > 0 {
		writer := outbox.NewKafkaWriter(brokers, cfg.Events.KafkaTopic)
		defer func() { _ = writer.Close() }()
		outbox.NewKafkaForwarder(writer, tel).Attach(subscriber,
			mealplan.CompletedEvent{}.EventName(),
			grocery.DepletedEvent{}.EventName(),
			domfulfillment.CookRequestedEvent{}.EventName(),
		)
		systemLogger.Info("kafka_forwarding_enabled",
			observability.F("brokers", brokers),
			observability.F("topic", cfg.Events.KafkaTopic),
		)
	}

	ids := id.NewUUIDGenerator()
	generator := openai.NewClient(openai.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	}, tel.Logger())
	limiter := ratelimit.NewPerKey(cfg.RateLimit.GeneratePerMinute, cfg.RateLimit.GenerateBurst, cfg.RateLimit.IdleTTL)

	cook := appfulfillment.NewCookRecipeUseCase(st.uow, locker, ids, bus, tel)
	recipes := apprecipe.NewService(st.recipes, st.groceries, generator, limiter, ids, tel)

	appfulfillment.NewWorker(subscriber, cook, tel).Start()
	appgrocery.NewDepletionWorker(subscriber, tel).Start()
	bus.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		bus.Stop(stopCtx)
	}()

	handler := httppresentation.NewHandler(httppresentation.Deps{
		Cook:      cook,
		Groceries: appgrocery.NewService(st.groceries, ids, tel),
		Recipes:   recipes,
		MealPlans: appmealplan.NewService(st.plans, st.recipes, ids, tel),
		Publisher: bus,
		IDs:       ids,
		Auth:      verifier,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, tel)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("database", cfg.Database.Driver),
			observability.F("lock", cfg.Lock.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			systemLogger.Error("http_server_error", observability.F("error", err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err))
		return err
	}
	systemLogger.Info("http_server_stopped")
	return nil
}

func openStores(cfg *config.Config) (*stores, error) {
	if cfg.Database.Driver == "memory" {
		db := memory.NewDB()
		return &stores{
			groceries: db.Groceries(),
			recipes:   db.Recipes(),
			plans:     db.MealPlans(),
			uow:       db.UnitOfWork(),
			close:     func() error { return nil },
		}, nil
	}

	db, err := gormstore.Open(gormstore.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		AutoMigrate:     cfg.Database.AutoMigrate,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &stores{
		groceries: gormstore.NewGroceryRepository(db),
		recipes:   gormstore.NewRecipeRepository(db),
		plans:     gormstore.NewMealPlanRepository(db),
		uow:       gormstore.NewUnitOfWork(db),
		close:     sqlDB.Close,
	}, nil
}

func openLocker(ctx context.Context, cfg *config.Config) (appfulfillment.Locker, func() error, error) {
	if cfg.Lock.Driver != "redis" {
		return lock.NewKeyedMutex(), func() error { return nil }, nil
	}
	client := lock.NewRedisClient(cfg.Lock.RedisAddr, cfg.Lock.RedisPassword, cfg.Lock.RedisDB)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return lock.NewRedisLocker(client, cfg.Lock.TTL), client.Close, nil
}

func printToken(cfg *config.Config, userID string) error {
	issuer, err := auth.NewJWT(auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer, TTL: cfg.Auth.TokenTTL})
	if err != nil {
		return err
	}
	token, err := issuer.Issue(userID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
