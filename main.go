package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appCart "github.com/Zhima-Mochi/minishop-fashion/internal/application/cart"
	appInventory "github.com/Zhima-Mochi/minishop-fashion/internal/application/inventory"
	appOrder "github.com/Zhima-Mochi/minishop-fashion/internal/application/order"
	appPayment "github.com/Zhima-Mochi/minishop-fashion/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-fashion/internal/config"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/lock"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/mongostore"
	infraobs "github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-fashion/internal/infrastructure/payment/razorpay"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-fashion/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-fashion/internal/presentation/worker"
	"github.com/Zhima-Mochi/minishop-fashion/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.MustNewLogger(logging.Options{Service: "minishop-fashion"}).Fatal("config_load_failed", zap.Error(err))
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Level:   cfg.Service.LogLevel,
		File:    cfg.Service.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := infraobs.NewWithRegistry(
		oteltrace.Setup(cfg.Service.Name),
		zaplogger.New(baseLogger),
		prometrics.NewWithRegisterer(promRegistry, "", ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		systemLogger.Fatal("mongo_connect_failed", zap.Error(err))
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		systemLogger.Fatal("mongo_indexes_failed", zap.Error(err))
	}

	orderRepo := mongostore.NewOrderRepository(db)
	catalogRepo := mongostore.NewCatalogRepository(db)
	cartRepo := mongostore.NewCartRepository(db)
	addressRepo := mongostore.NewAddressRepository(db)

	bus := outbox.NewBus(tel)
	if cfg.Events.TopicARN != "" {
		snsClient, err := outbox.NewSNSClient(ctx)
		if err != nil {
			systemLogger.Fatal("sns_client_failed", zap.Error(err))
		}
		bus.AddSink(outbox.NewSNSForwarder(snsClient, cfg.Events.TopicARN))
	}

	subscriber := workerpresentation.NewSubscriber(bus, tel)
	appInventory.New(subscriber, appInventory.NewReleaseStockUseCase(catalogRepo, tel), tel).Start()
	appPayment.NewWorker(subscriber, appPayment.NewFlagRefundUseCase(tel), tel).Start()
	bus.Start(ctx)

	gateway := appPayment.NewInstrumentedGateway(
		razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret,
			razorpay.WithBaseURL(cfg.Razorpay.BaseURL),
			razorpay.WithTimeout(cfg.Razorpay.Timeout),
		),
		"razorpay", tel,
	)

	deps := appOrder.Deps{
		Orders:    orderRepo,
		Catalog:   catalogRepo,
		Carts:     cartRepo,
		Addresses: addressRepo,
		Gateway:   gateway,
		Publisher: bus,
		IDs:       id.NewUUIDGenerator(),
		Tel:       tel,
		Currency:  cfg.Razorpay.Currency,
	}
	workflow := appOrder.NewWorkflow(deps)

	var locker appOrder.Locker
	if cfg.Redis.Addr != "" {
		redisClient, err := lock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			systemLogger.Fatal("redis_connect_failed", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		locker = lock.NewRedisLocker(redisClient)
	} else {
		systemLogger.Warn("reaper_lock_disabled", zap.String("reason", "REDIS_ADDR not set"))
	}
	reaper := appOrder.NewReaper(deps, locker, appOrder.ReaperConfig{
		Interval:       cfg.Reaper.Interval,
		PendingTimeout: cfg.Reaper.PendingTimeout,
		BatchSize:      cfg.Reaper.BatchSize,
		LockTTL:        cfg.Reaper.LockTTL,
	})
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		reaper.Run(ctx)
	}()

	handler := httppresentation.NewHandler(httppresentation.HandlerDeps{
		Orders:         workflow,
		Carts:          appCart.NewService(cartRepo, catalogRepo, tel),
		Auth:           httppresentation.NewAuthenticator(session.NewParser(cfg.Auth.JWTSecret), cfg.Auth.CookieName),
		PaymentLimiter: httppresentation.NewRateLimiter(rate.Limit(cfg.Server.PaymentRateLimit), cfg.Server.PaymentRateBurst),
		Metrics:        promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		Tel:            tel,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}

	<-reaperDone
	bus.Stop(shutdownCtx)
	tel.Logger().Info("shutdown_complete", observability.F("service", cfg.Service.Name))
}
