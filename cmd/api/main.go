package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/parcelio/api/internal/di"
	"github.com/parcelio/api/internal/handlers"
	"github.com/parcelio/api/internal/platform/config"
	pfirestore "github.com/parcelio/api/internal/platform/firestore"
	"github.com/parcelio/api/internal/platform/jobs"
	"github.com/parcelio/api/internal/platform/notify"
	"github.com/parcelio/api/internal/platform/observability"
	firestoreRepo "github.com/parcelio/api/internal/repositories/firestore"
)

const internalJobRateLimit = 30

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repository registry", zap.Error(err))
	}

	containerOpts := []di.Option{
		di.WithServiceLogger(serviceEventLogger(logger.Named("services"))),
	}

	if cfg.PubSub.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		orderTopic := pubsubClient.Topic(cfg.PubSub.Topic)
		pickupTopic := pubsubClient.Topic(cfg.PubSub.PickupTopic)
		defer orderTopic.Stop()
		defer pickupTopic.Stop()

		publisher, err := jobs.NewPubSubEventPublisher(orderTopic, pickupTopic)
		if err != nil {
			logger.Fatal("failed to initialise event publisher", zap.Error(err))
		}
		containerOpts = append(containerOpts,
			di.WithOrderEventPublisher(publisher),
			di.WithPickupEventPublisher(publisher),
		)
	} else {
		logger.Warn("pubsub project not configured; domain events disabled")
	}

	if cfg.Features.EnablePushNotifications && cfg.Firebase.ProjectID != "" {
		dispatcher, err := notify.NewFCMDispatcher(ctx, cfg.Firebase, registry.Businesses())
		if err != nil {
			logger.Warn("push notifications disabled", zap.Error(err))
		} else {
			containerOpts = append(containerOpts, di.WithSettlementNotifier(dispatcher))
		}
	}

	container, err := di.NewContainer(ctx, cfg, registry, containerOpts...)
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}

	orderHandlers := handlers.NewOrderHandlers(container.Services.Orders)
	pickupHandlers := handlers.NewPickupHandlers(container.Services.Pickups)
	transactionHandlers := handlers.NewTransactionHandlers(container.Services.Ledger)
	jobHandlers := handlers.NewJobHandlers(container.Services.Settlement)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthRepository(registry.Health()),
	)

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		handlers.ActorMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithPickupRoutes(pickupHandlers.Routes),
		handlers.WithTransactionRoutes(transactionHandlers.Routes),
		handlers.WithInternalRoutes(jobHandlers.Routes),
		handlers.WithInternalMiddlewares(handlers.RateLimitMiddleware(internalJobRateLimit, time.Minute)),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("parcelio api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func serviceEventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Info(event, zFields...)
	}
}
