package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/application/services"
	"github.com/DanielPopoola/pesapal-gateway/internal/config"
	"github.com/DanielPopoola/pesapal-gateway/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/pesapal-gateway/internal/infrastructure/pesapal"
	"github.com/DanielPopoola/pesapal-gateway/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/pesapal-gateway/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting gateway service",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
		"pesapal_base_url", cfg.Pesapal.BaseURL,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	paymentRepo := postgres.NewPaymentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)

	pesapalClient := pesapal.NewClient(cfg.Pesapal, logger)
	gateway := pesapal.NewRetryGateway(pesapalClient, cfg.Retry, logger)

	credentials := services.NewCredentialCache(gateway, cfg.Pesapal, logger)
	webhooks := services.NewWebhookRegistrar(gateway, credentials, cfg.Pesapal, logger)

	submitService := services.NewSubmitService(paymentRepo, gateway, credentials, webhooks, cfg.Orders, cfg.Pesapal, logger)
	reconcileService := services.NewReconcileService(paymentRepo, gateway, credentials, cfg.Booking.ConfirmedStatus, logger)
	queryService := services.NewQueryService(paymentRepo, reconcileService, logger)
	notificationService := services.NewNotificationService(notificationRepo, reconcileService, cfg.Retry, cfg.Worker, logger)

	// Registration is retried lazily on the first submission if the gateway
	// is unreachable at boot.
	warmCtx, cancelWarm := context.WithTimeout(ctx, cfg.Pesapal.Timeout)
	if id, err := webhooks.EnsureRegistered(warmCtx, cfg.Pesapal.IPNURL); err != nil {
		logger.Warn("IPN registration deferred", "ipn_url", cfg.Pesapal.IPNURL, "error", err)
	} else {
		logger.Info("IPN registered", "ipn_url", cfg.Pesapal.IPNURL, "notification_id", id)
	}
	cancelWarm()

	h := handlers.NewHandlers(
		submitService,
		queryService,
		notificationService,
		bookingRepo,
		db,
		logger,
	)

	handler, err := h.Routes(cfg.Server.RequestTimeout)
	if err != nil {
		logger.Error("failed to build routes", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper := worker.NewReconciler(
		paymentRepo,
		notificationRepo,
		notificationService,
		reconcileService,
		cfg.Worker,
		cfg.Retry,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if err := sweeper.Start(workerCtx); err != nil {
		logger.Error("failed to start reconciler", "schedule", cfg.Worker.Schedule, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	cancelWorkers()
	sweeper.Stop()
	queryService.Wait()

	logger.Info("server exited")
}
