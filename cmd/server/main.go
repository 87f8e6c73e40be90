package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trip-booking-system/internal/api"
	"trip-booking-system/internal/config"
	"trip-booking-system/internal/database"
	"trip-booking-system/internal/idempotency"
	"trip-booking-system/internal/inventory"
	"trip-booking-system/internal/refund"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to apply database schema")
	}
	logger.Info("Connected to database")

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Temporal client")
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal")

	var idem mux.MiddlewareFunc
	if cfg.Redis.Addr != "" {
		redisClient, err := idempotency.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()
		idem = idempotency.Middleware(redisClient, cfg.Redis.IdempotencyTTL, logger)
		logger.Info("Idempotency keys enabled")
	}

	svc := inventory.NewService(db, refund.NewClient(cfg.Refund, logger), inventory.ConfigFromBooking(cfg.Booking), logger)
	handler := api.NewHandler(svc, temporalClient, cfg.Temporal.TaskQueue, cfg.Booking.PaymentWindow, logger)
	router := api.NewRouter(handler, idem)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
