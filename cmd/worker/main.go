package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"trip-booking-system/internal/config"
	"trip-booking-system/internal/database"
	"trip-booking-system/internal/inventory"
	"trip-booking-system/internal/refund"
	"trip-booking-system/internal/scheduler"
	"trip-booking-system/internal/temporal/activities"
	"trip-booking-system/internal/temporal/workflows"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
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

	svc := inventory.NewService(db, refund.NewClient(cfg.Refund, logger), inventory.ConfigFromBooking(cfg.Booking), logger)

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.BookingWorkflow)
	w.RegisterWorkflow(workflows.DepartureCancellationWorkflow)

	w.RegisterActivity(activities.NewPaymentActivities(svc))
	w.RegisterActivity(activities.NewBookingActivities(svc))
	w.RegisterActivity(activities.NewCancellationActivities(svc))

	if err := w.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start worker")
	}
	logger.WithField("task_queue", cfg.Temporal.TaskQueue).Info("Worker started successfully")

	sweeper := scheduler.New(cfg.Scheduler.CompletionSweepSpec, svc, logger)
	if err := sweeper.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	sweeper.Stop()
	w.Stop()
	logger.Info("Worker stopped")
}
