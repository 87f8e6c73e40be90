package scheduler

import (
	"context"
	"fmt"
	"time"

	"trip-booking-system/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DepartureCompleter is the part of the inventory service the sweep needs
type DepartureCompleter interface {
	DueDepartures(ctx context.Context) ([]models.Departure, error)
	CompleteDeparture(ctx context.Context, departureID string) (int, error)
}

// Scheduler runs the periodic completion sweep
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	completer DepartureCompleter
	logger    *logrus.Logger
	timeout   time.Duration
}

func New(spec string, completer DepartureCompleter, logger *logrus.Logger) *Scheduler {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cron.PrintfLogger(logger)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
	)

	return &Scheduler{
		cron:      c,
		spec:      spec,
		completer: completer,
		logger:    logger,
		timeout:   5 * time.Minute,
	}
}

// Start schedules the sweep and starts the cron runner
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.completionSweepJob); err != nil {
		return fmt.Errorf("failed to schedule completion sweep: %w", err)
	}
	s.cron.Start()
	s.logger.WithField("spec", s.spec).Info("Scheduled departure completion sweep")
	return nil
}

// Stop waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) completionSweepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.CompleteDue(ctx)
}

// CompleteDue completes every due departure and returns how many were closed.
// A failing departure is logged and the sweep moves on.
func (s *Scheduler) CompleteDue(ctx context.Context) int {
	start := time.Now()

	due, err := s.completer.DueDepartures(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to list due departures")
		return 0
	}

	completed := 0
	for _, dep := range due {
		bookings, err := s.completer.CompleteDeparture(ctx, dep.DepartureID)
		if err != nil {
			s.logger.WithError(err).WithField("departure_id", dep.DepartureID).Error("[CRON] Failed to complete departure")
			continue
		}
		completed++
		s.logger.WithFields(logrus.Fields{
			"departure_id": dep.DepartureID,
			"bookings":     bookings,
		}).Debug("[CRON] Departure completed")
	}

	s.logger.WithFields(logrus.Fields{
		"due":       len(due),
		"completed": completed,
		"duration":  time.Since(start).String(),
	}).Info("[CRON] Completion sweep finished")
	return completed
}
