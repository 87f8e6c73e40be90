package inventory

import (
	"context"
	"errors"
	"time"

	"trip-booking-system/internal/config"
	"trip-booking-system/internal/database"
	"trip-booking-system/internal/models"

	"github.com/sirupsen/logrus"
)

// Actor is the caller as identified by the gateway in front of the service
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsVendor() bool { return a.Role == models.RoleVendor }
func (a Actor) IsAdmin() bool  { return a.Role == models.RoleAdmin }

// Config holds the business parameters of the service
type Config struct {
	MaxCapacity             int
	CancellationConcurrency int
	UserRefundPolicy        RefundPolicy
}

// DefaultConfig returns the limits used by the vendor portal
func DefaultConfig() Config {
	return Config{
		MaxCapacity:             100,
		CancellationConcurrency: 4,
		UserRefundPolicy:        FlatRefundPolicy(100),
	}
}

// ConfigFromBooking builds the service config from the environment settings
func ConfigFromBooking(b config.BookingConfig) Config {
	return Config{
		MaxCapacity:             b.MaxDepartureCapacity,
		CancellationConcurrency: b.CancellationConcurrency,
		UserRefundPolicy:        FlatRefundPolicy(b.UserRefundPercent),
	}
}

// Service owns the seat protocol, the booking lifecycle and departure cancellation.
// It keeps no state between calls; every mutation is a single store operation.
type Service struct {
	store   Store
	refunds RefundService
	cfg     Config
	logger  *logrus.Logger
	now     func() time.Time
}

func NewService(store Store, refunds RefundService, cfg Config, logger *logrus.Logger) *Service {
	if cfg.MaxCapacity < 1 {
		cfg.MaxCapacity = DefaultConfig().MaxCapacity
	}
	if cfg.CancellationConcurrency < 1 {
		cfg.CancellationConcurrency = 1
	}
	if cfg.UserRefundPolicy == nil {
		cfg.UserRefundPolicy = DefaultConfig().UserRefundPolicy
	}
	return &Service{
		store:   store,
		refunds: refunds,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) loadDeparture(ctx context.Context, departureID string) (*models.Departure, error) {
	d, err := s.store.GetDeparture(ctx, departureID)
	if errors.Is(err, database.ErrDepartureNotFound) {
		return nil, NotFoundError{Resource: "departure", ID: departureID, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) loadPlan(ctx context.Context, planID string) (*models.Plan, error) {
	p, err := s.store.GetPlan(ctx, planID)
	if errors.Is(err, database.ErrPlanNotFound) {
		return nil, NotFoundError{Resource: "travel plan", ID: planID, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) loadBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if errors.Is(err, database.ErrBookingNotFound) {
		return nil, NotFoundError{Resource: "booking", ID: bookingID, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ownedPlan loads a plan and checks the actor is the vendor who authored it
func (s *Service) ownedPlan(ctx context.Context, planID string, actor Actor) (*models.Plan, error) {
	if !actor.IsVendor() {
		return nil, ForbiddenError{Msg: "only vendors can manage departures"}
	}
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.VendorID != actor.ID {
		return nil, ForbiddenError{Msg: "you can only manage departures of your own plans"}
	}
	return plan, nil
}

// ownedDeparture loads a departure and its plan and checks vendor ownership
func (s *Service) ownedDeparture(ctx context.Context, departureID string, actor Actor) (*models.Departure, *models.Plan, error) {
	if !actor.IsVendor() {
		return nil, nil, ForbiddenError{Msg: "only vendors can manage departures"}
	}
	dep, err := s.loadDeparture(ctx, departureID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.loadPlan(ctx, dep.PlanID)
	if err != nil {
		return nil, nil, err
	}
	if plan.VendorID != actor.ID {
		return nil, nil, ForbiddenError{Msg: "you can only manage your own departures"}
	}
	return dep, plan, nil
}

func ptr[T any](v T) *T { return &v }
