package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trip-booking-system/internal/database"
	"trip-booking-system/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreatePlan registers a trip template owned by the calling vendor
func (s *Service) CreatePlan(ctx context.Context, req models.CreatePlanRequest, actor Actor) (*models.Plan, error) {
	if !actor.IsVendor() {
		return nil, ForbiddenError{Msg: "only vendors can create plans"}
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, PreconditionError{Msg: "plan name is required"}
	}
	if req.Price < 0 {
		return nil, PreconditionError{Msg: "plan price cannot be negative"}
	}

	now := s.now()
	plan := &models.Plan{
		PlanID:    uuid.New().String(),
		VendorID:  actor.ID,
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"plan_id": plan.PlanID, "vendor_id": actor.ID}).Info("Plan created")
	return plan, nil
}

func (s *Service) validateNewDeparture(req models.CreateDepartureRequest) error {
	if req.DepartureDate.IsZero() {
		return PreconditionError{Msg: "departure date is required"}
	}
	if !req.DepartureDate.After(s.now()) {
		return PreconditionError{Msg: "departure date must be in the future"}
	}
	if strings.TrimSpace(req.PickupLocation) == "" || strings.TrimSpace(req.PickupTime) == "" {
		return PreconditionError{Msg: "pickup location and pickup time are required"}
	}
	if req.TotalCapacity < 1 || req.TotalCapacity > s.cfg.MaxCapacity {
		return preconditionf("total capacity must be between 1 and %d", s.cfg.MaxCapacity)
	}
	return nil
}

func (s *Service) insertDeparture(ctx context.Context, planID string, req models.CreateDepartureRequest) (*models.Departure, error) {
	if err := s.validateNewDeparture(req); err != nil {
		return nil, err
	}

	now := s.now()
	dep := &models.Departure{
		DepartureID:    uuid.New().String(),
		PlanID:         planID,
		DepartureDate:  req.DepartureDate.UTC(),
		PickupLocation: strings.TrimSpace(req.PickupLocation),
		PickupTime:     strings.TrimSpace(req.PickupTime),
		TotalCapacity:  req.TotalCapacity,
		BookedSeats:    0,
		Status:         models.DepartureScheduled,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateDeparture(ctx, dep); err != nil {
		return nil, err
	}
	return dep, nil
}

// CreateDeparture schedules a new occurrence of one of the actor's plans
func (s *Service) CreateDeparture(ctx context.Context, planID string, req models.CreateDepartureRequest, actor Actor) (*models.Departure, error) {
	if _, err := s.ownedPlan(ctx, planID, actor); err != nil {
		return nil, err
	}

	dep, err := s.insertDeparture(ctx, planID, req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"plan_id":        planID,
		"departure_id":   dep.DepartureID,
		"total_capacity": dep.TotalCapacity,
	}).Info("Departure created")
	return dep, nil
}

// CreateDepartures creates each requested departure independently. Invalid
// items are counted and reported without aborting the batch.
func (s *Service) CreateDepartures(ctx context.Context, planID string, reqs []models.CreateDepartureRequest, actor Actor) (*models.BulkResult, error) {
	if _, err := s.ownedPlan(ctx, planID, actor); err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, PreconditionError{Msg: "at least one departure is required"}
	}

	result := &models.BulkResult{
		Total:      len(reqs),
		Errors:     []string{},
		Departures: []models.Departure{},
	}
	for i, req := range reqs {
		dep, err := s.insertDeparture(ctx, planID, req)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("departure %d: %v", i+1, err))
			continue
		}
		result.Succeeded++
		result.Departures = append(result.Departures, *dep)
	}

	s.logger.WithFields(logrus.Fields{
		"plan_id":   planID,
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("Bulk departure creation finished")
	return result, nil
}

// GetDeparture returns a departure owned by the actor
func (s *Service) GetDeparture(ctx context.Context, departureID string, actor Actor) (*models.Departure, error) {
	dep, _, err := s.ownedDeparture(ctx, departureID, actor)
	return dep, err
}

// ListDepartures returns the plan's departures, newest date first
func (s *Service) ListDepartures(ctx context.Context, planID string, actor Actor) ([]models.Departure, error) {
	if _, err := s.ownedPlan(ctx, planID, actor); err != nil {
		return nil, err
	}
	return s.store.ListDeparturesByPlan(ctx, planID)
}

// UpdateDeparture edits schedule fields and capacity. Capacity goes through
// the conditional store update so it can never drop below booked seats.
func (s *Service) UpdateDeparture(ctx context.Context, departureID string, req models.UpdateDepartureRequest, actor Actor) (*models.Departure, error) {
	dep, _, err := s.ownedDeparture(ctx, departureID, actor)
	if err != nil {
		return nil, err
	}
	if !dep.IsActive {
		return nil, PreconditionError{Msg: "cannot update an inactive departure"}
	}

	upd := models.DepartureUpdate{
		PickupLocation: req.PickupLocation,
		PickupTime:     req.PickupTime,
	}
	if req.DepartureDate != nil {
		if !req.DepartureDate.After(s.now()) {
			return nil, PreconditionError{Msg: "departure date must be in the future"}
		}
		upd.DepartureDate = ptr(req.DepartureDate.UTC())
	}
	if req.Status != nil {
		if !models.IsDepartureStatus(*req.Status) {
			return nil, preconditionf("invalid departure status %q", *req.Status)
		}
		if *req.Status == models.DepartureCancelled {
			return nil, PreconditionError{Msg: "use the cancel endpoint to cancel a departure"}
		}
		if *req.Status == models.DepartureCompleted {
			return nil, PreconditionError{Msg: "departures are completed automatically once their date has passed"}
		}
		upd.Status = req.Status
	}
	if req.TotalCapacity != nil {
		capacity := *req.TotalCapacity
		if capacity < 1 || capacity > s.cfg.MaxCapacity {
			return nil, preconditionf("total capacity must be between 1 and %d", s.cfg.MaxCapacity)
		}
		adj, err := s.store.SetCapacity(ctx, departureID, capacity, s.now())
		if err != nil {
			return nil, err
		}
		if !adj.Applied {
			booked := dep.BookedSeats
			if adj.Current != nil {
				booked = adj.Current.BookedSeats
			}
			return nil, preconditionf("cannot reduce capacity below current bookings (%d)", booked)
		}
	}

	if err := s.store.UpdateDeparture(ctx, departureID, upd, s.now()); err != nil {
		if errors.Is(err, database.ErrDepartureNotFound) {
			return nil, NotFoundError{Resource: "departure", ID: departureID, Err: err}
		}
		return nil, err
	}

	s.logger.WithField("departure_id", departureID).Info("Departure updated")
	return s.loadDeparture(ctx, departureID)
}

// DeleteDeparture removes a departure nobody has booked
func (s *Service) DeleteDeparture(ctx context.Context, departureID string, actor Actor) error {
	if _, _, err := s.ownedDeparture(ctx, departureID, actor); err != nil {
		return err
	}

	err := s.store.DeleteDeparture(ctx, departureID)
	switch {
	case errors.Is(err, database.ErrDepartureHasBookings):
		return PreconditionError{Msg: "cannot delete departure with existing bookings, cancel it instead"}
	case errors.Is(err, database.ErrDepartureNotFound):
		return NotFoundError{Resource: "departure", ID: departureID, Err: err}
	case err != nil:
		return err
	}

	s.logger.WithField("departure_id", departureID).Info("Departure deleted")
	return nil
}

// ListDepartureBookings returns every booking of a departure owned by the actor
func (s *Service) ListDepartureBookings(ctx context.Context, departureID string, actor Actor) ([]models.Booking, error) {
	if _, _, err := s.ownedDeparture(ctx, departureID, actor); err != nil {
		return nil, err
	}
	return s.store.ListBookingsByDeparture(ctx, departureID)
}
