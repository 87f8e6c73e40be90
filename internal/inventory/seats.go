package inventory

import (
	"context"
	"errors"
	"fmt"

	"trip-booking-system/internal/database"

	"github.com/sirupsen/logrus"
)

// ReserveOrRelease applies delta to the departure's booked seats. A positive
// delta reserves, a negative one releases. It returns false, without error,
// when the result would leave [0, totalCapacity]; store failures are returned
// as errors and never retried here.
func (s *Service) ReserveOrRelease(ctx context.Context, departureID string, delta int) (bool, error) {
	if delta == 0 {
		return false, PreconditionError{Msg: "seat delta must not be zero"}
	}
	direction := "reserve"
	if delta < 0 {
		direction = "release"
	}

	adj, err := s.store.AdjustBookedSeats(ctx, departureID, delta, s.now())
	if errors.Is(err, database.ErrDepartureNotFound) {
		seatAdjustments.WithLabelValues(direction, "not_found").Inc()
		return false, NotFoundError{Resource: "departure", ID: departureID, Err: err}
	}
	if err != nil {
		seatAdjustments.WithLabelValues(direction, "error").Inc()
		return false, fmt.Errorf("failed to %s seats on departure %s: %w", direction, departureID, err)
	}

	fields := logrus.Fields{"departure_id": departureID, "delta": delta}
	if adj.Current != nil {
		fields["booked_seats"] = adj.Current.BookedSeats
		fields["total_capacity"] = adj.Current.TotalCapacity
	}

	if !adj.Applied {
		seatAdjustments.WithLabelValues(direction, "rejected").Inc()
		s.logger.WithFields(fields).Info("Seat update rejected: would violate capacity or go negative")
		return false, nil
	}

	seatAdjustments.WithLabelValues(direction, "applied").Inc()
	s.logger.WithFields(fields).Debug("Seat update applied")
	return true, nil
}
