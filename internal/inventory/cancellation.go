package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trip-booking-system/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultCancellationReason = "Vendor cancelled departure"

// CancellationReasons returns the reason stored on the departure and the one
// stored on each refunded booking
func CancellationReasons(reason string) (departure, booking string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return defaultCancellationReason, defaultCancellationReason + ": No reason provided"
	}
	return reason, defaultCancellationReason + ": " + reason
}

// PrepareCancellation checks every precondition of a vendor cancellation and
// returns the bookings that must be refunded. Nothing is mutated.
func (s *Service) PrepareCancellation(ctx context.Context, departureID string, actor Actor) (*models.CancellationPlan, error) {
	dep, _, err := s.ownedDeparture(ctx, departureID, actor)
	if err != nil {
		return nil, err
	}
	if !dep.IsActive {
		return nil, PreconditionError{Msg: "departure is already cancelled"}
	}
	if dep.HasDeparted(s.now()) {
		return nil, PreconditionError{Msg: "cannot cancel past departures"}
	}

	bookings, err := s.store.ListBookingsByDeparture(ctx, departureID)
	if err != nil {
		return nil, err
	}

	plan := &models.CancellationPlan{Departure: *dep, Bookings: []models.Booking{}}
	for _, b := range bookings {
		if b.HoldsSeats() {
			plan.Bookings = append(plan.Bookings, b)
		}
	}
	return plan, nil
}

// RefundForVendorCancellation fully refunds one booking of a cancelled
// departure. The booking is only cancelled, and its seats only released, after
// the refund service accepts the request; a failure leaves it untouched.
// The refund is claimed on the booking first so concurrent cancellations of the
// same departure request it once.
func (s *Service) RefundForVendorCancellation(ctx context.Context, b models.Booking, vendorID, reason string) models.RefundOutcome {
	log := s.logger.WithFields(logrus.Fields{"booking_id": b.BookingID, "departure_id": b.DepartureID})
	outcome := models.RefundOutcome{BookingID: b.BookingID}

	claimed, err := s.transition(ctx, b.BookingID, refundable, models.BookingPatch{
		RefundStatus: ptr(models.RefundRequested),
	})
	if err != nil {
		departureRefunds.WithLabelValues("failed").Inc()
		log.WithError(err).Error("Failed to claim booking for refund")
		outcome.Error = fmt.Sprintf("Booking %s: %v", b.BookingID, err)
		return outcome
	}
	if !claimed {
		// Already cancelled, or another cancellation is refunding it.
		log.Info("Booking already cancelled or being refunded, skipped")
		outcome.Success = true
		return outcome
	}
	requested := models.BookingGuard{
		BookingStatus: models.BookingConfirmed,
		PaymentStatus: models.PaymentCompleted,
		RefundStatus:  models.RefundRequested,
	}

	err = s.refunds.RequestRefund(ctx, models.RefundRequest{
		BookingID:          b.BookingID,
		VendorCancellation: true,
		VendorID:           vendorID,
	})
	if err != nil {
		departureRefunds.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("Refund failed for vendor cancellation")
		if _, rerr := s.transition(ctx, b.BookingID, requested, models.BookingPatch{
			RefundStatus: ptr(models.RefundNone),
		}); rerr != nil {
			log.WithError(rerr).Error("Failed to release refund claim")
		}
		outcome.Error = fmt.Sprintf("Booking %s: %v", b.BookingID, err)
		return outcome
	}

	_, bookingReason := CancellationReasons(reason)
	refund, payout := refundSplit(b.TripCost, vendorRefundPercentage)
	now := s.now()
	ok, err := s.transition(ctx, b.BookingID, requested, models.BookingPatch{
		BookingStatus:      ptr(models.BookingCancelled),
		RefundStatus:       ptr(models.RefundProcessing),
		RefundPercentage:   ptr(vendorRefundPercentage),
		RefundAmount:       ptr(refund),
		VendorPayoutAmount: ptr(payout),
		CancelledAt:        ptr(now),
		CancellationReason: ptr(bookingReason),
	})
	if err != nil {
		departureRefunds.WithLabelValues("failed").Inc()
		log.WithError(err).Error("Refund issued but booking could not be cancelled")
		outcome.Error = fmt.Sprintf("Booking %s: refund issued but booking update failed: %v", b.BookingID, err)
		return outcome
	}

	departureRefunds.WithLabelValues("succeeded").Inc()
	outcome.Success = true
	if !ok {
		log.Warn("Refund issued but booking left the claimed state, seats not released")
		return outcome
	}

	released, err := s.ReserveOrRelease(ctx, b.DepartureID, -b.NumPeople)
	switch {
	case err != nil:
		log.WithError(err).Error("Booking cancelled but seats were not released")
	case !released:
		log.Error("Seat release rejected for a cancelled booking, counter is out of step")
	}
	return outcome
}

// RemainingBookings lists bookings of the departure that hold seats and are
// not in handled. Once the departure is frozen no booking can start holding
// seats, so calling it after FinalizeCancellation catches payments that
// completed while the refunds were running.
func (s *Service) RemainingBookings(ctx context.Context, departureID string, handled []string) ([]models.Booking, error) {
	bookings, err := s.store.ListBookingsByDeparture(ctx, departureID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(handled))
	for _, id := range handled {
		seen[id] = true
	}
	remaining := []models.Booking{}
	for _, b := range bookings {
		if b.HoldsSeats() && !seen[b.BookingID] {
			remaining = append(remaining, b)
		}
	}
	return remaining, nil
}

// refundAll refunds every booking on at most CancellationConcurrency
// goroutines. Outcomes keep the order of bookings.
func (s *Service) refundAll(ctx context.Context, bookings []models.Booking, vendorID, reason string) []models.RefundOutcome {
	outcomes := make([]models.RefundOutcome, len(bookings))

	var g errgroup.Group
	g.SetLimit(s.cfg.CancellationConcurrency)
	for i := range bookings {
		g.Go(func() error {
			outcomes[i] = s.RefundForVendorCancellation(ctx, bookings[i], vendorID, reason)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// SummarizeRefunds aggregates per-booking outcomes
func SummarizeRefunds(outcomes []models.RefundOutcome) models.RefundResults {
	results := models.RefundResults{Total: len(outcomes), Errors: []string{}}
	for _, o := range outcomes {
		results.Add(o)
	}
	return results
}

// FinalizeCancellation marks the departure cancelled and inactive. It runs
// whatever the refund results were and is the only step whose failure fails
// the whole cancellation.
func (s *Service) FinalizeCancellation(ctx context.Context, departureID, reason string) (time.Time, error) {
	departureReason, _ := CancellationReasons(reason)
	at := s.now()
	if err := s.store.MarkDepartureCancelled(ctx, departureID, departureReason, at); err != nil {
		return time.Time{}, fmt.Errorf("failed to cancel departure %s: %w", departureID, err)
	}
	departureCancellations.Inc()
	return at, nil
}

// CancelDeparture cancels a departure on behalf of its vendor, refunding every
// paid booking independently before freezing the departure.
func (s *Service) CancelDeparture(ctx context.Context, departureID, reason string, actor Actor) (*models.CancellationResult, error) {
	plan, err := s.PrepareCancellation(ctx, departureID, actor)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{"departure_id": departureID, "vendor_id": actor.ID})
	log.WithField("bookings", len(plan.Bookings)).Info("Cancelling departure")

	outcomes := s.refundAll(ctx, plan.Bookings, actor.ID, reason)

	at, err := s.FinalizeCancellation(ctx, departureID, reason)
	if err != nil {
		return nil, err
	}

	handled := make([]string, len(outcomes))
	for i, o := range outcomes {
		handled[i] = o.BookingID
	}
	late, err := s.RemainingBookings(ctx, departureID, handled)
	if err != nil {
		log.WithError(err).Error("Failed to list bookings paid during cancellation")
	} else if len(late) > 0 {
		log.WithField("bookings", len(late)).Warn("Refunding bookings paid during cancellation")
		outcomes = append(outcomes, s.refundAll(ctx, late, actor.ID, reason)...)
	}
	results := SummarizeRefunds(outcomes)

	log.WithFields(logrus.Fields{
		"total":      results.Total,
		"successful": results.Successful,
		"failed":     results.Failed,
	}).Info("Departure cancelled")

	return &models.CancellationResult{
		DepartureID:   departureID,
		RefundResults: results,
		Outcomes:      outcomes,
		CancelledAt:   at,
	}, nil
}
