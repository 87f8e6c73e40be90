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

var (
	pendingPayment = models.BookingGuard{BookingStatus: models.BookingPending, PaymentStatus: models.PaymentPending}
	claimedPayment = models.BookingGuard{BookingStatus: models.BookingPending, PaymentStatus: models.PaymentCompleted}
	holdingSeats   = models.BookingGuard{BookingStatus: models.BookingConfirmed, PaymentStatus: models.PaymentCompleted}
	// refundable is a paid booking nobody has started refunding yet
	refundable = models.BookingGuard{
		BookingStatus: models.BookingConfirmed,
		PaymentStatus: models.PaymentCompleted,
		RefundStatus:  models.RefundNone,
	}
)

// CreateBooking opens a pending booking. No seats are taken until payment completes.
func (s *Service) CreateBooking(ctx context.Context, req models.CreateBookingRequest, actor Actor) (*models.Booking, error) {
	if actor.ID == "" || actor.IsVendor() {
		return nil, ForbiddenError{Msg: "only users can book departures"}
	}
	if req.NumPeople < 1 {
		return nil, PreconditionError{Msg: "number of people must be at least 1"}
	}

	dep, err := s.loadDeparture(ctx, req.DepartureID)
	if err != nil {
		return nil, err
	}
	if !dep.OpenForBooking() {
		return nil, PreconditionError{Msg: "departure is not open for booking"}
	}
	if dep.HasDeparted(s.now()) {
		return nil, PreconditionError{Msg: "cannot book a past departure"}
	}
	if req.NumPeople > dep.AvailableSeats() {
		return nil, ErrSoldOut
	}

	plan, err := s.loadPlan(ctx, dep.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	b := &models.Booking{
		BookingID:          uuid.New().String(),
		PlanID:             plan.PlanID,
		DepartureID:        dep.DepartureID,
		UserID:             actor.ID,
		NumPeople:          req.NumPeople,
		PaymentStatus:      models.PaymentPending,
		BookingStatus:      models.BookingPending,
		TripCost:           plan.Price * float64(req.NumPeople),
		RefundStatus:       models.RefundNone,
		VendorPayoutStatus: models.PayoutPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   b.BookingID,
		"departure_id": b.DepartureID,
		"num_people":   b.NumPeople,
	}).Info("Booking created")
	return b, nil
}

// DiscardBooking removes a booking whose workflow could not be started.
// Bookings holding seats are never removed.
func (s *Service) DiscardBooking(ctx context.Context, bookingID string) error {
	if err := s.store.DeleteBooking(ctx, bookingID); err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			return NotFoundError{Resource: "booking", ID: bookingID, Err: err}
		}
		return err
	}
	return nil
}

// GetBooking returns a booking to its owner or an admin
func (s *Service) GetBooking(ctx context.Context, bookingID string, actor Actor) (*models.Booking, error) {
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ForbiddenError{Msg: "you can only view your own bookings"}
	}
	return b, nil
}

func (s *Service) ListUserBookings(ctx context.Context, actor Actor) ([]models.Booking, error) {
	if actor.ID == "" {
		return nil, ForbiddenError{Msg: "missing actor"}
	}
	return s.store.ListBookingsByUser(ctx, actor.ID)
}

func (s *Service) transition(ctx context.Context, bookingID string, guard models.BookingGuard, patch models.BookingPatch) (bool, error) {
	ok, err := s.store.TransitionBooking(ctx, bookingID, guard, patch, s.now())
	if errors.Is(err, database.ErrBookingNotFound) {
		return false, NotFoundError{Resource: "booking", ID: bookingID, Err: err}
	}
	return ok, err
}

// CompletePayment records a successful payment and reserves the booking's
// seats. The booking is first claimed (payment completed, still pending) so
// that only one caller reserves; it becomes confirmed once the seats are held.
// When the departure has sold out in the meantime the booking fails, a refund
// is requested and ErrSoldOut is returned. A departure cancelled or completed
// before the payment arrived is handled the same way with ErrDepartureClosed.
func (s *Service) CompletePayment(ctx context.Context, bookingID, paymentID string) (*models.Booking, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, PreconditionError{Msg: "payment id is required"}
	}
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.transition(ctx, bookingID, pendingPayment, models.BookingPatch{
		PaymentStatus: ptr(models.PaymentCompleted),
		PaymentID:     ptr(paymentID),
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.alreadyPaid(ctx, bookingID, paymentID)
	}

	log := s.logger.WithFields(logrus.Fields{"booking_id": bookingID, "departure_id": b.DepartureID})

	reserved, err := s.ReserveOrRelease(ctx, b.DepartureID, b.NumPeople)
	if err != nil {
		if _, rerr := s.transition(ctx, bookingID, claimedPayment, models.BookingPatch{
			PaymentStatus: ptr(models.PaymentPending),
		}); rerr != nil {
			log.WithError(rerr).Error("Failed to release payment claim after seat reservation error")
		}
		return nil, err
	}

	if !reserved {
		failure, reason := ErrSoldOut, "Departure sold out before payment completed"
		if dep, derr := s.loadDeparture(ctx, b.DepartureID); derr == nil && !dep.OpenForBooking() {
			failure, reason = ErrDepartureClosed, "Departure "+dep.Status+" before payment completed"
		}
		if _, err := s.transition(ctx, bookingID, claimedPayment, models.BookingPatch{
			BookingStatus:      ptr(models.BookingFailed),
			RefundStatus:       ptr(models.RefundRequested),
			RefundPercentage:   ptr(100.0),
			RefundAmount:       ptr(b.TripCost),
			CancellationReason: ptr(reason),
		}); err != nil {
			return nil, err
		}
		log.WithField("reason", reason).Warn("Seats not reserved, booking failed after payment")
		s.requestRefund(ctx, models.RefundRequest{BookingID: bookingID},
			models.BookingGuard{BookingStatus: models.BookingFailed})
		return nil, failure
	}

	if _, err := s.transition(ctx, bookingID, claimedPayment, models.BookingPatch{
		BookingStatus: ptr(models.BookingConfirmed),
	}); err != nil {
		return nil, err
	}

	log.WithField("payment_id", paymentID).Info("Booking confirmed")

	if err := s.refundIfCancelledMeanwhile(ctx, bookingID, b.DepartureID); err != nil {
		log.WithError(err).Error("Failed to check departure after confirming booking")
	}
	return s.loadBooking(ctx, bookingID)
}

// refundIfCancelledMeanwhile covers a payment whose seats were reserved just
// before a vendor cancellation froze the departure but which was confirmed
// after the cancellation listed its bookings.
func (s *Service) refundIfCancelledMeanwhile(ctx context.Context, bookingID, departureID string) error {
	dep, err := s.loadDeparture(ctx, departureID)
	if err != nil {
		return err
	}
	if dep.Status != models.DepartureCancelled {
		return nil
	}
	plan, err := s.loadPlan(ctx, dep.PlanID)
	if err != nil {
		return err
	}
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	reason := ""
	if dep.CancellationReason != nil && *dep.CancellationReason != defaultCancellationReason {
		reason = *dep.CancellationReason
	}
	if outcome := s.RefundForVendorCancellation(ctx, *b, plan.VendorID, reason); !outcome.Success {
		return errors.New(outcome.Error)
	}
	return nil
}

// alreadyPaid resolves a lost payment claim. A repeated notification for the
// same payment is answered with the booking as it stands.
func (s *Service) alreadyPaid(ctx context.Context, bookingID, paymentID string) (*models.Booking, error) {
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentID != nil && *b.PaymentID == paymentID && b.BookingStatus != models.BookingPending {
		return b, nil
	}
	if b.BookingStatus == models.BookingPending && b.PaymentStatus == models.PaymentCompleted {
		return nil, PreconditionError{Msg: "payment is already being processed"}
	}
	return nil, preconditionf("booking is %s, not awaiting payment", b.BookingStatus)
}

// FailPayment closes a pending booking whose payment was declined
func (s *Service) FailPayment(ctx context.Context, bookingID, reason string) error {
	if reason == "" {
		reason = "Payment failed"
	}
	ok, err := s.transition(ctx, bookingID, pendingPayment, models.BookingPatch{
		BookingStatus:      ptr(models.BookingFailed),
		PaymentStatus:      ptr(models.PaymentFailed),
		CancellationReason: ptr(reason),
	})
	if err != nil {
		return err
	}
	if !ok {
		return PreconditionError{Msg: "booking is not awaiting payment"}
	}

	s.logger.WithFields(logrus.Fields{"booking_id": bookingID, "reason": reason}).Info("Booking payment failed")
	return nil
}

// ExpireBooking cancels a booking still unpaid when its payment window closes.
// It returns false when the booking has moved on in the meantime.
func (s *Service) ExpireBooking(ctx context.Context, bookingID string) (bool, error) {
	now := s.now()
	ok, err := s.transition(ctx, bookingID, pendingPayment, models.BookingPatch{
		BookingStatus:      ptr(models.BookingCancelled),
		PaymentStatus:      ptr(models.PaymentFailed),
		CancelledAt:        ptr(now),
		CancellationReason: ptr("Payment window expired"),
	})
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.WithField("booking_id", bookingID).Info("Unpaid booking expired")
	}
	return ok, nil
}

// CancelBooking is the user-initiated cancellation. A paid booking releases its
// seats exactly once and is refunded according to the user refund policy.
func (s *Service) CancelBooking(ctx context.Context, bookingID, reason string, actor Actor) (*models.Booking, error) {
	b, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ForbiddenError{Msg: "you can only cancel your own bookings"}
	}
	if reason == "" {
		reason = "Cancelled by user"
	}
	now := s.now()

	switch {
	case b.BookingStatus == models.BookingPending && b.PaymentStatus == models.PaymentPending:
		ok, err := s.transition(ctx, bookingID, pendingPayment, models.BookingPatch{
			BookingStatus:      ptr(models.BookingCancelled),
			CancelledAt:        ptr(now),
			CancellationReason: ptr(reason),
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, PreconditionError{Msg: "booking changed while cancelling, try again"}
		}
	case b.HoldsSeats():
		if err := s.cancelPaidBooking(ctx, b, reason); err != nil {
			return nil, err
		}
	default:
		return nil, preconditionf("cannot cancel a booking that is %s", b.BookingStatus)
	}

	return s.loadBooking(ctx, bookingID)
}

func (s *Service) cancelPaidBooking(ctx context.Context, b *models.Booking, reason string) error {
	dep, err := s.loadDeparture(ctx, b.DepartureID)
	if err != nil {
		return err
	}
	now := s.now()
	if dep.HasDeparted(now) {
		return PreconditionError{Msg: "cannot cancel a booking after departure"}
	}

	percent := clampPercent(s.cfg.UserRefundPolicy(*b, *dep, now))
	refund, payout := refundSplit(b.TripCost, percent)
	refundStatus := models.RefundRequested
	if refund == 0 {
		refundStatus = models.RefundNone
	}

	ok, err := s.transition(ctx, b.BookingID, refundable, models.BookingPatch{
		BookingStatus:      ptr(models.BookingCancelled),
		RefundStatus:       ptr(refundStatus),
		RefundPercentage:   ptr(percent),
		RefundAmount:       ptr(refund),
		VendorPayoutAmount: ptr(payout),
		CancelledAt:        ptr(now),
		CancellationReason: ptr(reason),
	})
	if err != nil {
		return err
	}
	if !ok {
		return PreconditionError{Msg: "booking is already cancelled or being refunded"}
	}

	log := s.logger.WithFields(logrus.Fields{"booking_id": b.BookingID, "departure_id": b.DepartureID})

	// The transition above is the only path that reaches this release, so it runs once per booking.
	released, err := s.ReserveOrRelease(ctx, b.DepartureID, -b.NumPeople)
	if err != nil {
		log.WithError(err).Error("Booking cancelled but seats were not released")
		return fmt.Errorf("booking %s cancelled, seat release failed: %w", b.BookingID, err)
	}
	if !released {
		log.Error("Seat release rejected for a cancelled booking, counter is out of step")
	}

	if refund > 0 {
		s.requestRefund(ctx, models.RefundRequest{BookingID: b.BookingID},
			models.BookingGuard{BookingStatus: models.BookingCancelled})
	}

	log.WithFields(logrus.Fields{"refund_percentage": percent, "refund_amount": refund}).Info("Booking cancelled by user")
	return nil
}

// requestRefund calls the refund service and moves the booking to processing
// on success. A failed call leaves the refund requested for follow-up.
func (s *Service) requestRefund(ctx context.Context, req models.RefundRequest, guard models.BookingGuard) {
	log := s.logger.WithField("booking_id", req.BookingID)
	if err := s.refunds.RequestRefund(ctx, req); err != nil {
		log.WithError(err).Warn("Refund request failed, refund left as requested")
		return
	}
	if _, err := s.store.TransitionBooking(ctx, req.BookingID, guard, models.BookingPatch{
		RefundStatus: ptr(models.RefundProcessing),
	}, s.now()); err != nil {
		log.WithError(err).Error("Refund issued but refund status was not updated")
	}
}

// DueDepartures lists active departures whose date has passed
func (s *Service) DueDepartures(ctx context.Context) ([]models.Departure, error) {
	return s.store.ListDueDepartures(ctx, s.now())
}

// CompleteDeparture closes a departure whose date has passed. Bookings holding
// seats become completed and their vendor payout is scheduled.
func (s *Service) CompleteDeparture(ctx context.Context, departureID string) (int, error) {
	dep, err := s.loadDeparture(ctx, departureID)
	if err != nil {
		return 0, err
	}
	if !dep.IsActive {
		return 0, PreconditionError{Msg: "departure is not active"}
	}
	if !dep.HasDeparted(s.now()) {
		return 0, PreconditionError{Msg: "departure date has not passed yet"}
	}

	bookings, err := s.store.ListBookingsByDeparture(ctx, departureID)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, b := range bookings {
		if !b.HoldsSeats() {
			continue
		}
		ok, err := s.transition(ctx, b.BookingID, holdingSeats, models.BookingPatch{
			BookingStatus:      ptr(models.BookingCompleted),
			VendorPayoutStatus: ptr(models.PayoutPending),
			VendorPayoutAmount: ptr(b.TripCost),
		})
		if err != nil {
			return completed, err
		}
		if ok {
			completed++
		}
	}

	if err := s.store.MarkDepartureCompleted(ctx, departureID, s.now()); err != nil {
		return completed, err
	}

	s.logger.WithFields(logrus.Fields{"departure_id": departureID, "completed_bookings": completed}).Info("Departure completed")
	return completed, nil
}
