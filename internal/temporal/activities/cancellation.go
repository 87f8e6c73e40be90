package activities

import (
	"context"
	"time"

	"trip-booking-system/internal/inventory"
	"trip-booking-system/internal/models"
)

type CancellationActivities struct {
	Service *inventory.Service
}

func NewCancellationActivities(svc *inventory.Service) *CancellationActivities {
	return &CancellationActivities{Service: svc}
}

// PrepareCancellation validates the cancellation and lists the bookings to refund
func (a *CancellationActivities) PrepareCancellation(ctx context.Context, departureID, vendorID string) (*models.CancellationPlan, error) {
	plan, err := a.Service.PrepareCancellation(ctx, departureID, inventory.Actor{ID: vendorID, Role: models.RoleVendor})
	if err != nil {
		return nil, nonRetryable(err)
	}
	return plan, nil
}

// RefundBooking refunds one booking. Refund failures are reported in the
// outcome, never as an activity error, so the workflow does not retry them.
func (a *CancellationActivities) RefundBooking(ctx context.Context, booking models.Booking, vendorID, reason string) (models.RefundOutcome, error) {
	return a.Service.RefundForVendorCancellation(ctx, booking, vendorID, reason), nil
}

// RemainingBookings lists bookings that started holding seats while the
// cancellation was refunding
func (a *CancellationActivities) RemainingBookings(ctx context.Context, departureID string, handled []string) ([]models.Booking, error) {
	return a.Service.RemainingBookings(ctx, departureID, handled)
}

// FinalizeCancellation marks the departure cancelled
func (a *CancellationActivities) FinalizeCancellation(ctx context.Context, departureID, reason string) (time.Time, error) {
	return a.Service.FinalizeCancellation(ctx, departureID, reason)
}
