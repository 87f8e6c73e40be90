package activities

import (
	"context"

	"trip-booking-system/internal/inventory"
	"trip-booking-system/internal/models"
)

type BookingActivities struct {
	Service *inventory.Service
}

func NewBookingActivities(svc *inventory.Service) *BookingActivities {
	return &BookingActivities{Service: svc}
}

// ExpireBooking cancels the booking if it is still unpaid
func (a *BookingActivities) ExpireBooking(ctx context.Context, bookingID string) (bool, error) {
	expired, err := a.Service.ExpireBooking(ctx, bookingID)
	return expired, nonRetryable(err)
}

// CancelBooking runs a user cancellation on behalf of actor
func (a *BookingActivities) CancelBooking(ctx context.Context, bookingID, reason string, actor inventory.Actor) (*models.Booking, error) {
	b, err := a.Service.CancelBooking(ctx, bookingID, reason, actor)
	if err != nil {
		return nil, nonRetryable(err)
	}
	return b, nil
}
