package inventory

import (
	"context"
	"time"

	"trip-booking-system/internal/models"
)

// SeatCounter is the atomic counter store. Both methods evaluate their guard
// and write in one indivisible operation and report a failed guard through
// SeatAdjustment.Applied rather than an error.
type SeatCounter interface {
	AdjustBookedSeats(ctx context.Context, departureID string, delta int, at time.Time) (models.SeatAdjustment, error)
	SetCapacity(ctx context.Context, departureID string, capacity int, at time.Time) (models.SeatAdjustment, error)
}

type DepartureStore interface {
	GetDeparture(ctx context.Context, departureID string) (*models.Departure, error)
	ListDeparturesByPlan(ctx context.Context, planID string) ([]models.Departure, error)
	ListDueDepartures(ctx context.Context, before time.Time) ([]models.Departure, error)
	CreateDeparture(ctx context.Context, d *models.Departure) error
	UpdateDeparture(ctx context.Context, departureID string, upd models.DepartureUpdate, at time.Time) error
	MarkDepartureCancelled(ctx context.Context, departureID, reason string, at time.Time) error
	MarkDepartureCompleted(ctx context.Context, departureID string, at time.Time) error
	DeleteDeparture(ctx context.Context, departureID string) error
}

type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	ListBookingsByDeparture(ctx context.Context, departureID string) ([]models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
	TransitionBooking(ctx context.Context, bookingID string, guard models.BookingGuard, patch models.BookingPatch, at time.Time) (bool, error)
	DeleteBooking(ctx context.Context, bookingID string) error
}

type PlanStore interface {
	CreatePlan(ctx context.Context, p *models.Plan) error
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
}

// Store is everything the service persists. *database.DB satisfies it.
type Store interface {
	SeatCounter
	DepartureStore
	BookingStore
	PlanStore
}

// RefundService requests refunds from the user platform. It is not retried here.
type RefundService interface {
	RequestRefund(ctx context.Context, req models.RefundRequest) error
}
