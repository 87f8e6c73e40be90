package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"trip-booking-system/internal/models"
)

const bookingColumns = `booking_id, plan_id, departure_id, user_id, num_people, payment_status,
	booking_status, payment_id, trip_cost, refund_status, refund_percentage, refund_amount,
	vendor_payout_status, vendor_payout_amount, cancelled_at, cancellation_reason,
	created_at, updated_at`

// CreateBooking inserts a new booking
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (booking_id, plan_id, departure_id, user_id, num_people, payment_status,
			booking_status, trip_cost, refund_status, vendor_payout_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, b.BookingID, b.PlanID, b.DepartureID, b.UserID, b.NumPeople,
		b.PaymentStatus, b.BookingStatus, b.TripCost, b.RefundStatus, b.VendorPayoutStatus,
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetBooking retrieves a booking by ID
func (db *DB) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = ?`

	var b models.Booking
	err := db.GetContext(ctx, &b, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &b, nil
}

// ListBookingsByDeparture returns every booking of a departure
func (db *DB) ListBookingsByDeparture(ctx context.Context, departureID string) ([]models.Booking, error) {
	return db.listBookings(ctx, `departure_id = ?`, departureID)
}

// ListBookingsByUser returns a user's bookings
func (db *DB) ListBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return db.listBookings(ctx, `user_id = ?`, userID)
}

func (db *DB) listBookings(ctx context.Context, where string, args ...interface{}) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where + ` ORDER BY created_at`

	bookings := []models.Booking{}
	if err := db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, nil
}

// TransitionBooking writes patch only while the booking still matches guard.
// It returns false when the booking exists but has already moved on, which
// lets callers run each lifecycle transition exactly once.
func (db *DB) TransitionBooking(ctx context.Context, bookingID string, guard models.BookingGuard, patch models.BookingPatch, at time.Time) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{at}

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.BookingStatus != nil {
		add("booking_status", *patch.BookingStatus)
	}
	if patch.PaymentStatus != nil {
		add("payment_status", *patch.PaymentStatus)
	}
	if patch.PaymentID != nil {
		add("payment_id", *patch.PaymentID)
	}
	if patch.RefundStatus != nil {
		add("refund_status", *patch.RefundStatus)
	}
	if patch.RefundPercentage != nil {
		add("refund_percentage", *patch.RefundPercentage)
	}
	if patch.RefundAmount != nil {
		add("refund_amount", *patch.RefundAmount)
	}
	if patch.VendorPayoutStatus != nil {
		add("vendor_payout_status", *patch.VendorPayoutStatus)
	}
	if patch.VendorPayoutAmount != nil {
		add("vendor_payout_amount", *patch.VendorPayoutAmount)
	}
	if patch.CancelledAt != nil {
		add("cancelled_at", *patch.CancelledAt)
	}
	if patch.CancellationReason != nil {
		add("cancellation_reason", *patch.CancellationReason)
	}

	where := []string{"booking_id = ?"}
	args = append(args, bookingID)
	if guard.BookingStatus != "" {
		where = append(where, "booking_status = ?")
		args = append(args, guard.BookingStatus)
	}
	if guard.PaymentStatus != "" {
		where = append(where, "payment_status = ?")
		args = append(args, guard.PaymentStatus)
	}
	if guard.RefundStatus != "" {
		where = append(where, "refund_status = ?")
		args = append(args, guard.RefundStatus)
	}

	query := `UPDATE bookings SET ` + strings.Join(sets, ", ") + ` WHERE ` + strings.Join(where, " AND ")

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings WHERE booking_id = ?`, bookingID); err != nil {
		return false, fmt.Errorf("failed to check booking: %w", err)
	}
	if count == 0 {
		return false, ErrBookingNotFound
	}
	return false, nil
}

// DeleteBooking removes a booking that never held seats
func (db *DB) DeleteBooking(ctx context.Context, bookingID string) error {
	query := `DELETE FROM bookings WHERE booking_id = ? AND NOT (booking_status = ? AND payment_status = ?)`

	result, err := db.ExecContext(ctx, query, bookingID, models.BookingConfirmed, models.PaymentCompleted)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBookingNotFound
	}

	return nil
}
