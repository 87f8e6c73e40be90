package database

import (
	"context"
	"testing"
	"time"

	"trip-booking-system/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRowColumns = []string{
	"booking_id", "plan_id", "departure_id", "user_id", "num_people", "payment_status",
	"booking_status", "payment_id", "trip_cost", "refund_status", "refund_percentage", "refund_amount",
	"vendor_payout_status", "vendor_payout_amount", "cancelled_at", "cancellation_reason",
	"created_at", "updated_at",
}

func TestTransitionBooking(t *testing.T) {
	ctx := context.Background()
	at := time.Now()
	cancelled := models.BookingCancelled
	released := models.RefundProcessing

	guard := models.BookingGuard{BookingStatus: models.BookingConfirmed, PaymentStatus: models.PaymentCompleted}
	patch := models.BookingPatch{BookingStatus: &cancelled, RefundStatus: &released}

	t.Run("Applied", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE bookings SET updated_at = \?, booking_status = \?, refund_status = \? WHERE booking_id = \? AND booking_status = \? AND payment_status = \?`).
			WithArgs(at, cancelled, released, "bk-1", models.BookingConfirmed, models.PaymentCompleted).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := db.TransitionBooking(ctx, "bk-1", guard, patch, at)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already transitioned", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs("bk-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		ok, err := db.TransitionBooking(ctx, "bk-1", guard, patch, at)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		_, err := db.TransitionBooking(ctx, "bk-1", guard, patch, at)
		assert.ErrorIs(t, err, ErrBookingNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransitionBooking_RefundGuard(t *testing.T) {
	db, mock := setupMockDB(t)
	at := time.Now()
	requested := models.RefundRequested
	guard := models.BookingGuard{
		BookingStatus: models.BookingConfirmed,
		PaymentStatus: models.PaymentCompleted,
		RefundStatus:  models.RefundNone,
	}

	mock.ExpectExec(`UPDATE bookings SET updated_at = \?, refund_status = \? WHERE booking_id = \? AND booking_status = \? AND payment_status = \? AND refund_status = \?`).
		WithArgs(at, requested, "bk-1", models.BookingConfirmed, models.PaymentCompleted, models.RefundNone).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := db.TransitionBooking(context.Background(), "bk-1", guard, models.BookingPatch{RefundStatus: &requested}, at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookingsByDeparture(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	rows := sqlmock.NewRows(bookingRowColumns).
		AddRow("bk-1", "plan-1", "dep-1", "user-1", 2, models.PaymentCompleted,
			models.BookingConfirmed, "pay-1", 200.0, models.RefundNone, nil, nil,
			models.PayoutPending, nil, nil, nil, now, now).
		AddRow("bk-2", "plan-1", "dep-1", "user-2", 1, models.PaymentPending,
			models.BookingPending, nil, 100.0, models.RefundNone, nil, nil,
			models.PayoutPending, nil, nil, nil, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE departure_id = \?`).
		WithArgs("dep-1").
		WillReturnRows(rows)

	bookings, err := db.ListBookingsByDeparture(context.Background(), "dep-1")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.True(t, bookings[0].HoldsSeats())
	require.NotNil(t, bookings[0].PaymentID)
	assert.Equal(t, "pay-1", *bookings[0].PaymentID)
	assert.False(t, bookings[1].HoldsSeats())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBooking_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE booking_id = \?`).
		WithArgs("bk-404").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))

	b, err := db.GetBooking(context.Background(), "bk-404")
	assert.Nil(t, b)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPlan_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM plans`).
		WithArgs("plan-404").
		WillReturnRows(sqlmock.NewRows([]string{"plan_id", "vendor_id", "name", "price", "is_active", "created_at", "updated_at"}))

	p, err := db.GetPlan(context.Background(), "plan-404")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
