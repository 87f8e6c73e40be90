package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"trip-booking-system/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &DB{sqlx.NewDb(db, "mysql")}, mock
}

var departureRowColumns = []string{
	"departure_id", "plan_id", "departure_date", "pickup_location", "pickup_time",
	"total_capacity", "booked_seats", "status", "is_active", "cancelled_at", "cancellation_reason",
	"created_at", "updated_at",
}

func departureRow(id string, capacity, booked int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(departureRowColumns).AddRow(
		id, "plan-1", now.Add(48*time.Hour), "Main square", "08:00",
		capacity, booked, models.DepartureScheduled, true, nil, nil,
		now, now,
	)
}

func TestAdjustBookedSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("Applied", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE departures\s+SET booked_seats = booked_seats \+ \?(.+)AND \(\? < 0 OR \(is_active = TRUE AND status IN \(\?, \?\)\)\)`).
			WithArgs(2, sqlmock.AnyArg(), "dep-1", 2, 2, 2, models.DepartureScheduled, models.DepartureConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM departures WHERE departure_id`).
			WithArgs("dep-1").
			WillReturnRows(departureRow("dep-1", 5, 3))

		adj, err := db.AdjustBookedSeats(ctx, "dep-1", 2, time.Now())
		require.NoError(t, err)
		assert.True(t, adj.Applied)
		require.NotNil(t, adj.Current)
		assert.Equal(t, 3, adj.Current.BookedSeats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Predicate failed", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE departures`).
			WithArgs(1, sqlmock.AnyArg(), "dep-1", 1, 1, 1, models.DepartureScheduled, models.DepartureConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM departures WHERE departure_id`).
			WithArgs("dep-1").
			WillReturnRows(departureRow("dep-1", 5, 5))

		adj, err := db.AdjustBookedSeats(ctx, "dep-1", 1, time.Now())
		require.NoError(t, err)
		assert.False(t, adj.Applied)
		assert.Equal(t, 5, adj.Current.BookedSeats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reserve on cancelled departure", func(t *testing.T) {
		db, mock := setupMockDB(t)

		rows := sqlmock.NewRows(departureRowColumns).AddRow(
			"dep-1", "plan-1", time.Now().Add(48*time.Hour), "Main square", "08:00",
			5, 2, models.DepartureCancelled, false, time.Now(), "Storm",
			time.Now(), time.Now(),
		)
		mock.ExpectExec(`UPDATE departures`).
			WithArgs(1, sqlmock.AnyArg(), "dep-1", 1, 1, 1, models.DepartureScheduled, models.DepartureConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM departures WHERE departure_id`).
			WithArgs("dep-1").
			WillReturnRows(rows)

		adj, err := db.AdjustBookedSeats(ctx, "dep-1", 1, time.Now())
		require.NoError(t, err)
		assert.False(t, adj.Applied)
		assert.False(t, adj.Current.OpenForBooking())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Departure not found", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE departures`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM departures WHERE departure_id`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(departureRowColumns))

		_, err := db.AdjustBookedSeats(ctx, "missing", -1, time.Now())
		assert.ErrorIs(t, err, ErrDepartureNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Transport error", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE departures`).
			WillReturnError(errors.New("connection reset"))

		_, err := db.AdjustBookedSeats(ctx, "dep-1", 1, time.Now())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrDepartureNotFound)
		assert.Contains(t, err.Error(), "failed to adjust booked seats")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("Below booked seats", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE departures\s+SET total_capacity`).
			WithArgs(2, sqlmock.AnyArg(), "dep-1", 2).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM departures`).
			WithArgs("dep-1").
			WillReturnRows(departureRow("dep-1", 5, 3))

		adj, err := db.SetCapacity(ctx, "dep-1", 2, time.Now())
		require.NoError(t, err)
		assert.False(t, adj.Applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unchanged capacity counts as applied", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE departures\s+SET total_capacity`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM departures`).
			WillReturnRows(departureRow("dep-1", 5, 3))

		adj, err := db.SetCapacity(ctx, "dep-1", 5, time.Now())
		require.NoError(t, err)
		assert.True(t, adj.Applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetDeparture_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM departures WHERE departure_id`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(departureRowColumns))

	d, err := db.GetDeparture(context.Background(), "nope")
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrDepartureNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDeparturesByPlan(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := departureRow("dep-2", 10, 0)
	rows.AddRow("dep-1", "plan-1", time.Now().Add(24*time.Hour), "Harbour", "09:30",
		10, 4, models.DepartureConfirmed, true, nil, nil, time.Now(), time.Now())

	mock.ExpectQuery(`SELECT (.+) FROM departures WHERE plan_id = \? ORDER BY departure_date DESC`).
		WithArgs("plan-1").
		WillReturnRows(rows)

	departures, err := db.ListDeparturesByPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Len(t, departures, 2)
	assert.Equal(t, "dep-2", departures[0].DepartureID)
	assert.Equal(t, 4, departures[1].BookedSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDepartureCancelled(t *testing.T) {
	ctx := context.Background()
	at := time.Now()

	t.Run("Success", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE departures\s+SET status = \?, is_active = FALSE`).
			WithArgs(models.DepartureCancelled, at, "weather", at, "dep-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, db.MarkDepartureCancelled(ctx, "dep-1", "weather", at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`UPDATE departures`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM departures`).
			WithArgs("dep-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := db.MarkDepartureCancelled(ctx, "dep-1", "weather", at)
		assert.ErrorIs(t, err, ErrDepartureNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteDeparture(t *testing.T) {
	ctx := context.Background()

	t.Run("Deleted", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`DELETE FROM departures WHERE departure_id = \? AND booked_seats = 0`).
			WithArgs("dep-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, db.DeleteDeparture(ctx, "dep-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Has bookings", func(t *testing.T) {
		db, mock := setupMockDB(t)

		mock.ExpectExec(`DELETE FROM departures`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM departures`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := db.DeleteDeparture(ctx, "dep-1")
		assert.ErrorIs(t, err, ErrDepartureHasBookings)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateDeparture_OnlyGivenFields(t *testing.T) {
	db, mock := setupMockDB(t)
	at := time.Now()
	location := "North gate"

	mock.ExpectExec(`UPDATE departures SET updated_at = \?, pickup_location = \? WHERE departure_id = \?`).
		WithArgs(at, location, "dep-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.UpdateDeparture(context.Background(), "dep-1", models.DepartureUpdate{PickupLocation: &location}, at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
