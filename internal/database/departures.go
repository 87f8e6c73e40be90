package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trip-booking-system/internal/models"
)

const departureColumns = `departure_id, plan_id, departure_date, pickup_location, pickup_time,
	total_capacity, booked_seats, status, is_active, cancelled_at, cancellation_reason,
	created_at, updated_at`

// AdjustBookedSeats applies delta to booked_seats in a single conditional
// statement. The row only changes when the departure exists and the new count
// stays within [0, total_capacity]. Reservations (positive deltas) also need
// the departure to be active and scheduled or confirmed, so nothing is booked
// onto a cancelled or completed departure. A rejected update is reported
// through Applied, not as an error.
func (db *DB) AdjustBookedSeats(ctx context.Context, departureID string, delta int, at time.Time) (models.SeatAdjustment, error) {
	query := `
		UPDATE departures
		SET booked_seats = booked_seats + ?, updated_at = ?
		WHERE departure_id = ?
			AND booked_seats + ? >= 0
			AND booked_seats + ? <= total_capacity
			AND (? < 0 OR (is_active = TRUE AND status IN (?, ?)))
	`

	result, err := db.ExecContext(ctx, query, delta, at, departureID, delta, delta,
		delta, models.DepartureScheduled, models.DepartureConfirmed)
	if err != nil {
		return models.SeatAdjustment{}, fmt.Errorf("failed to adjust booked seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return models.SeatAdjustment{}, fmt.Errorf("failed to get rows affected: %w", err)
	}

	// The read below only reports state; the decision was made by the UPDATE.
	current, err := db.GetDeparture(ctx, departureID)
	if err != nil {
		if rows == 1 && errors.Is(err, ErrDepartureNotFound) {
			return models.SeatAdjustment{Applied: true}, nil
		}
		return models.SeatAdjustment{}, err
	}

	return models.SeatAdjustment{Applied: rows == 1, Current: current}, nil
}

// SetCapacity changes total_capacity unless it would drop below booked_seats
func (db *DB) SetCapacity(ctx context.Context, departureID string, capacity int, at time.Time) (models.SeatAdjustment, error) {
	query := `
		UPDATE departures
		SET total_capacity = ?, updated_at = ?
		WHERE departure_id = ? AND booked_seats <= ?
	`

	result, err := db.ExecContext(ctx, query, capacity, at, departureID, capacity)
	if err != nil {
		return models.SeatAdjustment{}, fmt.Errorf("failed to set capacity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return models.SeatAdjustment{}, fmt.Errorf("failed to get rows affected: %w", err)
	}

	current, err := db.GetDeparture(ctx, departureID)
	if err != nil {
		return models.SeatAdjustment{}, err
	}

	// MySQL reports 0 affected rows when nothing changed, so an unchanged
	// capacity that satisfies the guard still counts as applied.
	applied := rows == 1 || (current.TotalCapacity == capacity && current.BookedSeats <= capacity)
	return models.SeatAdjustment{Applied: applied, Current: current}, nil
}

// GetDeparture retrieves a departure by ID
func (db *DB) GetDeparture(ctx context.Context, departureID string) (*models.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM departures WHERE departure_id = ?`

	var d models.Departure
	err := db.GetContext(ctx, &d, query, departureID)
	if err == sql.ErrNoRows {
		return nil, ErrDepartureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get departure: %w", err)
	}

	return &d, nil
}

// ListDeparturesByPlan returns a plan's departures, latest date first
func (db *DB) ListDeparturesByPlan(ctx context.Context, planID string) ([]models.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM departures WHERE plan_id = ? ORDER BY departure_date DESC`

	departures := []models.Departure{}
	if err := db.SelectContext(ctx, &departures, query, planID); err != nil {
		return nil, fmt.Errorf("failed to list departures: %w", err)
	}

	return departures, nil
}

// ListDueDepartures returns active departures dated before the given time
func (db *DB) ListDueDepartures(ctx context.Context, before time.Time) ([]models.Departure, error) {
	query := `SELECT ` + departureColumns + ` FROM departures
		WHERE is_active = TRUE AND status IN (?, ?) AND departure_date < ?
		ORDER BY departure_date`

	departures := []models.Departure{}
	err := db.SelectContext(ctx, &departures, query, models.DepartureScheduled, models.DepartureConfirmed, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list due departures: %w", err)
	}

	return departures, nil
}

// CreateDeparture inserts a new departure
func (db *DB) CreateDeparture(ctx context.Context, d *models.Departure) error {
	query := `
		INSERT INTO departures (departure_id, plan_id, departure_date, pickup_location, pickup_time,
			total_capacity, booked_seats, status, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, d.DepartureID, d.PlanID, d.DepartureDate, d.PickupLocation,
		d.PickupTime, d.TotalCapacity, d.BookedSeats, d.Status, d.IsActive, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create departure: %w", err)
	}

	return nil
}

// UpdateDeparture writes the non-nil fields of upd. Seat and capacity fields
// are not reachable from here.
func (db *DB) UpdateDeparture(ctx context.Context, departureID string, upd models.DepartureUpdate, at time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{at}

	if upd.DepartureDate != nil {
		sets = append(sets, "departure_date = ?")
		args = append(args, *upd.DepartureDate)
	}
	if upd.PickupLocation != nil {
		sets = append(sets, "pickup_location = ?")
		args = append(args, *upd.PickupLocation)
	}
	if upd.PickupTime != nil {
		sets = append(sets, "pickup_time = ?")
		args = append(args, *upd.PickupTime)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}

	query := `UPDATE departures SET ` + strings.Join(sets, ", ") + ` WHERE departure_id = ?`
	args = append(args, departureID)

	return db.execDepartureUpdate(ctx, departureID, query, args...)
}

// MarkDepartureCancelled freezes a departure after a vendor cancellation
func (db *DB) MarkDepartureCancelled(ctx context.Context, departureID, reason string, at time.Time) error {
	query := `
		UPDATE departures
		SET status = ?, is_active = FALSE, cancelled_at = ?, cancellation_reason = ?, updated_at = ?
		WHERE departure_id = ?
	`

	return db.execDepartureUpdate(ctx, departureID, query, models.DepartureCancelled, at, reason, at, departureID)
}

// MarkDepartureCompleted closes a departure whose date has passed
func (db *DB) MarkDepartureCompleted(ctx context.Context, departureID string, at time.Time) error {
	query := `
		UPDATE departures
		SET status = ?, is_active = FALSE, updated_at = ?
		WHERE departure_id = ?
	`

	return db.execDepartureUpdate(ctx, departureID, query, models.DepartureCompleted, at, departureID)
}

// DeleteDeparture removes a departure that holds no booked seats
func (db *DB) DeleteDeparture(ctx context.Context, departureID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM departures WHERE departure_id = ? AND booked_seats = 0`, departureID)
	if err != nil {
		return fmt.Errorf("failed to delete departure: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	exists, err := db.departureExists(ctx, departureID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrDepartureNotFound
	}
	return ErrDepartureHasBookings
}

func (db *DB) execDepartureUpdate(ctx context.Context, departureID, query string, args ...interface{}) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update departure: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	exists, err := db.departureExists(ctx, departureID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrDepartureNotFound
	}
	return nil
}

func (db *DB) departureExists(ctx context.Context, departureID string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM departures WHERE departure_id = ?`, departureID)
	if err != nil {
		return false, fmt.Errorf("failed to check departure: %w", err)
	}
	return count > 0, nil
}
