package database

import (
	"context"
	"database/sql"
	"fmt"

	"trip-booking-system/internal/models"
)

// CreatePlan inserts a new plan
func (db *DB) CreatePlan(ctx context.Context, p *models.Plan) error {
	query := `
		INSERT INTO plans (plan_id, vendor_id, name, price, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, p.PlanID, p.VendorID, p.Name, p.Price, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	return nil
}

// GetPlan retrieves a plan by ID
func (db *DB) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	query := `
		SELECT plan_id, vendor_id, name, price, is_active, created_at, updated_at
		FROM plans
		WHERE plan_id = ?
	`

	var p models.Plan
	err := db.GetContext(ctx, &p, query, planID)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &p, nil
}
