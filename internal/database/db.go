package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"trip-booking-system/internal/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Sentinel errors for records that do not exist or guarded writes that cannot apply
var (
	ErrDepartureNotFound    = errors.New("departure not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrDepartureHasBookings = errors.New("departure has booked seats")
)

//go:embed schema.sql
var schema string

type DB struct {
	*sqlx.DB
}

func NewDB(cfg config.DatabaseConfig) (*DB, error) {
	db, err := sqlx.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// EnsureSchema creates missing tables. Statements are run one at a time since
// the driver does not allow multi-statement execs by default.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
