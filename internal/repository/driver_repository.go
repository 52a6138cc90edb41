package repository

import (
	"context"
	"errors"
	"fmt"

	"bistro/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// driverRepository implements the DriverRepository interface using PostgreSQL.
type driverRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDriverRepository creates a new PostgreSQL-backed driver repository.
func NewDriverRepository(pool *pgxpool.Pool, logger zerolog.Logger) DriverRepository {
	return &driverRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "driver").Logger(),
	}
}

// List retrieves drivers ordered by name, optionally restricted to one status.
func (r *driverRepository) List(ctx context.Context, status model.DriverStatus) ([]model.Driver, error) {
	query := `
		SELECT id, name, phone, status, vehicle_type, rating
		FROM drivers
		WHERE ($1 = '' OR status = $1)
		ORDER BY name, id
	`

	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		r.logger.Error().Err(err).Str("status", string(status)).Msg("failed to query drivers")
		return nil, fmt.Errorf("failed to query drivers: %w", err)
	}
	defer rows.Close()

	drivers := []model.Driver{}
	for rows.Next() {
		var d model.Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Phone, &d.Status, &d.VehicleType, &d.Rating); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan driver row")
			return nil, fmt.Errorf("failed to scan driver: %w", err)
		}
		drivers = append(drivers, d)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating driver rows")
		return nil, fmt.Errorf("error iterating drivers: %w", err)
	}

	return drivers, nil
}

// GetByID retrieves a single driver by its ID.
func (r *driverRepository) GetByID(ctx context.Context, id string) (*model.Driver, error) {
	query := `
		SELECT id, name, phone, status, vehicle_type, rating
		FROM drivers
		WHERE id = $1
	`

	var d model.Driver
	err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Phone, &d.Status, &d.VehicleType, &d.Rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("driver_id", id).Msg("driver not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("driver_id", id).Msg("failed to query driver")
		return nil, fmt.Errorf("failed to query driver: %w", err)
	}

	return &d, nil
}

// Upsert inserts or refreshes roster entries in a single batch.
func (r *driverRepository) Upsert(ctx context.Context, drivers []model.Driver) error {
	if len(drivers) == 0 {
		return nil
	}

	query := `
		INSERT INTO drivers (id, name, phone, status, vehicle_type, rating)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			vehicle_type = EXCLUDED.vehicle_type,
			rating = EXCLUDED.rating,
			status = CASE WHEN drivers.status = 'delivering' THEN drivers.status ELSE EXCLUDED.status END
	`

	batch := &pgx.Batch{}
	for _, d := range drivers {
		batch.Queue(query, d.ID, d.Name, d.Phone, d.Status, d.VehicleType, d.Rating)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, d := range drivers {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().Err(err).Str("driver_id", d.ID).Msg("failed to upsert driver")
			return fmt.Errorf("failed to upsert driver %s: %w", d.ID, err)
		}
	}

	r.logger.Debug().Int("count", len(drivers)).Msg("drivers upserted")

	return nil
}
